package partition

import "testing"

func TestNormalizeSelectionVariants(t *testing.T) {
	branches := []Branch{
		&memoryBranch{spec: MemoryBranchSpec{Name: "x", Dtype: ">i4"}},
		&memoryBranch{spec: MemoryBranchSpec{Name: "y", Dtype: ">f8"}},
	}

	all, err := NormalizeSelection(nil, branches)
	if err != nil {
		t.Fatalf("NormalizeSelection(nil): %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("NormalizeSelection(nil) = %v, want both branches", all)
	}

	single, err := NormalizeSelection("x", branches)
	if err != nil {
		t.Fatalf("NormalizeSelection(string): %v", err)
	}
	if len(single) != 1 || single["x"] != ">i4" {
		t.Fatalf("NormalizeSelection(string) = %v, want only x", single)
	}

	seq, err := NormalizeSelection([]string{"y", "x"}, branches)
	if err != nil {
		t.Fatalf("NormalizeSelection([]string): %v", err)
	}
	if len(seq) != 2 {
		t.Fatalf("NormalizeSelection([]string) = %v, want both", seq)
	}

	mapped, err := NormalizeSelection(map[string]Dtype{"x": "<i4"}, branches)
	if err != nil {
		t.Fatalf("NormalizeSelection(map): %v", err)
	}
	if mapped["x"] != "<i4" {
		t.Fatalf("NormalizeSelection(map) cast x to %v, want <i4", mapped["x"])
	}

	fn, err := NormalizeSelection(func(name string) (Dtype, bool) { return "", name == "y" }, branches)
	if err != nil {
		t.Fatalf("NormalizeSelection(func): %v", err)
	}
	if len(fn) != 1 || fn["y"] != ">f8" {
		t.Fatalf("NormalizeSelection(func) = %v, want only y at its native dtype", fn)
	}

	if _, err := NormalizeSelection("nope", branches); err == nil {
		t.Fatalf("NormalizeSelection(\"nope\"): want error for unknown branch")
	}
}

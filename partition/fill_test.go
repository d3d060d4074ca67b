package partition

import "testing"

func alwaysUnder(baskets []BasketData) bool { return true }

func underAtMost(n int) func([]BasketData) bool {
	return func(baskets []BasketData) bool { return len(baskets) <= n }
}

// TestFillSingleFile is spec.md §8 scenario 4: a single file with 1000
// entries, one int32 branch split across 4 equal baskets, an unbounded
// under, and the default by. Expect exactly 1 partition covering [0,1000).
func TestFillSingleFile(t *testing.T) {
	tree := NewMemoryTree(1000, []MemoryBranchSpec{
		{
			Name:  "x",
			Dtype: ">i4",
			Baskets: []MemoryBasket{
				{EntryStart: 0, EntryEnd: 250, NumBytes: 1000},
				{EntryStart: 250, EntryEnd: 500, NumBytes: 1000},
				{EntryStart: 500, EntryEnd: 750, NumBytes: 1000},
				{EntryStart: 750, EntryEnd: 1000, NumBytes: 1000},
			},
		},
	})
	opener := MemoryOpener{Trees: map[string]*MemoryTree{"a.root": tree}}

	ps, err := Fill([]string{"a.root"}, "tree", nil, Options{Opener: opener, Under: alwaysUnder})
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if ps.NumPartitions != 1 {
		t.Fatalf("NumPartitions = %d, want 1", ps.NumPartitions)
	}
	want := Range{Path: "a.root", EntryStart: 0, EntryEnd: 1000}
	got := ps.Partitions[0].Ranges[0]
	if got.Path != want.Path || got.EntryStart != want.EntryStart || got.EntryEnd != want.EntryEnd {
		t.Fatalf("range = %+v, want %+v", got, want)
	}
	if ps.NumEntries != 1000 {
		t.Fatalf("NumEntries = %d, want 1000", ps.NumEntries)
	}
}

// TestFillTwoFilesOneBasketEach is spec.md §8 scenario 5: two files of 100
// entries each, one branch with one basket per file, under stops growth at
// 1 basket. Expect 2 partitions, [0,100) in each file.
func TestFillTwoFilesOneBasketEach(t *testing.T) {
	treeA := NewMemoryTree(100, []MemoryBranchSpec{
		{Name: "x", Dtype: ">i4", Baskets: []MemoryBasket{{EntryStart: 0, EntryEnd: 100, NumBytes: 400}}},
	})
	treeB := NewMemoryTree(100, []MemoryBranchSpec{
		{Name: "x", Dtype: ">i4", Baskets: []MemoryBasket{{EntryStart: 0, EntryEnd: 100, NumBytes: 400}}},
	})
	opener := MemoryOpener{Trees: map[string]*MemoryTree{"a.root": treeA, "b.root": treeB}}

	ps, err := Fill([]string{"a.root", "b.root"}, "tree", nil, Options{Opener: opener, Under: underAtMost(1)})
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if ps.NumPartitions != 2 {
		t.Fatalf("NumPartitions = %d, want 2", ps.NumPartitions)
	}
	if len(ps.Partitions[0].Ranges) != 1 || ps.Partitions[0].Ranges[0].Path != "a.root" {
		t.Fatalf("partition 0 = %+v, want one range in a.root", ps.Partitions[0])
	}
	if len(ps.Partitions[1].Ranges) != 1 || ps.Partitions[1].Ranges[0].Path != "b.root" {
		t.Fatalf("partition 1 = %+v, want one range in b.root", ps.Partitions[1])
	}
	if ps.Partitions[1].Ranges[0].EntryStart != 0 || ps.Partitions[1].Ranges[0].EntryEnd != 100 {
		t.Fatalf("partition 1 range = %+v, want [0,100)", ps.Partitions[1].Ranges[0])
	}
}

// TestFillSchemaMismatch is spec.md §8 scenario 6: file B renames a branch
// present in file A. Fill must report a SchemaMismatchError naming the
// missing branch and both files.
func TestFillSchemaMismatch(t *testing.T) {
	treeA := NewMemoryTree(10, []MemoryBranchSpec{
		{Name: "x", Dtype: ">i4", Baskets: []MemoryBasket{{EntryStart: 0, EntryEnd: 10, NumBytes: 40}}},
	})
	treeB := NewMemoryTree(10, []MemoryBranchSpec{
		{Name: "y", Dtype: ">i4", Baskets: []MemoryBasket{{EntryStart: 0, EntryEnd: 10, NumBytes: 40}}},
	})
	opener := MemoryOpener{Trees: map[string]*MemoryTree{"a.root": treeA, "b.root": treeB}}

	_, err := Fill([]string{"a.root", "b.root"}, "tree", nil, Options{Opener: opener, Under: underAtMost(1)})
	if err == nil {
		t.Fatalf("Fill: want SchemaMismatchError, got nil")
	}
	mismatch, ok := err.(*SchemaMismatchError)
	if !ok {
		t.Fatalf("Fill: err = %v (%T), want *SchemaMismatchError", err, err)
	}
	if mismatch.Branch != "x" || mismatch.FilePrev != "a.root" || mismatch.FileNext != "b.root" {
		t.Fatalf("mismatch = %+v, want branch x between a.root and b.root", mismatch)
	}
}

// TestFillTiling checks the universal tiling invariant from spec.md §8:
// concatenating all ranges for a path covers [0, numentries) with no gaps
// or overlaps, across a layout that forces several partitions.
func TestFillTiling(t *testing.T) {
	spec := []MemoryBranchSpec{
		{Name: "x", Dtype: ">i4", Baskets: []MemoryBasket{
			{EntryStart: 0, EntryEnd: 40, NumBytes: 100},
			{EntryStart: 40, EntryEnd: 80, NumBytes: 100},
			{EntryStart: 80, EntryEnd: 120, NumBytes: 100},
		}},
		{Name: "y", Dtype: ">f8", Baskets: []MemoryBasket{
			{EntryStart: 0, EntryEnd: 60, NumBytes: 500},
			{EntryStart: 60, EntryEnd: 120, NumBytes: 500},
		}},
	}
	tree := NewMemoryTree(120, spec)
	opener := MemoryOpener{Trees: map[string]*MemoryTree{"a.root": tree}}

	ps, err := Fill([]string{"a.root"}, "tree", nil, Options{Opener: opener, Under: underAtMost(1)})
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}

	var coverage int64
	for i, p := range ps.Partitions {
		if p.Index != i {
			t.Fatalf("partition %d has Index %d", i, p.Index)
		}
		for _, r := range p.Ranges {
			if r.EntryStart != coverage {
				t.Fatalf("range %+v starts at %d, want %d (gap or overlap)", r, r.EntryStart, coverage)
			}
			coverage = r.EntryEnd
		}
	}
	if coverage != 120 {
		t.Fatalf("total coverage = %d, want 120", coverage)
	}
	if ps.NumEntries != 120 {
		t.Fatalf("NumEntries = %d, want 120", ps.NumEntries)
	}
}

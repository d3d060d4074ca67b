package partition

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestExpandPathsGlobSortsLocalMatches(t *testing.T) {
	dir := t.TempDir()
	names := []string{"run3.root", "run1.root", "run2.root"}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), nil, 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	got, err := ExpandPaths(filepath.Join(dir, "*.root"))
	if err != nil {
		t.Fatalf("ExpandPaths: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ExpandPaths returned %d paths, want 3: %v", len(got), got)
	}
	want := make([]string, len(names))
	for i, n := range names {
		want[i] = filepath.Join(dir, n)
	}
	sort.Strings(want)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("path[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExpandPathsPassesThroughRemoteURL(t *testing.T) {
	got, err := ExpandPaths("https://example.com/data.root")
	if err != nil {
		t.Fatalf("ExpandPaths: %v", err)
	}
	if len(got) != 1 || got[0] != "https://example.com/data.root" {
		t.Fatalf("ExpandPaths = %v, want passthrough", got)
	}
}

func TestExpandPathsMixedSlice(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.root"), nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ExpandPaths([]string{filepath.Join(dir, "*.root"), "xrootd://server/b.root"})
	if err != nil {
		t.Fatalf("ExpandPaths: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ExpandPaths returned %d paths, want 2: %v", len(got), got)
	}
	if got[1] != "xrootd://server/b.root" {
		t.Fatalf("ExpandPaths[1] = %q, want passthrough URL", got[1])
	}
}

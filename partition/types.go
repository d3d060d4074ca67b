// Package partition plans and iterates contiguous entry partitions across a
// set of ROOT files that share a tree layout.
package partition

import "fmt"

// Dtype is a Numpy-style array dtype string (e.g. ">i4"), the unit in which
// branchdtypes are expressed and serialized.
type Dtype string

// BasketData holds enough information about one basket to decide whether it
// can be folded into a growing partition, per spec.md §3.2. It is produced
// during planning and never persisted.
type BasketData struct {
	Path       string
	BranchName string
	Dtype      Dtype
	ItemDims   []int
	EntryStart int64
	EntryEnd   int64
	NumBytes   int64

	// pathIndex is the index into the planner's expanded path list that
	// this basket belongs to; carried alongside Path (a string alone
	// cannot disambiguate two files that happen to share a path, and the
	// planner needs the index to restart from where it left off).
	pathIndex int
}

// NumEntries returns EntryEnd - EntryStart.
func (b BasketData) NumEntries() int64 { return b.EntryEnd - b.EntryStart }

// Range is a partition's slice within a single file.
type Range struct {
	Path       string `json:"path"`
	EntryStart int64  `json:"entrystart"`
	EntryEnd   int64  `json:"entryend"`

	pathIndex int
}

// NumEntries returns EntryEnd - EntryStart.
func (r Range) NumEntries() int64 { return r.EntryEnd - r.EntryStart }

// Partition is a contiguous section of data, possibly crossing file
// boundaries, meant to be loaded as one set of contiguous arrays.
type Partition struct {
	Index  int     `json:"index"`
	Ranges []Range `json:"ranges"`
}

// NumEntries sums NumEntries across all of the partition's ranges.
func (p Partition) NumEntries() int64 {
	var n int64
	for _, r := range p.Ranges {
		n += r.NumEntries()
	}
	return n
}

// PartitionSet is the planner's output: a set of files broken into
// partitions, each independently satisfying a caller's size constraint.
type PartitionSet struct {
	TreePath       string
	BranchDtypes   map[string]Dtype
	BranchCounters map[string]string
	NumPartitions  int
	NumEntries     int64
	Partitions     []Partition
}

// NewPartitionSet validates and constructs a PartitionSet, checking the
// construction invariants from spec.md §3.2: partition count and index
// sequence, total entry count, and per-path tiling with no gaps or overlap.
func NewPartitionSet(treepath string, branchdtypes map[string]Dtype, branchcounters map[string]string, partitions []Partition) (*PartitionSet, error) {
	for i, p := range partitions {
		if p.Index != i {
			return nil, &InternalInvariantError{Msg: fmt.Sprintf("partition %d has index %d, want %d", i, p.Index, i)}
		}
	}

	var numentries int64
	lastPath := ""
	haveLast := false
	var lastEnd int64
	for _, p := range partitions {
		numentries += p.NumEntries()
		for _, r := range p.Ranges {
			if !haveLast || lastPath != r.Path {
				if r.EntryStart != 0 {
					return nil, &InternalInvariantError{Msg: fmt.Sprintf("range in %q starts at %d, want 0 (new file)", r.Path, r.EntryStart)}
				}
			} else if r.EntryStart != lastEnd {
				return nil, &InternalInvariantError{Msg: fmt.Sprintf("range in %q starts at %d, want %d (continuing previous range)", r.Path, r.EntryStart, lastEnd)}
			}
			lastPath = r.Path
			lastEnd = r.EntryEnd
			haveLast = true
		}
	}

	return &PartitionSet{
		TreePath:       treepath,
		BranchDtypes:   branchdtypes,
		BranchCounters: branchcounters,
		NumPartitions:  len(partitions),
		NumEntries:     numentries,
		Partitions:     partitions,
	}, nil
}

package partition

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/bits-and-blooms/bitset"
)

// Options configures Fill. The zero value applies DefaultBy and
// DefaultUnder; Opener must still be set.
type Options struct {
	By     func(candidates []Partition) Partition
	Under  func(baskets []BasketData) bool
	Debug  bool
	Opener TreeOpener
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.By == nil {
		o.By = DefaultBy
	}
	if o.Under == nil {
		o.Under = DefaultUnder
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// DefaultBy picks the candidate with the fewest entries, breaking ties by
// first occurrence — callers must iterate candidates in a stable order for
// this to be reproducible run to run.
func DefaultBy(candidates []Partition) Partition {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.NumEntries() < best.NumEntries() {
			best = c
		}
	}
	return best
}

const defaultUnderBytes = 10 * 1024 * 1024

// DefaultUnder stops growth once accumulated basket bytes would reach 10MB.
func DefaultUnder(baskets []BasketData) bool {
	var total int64
	for _, b := range baskets {
		total += b.NumBytes
	}
	return total < defaultUnderBytes
}

// treeCache is a write-through cache of opened trees, keyed by file path and
// evicted by path index (spec.md §9 "ownership of the tree cache").
type treeCache struct {
	entries map[string]cachedTree
}

type cachedTree struct {
	pathIndex int
	reader    TreeReader
}

func newTreeCache() *treeCache { return &treeCache{entries: make(map[string]cachedTree)} }

func (c *treeCache) get(path string) (TreeReader, bool) {
	e, ok := c.entries[path]
	if !ok {
		return nil, false
	}
	return e.reader, true
}

func (c *treeCache) put(pathIndex int, path string, r TreeReader) {
	c.entries[path] = cachedTree{pathIndex: pathIndex, reader: r}
}

func (c *treeCache) evictBefore(keepFrom int) {
	for k, e := range c.entries {
		if e.pathIndex < keepFrom {
			delete(c.entries, k)
		}
	}
}

// Fill plans a PartitionSet over the files matched by pathExpr: per branch,
// it greedily grows a candidate partition under opts.Under, then arbitrates
// across branches' candidates with opts.By to fix one shared boundary,
// repeating until every file's entries are covered (spec.md §4.3).
func Fill(pathExpr any, treepath string, branchSel any, opts Options) (*PartitionSet, error) {
	opts = opts.withDefaults()
	if opts.Opener == nil {
		return nil, fmt.Errorf("partition: Fill requires a non-nil Opener")
	}

	paths, err := ExpandPaths(pathExpr)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("partition: path expression matched no files")
	}

	cache := newTreeCache()
	seen := bitset.New(uint(len(paths)))

	open := func(i int) (TreeReader, error) {
		if r, ok := cache.get(paths[i]); ok {
			return r, nil
		}
		r, err := opts.Opener.Open(paths[i], treepath)
		if err != nil {
			return nil, &IOFaultError{Path: paths[i], Err: err}
		}
		cache.put(i, paths[i], r)
		return r, nil
	}

	tree0, err := open(0)
	if err != nil {
		return nil, err
	}
	seen.Set(0)

	toget, err := NormalizeSelection(branchSel, tree0.AllBranches())
	if err != nil {
		return nil, err
	}
	counters := copyCounters(tree0.Counter(), toget)

	// validate checks file i's branch set/dtypes/counters against the
	// running (toget, counters) baseline, naming file i-1 in any error. A
	// no-op once i has already been validated.
	validate := func(i int, t TreeReader) error {
		if seen.Test(uint(i)) {
			return nil
		}
		newSel, err := NormalizeSelection(branchSel, t.AllBranches())
		if err != nil {
			return err
		}
		for name, dt := range toget {
			got, ok := newSel[name]
			if !ok {
				return &SchemaMismatchError{Branch: name, FilePrev: paths[i-1], FileNext: paths[i], Reason: "branch is missing"}
			}
			if got != dt {
				return &SchemaMismatchError{Branch: name, FilePrev: paths[i-1], FileNext: paths[i], Reason: fmt.Sprintf("dtype changed from %s to %s", dt, got)}
			}
		}
		newCounters := t.Counter()
		for name, counter := range counters {
			got, ok := newCounters[name]
			if !ok {
				return &SchemaMismatchError{Branch: name, FilePrev: paths[i-1], FileNext: paths[i], Reason: fmt.Sprintf("no longer counted by %q", counter)}
			}
			if got != counter {
				return &SchemaMismatchError{Branch: name, FilePrev: paths[i-1], FileNext: paths[i], Reason: fmt.Sprintf("counter changed from %q to %q", counter, got)}
			}
		}
		seen.Set(uint(i))
		return nil
	}

	branchNames := make([]string, 0, len(toget))
	for name := range toget {
		branchNames = append(branchNames, name)
	}
	sort.Strings(branchNames)

	var partitions []Partition
	for {
		if len(partitions) > 0 {
			last := partitions[len(partitions)-1]
			lastRange := last.Ranges[len(last.Ranges)-1]
			lastTree, err := open(lastRange.pathIndex)
			if err != nil {
				return nil, err
			}
			if lastRange.pathIndex == len(paths)-1 && lastRange.EntryEnd >= lastTree.NumEntries() {
				break
			}
		}

		candidates := make([]Partition, 0, len(branchNames))
		for _, branchName := range branchNames {
			cand, err := growOneBranch(paths, open, validate, partitions, len(partitions), branchName, toget[branchName], opts.Under)
			if err != nil {
				return nil, err
			}
			candidates = append(candidates, cand)
		}

		chosen := opts.By(candidates)
		partitions = append(partitions, chosen)

		if opts.Debug {
			opts.Logger.Debug("partition planned", "index", chosen.Index, "ranges", len(chosen.Ranges))
		}

		cache.evictBefore(chosen.Ranges[0].pathIndex)
	}

	return NewPartitionSet(treepath, toget, counters, partitions)
}

func copyCounters(src map[string]string, toget map[string]Dtype) map[string]string {
	out := make(map[string]string, len(src))
	for countee, counter := range src {
		if _, ok := toget[countee]; ok {
			out[countee] = counter
		}
	}
	return out
}

// growOneBranch accumulates baskets for one branch starting where the
// previous partition left off (never from a memoized per-branch cursor,
// spec.md §9), stopping as soon as under would be violated, and converts
// the accumulated baskets into a candidate Partition.
func growOneBranch(paths []string, open func(int) (TreeReader, error), validate func(int, TreeReader) error, partitions []Partition, partitioni int, branchName string, dt Dtype, under func([]BasketData) bool) (Partition, error) {
	var pathi int
	var entryi int64
	var basketi int

	if len(partitions) != 0 {
		last := partitions[len(partitions)-1]
		lastRange := last.Ranges[len(last.Ranges)-1]
		pathi = lastRange.pathIndex
		entryi = lastRange.EntryEnd
	}

	t, err := open(pathi)
	if err != nil {
		return Partition{}, err
	}
	if pathi > 0 {
		if err := validate(pathi, t); err != nil {
			return Partition{}, err
		}
	}
	branch, ok := t.Branch(branchName)
	if !ok {
		return Partition{}, &SchemaMismatchError{Branch: branchName, FileNext: paths[pathi], Reason: "branch is missing"}
	}

	if len(partitions) != 0 {
		for basketi = 0; basketi < branch.NumBaskets()-1; basketi++ {
			if branch.BasketStart(basketi+1) > entryi {
				break
			}
		}
		// The scan above lands on the basket containing entryi, on the
		// assumption that entryi falls strictly inside it. When this
		// file's branch is already fully consumed up to entryi (entryi
		// reaches that basket's own end), there is nothing left to
		// re-offer from it — advance past it so accumulation starts
		// fresh in the next file instead of re-adding a zero-length
		// range that would otherwise have to be filtered out below.
		if branch.BasketStart(basketi)+branch.BasketEntries(basketi) <= entryi {
			basketi = branch.NumBaskets()
		}
	}

	var baskets []BasketData
	for {
		if basketi >= branch.NumBaskets() {
			pathi++
			basketi = 0
			if pathi >= len(paths) {
				break
			}
			t, err = open(pathi)
			if err != nil {
				return Partition{}, err
			}
			if err := validate(pathi, t); err != nil {
				return Partition{}, err
			}
			branch, ok = t.Branch(branchName)
			if !ok {
				return Partition{}, &SchemaMismatchError{Branch: branchName, FileNext: paths[pathi], Reason: "branch is missing"}
			}
		}

		start := branch.BasketStart(basketi)
		end := start + branch.BasketEntries(basketi)
		baskets = append(baskets, BasketData{
			Path:       paths[pathi],
			BranchName: branchName,
			Dtype:      dt,
			ItemDims:   branch.ItemDims(),
			EntryStart: start,
			EntryEnd:   end,
			NumBytes:   branch.BasketBytes(basketi),
			pathIndex:  pathi,
		})

		if !under(baskets) {
			baskets = baskets[:len(baskets)-1]
			break
		}
		basketi++
	}

	if len(baskets) == 0 {
		return Partition{}, &UnsatisfiableError{Branch: branchName, Path: paths[pathi], Entry: entryi}
	}

	ranges := coalesceRanges(baskets)
	if len(partitions) != 0 {
		last := partitions[len(partitions)-1]
		lastRange := last.Ranges[len(last.Ranges)-1]
		if lastRange.pathIndex == ranges[0].pathIndex {
			ranges[0].EntryStart = lastRange.EntryEnd
		} else {
			ranges[0].EntryStart = 0
		}
	}

	kept := ranges[:0]
	for _, r := range ranges {
		if r.EntryStart != r.EntryEnd {
			kept = append(kept, r)
		}
	}

	return Partition{Index: partitioni, Ranges: kept}, nil
}

// coalesceRanges merges consecutive baskets belonging to the same file into
// one Range each.
func coalesceRanges(baskets []BasketData) []Range {
	var ranges []Range
	for _, b := range baskets {
		if len(ranges) == 0 || ranges[len(ranges)-1].pathIndex != b.pathIndex {
			ranges = append(ranges, Range{Path: b.Path, EntryStart: b.EntryStart, EntryEnd: b.EntryEnd, pathIndex: b.pathIndex})
		} else {
			ranges[len(ranges)-1].EntryEnd = b.EntryEnd
		}
	}
	return ranges
}

package partition

import (
	"context"
	"fmt"
)

// Output is one assembled partition's arrays, keyed by branch name.
type Output struct {
	Index  int
	Arrays map[string]Arrays
}

type iterResult struct {
	output Output
	err    error
}

// Iterator pulls one Output per partition from a PartitionSet, in index
// order, opening each file's tree exactly once and reading ahead only as
// far as the partitions require (spec.md §4.4).
type Iterator struct {
	out    chan iterResult
	cancel context.CancelFunc
}

// NewIterator starts walking ps, opening files through opener and handing
// basket-decode batches to pool (nil runs them serially inside the tree
// reader). The returned Iterator must be drained with Next or abandoned
// with Close.
func NewIterator(ctx context.Context, ps *PartitionSet, opener TreeOpener, pool Executor) *Iterator {
	ctx, cancel := context.WithCancel(ctx)
	it := &Iterator{out: make(chan iterResult), cancel: cancel}
	go it.run(ctx, ps, opener, pool)
	return it
}

// Next blocks for the next partition's Output, in index order. It returns
// ok == false once every partition has been emitted, with a nil error.
func (it *Iterator) Next() (Output, bool, error) {
	r, open := <-it.out
	if !open {
		return Output{}, false, nil
	}
	if r.err != nil {
		return Output{}, false, r.err
	}
	return r.output, true, nil
}

// Close abandons the iterator. In-flight executor work, if any, is left to
// the executor/opener to cancel (spec.md §5 "cancellation").
func (it *Iterator) Close() { it.cancel() }

// completedRange is one decoded, not-yet-consumed entry range pending
// assembly into an Output, held per path the way the source's `treedata`
// dict does.
type completedRange struct {
	start, end int64
	arrays     map[string]Arrays
}

func (it *Iterator) run(ctx context.Context, ps *PartitionSet, opener TreeOpener, pool Executor) {
	defer close(it.out)

	treedata := make(map[string][]completedRange)
	var curTree TreeReader
	var curPath string
	havePath := false
	var entries []EntryRange

	send := func(idx int, arrays map[string]Arrays) bool {
		select {
		case it.out <- iterResult{output: Output{Index: idx, Arrays: arrays}}:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(err error) {
		select {
		case it.out <- iterResult{err: err}:
		case <-ctx.Done():
		}
	}

	flush := func() error {
		if !havePath {
			return nil
		}
		batches, err := curTree.Iterate(entries, ps.BranchDtypes, pool)
		if err != nil {
			return &IOFaultError{Path: curPath, Err: err}
		}
		for _, b := range batches {
			treedata[curPath] = append(treedata[curPath], completedRange{start: b.EntryStart, end: b.EntryEnd, arrays: b.Arrays})
		}
		return nil
	}

	emitReady := func(nextPartition *int) bool {
		for *nextPartition < len(ps.Partitions) && partitionComplete(ps.Partitions[*nextPartition], treedata) {
			arrays, err := assemblePartition(ps, ps.Partitions[*nextPartition], treedata)
			if err != nil {
				fail(err)
				return false
			}
			if !send(*nextPartition, arrays) {
				return false
			}
			*nextPartition++
		}
		return true
	}

	nextPartition := 0
	for _, p := range ps.Partitions {
		for _, r := range p.Ranges {
			if !havePath || curPath != r.Path {
				if err := flush(); err != nil {
					fail(err)
					return
				}
				t, err := opener.Open(r.Path, ps.TreePath)
				if err != nil {
					fail(&IOFaultError{Path: r.Path, Err: err})
					return
				}
				curTree, curPath, havePath, entries = t, r.Path, true, nil
			}
			entries = append(entries, EntryRange{EntryStart: r.EntryStart, EntryEnd: r.EntryEnd})
		}
		if !emitReady(&nextPartition) {
			return
		}
	}

	if err := flush(); err != nil {
		fail(err)
		return
	}
	emitReady(&nextPartition)
}

// partitionComplete reports whether every range in p has a matching
// decoded entry already buffered in treedata.
func partitionComplete(p Partition, treedata map[string][]completedRange) bool {
	for _, r := range p.Ranges {
		crs, ok := treedata[r.Path]
		if !ok {
			return false
		}
		found := false
		for _, cr := range crs {
			if cr.start == r.EntryStart && cr.end == r.EntryEnd {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// assemblePartition consumes p's matching decoded ranges out of treedata
// (dropping them once used, deleting the path entry when drained) and
// concatenates same-branch arrays across ranges in range order.
func assemblePartition(ps *PartitionSet, p Partition, treedata map[string][]completedRange) (map[string]Arrays, error) {
	pieces := make(map[string][]Arrays, len(ps.BranchDtypes))

	for _, r := range p.Ranges {
		crs := treedata[r.Path]
		used := -1
		for i, cr := range crs {
			if cr.start == r.EntryStart && cr.end == r.EntryEnd {
				for name, arr := range cr.arrays {
					pieces[name] = append(pieces[name], arr)
				}
				used = i
				break
			}
		}
		if used < 0 {
			return nil, &InternalInvariantError{Msg: fmt.Sprintf("range %q[%d:%d] marked complete but missing from buffered data", r.Path, r.EntryStart, r.EntryEnd)}
		}
		treedata[r.Path] = crs[used+1:]
		if len(treedata[r.Path]) == 0 {
			delete(treedata, r.Path)
		}
	}

	out := make(map[string]Arrays, len(pieces))
	for name, lst := range pieces {
		if len(lst) == 0 {
			continue
		}
		out[name] = lst[0].Concat(lst[1:])
	}
	return out, nil
}

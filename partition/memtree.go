package partition

import (
	"fmt"
	"sync"

	"github.com/NiclasEich/uproot3/internal/execpool"
)

// MemoryBasket declares one basket's entry range, on-disk size, and
// (optional) raw payload for a MemoryTree branch. RawBytes is passed through
// execpool.DecompressBasket during Iterate, so a basket's bytes may be left
// uncompressed or prefixed with the zstd frame magic to exercise
// decompression.
type MemoryBasket struct {
	EntryStart int64
	EntryEnd   int64
	NumBytes   int64
	RawBytes   []byte
}

// MemoryBranchSpec declares one branch's geometry for a MemoryTree. Counter
// names the branch that counts this one's variable-width entries, if any.
type MemoryBranchSpec struct {
	Name     string
	Dtype    Dtype
	ItemDims []int
	Baskets  []MemoryBasket
	Counter  string
}

type memoryBranch struct{ spec MemoryBranchSpec }

func (b *memoryBranch) Name() string    { return b.spec.Name }
func (b *memoryBranch) Dtype() Dtype    { return b.spec.Dtype }
func (b *memoryBranch) ItemDims() []int { return b.spec.ItemDims }
func (b *memoryBranch) NumBaskets() int { return len(b.spec.Baskets) }
func (b *memoryBranch) BasketStart(i int) int64 { return b.spec.Baskets[i].EntryStart }
func (b *memoryBranch) BasketEntries(i int) int64 {
	return b.spec.Baskets[i].EntryEnd - b.spec.Baskets[i].EntryStart
}
func (b *memoryBranch) BasketBytes(i int) int64 { return b.spec.Baskets[i].NumBytes }

// MemoryTree is a TreeReader driven entirely by declared basket geometry
// rather than parsed ROOT bytes. It exists to exercise Fill and Iterator
// without a real ROOT tree parser, which this module does not implement
// (spec.md §1, "out of scope: ROOT tree parsing") — used by this package's
// own tests and by cmd/uproot3's `plan` subcommand.
type MemoryTree struct {
	numEntries int64
	branches   map[string]*memoryBranch
	order      []string
	counters   map[string]string
}

// NewMemoryTree builds a MemoryTree with the given total entry count and
// branch specs, in declaration order.
func NewMemoryTree(numEntries int64, specs []MemoryBranchSpec) *MemoryTree {
	t := &MemoryTree{
		numEntries: numEntries,
		branches:   make(map[string]*memoryBranch, len(specs)),
		counters:   make(map[string]string),
	}
	for _, s := range specs {
		t.branches[s.Name] = &memoryBranch{spec: s}
		t.order = append(t.order, s.Name)
		if s.Counter != "" {
			t.counters[s.Name] = s.Counter
		}
	}
	return t
}

func (t *MemoryTree) NumEntries() int64 { return t.numEntries }

func (t *MemoryTree) AllBranches() []Branch {
	out := make([]Branch, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.branches[name])
	}
	return out
}

func (t *MemoryTree) Branch(name string) (Branch, bool) {
	b, ok := t.branches[name]
	if !ok {
		return nil, false
	}
	return b, true
}

func (t *MemoryTree) Counter() map[string]string { return t.counters }

// byteArrays is the Arrays implementation MemoryTree decodes into: the
// concatenated, decompressed basket bytes for one branch over one range.
// Real TreeReader implementations will have a richer concrete type; this one
// exists to give MemoryTree.Iterate something genuine to decode and hand
// back.
type byteArrays struct{ data []byte }

func (a byteArrays) Concat(more []Arrays) Arrays {
	out := append([]byte(nil), a.data...)
	for _, m := range more {
		if b, ok := m.(byteArrays); ok {
			out = append(out, b.data...)
		}
	}
	return byteArrays{data: out}
}

// Iterate decodes each requested range by concatenating, per branch, the
// decompressed bytes of every basket overlapping that range — fanning the
// per-branch decode work for one range out onto pool (nil runs it serially).
func (t *MemoryTree) Iterate(ranges []EntryRange, branchdtypes map[string]Dtype, pool Executor) ([]Batch, error) {
	batches := make([]Batch, 0, len(ranges))
	for _, r := range ranges {
		arrays := make(map[string]Arrays, len(branchdtypes))
		var mu sync.Mutex

		var tasks []func() error
		for name := range branchdtypes {
			branch, ok := t.branches[name]
			if !ok {
				continue
			}
			name, branch := name, branch
			tasks = append(tasks, func() error {
				decoded, err := decodeBranchRange(branch, r)
				if err != nil {
					return fmt.Errorf("partition: decode %q: %w", name, err)
				}
				mu.Lock()
				arrays[name] = decoded
				mu.Unlock()
				return nil
			})
		}

		if err := runTasks(pool, tasks); err != nil {
			return nil, err
		}
		batches = append(batches, Batch{EntryStart: r.EntryStart, EntryEnd: r.EntryEnd, Arrays: arrays})
	}
	return batches, nil
}

// decodeBranchRange concatenates the decompressed RawBytes of every basket
// in branch that overlaps r, in basket order.
func decodeBranchRange(branch *memoryBranch, r EntryRange) (Arrays, error) {
	var out []byte
	for i, basket := range branch.spec.Baskets {
		if basket.EntryEnd <= r.EntryStart || basket.EntryStart >= r.EntryEnd {
			continue
		}
		decoded, err := execpool.DecompressBasket(basket.RawBytes)
		if err != nil {
			return nil, fmt.Errorf("basket %d: %w", i, err)
		}
		out = append(out, decoded...)
	}
	return byteArrays{data: out}, nil
}

// runTasks runs tasks through pool, or serially in order if pool is nil.
func runTasks(pool Executor, tasks []func() error) error {
	if pool != nil {
		return pool.Run(tasks)
	}
	for _, task := range tasks {
		if err := task(); err != nil {
			return err
		}
	}
	return nil
}

// MemoryOpener resolves a path to one of its pre-built MemoryTrees,
// ignoring treepath (a MemoryOpener fixture has exactly one tree per path).
type MemoryOpener struct {
	Trees map[string]*MemoryTree
}

func (o MemoryOpener) Open(path, treepath string) (TreeReader, error) {
	t, ok := o.Trees[path]
	if !ok {
		return nil, fmt.Errorf("partition: no memory tree registered for %q", path)
	}
	return t, nil
}

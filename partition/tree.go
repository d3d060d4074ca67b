package partition

import "fmt"

// Branch is one column of an opened tree: the per-branch view the planner
// needs to walk basket boundaries, per spec.md §6.
type Branch interface {
	Name() string
	Dtype() Dtype
	ItemDims() []int
	NumBaskets() int
	BasketStart(i int) int64
	BasketEntries(i int) int64
	BasketBytes(i int) int64
}

// EntryRange is a half-open entry interval within one open tree, the unit
// the Iterator hands to TreeReader.Iterate.
type EntryRange struct {
	EntryStart int64
	EntryEnd   int64
}

// Arrays is one branch's decoded values for some entry range. This package
// never interprets the concrete array representation (spec.md §1 "ROOT
// tree parsing" is out of scope) beyond asking it to concatenate with
// later pieces of the same branch in range order, which the Iterator needs
// when a partition is made of more than one range.
type Arrays interface {
	Concat(more []Arrays) Arrays
}

// Batch is one decoded slab of arrays covering EntryStart..EntryEnd for
// every requested branch.
type Batch struct {
	EntryStart int64
	EntryEnd   int64
	Arrays     map[string]Arrays
}

// TreeReader is the opaque tree the planner and iterator depend on but do
// not implement (spec.md §6, "out of scope: ROOT tree parsing"). It exposes
// exactly the per-branch metadata the planner needs plus a batched iterator
// for the Iterator to consume.
type TreeReader interface {
	NumEntries() int64
	AllBranches() []Branch
	Branch(name string) (Branch, bool)
	// Counter maps a countee branch name to the branch that counts its
	// variable-width entries, for branches with variable width per entry.
	Counter() map[string]string
	// Iterate decodes entries in ranges for exactly the branches named in
	// branchdtypes, optionally fanning basket decode work out onto pool.
	Iterate(ranges []EntryRange, branchdtypes map[string]Dtype, pool Executor) ([]Batch, error)
}

// Executor runs independent units of work, optionally in parallel. It is
// the "opaque executor" of spec.md §4.4/§5; a nil Executor means serial
// execution.
type Executor interface {
	Run(tasks []func() error) error
}

// TreeOpener opens a ROOT file at path and returns the tree found at
// treepath inside it. Network/URL opening and memory-mapping are opaque to
// this package (spec.md §1 "out of scope").
type TreeOpener interface {
	Open(path, treepath string) (TreeReader, error)
}

// NormalizeSelection turns a branchdtypes value into a map of branch name
// to dtype (a Go map, so it carries no order), mirroring uproot's `TTree._normalizeselection`
// (spec.md §4.3): a single branch name, a slice of names, a name->dtype map,
// or a function from branch to (dtype, ok).
func NormalizeSelection(sel any, branches []Branch) (map[string]Dtype, error) {
	dtypeOf := make(map[string]Dtype, len(branches))
	for _, b := range branches {
		dtypeOf[b.Name()] = b.Dtype()
	}

	out := make(map[string]Dtype)
	switch v := sel.(type) {
	case nil:
		for name, dt := range dtypeOf {
			out[name] = dt
		}
	case string:
		dt, ok := dtypeOf[v]
		if !ok {
			return nil, fmt.Errorf("partition: no such branch %q", v)
		}
		out[v] = dt
	case []string:
		for _, name := range v {
			dt, ok := dtypeOf[name]
			if !ok {
				return nil, fmt.Errorf("partition: no such branch %q", name)
			}
			out[name] = dt
		}
	case map[string]Dtype:
		for name, dt := range v {
			if _, ok := dtypeOf[name]; !ok {
				return nil, fmt.Errorf("partition: no such branch %q", name)
			}
			out[name] = dt
		}
	case func(string) (Dtype, bool):
		for name, dt := range dtypeOf {
			if want, ok := v(name); ok {
				if want != "" {
					dt = want
				}
				out[name] = dt
			}
		}
	default:
		return nil, fmt.Errorf("partition: unsupported branch selection type %T", sel)
	}
	return out, nil
}

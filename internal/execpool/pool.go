// Package execpool is a small bounded worker pool standing in for the
// "opaque executor" the planner's Iterator hands basket-decode batches to
// (spec.md §1, §4.4, §5): parallel execution of basket decompression is
// explicitly out of scope as logic, but something still has to bound the
// fan-out of whatever decode work a TreeReader implementation does.
package execpool

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"
)

// zstdMagic is the four-byte frame magic number zstd-compressed baskets are
// detected by.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Pool runs independent tasks with bounded concurrency. It implements
// partition.Executor (duck-typed: a Run(tasks []func() error) error
// method), so any caller holding a Pool can hand it to
// partition.NewIterator without this package importing partition.
type Pool struct {
	limit int
}

// New returns a Pool that runs at most limit tasks concurrently. limit <= 0
// means unbounded.
func New(limit int) *Pool { return &Pool{limit: limit} }

// Run executes every task, returning the first error encountered (the
// other tasks still run to completion; errgroup.Group does not cancel
// siblings unless they observe a context, which these tasks do not take).
func (p *Pool) Run(tasks []func() error) error {
	var g errgroup.Group
	if p.limit > 0 {
		g.SetLimit(p.limit)
	}
	for _, task := range tasks {
		task := task
		g.Go(task)
	}
	return g.Wait()
}

// DecompressBasket returns raw unchanged if it doesn't start with the zstd
// frame magic, otherwise it decompresses it. This is the one place basket
// payloads actually need a codec rather than just parallelism (spec.md §2
// domain-stack note): a real ROOT/uproot basket may be zstd-compressed, and
// an opaque TreeReader implementation can route through this helper rather
// than vendoring its own zstd decoder.
func DecompressBasket(raw []byte) ([]byte, error) {
	if !bytes.HasPrefix(raw, zstdMagic) {
		return raw, nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("execpool: open zstd decoder: %w", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("execpool: zstd decode: %w", err)
	}
	return out, nil
}

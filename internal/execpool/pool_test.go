package execpool

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestPoolRunsAllTasks(t *testing.T) {
	var ran atomic.Int32
	tasks := make([]func() error, 20)
	for i := range tasks {
		tasks[i] = func() error { ran.Add(1); return nil }
	}
	if err := New(4).Run(tasks); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ran.Load() != int32(len(tasks)) {
		t.Fatalf("ran = %d, want %d", ran.Load(), len(tasks))
	}
}

func TestPoolSurfacesFirstError(t *testing.T) {
	want := errors.New("boom")
	tasks := []func() error{
		func() error { return nil },
		func() error { return want },
		func() error { return nil },
	}
	if err := New(2).Run(tasks); err == nil {
		t.Fatalf("Run: want an error, got nil")
	}
}

func TestDecompressBasketPassesThroughUncompressed(t *testing.T) {
	raw := []byte("not compressed")
	out, err := DecompressBasket(raw)
	if err != nil {
		t.Fatalf("DecompressBasket: %v", err)
	}
	if string(out) != string(raw) {
		t.Fatalf("DecompressBasket = %q, want passthrough %q", out, raw)
	}
}

func TestDecompressBasketDecodesZstd(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd.NewWriter: %v", err)
	}
	want := []byte("basket payload bytes")
	compressed := enc.EncodeAll(want, nil)
	enc.Close()

	out, err := DecompressBasket(compressed)
	if err != nil {
		t.Fatalf("DecompressBasket: %v", err)
	}
	if string(out) != string(want) {
		t.Fatalf("DecompressBasket = %q, want %q", out, want)
	}
}

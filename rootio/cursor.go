package rootio

// Cursor is an advancing integer offset into a Buffer. Every Sink
// serialization advances it by the number of bytes written; a patch is
// performed by handing the Sink a fresh Cursor at the offset to overwrite,
// which is then discarded without affecting the writer's real cursor.
type Cursor struct {
	pos int64
}

// NewCursor returns a Cursor positioned at pos.
func NewCursor(pos int64) *Cursor { return &Cursor{pos: pos} }

// Index returns the current offset.
func (c *Cursor) Index() int64 { return c.pos }

func (c *Cursor) advance(n int64) { c.pos += n }

// Buffer is a growable byte array representing the entire file; the only
// source of truth for a Writer. Patches at a given offset are idempotent.
type Buffer struct {
	data []byte
}

// NewBuffer returns an empty, growable Buffer.
func NewBuffer() *Buffer { return &Buffer{} }

// Len returns the current size of the buffer.
func (b *Buffer) Len() int64 { return int64(len(b.data)) }

// Resize grows the buffer to at least n bytes, zero-filling the new region.
// It never shrinks the buffer.
func (b *Buffer) Resize(n int64) {
	if int64(len(b.data)) >= n {
		return
	}
	grown := make([]byte, n)
	copy(grown, b.data)
	b.data = grown
}

// WriteAt writes p starting at cur.Index(), growing the buffer as needed,
// and advances cur by len(p).
func (b *Buffer) WriteAt(cur *Cursor, p []byte) {
	start := cur.Index()
	end := start + int64(len(p))
	b.Resize(end)
	copy(b.data[start:end], p)
	cur.advance(int64(len(p)))
}

// CopyRange copies exactly n bytes from src to dst, without touching any
// cursor. Per spec.md §9, relocation always copies exactly `expander`
// bytes regardless of how much of the region is actually in use -- this
// keeps post-relocation offsets predictable.
func (b *Buffer) CopyRange(dst, src, n int64) {
	b.Resize(dst + n)
	b.Resize(src + n)
	copy(b.data[dst:dst+n], b.data[src:src+n])
}

// ReadAt returns a view of n bytes starting at off.
func (b *Buffer) ReadAt(off, n int64) []byte {
	return b.data[off : off+n]
}

// Bytes returns the full backing slice. Callers must not retain it across
// further Writer calls, since relocation may grow (and reallocate) it.
func (b *Buffer) Bytes() []byte { return b.data }

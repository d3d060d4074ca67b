// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import (
	"log/slog"
	"strings"
)

// expander is the headroom, in bytes, preallocated for the streamer table
// and the key-list region. expanderPow is the power it is raised to when a
// region needs to grow: expander**expanderPow = 250000 bytes of new
// capacity per relocation.
const (
	expander    = int64(500)
	expanderPow = 2
)

func expandedCapacity() int64 {
	cap := int64(1)
	for i := 0; i < expanderPow; i++ {
		cap *= expander
	}
	return cap
}

// Writer owns the buffer, the cursor, and the layout records for a single
// ROOT file containing TObjString objects (Core A). A Writer is
// constructed once per file; Insert appends one object at a time.
//
// There is no concurrent access: a Writer has a single owner and every
// sink/buffer-resize failure is fatal to the in-progress insert (spec.md
// §4.1 "Failure semantics") -- the caller must discard the file.
type Writer struct {
	buf  *Buffer
	sink *Sink
	log  *slog.Logger

	name string // basename of the path this file was created with

	header    *Header
	directory *DirectoryInfo

	directoryPointcheck int64 // offset of the directory-info record; fixed for the file's lifetime
	headKeySize         int64 // fixed serialized size of the head-key
	streamerKeySize     int64 // fixed serialized size of the streamer-key

	streamerKey *Key // kept live so its size fields can be updated as the table grows

	keyCapacity       int64 // current preallocated size of the key-list region
	keyTableUsed      int64 // bytes used by per-object StringKeys, after head-key+nkeys
	streamerCapacity  int64 // current preallocated size of the streamer table
	streamerTableUsed int64 // bytes used by descriptor entries, after the nkeys-style count field

	nkeys int32

	streamerTypes map[string]struct{}

	deadRegions []deadRegion

	closed bool
}

// WriterOption configures a Writer at construction time.
type WriterOption func(*Writer)

// WithLogger overrides the Writer's slog.Logger. The default discards
// output below its own configured level, matching how the original
// prototype's relocation/debug prints were opt-in.
func WithLogger(l *slog.Logger) WriterOption {
	return func(w *Writer) { w.log = l }
}

// New creates an empty ROOT file buffer and writes the header, begin-key,
// directory info, empty streamer table, and empty key list (nkeys=0). On
// return, the in-memory buffer already holds a valid, empty ROOT file.
//
// filename is used only to derive fName (its basename); the Writer does
// not open or own any os.File -- flushing the in-memory Buffer to disk is
// the caller's responsibility via Bytes().
func New(filename string, opts ...WriterOption) (*Writer, error) {
	base := filename
	if i := strings.LastIndexByte(filename, '/'); i >= 0 {
		base = filename[i+1:]
	}

	w := &Writer{
		buf:           NewBuffer(),
		log:           slog.Default(),
		name:          base,
		streamerTypes: make(map[string]struct{}),
	}
	w.sink = NewSink(w.buf)
	for _, opt := range opts {
		opt(w)
	}

	header := &Header{Compress: 0, Units: 4}
	w.sink.SetHeader(NewCursor(0), header)

	// Begin-key, at fBEGIN.
	header.BEGIN = kBEGIN
	cur := NewCursor(header.BEGIN)
	pointcheck := cur.Index()
	key := &Key{
		Version:   1,
		ClassName: "TFile",
		Name:      w.name,
		Title:     w.name,
		SeekKey:   pointcheck,
		SeekPdir:  0,
	}
	w.sink.SetKey(cur, key)
	key.KeyLen = int16(cur.Index() - pointcheck)
	key.ObjLen = int32(sizeofTString(w.name))
	key.Nbytes = int32(key.KeyLen) + key.ObjLen
	w.sink.SetKey(NewCursor(pointcheck), key)

	// Junk strings following the begin-key.
	w.sink.SetStrings(cur, []byte(w.name))

	// Directory info.
	w.directoryPointcheck = cur.Index()
	header.NbytesName = int32(key.KeyLen) + int32(sizeofTString(w.name))
	w.directory = &DirectoryInfo{NbytesKeys: 0, NbytesName: header.NbytesName, SeekKeys: 0}
	w.sink.SetDirectoryInfo(cur, w.directory)

	// Streamer key, at fSeekInfo.
	header.SeekInfo = cur.Index()
	skPointcheck := cur.Index()
	skey := &Key{
		Version:   1,
		ClassName: "TStreamerInfo",
		Name:      "StreamerInfo",
		Title:     "Doubly linked list",
		SeekKey:   skPointcheck,
		SeekPdir:  kBEGIN,
		ObjLen:    0,
	}
	w.sink.SetKey(cur, skey)
	skey.KeyLen = int16(cur.Index() - skPointcheck)
	skey.Nbytes = int32(skey.KeyLen) + skey.ObjLen
	w.sink.SetKey(NewCursor(skPointcheck), skey)
	w.streamerKeySize = int64(skey.KeyLen)
	w.streamerKey = skey

	header.NbytesInfo = skey.Nbytes
	w.sink.SetHeader(NewCursor(0), header)

	// Preallocate the streamer table: an empty (count=0) type registry.
	streamerStart := cur.Index()
	w.buf.Resize(streamerStart + expander)
	w.sink.SetNumbers(cur, 0)
	w.streamerCapacity = expander

	// Jump past the whole preallocated streamer region.
	cur = NewCursor(streamerStart + expander)

	w.directory.SeekKeys = cur.Index()
	w.sink.SetDirectoryInfo(NewCursor(w.directoryPointcheck), w.directory)

	// Preallocate the key-list region.
	keyStart := cur.Index()
	w.buf.Resize(keyStart + expander)
	w.keyCapacity = expander

	// Head-key, introducing the key list.
	headKeyPointcheck := cur.Index()
	headKey := &Key{
		Version:   1,
		ClassName: "TFile",
		Name:      w.name,
		Title:     w.name,
		Nbytes:    w.directory.NbytesKeys,
		SeekKey:   w.directory.SeekKeys,
		SeekPdir:  kBEGIN,
	}
	w.sink.SetKey(cur, headKey)
	headKey.KeyLen = int16(cur.Index() - headKeyPointcheck)
	headKey.ObjLen = headKey.Nbytes - int32(headKey.KeyLen)
	w.sink.SetKey(NewCursor(headKeyPointcheck), headKey)
	w.headKeySize = int64(headKey.KeyLen)

	w.nkeys = 0
	w.sink.SetNumbers(cur, w.nkeys)

	header.SeekFree = cur.Index()
	header.End = header.SeekFree + expander
	w.sink.SetHeader(NewCursor(0), header)

	w.header = header
	return w, nil
}

func (w *Writer) keyRegionBase() int64      { return w.directory.SeekKeys }
func (w *Writer) keyRegionLimit() int64     { return w.keyRegionBase() + w.keyCapacity }
func (w *Writer) keyRegionEnd() int64       { return w.keyRegionBase() + w.headKeySize + 4 + w.keyTableUsed }
func (w *Writer) streamerRegionBase() int64 { return w.header.SeekInfo }
func (w *Writer) streamerRegionLimit() int64 {
	return w.streamerRegionBase() + w.streamerCapacity
}
func (w *Writer) streamerRegionEnd() int64 {
	return w.streamerRegionBase() + w.streamerKeySize + 4 + w.streamerTableUsed
}

func (w *Writer) headKeyOffset() int64 { return w.keyRegionBase() }

// Insert appends one TObjString object at fEND, adds a key for it in the
// key list, registers its type in the streamer table if not already
// present, updates nkeys/fNbytesKeys/head-key sizes/fEND/fSeekFree, and
// flushes the buffer. name is encoded as UTF-8 bytes.
func (w *Writer) Insert(name string, value *TObjString) error {
	if w.closed {
		return ErrClosed
	}

	cur := NewCursor(w.header.End)

	// 1. Junk-key with the object name; record its start offset.
	pointcheck := cur.Index()
	junk := &Key{
		Version:   1,
		ClassName: value.ClassName(),
		Name:      name,
		SeekKey:   pointcheck,
		SeekPdir:  kBEGIN,
	}
	w.sink.SetKey(cur, junk)
	junk.KeyLen = int16(cur.Index() - pointcheck)
	junk.ObjLen = int32(payloadSize(value))
	junk.Nbytes = int32(junk.KeyLen) + junk.ObjLen
	w.sink.SetKey(NewCursor(pointcheck), junk)

	// 2. Object payload. fEND/fSeekFree move past it right away, so that a
	// relocation below copies its region into free space, not over the object.
	w.sink.SetObject(cur, value)
	objectTail := cur.Index()
	if objectTail > w.header.End {
		w.header.SeekFree = objectTail
		w.header.End = objectTail
	}

	// 3. Key-list capacity check; relocate before writing the StringKey.
	if w.keyRegionLimit()-w.keyRegionEnd() < 200 {
		w.relocateKeys()
	}

	// 4. StringKey referencing the junk-key's offset.
	skPointcheck := w.keyRegionEnd()
	skCur := NewCursor(skPointcheck)
	skey := &Key{
		Version:   1,
		ClassName: value.ClassName(),
		Name:      name,
		SeekKey:   pointcheck,
		SeekPdir:  kBEGIN,
		ObjLen:    junk.ObjLen,
	}
	w.sink.SetKey(skCur, skey)
	skey.KeyLen = int16(skCur.Index() - skPointcheck)
	skey.Nbytes = int32(skey.KeyLen) + skey.ObjLen
	w.sink.SetKey(NewCursor(skPointcheck), skey)
	w.keyTableUsed += int64(skey.KeyLen)

	// 5. Streamer capacity & type check.
	className := value.ClassName()
	if _, known := w.streamerTypes[className]; !known {
		if w.streamerRegionLimit()-w.streamerRegionEnd() < 500 {
			w.relocateStreamers()
		}
		descPos := w.streamerRegionEnd()
		descCur := NewCursor(descPos)
		w.sink.SetStreamerDescriptor(descCur, value.ClassName())
		w.streamerTableUsed += descCur.Index() - descPos

		w.streamerTypes[value.ClassName()] = struct{}{}

		w.streamerKey.ObjLen = int32(4 + w.streamerTableUsed)
		w.streamerKey.Nbytes = int32(w.streamerKeySize) + w.streamerKey.ObjLen
		w.sink.SetKey(NewCursor(w.streamerRegionBase()), w.streamerKey)
		w.header.NbytesInfo = w.streamerKey.Nbytes

		w.sink.SetNumbers(NewCursor(w.streamerRegionBase()+w.streamerKeySize), int32(len(w.streamerTypes)))
	}

	// 6. Increment nkeys.
	w.nkeys++
	w.sink.SetNumbers(NewCursor(w.keyRegionBase()+w.headKeySize), w.nkeys)

	// 7. Recompute directory.fNbytesKeys.
	w.directory.NbytesKeys = int32(w.header.End - w.keyRegionEnd())
	w.sink.SetDirectoryInfo(NewCursor(w.directoryPointcheck), w.directory)

	// 8. Recompute head-key sizes.
	headKey := &Key{
		Version:   1,
		ClassName: "TFile",
		Name:      w.name,
		Title:     w.name,
		Nbytes:    w.directory.NbytesKeys,
		KeyLen:    int16(w.headKeySize),
		SeekKey:   w.keyRegionBase(),
		SeekPdir:  kBEGIN,
	}
	headKey.ObjLen = headKey.Nbytes - int32(headKey.KeyLen)
	w.sink.SetKey(NewCursor(w.headKeyOffset()), headKey)

	// 9. Raise fEND/fSeekFree if the object tail pushed past it.
	if objectTail > w.header.End {
		w.header.SeekFree = objectTail
		w.header.End = objectTail
	}

	// 10. Patch header; flush.
	w.sink.SetHeader(NewCursor(0), w.header)
	return w.Flush()
}

// relocateKeys copies the expander-sized key-list region to the current
// fEND, grows its capacity to expander**expanderPow bytes, and updates
// fSeekKeys accordingly.
func (w *Writer) relocateKeys() {
	oldBase := w.directory.SeekKeys
	newBase := w.header.End
	newCap := expandedCapacity()

	w.buf.Resize(newBase + newCap)
	w.buf.CopyRange(newBase, oldBase, expander)
	w.deadRegions = append(w.deadRegions, deadRegion{Start: oldBase, Length: expander})

	w.directory.SeekKeys = newBase
	w.keyCapacity = newCap
	w.header.End = newBase + newCap
	w.header.SeekFree = w.header.End

	w.sink.SetDirectoryInfo(NewCursor(w.directoryPointcheck), w.directory)

	w.log.Debug("rootio: relocated key list", "oldBase", oldBase, "newBase", newBase, "capacity", newCap)
}

// relocateStreamers copies the expander-sized streamer region to the
// current fEND, grows its capacity to expander**expanderPow bytes, and
// updates fSeekInfo accordingly.
// The relocated type descriptor for the object currently being inserted is
// emitted only after this runs (spec.md §9 Open Question (a)): there is a
// single call site for "emit one descriptor", reached only once any
// needed relocation is already done.
func (w *Writer) relocateStreamers() {
	oldBase := w.header.SeekInfo
	newBase := w.header.End
	newCap := expandedCapacity()

	w.buf.Resize(newBase + newCap)
	w.buf.CopyRange(newBase, oldBase, expander)
	w.deadRegions = append(w.deadRegions, deadRegion{Start: oldBase, Length: expander})

	w.header.SeekInfo = newBase
	w.streamerCapacity = newCap
	w.header.End = newBase + newCap
	w.header.SeekFree = w.header.End
	w.streamerKey.SeekKey = newBase

	w.log.Debug("rootio: relocated streamer table", "oldBase", oldBase, "newBase", newBase, "capacity", newCap)
}

// DeadRegions returns the byte ranges orphaned by relocations so far, for
// diagnostics and tests. The bytes are never reclaimed or reused.
func (w *Writer) DeadRegions() []deadRegion { return append([]deadRegion(nil), w.deadRegions...) }

// NumKeys returns the number of objects inserted so far.
func (w *Writer) NumKeys() int32 { return w.nkeys }

// Header returns the writer's current header fields, for diagnostics and
// tests. The returned value is a copy.
func (w *Writer) Header() Header { return *w.header }

// Bytes returns the current contents of the in-progress file. The slice is
// only valid until the next Insert (which may relocate, and thus
// reallocate, the backing array).
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// Flush forwards to the underlying buffer. The in-memory Buffer is always
// fully up to date after every Insert, so Flush is a no-op placeholder for
// the Sink boundary -- a real on-disk Sink would sync here.
func (w *Writer) Flush() error {
	if w.closed {
		return ErrClosed
	}
	return nil
}

// Close flushes once more and marks the writer unusable. It does not
// delete any file on disk; per spec.md §5, discarding a partially or fully
// written file is the caller's responsibility.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	if err := w.Flush(); err != nil {
		return err
	}
	w.closed = true
	return nil
}

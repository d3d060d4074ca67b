package rootio

import "encoding/binary"

// Sink is the byte-sink collaborator the Writer depends on (spec.md §6):
// it serializes typed records at a cursor position in the Writer's
// growable Buffer. All integers are big-endian; every operation advances
// the cursor it is given by the number of bytes written, and is safe to
// call again with a freshly constructed Cursor at an earlier offset to
// patch a record in place.
//
// In the upstream go-hep rootio package this lives behind RBuffer/WBuffer;
// here it is folded into one small append-oriented encoder in the same
// big-endian, fixed-width-field idiom.
type Sink struct {
	buf *Buffer
}

// NewSink returns a Sink that writes into buf.
func NewSink(buf *Buffer) *Sink { return &Sink{buf: buf} }

// enc accumulates a record's bytes before they are written to the Buffer
// in one WriteAt call, mirroring the upstream WBuffer's WriteI32/WriteU8
// style methods.
type enc struct{ b []byte }

func (e *enc) i16(v int16) { e.b = binary.BigEndian.AppendUint16(e.b, uint16(v)) }
func (e *enc) i32(v int32) { e.b = binary.BigEndian.AppendUint32(e.b, uint32(v)) }
func (e *enc) i64(v int64) { e.b = binary.BigEndian.AppendUint64(e.b, uint64(v)) }
func (e *enc) u8(v uint8)  { e.b = append(e.b, v) }
func (e *enc) raw(p []byte) { e.b = append(e.b, p...) }

// tstring appends s in ROOT's length-prefixed TString encoding.
func (e *enc) tstring(s string) {
	n := len(s)
	if n < 255 {
		e.u8(uint8(n))
	} else {
		e.u8(0xFF)
		e.i32(int32(n))
	}
	e.raw([]byte(s))
}

// SetHeader serializes the fixed-offset ROOT header at cur (ordinarily
// offset 0). Always the small-file (4-byte pointer) layout.
func (s *Sink) SetHeader(cur *Cursor, h *Header) {
	var e enc
	e.raw([]byte(rootMagic))
	e.i32(rootVersion)
	e.i32(int32(h.BEGIN))
	e.i32(int32(h.End))
	e.i32(int32(h.SeekFree))
	e.i32(h.NbytesFree)
	e.i32(h.Nfree)
	e.i32(h.NbytesName)
	e.u8(h.Units)
	e.i32(h.Compress)
	e.i32(int32(h.SeekInfo))
	e.i32(h.NbytesInfo)
	e.raw(h.UUID[:])
	s.buf.WriteAt(cur, e.b)
}

// SetKey serializes any key variant (begin/streamer/head/junk/string) with
// its class name, object name, title, and pointer fields.
func (s *Sink) SetKey(cur *Cursor, k *Key) {
	var e enc
	e.i32(k.Nbytes)
	e.i16(k.Version)
	e.i32(k.ObjLen)
	e.i32(int32(k.Datime))
	e.i16(k.KeyLen)
	e.i16(k.Cycle)
	e.i32(int32(k.SeekKey))
	e.i32(int32(k.SeekPdir))
	e.tstring(k.ClassName)
	e.tstring(k.Name)
	e.tstring(k.Title)
	s.buf.WriteAt(cur, e.b)
}

// SetDirectoryInfo serializes the root directory's bookkeeping record.
func (s *Sink) SetDirectoryInfo(cur *Cursor, d *DirectoryInfo) {
	var e enc
	e.i16(d.Version)
	e.i32(int32(d.DatimeC))
	e.i32(int32(d.DatimeM))
	e.i32(d.NbytesKeys)
	e.i32(d.NbytesName)
	e.i32(int32(d.SeekDir))
	e.i32(int32(d.SeekParent))
	e.i32(int32(d.SeekKeys))
	s.buf.WriteAt(cur, e.b)
}

// SetStrings writes the begin-key's "junk" name payload: fName in ROOT's
// TString encoding.
func (s *Sink) SetStrings(cur *Cursor, fName []byte) {
	var e enc
	e.tstring(string(fName))
	s.buf.WriteAt(cur, e.b)
}

// SetObject writes a TObjString's payload: its string content, TString
// encoded.
func (s *Sink) SetObject(cur *Cursor, obj *TObjString) {
	var e enc
	e.tstring(obj.Value)
	s.buf.WriteAt(cur, e.b)
}

// SetNumbers writes a single big-endian 32-bit integer (the `">i"` packer
// in the original uproot prototype).
func (s *Sink) SetNumbers(cur *Cursor, n int32) {
	var e enc
	e.i32(n)
	s.buf.WriteAt(cur, e.b)
}

// SetStreamerDescriptor writes one type-descriptor entry into the
// streamer table: the class name, TString encoded.
func (s *Sink) SetStreamerDescriptor(cur *Cursor, className string) {
	var e enc
	e.tstring(className)
	s.buf.WriteAt(cur, e.b)
}

// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

// A ROOT file is a suite of consecutive data records (TKey's) with
// the following format (see also the TKey class):
//    1->4            Nbytes    = Length of compressed object (in bytes)
//    5->6            Version   = TKey version identifier
//    7->10           ObjLen    = Length of uncompressed object
//    11->14          Datime    = Date and time when object was written to file
//    15->16          KeyLen    = Length of the key structure (in bytes)
//    17->18          Cycle     = Cycle of key
//    19->22          SeekKey   = Pointer to record itself (consistency check)
//    23->26          SeekPdir  = Pointer to directory header
//    27->27          lname     = Number of bytes in the class name
//    28->..          ClassName = Object Class Name
//    ..->..          lname     = Number of bytes in the object name
//    ..->..          Name      = lName bytes with the name of the object
//    ..->..          lTitle    = Number of bytes in the object title
//    ..->..          Title     = Title of the object
//    ----->          DATA      = Data bytes associated to the object
//
// The first data record starts at byte fBEGIN (kBEGIN). Bytes 1->kBEGIN
// contain the file description:
//    1->4            "root"      = Root file identifier
//    5->8            fVersion    = File format version
//    9->12           fBEGIN      = Pointer to first data record
//    13->16          fEND        = Pointer to first free word at the EOF
//    17->20          fSeekFree   = Pointer to FREE data record
//    21->24          fNbytesFree = Number of bytes in FREE data record
//    25->28          nfree       = Number of free data records
//    29->32          fNbytesName = Number of bytes in TNamed at creation time
//    33->33          fUnits      = Number of bytes for file pointers
//    34->37          fCompress   = Compression level and algorithm
//    38->41          fSeekInfo   = Pointer to TStreamerInfo record
//    42->45          fNbytesInfo = Number of bytes in TStreamerInfo record
//    46->63          fUUID       = Universal Unique ID
//
// This writer only ever produces the small-file (4-byte pointer) variant;
// files large enough to need 8-byte pointers are out of scope (Non-goals).
const (
	rootMagic   = "root"
	rootVersion = int32(61804)

	// kBEGIN is the fixed offset of the first data record. Real ROOT
	// reserves the bytes between the 63-byte header payload and kBEGIN
	// for future header growth; this writer zero-fills that gap.
	kBEGIN = int64(100)

	// kStartBigFile is the byte-size threshold past which ROOT switches
	// to 8-byte file pointers. Kept only as documentation: this writer
	// never emits big files (Non-goals).
	kStartBigFile = int64(2000000000)
)

// Header is the fixed-offset record at file start. See the package doc
// comment above for field layout.
type Header struct {
	BEGIN       int64 // fBEGIN
	End         int64 // fEND
	SeekFree    int64 // fSeekFree
	NbytesFree  int32 // fNbytesFree
	Nfree       int32 // nfree
	NbytesName  int32 // fNbytesName
	Units       uint8 // fUnits
	Compress    int32 // fCompress, always 0 (Non-goal: compression)
	SeekInfo    int64 // fSeekInfo
	NbytesInfo  int32 // fNbytesInfo
	UUID        [18]byte
}

// Key is a ROOT record prefix naming an object and pointing to its payload.
// The same struct serves every key variant (begin, streamer, head, junk,
// string) named in spec.md; only the field values and which region they are
// written into differ.
type Key struct {
	Nbytes   int32 // fNbytes = KeyLen + ObjLen
	Version  int16
	ObjLen   int32 // fObjlen
	Datime   uint32
	KeyLen   int16 // fKeylen
	Cycle    int16
	SeekKey  int64 // pointer to the record itself (consistency check)
	SeekPdir int64 // pointer to the owning directory header

	ClassName string
	Name      string
	Title     string
}

// DirectoryInfo holds the key-list bookkeeping for the file's single (root)
// directory.
type DirectoryInfo struct {
	Version    int16
	DatimeC    uint32
	DatimeM    uint32
	NbytesKeys int32 // size of the key list
	NbytesName int32
	SeekDir    int64
	SeekParent int64
	SeekKeys   int64 // offset of the head-key introducing the key list
}

// deadRegion records a byte range orphaned by a relocation: the bytes are
// never reclaimed (Non-goal: deletion/overwrite of existing keys), but the
// Writer keeps a diagnostic ledger of them, adapted from the read-side
// free-block list the original go-hep reader keeps for TFile's free record
// chain (blocks/block in the upstream rootio.File). We never reuse the
// range -- fEND and fSeekFree only ever grow -- so unlike the upstream
// free-block list this is purely observational.
type deadRegion struct {
	Start  int64
	Length int64
}

// sizeofTString returns the number of bytes a ROOT TString of length n
// occupies on disk: a 1-byte length prefix, or, for names of 255 bytes or
// more, a 0xFF marker followed by a 4-byte big-endian length.
func sizeofTString(s string) int64 {
	n := len(s)
	if n < 255 {
		return int64(1 + n)
	}
	return int64(5 + n)
}

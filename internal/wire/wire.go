package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version      byte = 1
	kindSnapshot byte = 1

	hdrLen = 4 + 1 + 1 + 8 + 2 // magic | ver | kind | epoch | keyLen
)

var (
	ErrCorrupt = errors.New("idmap: corrupt archive entry")
	ErrKeyLen  = errors.New("idmap: archive key length out of range")
	magic4     = [...]byte{'I', 'D', 'M', 'P'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Snapshot is one archived entity.
type Snapshot struct {
	Epoch   uint64 // cache epoch the snapshot was taken in
	Key     string // storage key it was written under
	Payload []byte // codec-encoded attributes
}

// EncodeSnapshot frames s as:
//
//	magic(4) | ver(1) | kind(1=snapshot) | epoch(u64 be) | keyLen(u16 be) | key | vlen(u32 be) | payload(vlen)
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	if l := len(s.Key); l == 0 || l > 0xFFFF {
		return nil, ErrKeyLen
	}

	var buf bytes.Buffer
	buf.Grow(hdrLen + len(s.Key) + 4 + len(s.Payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindSnapshot)

	var u8 [8]byte
	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint64(u8[:], s.Epoch)
	buf.Write(u8[:])

	binary.BigEndian.PutUint16(u2[:], uint16(len(s.Key)))
	buf.Write(u2[:])
	buf.WriteString(s.Key)

	binary.BigEndian.PutUint32(u4[:], uint32(len(s.Payload)))
	buf.Write(u4[:])
	buf.Write(s.Payload)
	return buf.Bytes(), nil
}

// DecodeSnapshot parses a frame written by EncodeSnapshot. The payload aliases b.
// Trailing bytes are rejected.
func DecodeSnapshot(b []byte) (Snapshot, error) {
	if len(b) < hdrLen || !hasMagic(b) || b[4] != version || b[5] != kindSnapshot {
		return Snapshot{}, ErrCorrupt
	}
	off := 6

	epoch := binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	klen := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	if klen == 0 || klen > len(b)-off {
		return Snapshot{}, ErrCorrupt
	}
	key := string(b[off : off+klen])
	off += klen

	if off+4 > len(b) {
		return Snapshot{}, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off { // overflow-safe, strict framing
		return Snapshot{}, ErrCorrupt
	}

	return Snapshot{Epoch: epoch, Key: key, Payload: b[off : off+vlen]}, nil
}

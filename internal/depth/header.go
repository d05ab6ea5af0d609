package depth

import "encoding/binary"

// Header is the 64-byte DEPTH header: magic, HeaderSize, RecordSize, a
// fourth reserved word, then 48 bytes of padding — all preserved
// verbatim by the encoder except where the decoder validates them.
type Header struct {
	Magic       uint32
	HeaderSz    uint32
	RecordSz    uint32
	Word4       uint32
	Padding     [48]byte
}

// Raw returns the 64-byte on-disk encoding of the header.
func (h Header) Raw() [HeaderSize]byte {
	var buf [HeaderSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.HeaderSz)
	binary.LittleEndian.PutUint32(buf[8:12], h.RecordSz)
	binary.LittleEndian.PutUint32(buf[12:16], h.Word4)
	copy(buf[16:64], h.Padding[:])
	return buf
}

func decodeHeader(buf [HeaderSize]byte) Header {
	var h Header
	h.Magic = binary.LittleEndian.Uint32(buf[0:4])
	h.HeaderSz = binary.LittleEndian.Uint32(buf[4:8])
	h.RecordSz = binary.LittleEndian.Uint32(buf[8:12])
	h.Word4 = binary.LittleEndian.Uint32(buf[12:16])
	copy(h.Padding[:], buf[16:64])
	return h
}

// Validate checks the file header's structural invariants: magic
// number, header size, and record size must all match the expected
// binary layout.
func (h Header) Validate() error {
	if h.Magic != Magic {
		return ErrBadMagic
	}
	if h.HeaderSz != HeaderSize {
		return ErrBadHeaderSize
	}
	if h.RecordSz != RecordSize {
		return ErrBadRecordSize
	}
	return nil
}

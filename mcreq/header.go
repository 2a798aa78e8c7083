// SPDX-License-Identifier: GPL-3.0-or-later

package mcreq

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed size, in bytes, of a memcached binary protocol
// header: magic, opcode, key length, extras length, data type,
// vbucket-or-status, total body length, opaque, CAS.
const HeaderSize = 24

const (
	// ReqMagic identifies a request frame.
	ReqMagic byte = 0x80

	// RespMagic identifies a response frame.
	RespMagic byte = 0x81
)

// RequestHeader is the decoded form of a request frame's fixed header.
type RequestHeader struct {
	Opcode   Opcode
	KeyLen   uint16
	ExtLen   uint8
	DataType uint8
	VBucket  uint16
	BodyLen  uint32
	Opaque   uint32
	CAS      uint64
}

// Encode writes h into dst as 24 big-endian bytes. Returns an error if
// dst is too small to hold a full header.
func (h RequestHeader) Encode(dst []byte) error {
	if len(dst) < HeaderSize {
		return fmt.Errorf("mcreq: header buffer too small: %d < %d", len(dst), HeaderSize)
	}
	dst[0] = ReqMagic
	dst[1] = byte(h.Opcode)
	binary.BigEndian.PutUint16(dst[2:4], h.KeyLen)
	dst[4] = h.ExtLen
	dst[5] = h.DataType
	binary.BigEndian.PutUint16(dst[6:8], h.VBucket)
	binary.BigEndian.PutUint32(dst[8:12], h.BodyLen)
	binary.BigEndian.PutUint32(dst[12:16], h.Opaque)
	binary.BigEndian.PutUint64(dst[16:24], h.CAS)
	return nil
}

// ResponseHeader is the decoded form of a response frame's fixed header.
// It shares RequestHeader's layout; the field at the vbucket position
// carries a status code instead.
type ResponseHeader struct {
	Opcode   Opcode
	KeyLen   uint16
	ExtLen   uint8
	DataType uint8
	Status   Status
	BodyLen  uint32
	Opaque   uint32
	CAS      uint64
}

// DecodeResponseHeader parses a 24-byte response header from src.
func DecodeResponseHeader(src []byte) (ResponseHeader, error) {
	var h ResponseHeader
	if len(src) < HeaderSize {
		return h, fmt.Errorf("mcreq: response buffer too small: %d < %d", len(src), HeaderSize)
	}
	if src[0] != RespMagic {
		return h, fmt.Errorf("mcreq: bad response magic: 0x%02x", src[0])
	}
	h.Opcode = Opcode(src[1])
	h.KeyLen = binary.BigEndian.Uint16(src[2:4])
	h.ExtLen = src[4]
	h.DataType = src[5]
	h.Status = Status(binary.BigEndian.Uint16(src[6:8]))
	h.BodyLen = binary.BigEndian.Uint32(src[8:12])
	h.Opaque = binary.BigEndian.Uint32(src[12:16])
	h.CAS = binary.BigEndian.Uint64(src[16:24])
	return h, nil
}

// WriteHeader copies the first n bytes of hdr into dst. Both slices must
// have at least n bytes; n beyond either length is an error rather than
// a silent truncation.
//
// This is the core's answer to the source's mcreq_write_exhdr macro: the
// intended semantics are a bounds-checked copy of n header bytes, not an
// address-of-versus-dereference pun on the packet pointer.
func WriteHeader(dst, hdr []byte, n int) error {
	if n > len(hdr) {
		return fmt.Errorf("mcreq: source header shorter than n=%d", n)
	}
	if n > len(dst) {
		return fmt.Errorf("mcreq: destination buffer shorter than n=%d", n)
	}
	copy(dst[:n], hdr[:n])
	return nil
}

// Opcode identifies a memcached binary protocol command.
type Opcode uint8

const (
	OpGet        Opcode = 0x00
	OpSet        Opcode = 0x01
	OpAdd        Opcode = 0x02
	OpReplace    Opcode = 0x03
	OpDelete     Opcode = 0x04
	OpIncrement  Opcode = 0x05
	OpDecrement  Opcode = 0x06
	OpQuit       Opcode = 0x07
	OpFlush      Opcode = 0x08
	OpGetQ       Opcode = 0x09
	OpNoop       Opcode = 0x0a
	OpVersion    Opcode = 0x0b
	OpGetK       Opcode = 0x0c
	OpGetKQ      Opcode = 0x0d
	OpAppend     Opcode = 0x0e
	OpPrepend    Opcode = 0x0f
	OpStat       Opcode = 0x10
	OpSetQ       Opcode = 0x11
	OpAddQ       Opcode = 0x12
	OpReplaceQ   Opcode = 0x13
	OpDeleteQ    Opcode = 0x14
	OpIncrementQ Opcode = 0x15
	OpDecrementQ Opcode = 0x16
	OpQuitQ      Opcode = 0x17
	OpFlushQ     Opcode = 0x18
	OpAppendQ    Opcode = 0x19
	OpPrependQ   Opcode = 0x1a
)

// Status is a response status code.
type Status uint16

const (
	StatusOK           Status = 0x0000
	StatusKeyNotFound  Status = 0x0001
	StatusKeyExists    Status = 0x0002
	StatusTooLarge     Status = 0x0003
	StatusInvalidArgs  Status = 0x0004
	StatusNotStored    Status = 0x0005
	StatusDeltaBadVal  Status = 0x0006
	StatusWrongVBucket Status = 0x0007
)

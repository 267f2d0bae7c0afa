package packet

import (
	"encoding/binary"
	"errors"
)

// ErrShortRead is recorded when a field needs more bytes than remain.
var ErrShortRead = errors.New("packet: short read")

// Reader reads little-endian fields from a payload.
// The first failed read sticks: every later read returns zero and Err
// keeps reporting the failure, so callers can check once after a group
// of reads and never see bytes past the end of the buffer.
type Reader struct {
	data []byte
	off  int
	err  error
}

// NewReader reads a packet whose byte 0 is the opcode.
func NewReader(data []byte) *Reader {
	r := &Reader{data: data, off: 1} // skip opcode byte
	if len(data) == 0 {
		r.off = 0
	}
	return r
}

// NewStreamReader reads a headerless byte stream from offset 0.
func NewStreamReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) Opcode() byte {
	if len(r.data) == 0 {
		return 0
	}
	return r.data[0]
}

func (r *Reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = ErrShortRead
		return false
	}
	return true
}

// ReadC reads 1 unsigned byte.
func (r *Reader) ReadC() byte {
	if !r.need(1) {
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

// ReadH reads 2 bytes as little-endian uint16.
func (r *Reader) ReadH() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

// ReadD reads 4 bytes as little-endian int32.
func (r *Reader) ReadD() int32 {
	return int32(r.ReadDU())
}

// ReadDU reads 4 bytes as little-endian uint32.
func (r *Reader) ReadDU() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

// ReadS8 reads a string prefixed by a 1-byte length.
func (r *Reader) ReadS8() string {
	n := int(r.ReadC())
	return string(r.ReadBytes(n))
}

// ReadBytes reads n raw bytes. A short buffer yields nil and sets Err.
func (r *Reader) ReadBytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	b := make([]byte, n)
	copy(b, r.data[r.off:r.off+n])
	r.off += n
	return b
}

// Skip discards n bytes.
func (r *Reader) Skip(n int) {
	if r.need(n) {
		r.off += n
	}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Offset returns the current read position.
func (r *Reader) Offset() int {
	return r.off
}

// Rest returns the unread bytes without consuming them.
func (r *Reader) Rest() []byte {
	return r.data[r.off:]
}

// Err returns the first read failure, if any.
func (r *Reader) Err() error {
	return r.err
}

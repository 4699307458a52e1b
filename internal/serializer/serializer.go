// Package serializer implements the deterministic binary encoding used
// throughout the state engine: big-endian for anything that must sort
// lexicographically as an integer (column keys), host (little-endian) for
// value payloads, length-prefixed byte strings and containers with the
// prefix width declared at the call site, and a one-byte presence flag for
// optionals.
package serializer

import (
	"encoding/binary"
	"fmt"
)

// Error is returned by any decode that would read past the end of the
// buffer or that violates a declared constraint (oversize string or
// container, invalid optional presence byte).
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

func errf(format string, args ...any) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// Serializer is a growable byte buffer with a cursor, usable both for
// encoding (Put* methods append) and decoding (Get* methods consume from
// the cursor). The same type backs both directions so call sites look
// symmetric, matching the teacher's single-pass codec style.
type Serializer struct {
	buf []byte
	pos int
}

// New returns an encoder with an empty buffer.
func New() *Serializer {
	return &Serializer{}
}

// NewReader freezes buf into a decoder starting at position 0.
func NewReader(buf []byte) *Serializer {
	return &Serializer{buf: buf}
}

func (s *Serializer) Bytes() []byte { return s.buf }
func (s *Serializer) Pos() int      { return s.pos }
func (s *Serializer) Size() int     { return len(s.buf) }

func (s *Serializer) remaining() int { return len(s.buf) - s.pos }

func (s *Serializer) require(n int) error {
	if s.remaining() < n {
		return errf("serializer: unexpected end of buffer, need %d have %d", n, s.remaining())
	}
	return nil
}

// --- fixed width, big-endian (keys) ---

func (s *Serializer) PutUint32BE(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *Serializer) GetUint32BE() (uint32, error) {
	if err := s.require(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(s.buf[s.pos:])
	s.pos += 4
	return v, nil
}

func (s *Serializer) PutUint64BE(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *Serializer) GetUint64BE() (uint64, error) {
	if err := s.require(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(s.buf[s.pos:])
	s.pos += 8
	return v, nil
}

// --- fixed width, host order (values) ---

func (s *Serializer) PutUint8(v uint8) {
	s.buf = append(s.buf, v)
}

func (s *Serializer) GetUint8() (uint8, error) {
	if err := s.require(1); err != nil {
		return 0, err
	}
	v := s.buf[s.pos]
	s.pos++
	return v, nil
}

func (s *Serializer) PutUint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *Serializer) GetUint16() (uint16, error) {
	if err := s.require(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(s.buf[s.pos:])
	s.pos += 2
	return v, nil
}

func (s *Serializer) PutInt16(v int16) { s.PutUint16(uint16(v)) }

func (s *Serializer) GetInt16() (int16, error) {
	v, err := s.GetUint16()
	return int16(v), err
}

func (s *Serializer) PutUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *Serializer) GetUint32() (uint32, error) {
	if err := s.require(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(s.buf[s.pos:])
	s.pos += 4
	return v, nil
}

func (s *Serializer) PutUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *Serializer) GetUint64() (uint64, error) {
	if err := s.require(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(s.buf[s.pos:])
	s.pos += 8
	return v, nil
}

// --- raw bytes, fixed length ---

func (s *Serializer) PutFixed(b []byte) {
	s.buf = append(s.buf, b...)
}

func (s *Serializer) GetFixed(n int) ([]byte, error) {
	if err := s.require(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, s.buf[s.pos:s.pos+n])
	s.pos += n
	return out, nil
}

// --- length-prefixed byte strings; prefix width is declared at the call site ---

func (s *Serializer) PutBytes8(b []byte) error {
	if len(b) > 0xFF {
		return errf("serializer: string too long for uint8 prefix: %d", len(b))
	}
	s.PutUint8(uint8(len(b)))
	s.buf = append(s.buf, b...)
	return nil
}

func (s *Serializer) GetBytes8() ([]byte, error) {
	n, err := s.GetUint8()
	if err != nil {
		return nil, err
	}
	return s.GetFixed(int(n))
}

func (s *Serializer) PutBytes16(b []byte) error {
	if len(b) > 0xFFFF {
		return errf("serializer: string too long for uint16 prefix: %d", len(b))
	}
	s.PutUint16(uint16(len(b)))
	s.buf = append(s.buf, b...)
	return nil
}

func (s *Serializer) GetBytes16() ([]byte, error) {
	n, err := s.GetUint16()
	if err != nil {
		return nil, err
	}
	return s.GetFixed(int(n))
}

func (s *Serializer) PutString8(v string) error { return s.PutBytes8([]byte(v)) }

func (s *Serializer) GetString8() (string, error) {
	b, err := s.GetBytes8()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// --- optional<T> ---

func (s *Serializer) PutPresence(present bool) {
	if present {
		s.PutUint8(1)
	} else {
		s.PutUint8(0)
	}
}

func (s *Serializer) GetPresence() (bool, error) {
	v, err := s.GetUint8()
	if err != nil {
		return false, err
	}
	if v > 1 {
		return false, errf("serializer: invalid optional presence byte %d", v)
	}
	return v == 1, nil
}

// PutUint8Count / GetUint8Count encode/decode a container length under a
// uint8 prefix, used at the start of fixed-item collections (co-signer
// maps, allowed-user sets) whose element count must itself round-trip.
func (s *Serializer) PutUint8Count(n int) error {
	if n > 0xFF {
		return errf("serializer: container too large for uint8 count: %d", n)
	}
	s.PutUint8(uint8(n))
	return nil
}

func (s *Serializer) GetUint8Count() (int, error) {
	n, err := s.GetUint8()
	return int(n), err
}

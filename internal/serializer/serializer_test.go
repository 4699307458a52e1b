package serializer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripFixedWidth(t *testing.T) {
	s := New()
	s.PutUint32BE(0xdeadbeef)
	s.PutUint64BE(0x0102030405060708)
	s.PutUint8(0xAB)
	s.PutUint16(1234)
	s.PutInt16(-5)
	s.PutUint32(42)
	s.PutUint64(9999999999)

	r := NewReader(s.Bytes())
	u32be, err := r.GetUint32BE()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), u32be)

	u64be, err := r.GetUint64BE()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), u64be)

	u8, err := r.GetUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0xAB), u8)

	u16, err := r.GetUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(1234), u16)

	i16, err := r.GetInt16()
	require.NoError(t, err)
	assert.Equal(t, int16(-5), i16)

	u32, err := r.GetUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(42), u32)

	u64, err := r.GetUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(9999999999), u64)
}

func TestRoundTripLengthPrefixed(t *testing.T) {
	s := New()
	require.NoError(t, s.PutBytes8([]byte("hello")))
	require.NoError(t, s.PutBytes16([]byte("a longer value")))
	require.NoError(t, s.PutString8("logpass"))

	r := NewReader(s.Bytes())
	b8, err := r.GetBytes8()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), b8)

	b16, err := r.GetBytes16()
	require.NoError(t, err)
	assert.Equal(t, []byte("a longer value"), b16)

	str, err := r.GetString8()
	require.NoError(t, err)
	assert.Equal(t, "logpass", str)
}

func TestPutBytes8RejectsOversizeInput(t *testing.T) {
	s := New()
	err := s.PutBytes8(make([]byte, 0x100))
	assert.Error(t, err)
}

func TestPutBytes16RejectsOversizeInput(t *testing.T) {
	s := New()
	err := s.PutBytes16(make([]byte, 0x10000))
	assert.Error(t, err)
}

func TestPresenceRoundTrip(t *testing.T) {
	s := New()
	s.PutPresence(true)
	s.PutPresence(false)

	r := NewReader(s.Bytes())
	present, err := r.GetPresence()
	require.NoError(t, err)
	assert.True(t, present)

	present, err = r.GetPresence()
	require.NoError(t, err)
	assert.False(t, present)
}

func TestGetPresenceRejectsInvalidByte(t *testing.T) {
	r := NewReader([]byte{2})
	_, err := r.GetPresence()
	assert.Error(t, err)
}

func TestUint8CountRoundTrip(t *testing.T) {
	s := New()
	require.NoError(t, s.PutUint8Count(7))

	r := NewReader(s.Bytes())
	n, err := r.GetUint8Count()
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestPutUint8CountRejectsOversizeCount(t *testing.T) {
	s := New()
	err := s.PutUint8Count(0x100)
	assert.Error(t, err)
}

func TestGetFixedReportsUnexpectedEOF(t *testing.T) {
	r := NewReader([]byte{1, 2})
	_, err := r.GetFixed(3)
	assert.Error(t, err)
}

func TestGetUint32ReportsUnexpectedEOF(t *testing.T) {
	r := NewReader([]byte{1, 2})
	_, err := r.GetUint32()
	assert.Error(t, err)
}

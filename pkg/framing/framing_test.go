package framing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreambleRoundTrip(t *testing.T) {
	in := &Preamble{Flags: 0x0001, Proto: 0x0800}

	b, err := in.Encode(make([]byte, PreambleLen))
	require.NoError(t, err)
	require.Len(t, b, PreambleLen)

	var out Preamble
	require.NoError(t, out.Parse(b))
	assert.Equal(t, in.Flags, out.Flags)
	assert.Equal(t, in.Proto, out.Proto)
	assert.True(t, out.Truncated())
}

func TestPreambleParseShortBuffer(t *testing.T) {
	var p Preamble
	err := p.Parse([]byte{0x00, 0x00, 0x08})
	assert.ErrorIs(t, err, ErrShortPreamble)
}

func TestPreambleEncodeSmallSlice(t *testing.T) {
	p := &Preamble{Proto: 0x86dd}
	_, err := p.Encode(make([]byte, 0, 2))
	assert.Error(t, err)
}

func TestPreambleProtoIsNetworkOrder(t *testing.T) {
	p := &Preamble{Proto: 0x0800}
	b, err := p.Encode(make([]byte, PreambleLen))
	require.NoError(t, err)

	assert.Equal(t, byte(0x08), b[2])
	assert.Equal(t, byte(0x00), b[3])
}

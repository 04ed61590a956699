package varint

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, v uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, v))
	return buf.Bytes()
}

func TestWriteReadRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value uint32
		width int
	}{
		{"zero", 0, 1},
		{"max single byte", 127, 1},
		{"min two byte", 128, 2},
		{"max two byte", 16383, 2},
		{"min three byte", 16384, 3},
		{"max three byte", 2097151, 3},
		{"min four byte", 2097152, 4},
		{"max four byte", 268435455, 4},
		{"five byte", 268435456, 5},
		{"max uint32 interpreted unsigned", 0xFFFFFFFF, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := encode(t, tt.value)
			require.Len(t, encoded, tt.width)
			require.Equal(t, tt.width, Width(tt.value))

			got, err := Read(bufio.NewReader(bytes.NewReader(encoded)))
			require.NoError(t, err)
			require.Equal(t, tt.value, got)
		})
	}
}

func TestReadFailsOnRunawayContinuation(t *testing.T) {
	// Five bytes, all with the continuation bit set: never terminates.
	raw := []byte{0x80, 0x80, 0x80, 0x80, 0x80}
	_, err := Read(bufio.NewReader(bytes.NewReader(raw)))
	require.Error(t, err)
}

func TestBytesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, WriteBytes(w, []byte("hello"), 0))
	require.NoError(t, w.Flush())

	r := bufio.NewReader(&buf)
	got, err := ReadBytes(r, 0)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, WriteString(w, "jcr:primaryType"))
	require.NoError(t, w.Flush())

	r := bufio.NewReader(&buf)
	got, err := ReadString(r)
	require.NoError(t, err)
	require.Equal(t, "jcr:primaryType", got)
}

func TestBytesWithBase(t *testing.T) {
	// base=16 models the Name local-name "overflow" encoding: the
	// wire length is biased down by 16 before being varint-encoded.
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	payload := bytes.Repeat([]byte("x"), 20)
	require.NoError(t, WriteBytes(w, payload, 16))
	require.NoError(t, w.Flush())

	r := bufio.NewReader(&buf)
	got, err := ReadBytes(r, 16)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

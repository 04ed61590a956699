// Package varint implements the bundle codec's variable-length integer
// and length-prefixed byte-string primitives.
package varint

import (
	"bufio"
	"io"

	"github.com/corewell/noderepo/internal/rerr"
)

// maxContinuationBytes bounds readVarInt: a fifth continuation byte is
// always corrupt for the 32-bit range this format encodes.
const maxContinuationBytes = 5

// Write emits v as 7 bits per byte, little-endian, with the
// continuation bit (0x80) set on every byte but the last.
func Write(w io.ByteWriter, v uint32) error {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		if err := w.WriteByte(b); err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
	}
}

// Read inverts Write, failing with rerr.CorruptBundle if a fifth
// continuation byte is encountered.
func Read(r io.ByteReader) (uint32, error) {
	var result uint32
	for i := 0; i < maxContinuationBytes; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << (7 * uint(i))
		if b&0x80 == 0 {
			return result, nil
		}
	}
	return 0, &rerr.CorruptBundle{Reason: "varint continues past 5 bytes"}
}

// Width returns the number of bytes Write(v) would produce.
func Width(v uint32) int {
	n := 1
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	return n
}

// WriteBytes writes varint(len(b)-base) followed by b. base lets
// callers shift the length, matching the reader's symmetric offset
// (used by Name local-name encoding, where short names keep their
// length implicit and long ones are biased by 16).
func WriteBytes(w *bufio.Writer, b []byte, base int) error {
	if err := Write(w, uint32(len(b)-base)); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// WriteString writes s as WriteBytes(utf8(s), 0).
func WriteString(w *bufio.Writer, s string) error {
	return WriteBytes(w, []byte(s), 0)
}

// ReadBytes inverts WriteBytes: it reads a varint length (re-biased by
// base) then that many raw bytes.
func ReadBytes(r *bufio.Reader, base int) ([]byte, error) {
	n, err := Read(r)
	if err != nil {
		return nil, err
	}
	length := int(n) + base
	if length < 0 {
		return nil, &rerr.CorruptBundle{Reason: "negative byte-string length"}
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadString inverts WriteString.
func ReadString(r *bufio.Reader) (string, error) {
	b, err := ReadBytes(r, 0)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

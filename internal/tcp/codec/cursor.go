package codec

import (
	"encoding/binary"
	"net/netip"
	"strings"
)

// cursor walks a little-endian message buffer. Every read is bounds checked
// and leaves the position untouched when it would run past the end.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte, pos int) *cursor {
	return &cursor{buf: buf, pos: pos}
}

func (c *cursor) remaining() int {
	if c.pos >= len(c.buf) {
		return 0
	}
	return len(c.buf) - c.pos
}

func (c *cursor) uint32() (uint32, bool) {
	if c.remaining() < 4 {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, true
}

// string reads a uint32 length prefix followed by that many UTF-8 bytes.
func (c *cursor) string() (string, bool) {
	if c.remaining() < 4 {
		return "", false
	}
	n := uint64(binary.LittleEndian.Uint32(c.buf[c.pos:]))
	if n > uint64(c.remaining()-4) {
		return "", false
	}
	start := c.pos + 4
	end := start + int(n)
	c.pos = end
	return strings.ToValidUTF8(string(c.buf[start:end]), "\uFFFD"), true
}

// ipv4 reads four address bytes in network order and renders them dotted.
func (c *cursor) ipv4() (string, bool) {
	if c.remaining() < 4 {
		return "", false
	}
	var a [4]byte
	copy(a[:], c.buf[c.pos:c.pos+4])
	c.pos += 4
	return netip.AddrFrom4(a).String(), true
}

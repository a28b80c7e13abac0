package pty

import (
	"strings"
	"unicode/utf8"
)

// streamDecoder converts raw PTY chunks to valid UTF-8 text. Invalid bytes
// become U+FFFD; an incomplete rune at the end of a chunk is carried over
// and completed by the next chunk. Decoding never fails, so a malformed
// sequence cannot stall terminal output.
type streamDecoder struct {
	pending []byte
}

// decode returns the text for chunk, including any bytes held over from
// the previous call.
func (d *streamDecoder) decode(chunk []byte) string {
	var b []byte
	if len(d.pending) > 0 {
		b = append(d.pending, chunk...)
		d.pending = nil
	} else {
		b = chunk
	}

	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			// A trailing prefix of a multi-byte rune waits for the
			// rest; anything else is genuinely malformed.
			if !utf8.FullRune(b) {
				d.pending = append([]byte(nil), b...)
				break
			}
			sb.WriteRune(utf8.RuneError)
			b = b[1:]
			continue
		}
		sb.Write(b[:size])
		b = b[size:]
	}
	return sb.String()
}

// flush returns any held incomplete bytes as replacement runes. Called when
// the transport ends so buffered garbage is not silently dropped.
func (d *streamDecoder) flush() string {
	if len(d.pending) == 0 {
		return ""
	}
	n := len(d.pending)
	d.pending = nil
	return strings.Repeat(string(utf8.RuneError), n)
}

package mdns

import (
	"bytes"
	"errors"
)

// maxLabelLen is the largest label writeName will emit (RFC 1035 §2.3.4).
// The engine never needs to emit a longer one: every name it writes is
// built from inputs already bounded by the fixed service/name tables.
const maxLabelLen = 63

var errLabelTooLong = errors.New("mdns: label exceeds 63 bytes")

// writeName appends the wire encoding of a dot-delimited name to buf:
// a sequence of (1-byte length)(label bytes) pairs, optionally followed
// by a terminating zero byte. It never compresses — every label is
// written in full, which keeps decoding on the peer's side unambiguous
// regardless of how much RFC 1035 compression that peer supports.
//
// An empty name (or one consisting solely of dots) encodes to no labels
// at all; callers that need the root name still get the terminator when
// zeroTerminate is true.
func writeName(buf []byte, name string, zeroTerminate bool) ([]byte, error) {
	for len(name) > 0 {
		label := name
		if i := indexByte(name, '.'); i >= 0 {
			label = name[:i]
			name = name[i+1:]
		} else {
			name = ""
		}

		if label == "" {
			continue
		}
		if len(label) > maxLabelLen {
			return buf, errLabelTooLong
		}

		buf = append(buf, byte(len(label)))
		buf = append(buf, label...)
	}

	if zeroTerminate {
		buf = append(buf, 0)
	}

	return buf, nil
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}

	return -1
}

// matchLabelChunk advances a candidate-name cursor across one decoded
// label's bytes and reports whether the chunk matched. remaining holds
// the unconsumed suffix of the candidate name being tested; chunk holds
// the label bytes read from the wire (not including the length byte).
//
// When len(remaining) < len(chunk), when the bytes differ, or when the
// candidate's label continues past the chunk, the match fails and
// remaining is returned unchanged — callers that have already failed a
// candidate should stop calling this for it, since nothing past failure
// is ever examined again. On a match, the consumed bytes (and a single
// separating '.', if present) are stripped from the front of remaining.
func matchLabelChunk(remaining, chunk []byte) (rest []byte, matched bool) {
	if len(remaining) < len(chunk) {
		return remaining, false
	}

	rest = remaining[len(chunk):]
	if !bytes.Equal(remaining[:len(chunk)], chunk) || (len(rest) > 0 && rest[0] != '.') {
		return remaining, false
	}

	if len(rest) > 0 {
		rest = rest[1:]
	}

	return rest, true
}

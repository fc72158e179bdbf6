// Package info implements the Quake III "info string" — a bounded,
// insertion-ordered key/value map serialized as repeated "\key\value"
// groups — and the InfoStr byte strings its keys and values are made of.
package info

import (
	"fmt"

	"github.com/quake3-go/protocol/qstr"
)

// InfoStr is a QStr that additionally forbids the backslash byte, since
// backslash delimits keys and values in the wire form (§4.A/§4.B).
type InfoStr qstr.QStr

// BackslashError reports the byte offset of an embedded backslash.
type BackslashError struct {
	Pos int
}

func (e *BackslashError) Error() string {
	return fmt.Sprintf("infostr: backslash at offset %d", e.Pos)
}

// NewInfoStr validates s as NUL-free and backslash-free.
func NewInfoStr(s string) (InfoStr, error) {
	q, err := qstr.New(s)
	if err != nil {
		return "", err
	}
	if i := indexBackslash(string(q)); i >= 0 {
		return "", &BackslashError{Pos: i}
	}
	return InfoStr(q), nil
}

// UncheckedInfoStr wraps s as an InfoStr without validation.
func UncheckedInfoStr(s string) InfoStr {
	return InfoStr(s)
}

// QStr returns the underlying NUL-free byte string.
func (s InfoStr) QStr() qstr.QStr { return qstr.QStr(s) }

// String returns the underlying bytes as a string.
func (s InfoStr) String() string { return string(s) }

// Len returns the length in bytes.
func (s InfoStr) Len() int { return len(s) }

// encodedSize is the wire cost of s as one element of a "\k\v" pair: one
// leading backslash plus the bytes themselves (§4.B).
func (s InfoStr) encodedSize() int { return 1 + len(s) }

func indexBackslash(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			return i
		}
	}
	return -1
}

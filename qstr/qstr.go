// Package qstr implements the NUL-free byte strings the Quake III wire
// protocol uses wherever id Tech's engine would reach for a C string. Unlike
// a C string a QStr carries no terminator of its own: the only guarantee is
// that NUL never appears inside it, so a caller can always safely hand the
// bytes to something that does terminate on NUL without truncating content.
package qstr

import "fmt"

// QStr is a string guaranteed to contain no NUL byte. Go strings are already
// immutable, so — unlike the borrowed/owned split a non-GC'd implementation
// needs — a single value type covers both cases here; see DESIGN.md.
type QStr string

// NulError reports the byte offset of an embedded NUL.
type NulError struct {
	Pos int
}

func (e *NulError) Error() string {
	return fmt.Sprintf("qstr: NUL byte at offset %d", e.Pos)
}

// New validates s and wraps it as a QStr. It fails with a *NulError naming
// the offset of the first NUL byte, if any.
func New(s string) (QStr, error) {
	if i := indexNUL(s); i >= 0 {
		return "", &NulError{Pos: i}
	}
	return QStr(s), nil
}

// Unchecked wraps s as a QStr without validation. Callers must already know
// s contains no NUL byte; violating that invariant silently corrupts
// anything downstream that treats QStr as NUL-free.
func Unchecked(s string) QStr {
	return QStr(s)
}

// String returns the underlying bytes as a string.
func (q QStr) String() string { return string(q) }

// Bytes returns a copy of the underlying bytes.
func (q QStr) Bytes() []byte { return []byte(q) }

// Len returns the length in bytes.
func (q QStr) Len() int { return len(q) }

func indexNUL(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return i
		}
	}
	return -1
}

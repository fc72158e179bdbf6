package info

import (
	"fmt"
	"iter"
)

// Size limits named by the Quake III protocol (§4.B): the standard info
// string budget and the larger one used for server-browser "big info".
const (
	StandardLimit = 1024
	BigLimit      = 8192
)

// Map is a size-bounded, insertion-ordered key/value map of InfoStr pairs.
// The spec's InfoMap<L> is parameterised by a compile-time byte budget; Go
// has no const generics, so Limit is a constructor argument instead
// (see DESIGN.md).
type Map struct {
	limit   int
	keys    []InfoStr
	values  []InfoStr
	indexOf map[InfoStr]int
}

// New returns an empty Map bounded to limit encoded bytes.
func New(limit int) *Map {
	return &Map{limit: limit, indexOf: make(map[InfoStr]int)}
}

// NewStandard returns an empty Map bounded to StandardLimit bytes.
func NewStandard() *Map { return New(StandardLimit) }

// NewBig returns an empty Map bounded to BigLimit bytes.
func NewBig() *Map { return New(BigLimit) }

// Limit returns the map's configured byte budget.
func (m *Map) Limit() int { return m.limit }

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.keys) }

// LimitError reports a rejected insertion: applying it would have pushed the
// map's encoded size past its configured limit. The map is left unchanged.
type LimitError struct {
	Key, Value InfoStr
	Limit      int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("info: inserting %q=%q would exceed the %d-byte limit", e.Key, e.Value, e.Limit)
}

// encodedSize is the sum of (1+len(k))+(1+len(v)) over every entry.
func (m *Map) encodedSize() int {
	total := 0
	for i := range m.keys {
		total += m.keys[i].encodedSize() + m.values[i].encodedSize()
	}
	return total
}

// TryInsert inserts or overwrites key with value, preserving the position of
// an existing key. If the prospective encoded size would exceed the map's
// limit the call fails with a *LimitError and the map is left unchanged;
// otherwise it returns the previous value, if key was already present.
func (m *Map) TryInsert(key, value InfoStr) (previous InfoStr, hadPrevious bool, err error) {
	entrySize := key.encodedSize() + value.encodedSize()

	if i, ok := m.indexOf[key]; ok {
		existing := m.keys[i].encodedSize() + m.values[i].encodedSize()
		if m.encodedSize()-existing+entrySize > m.limit {
			return "", false, &LimitError{Key: key, Value: value, Limit: m.limit}
		}
		previous, hadPrevious = m.values[i], true
		m.values[i] = value
		return previous, hadPrevious, nil
	}

	if m.encodedSize()+entrySize > m.limit {
		return "", false, &LimitError{Key: key, Value: value, Limit: m.limit}
	}

	m.indexOf[key] = len(m.keys)
	m.keys = append(m.keys, key)
	m.values = append(m.values, value)
	return "", false, nil
}

// Get returns the value associated with key, if present.
func (m *Map) Get(key InfoStr) (InfoStr, bool) {
	i, ok := m.indexOf[key]
	if !ok {
		return "", false
	}
	return m.values[i], true
}

// All iterates entries in insertion order.
func (m *Map) All() iter.Seq2[InfoStr, InfoStr] {
	return func(yield func(InfoStr, InfoStr) bool) {
		for i := range m.keys {
			if !yield(m.keys[i], m.values[i]) {
				return
			}
		}
	}
}

// Serialize appends the map's "\key\value..." wire form to dst and returns
// the extended slice, in insertion order.
func (m *Map) Serialize(dst []byte) []byte {
	for i := range m.keys {
		dst = append(dst, '\\')
		dst = append(dst, m.keys[i]...)
		dst = append(dst, '\\')
		dst = append(dst, m.values[i]...)
	}
	return dst
}

// ParseError reports that data could not be parsed as a "\key\value..."
// group sequence.
type ParseError struct {
	Reason string
	Pos    int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("info: parse error at offset %d: %s", e.Pos, e.Reason)
}

// Parse reads zero or more "\KEY\VALUE" groups from data into a new Map
// bounded to limit bytes. The empty input parses to an empty map. Parsing
// fails if a key or value is empty, if a stray byte follows the last value,
// if a duplicate key is encountered, or if the accumulated size would exceed
// limit (§4.B).
func Parse(data []byte, limit int) (*Map, error) {
	m := New(limit)
	i := 0
	for i < len(data) {
		if data[i] != '\\' {
			return nil, &ParseError{Reason: "expected '\\' before key", Pos: i}
		}
		keyStart := i + 1
		keyEnd := indexByteFrom(data, keyStart, '\\')
		if keyEnd < 0 {
			return nil, &ParseError{Reason: "missing value for trailing key", Pos: keyStart}
		}
		if keyEnd == keyStart {
			return nil, &ParseError{Reason: "empty key", Pos: keyStart}
		}

		valueStart := keyEnd + 1
		valueEnd := indexByteFrom(data, valueStart, '\\')
		if valueEnd < 0 {
			valueEnd = len(data)
		}
		if valueEnd == valueStart {
			return nil, &ParseError{Reason: "empty value", Pos: valueStart}
		}

		key, err := NewInfoStr(string(data[keyStart:keyEnd]))
		if err != nil {
			return nil, &ParseError{Reason: err.Error(), Pos: keyStart}
		}
		value, err := NewInfoStr(string(data[valueStart:valueEnd]))
		if err != nil {
			return nil, &ParseError{Reason: err.Error(), Pos: valueStart}
		}

		if _, ok := m.indexOf[key]; ok {
			return nil, &ParseError{Reason: fmt.Sprintf("duplicate key %q", key), Pos: keyStart}
		}
		if _, _, err := m.TryInsert(key, value); err != nil {
			return nil, &ParseError{Reason: err.Error(), Pos: keyStart}
		}

		i = valueEnd
	}
	return m, nil
}

func indexByteFrom(data []byte, from int, b byte) int {
	for i := from; i < len(data); i++ {
		if data[i] == b {
			return i
		}
	}
	return -1
}

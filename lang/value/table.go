package value

import "github.com/dolthub/swiss"

// Table is GavelScript's hash-map object: a Value -> Value mapping used both
// for language-level table literals and, via the same type, for the
// interpreter's globals. Backed by a swiss
// table for open-addressing performance on the small, append-heavy maps
// typical of script globals and table literals.
type Table struct {
	m *swiss.Map[Value, Value]
}

// NewTable returns an empty table with room for at least size entries before
// its first resize.
func NewTable(size int) *Table {
	if size < 0 {
		size = 0
	}
	return &Table{m: swiss.NewMap[Value, Value](uint32(size))}
}

// Get returns the value bound to key, and whether key is present.
func (t *Table) Get(key Value) (Value, bool) {
	return t.m.Get(key)
}

// Set binds key to val, overwriting any previous binding.
func (t *Table) Set(key, val Value) {
	t.m.Put(key, val)
}

// Delete removes key from the table, if present.
func (t *Table) Delete(key Value) {
	t.m.Delete(key)
}

// Len returns the number of entries.
func (t *Table) Len() int { return int(t.m.Count()) }

// Each calls fn for every (key, value) pair. Iteration order is unspecified,
// matching the for-each language construct's documented ordering guarantee
// (or lack thereof).
func (t *Table) Each(fn func(k, v Value) bool) {
	t.m.Iter(func(k, v Value) bool {
		return !fn(k, v)
	})
}

// Entries snapshots the table's (key, value) pairs into a slice, useful when
// a caller (e.g. for-each lowering or the GC) must iterate while possibly
// mutating table membership.
func (t *Table) Entries() []TableEntry {
	out := make([]TableEntry, 0, t.Len())
	t.Each(func(k, v Value) bool {
		out = append(out, TableEntry{Key: k, Value: v})
		return true
	})
	return out
}

// TableEntry is a single (key, value) pair snapshotted from a Table.
type TableEntry struct {
	Key   Value
	Value Value
}

// Package constants wraps the terminal-side named integer constant table
// loaded once at connect time (spec.md §4.8), replacing the source's
// dynamic attribute lookup with a typed accessor.
package constants

import "fmt"

// Table is an immutable snapshot of the server's constant map, e.g.
// order type codes, timeframe codes, trade action codes.
type Table struct {
	values map[string]int
}

// NewTable wraps a map<string,int> returned by the terminal's constants
// RPC. The map is copied so later mutation of the caller's map cannot
// affect the Table.
func NewTable(values map[string]int) *Table {
	cp := make(map[string]int, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return &Table{values: cp}
}

// Get looks up name, returning an error if it is not present rather than
// silently defaulting to zero — a missing constant usually means a
// terminal/client version mismatch.
func (t *Table) Get(name string) (int, error) {
	if t == nil {
		return 0, fmt.Errorf("constants: table not loaded")
	}
	v, ok := t.values[name]
	if !ok {
		return 0, fmt.Errorf("constants: unknown constant %q", name)
	}
	return v, nil
}

// MustGet panics if name is not present. Intended for call sites that
// reference a constant the client itself depends on existing (a bridge
// bug, not a runtime condition).
func (t *Table) MustGet(name string) int {
	v, err := t.Get(name)
	if err != nil {
		panic(err)
	}
	return v
}

// Len reports how many constants are loaded.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.values)
}

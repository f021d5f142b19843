package dataset

import (
	"fmt"

	"github.com/stellarlinkco/mltrack/internal/evalerr"
)

// Column is a named column of cell values. Cells may be numbers, strings,
// bools, or structured objects that serialize to a canonical form.
type Column struct {
	Name   string
	Values []any
}

// Table is a column-oriented frame. Row labels, when present, identify rows
// for display only and never contribute to the content hash.
type Table struct {
	cols   []Column
	byName map[string]int

	// Labels are optional row labels. They are excluded from fingerprints so
	// that relabeled or shuffled-label frames hash identically.
	Labels []any
}

// NewTable builds a table from columns, requiring equal column lengths.
func NewTable(cols ...Column) (*Table, error) {
	t := &Table{byName: make(map[string]int, len(cols))}
	n := -1
	for i, c := range cols {
		if c.Name == "" {
			return nil, evalerr.New(evalerr.KindInvalidArgument, "dataset: column %d has an empty name", i)
		}
		if _, dup := t.byName[c.Name]; dup {
			return nil, evalerr.New(evalerr.KindInvalidArgument, "dataset: duplicate column name %q", c.Name)
		}
		if n == -1 {
			n = len(c.Values)
		} else if len(c.Values) != n {
			return nil, evalerr.New(evalerr.KindInvalidArgument,
				"dataset: column %q has %d values, want %d to match sibling columns", c.Name, len(c.Values), n)
		}
		t.byName[c.Name] = i
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// MustTable is NewTable that panics on error, for fixtures and tests.
func MustTable(cols ...Column) *Table {
	t, err := NewTable(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	if t == nil || len(t.cols) == 0 {
		return 0
	}
	return len(t.cols[0].Values)
}

// NumCols returns the column count.
func (t *Table) NumCols() int {
	if t == nil {
		return 0
	}
	return len(t.cols)
}

// ColumnNames returns the column names in column order.
func (t *Table) ColumnNames() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// Column returns the values of the named column.
func (t *Table) Column(name string) ([]any, bool) {
	if t == nil || t.byName == nil {
		return nil, false
	}
	i, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return t.cols[i].Values, true
}

// Row returns row i in column order.
func (t *Table) Row(i int) []any {
	if t == nil || i < 0 || i >= t.NumRows() {
		return nil
	}
	out := make([]any, len(t.cols))
	for j, c := range t.cols {
		out[j] = c.Values[i]
	}
	return out
}

// Select returns a new table holding only the named columns, in the given
// order.
func (t *Table) Select(names ...string) (*Table, error) {
	if t == nil {
		return nil, evalerr.New(evalerr.KindInvalidArgument, "dataset: select on nil table")
	}
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		i, ok := t.byName[name]
		if !ok {
			return nil, evalerr.New(evalerr.KindInvalidArgument, "dataset: no column named %q", name)
		}
		cols = append(cols, t.cols[i])
	}
	return NewTable(cols...)
}

// Drop returns a new table without the named column. Dropping an absent
// column returns the table unchanged.
func (t *Table) Drop(name string) *Table {
	if t == nil {
		return nil
	}
	if _, ok := t.byName[name]; !ok {
		return t
	}
	cols := make([]Column, 0, len(t.cols)-1)
	for _, c := range t.cols {
		if c.Name == name {
			continue
		}
		cols = append(cols, c)
	}
	out, err := NewTable(cols...)
	if err != nil {
		// Columns came from a valid table.
		panic(fmt.Sprintf("dataset: drop %q: %v", name, err))
	}
	out.Labels = t.Labels
	return out
}

// Head returns a new table holding the first n rows.
func (t *Table) Head(n int) *Table {
	if t == nil {
		return nil
	}
	if n >= t.NumRows() {
		return t
	}
	if n < 0 {
		n = 0
	}
	cols := make([]Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = Column{Name: c.Name, Values: c.Values[:n]}
	}
	out := MustTable(cols...)
	if len(t.Labels) >= n {
		out.Labels = t.Labels[:n]
	}
	return out
}

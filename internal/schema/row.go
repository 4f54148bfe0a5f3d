package schema

import (
	"fmt"
	"strings"
)

// Row is an ordered mapping of column name to value.
type Row struct {
	Columns []string
	Values  []any
}

func NewRow(cols []string, values []any) Row {
	return Row{Columns: cols, Values: values}
}

// Get returns the value of the named column.
func (r Row) Get(col string) (any, bool) {
	for i, c := range r.Columns {
		if c == col {
			return r.Values[i], true
		}
	}
	return nil, false
}

func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.Columns))
	for i, c := range r.Columns {
		m[c] = r.Values[i]
	}
	return m
}

// Project returns a row holding only cols, in that order. Missing columns are nil.
func (r Row) Project(cols []string) Row {
	values := make([]any, len(cols))
	for i, c := range cols {
		values[i], _ = r.Get(c)
	}
	return Row{Columns: cols, Values: values}
}

func (r Row) Len() int {
	return len(r.Columns)
}

// String renders "id: 1, name: x", used in key log lines.
func (r Row) String() string {
	parts := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		parts[i] = fmt.Sprintf("%s: %v", c, r.Values[i])
	}
	return strings.Join(parts, ", ")
}

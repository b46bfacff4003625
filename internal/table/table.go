// Package table holds the in-memory tabular model shared by the profiler,
// the cleaning executor, and the persistence sinks.
package table

import (
	"fmt"
	"strconv"
	"time"
)

// Kind is the inferred logical type of a column.
type Kind string

const (
	KindNumeric  Kind = "numeric"
	KindDatetime Kind = "datetime"
	KindBoolean  Kind = "boolean"
	KindText     Kind = "text"
)

// Column describes one column of a table.
type Column struct {
	Name string
	Kind Kind
}

// Table is a named, column-ordered set of rows. A nil cell is null.
// Non-null cells hold float64 (numeric), time.Time (datetime), bool
// (boolean) or string (text).
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// New returns an empty table with the given columns.
func New(name string, cols ...Column) *Table {
	return &Table{Name: name, Columns: cols}
}

// Len reports the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// AppendRow adds a row, padding or truncating it to the column count.
func (t *Table) AppendRow(cells ...any) {
	row := make([]any, len(t.Columns))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

// Cell returns the value at row r, column c. Out-of-range positions read as null.
func (t *Table) Cell(r, c int) any {
	if r < 0 || r >= len(t.Rows) || c < 0 || c >= len(t.Rows[r]) {
		return nil
	}
	return t.Rows[r][c]
}

// NullCount counts null cells in column c.
func (t *Table) NullCount(c int) int {
	n := 0
	for r := range t.Rows {
		if t.Cell(r, c) == nil {
			n++
		}
	}
	return n
}

// Values returns column c as a slice, nulls included.
func (t *Table) Values(c int) []any {
	out := make([]any, len(t.Rows))
	for r := range t.Rows {
		out[r] = t.Cell(r, c)
	}
	return out
}

// Clone returns a copy that shares no row storage with t. Cell values are
// immutable scalars, so copying the row slices is enough. Rows shorter than
// the header are padded with nulls, matching what Cell reports for them.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{
		Name:    t.Name,
		Columns: append([]Column(nil), t.Columns...),
		Rows:    make([][]any, len(t.Rows)),
	}
	for i, row := range t.Rows {
		cp := make([]any, max(len(row), len(t.Columns)))
		copy(cp, row)
		out.Rows[i] = cp
	}
	return out
}

// FormatValue renders a cell the way it is written back to text outputs.
// Null renders as the empty string.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return formatTime(x)
	default:
		return fmt.Sprint(x)
	}
}

func formatTime(t time.Time) string {
	if _, off := t.Zone(); off != 0 {
		return t.Format(time.RFC3339)
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// Package cleaning applies approved cleaning instructions to copies of the
// input tables.
package cleaning

import (
	"go.uber.org/zap"

	"github.com/KaramelBytes/tidyloom-cli/internal/logging"
	"github.com/KaramelBytes/tidyloom-cli/internal/recommend"
	"github.com/KaramelBytes/tidyloom-cli/internal/table"
)

// Executor applies an ApprovedMap. Unknown tables, columns and actions are
// skipped without error; the map is assumed to have been reviewed already.
type Executor struct {
	logger *zap.Logger
}

// NewExecutor returns an executor logging to logger (nil disables logging).
func NewExecutor(logger *zap.Logger) *Executor {
	return &Executor{logger: logging.OrNop(logger).Named("cleaning")}
}

// Apply returns a cleaned copy of every input table. The inputs are never
// modified. Columns are processed in approved-map order, so rows dropped for
// one column are gone before the next column's rule runs.
func (e *Executor) Apply(tables map[string]*table.Table, approved *ApprovedMap) map[string]*table.Table {
	out := make(map[string]*table.Table, len(tables))
	for name, t := range tables {
		if t == nil {
			out[name] = nil
			continue
		}
		out[name] = t.Clone()
	}

	for _, tableName := range approved.Tables() {
		t, ok := out[tableName]
		if !ok || t == nil {
			e.logger.Debug("skipping unknown table", zap.String("table", tableName))
			continue
		}
		cols := approved.columns(tableName)
		if cols == nil {
			continue
		}
		for p := cols.Oldest(); p != nil; p = p.Next() {
			col := t.ColumnIndex(p.Key)
			if col < 0 {
				e.logger.Debug("skipping unknown column", zap.String("table", tableName), zap.String("column", p.Key))
				continue
			}
			changed := e.applyOne(t, col, p.Value)
			e.logger.Debug("applied instruction",
				zap.String("table", tableName),
				zap.String("column", p.Key),
				zap.String("action", p.Value.Action),
				zap.Int("cells_or_rows", changed))
		}
	}
	return out
}

// applyOne mutates t in place and returns how many cells or rows changed.
func (e *Executor) applyOne(t *table.Table, col int, in Instruction) int {
	switch in.Action {
	case recommend.ActionFillConstant:
		if in.ReplacementValue == nil {
			return 0
		}
		return fillNulls(t, col, table.Coerce(in.ReplacementValue, t.Columns[col].Kind))
	case recommend.ActionDropRow:
		return dropNullRows(t, col)
	case recommend.ActionImputeMean:
		if t.Columns[col].Kind != table.KindNumeric {
			return 0
		}
		mean, ok := columnMean(t, col)
		if !ok {
			return 0
		}
		return fillNulls(t, col, mean)
	case recommend.ActionIgnore:
		return 0
	default:
		e.logger.Debug("unknown action", zap.String("action", in.Action))
		return 0
	}
}

// fillNulls replaces every cell that Cell reports as null, including the
// missing tail of a short row.
func fillNulls(t *table.Table, col int, v any) int {
	n := 0
	for i, row := range t.Rows {
		if col >= len(row) {
			row = append(row, make([]any, col+1-len(row))...)
			t.Rows[i] = row
		}
		if row[col] == nil {
			row[col] = v
			n++
		}
	}
	return n
}

func dropNullRows(t *table.Table, col int) int {
	kept := t.Rows[:0]
	for _, row := range t.Rows {
		if col < len(row) && row[col] != nil {
			kept = append(kept, row)
		}
	}
	dropped := len(t.Rows) - len(kept)
	// Clear the tail so dropped rows can be collected.
	for i := len(kept); i < len(t.Rows); i++ {
		t.Rows[i] = nil
	}
	t.Rows = kept
	return dropped
}

func columnMean(t *table.Table, col int) (float64, bool) {
	var sum float64
	n := 0
	for _, row := range t.Rows {
		if col >= len(row) {
			continue
		}
		if f, ok := row[col].(float64); ok {
			sum += f
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/KaramelBytes/tidyloom-cli/internal/logging"
	"github.com/KaramelBytes/tidyloom-cli/internal/table"
)

// SQLiteSink writes each table as <table>_cleaned into one SQLite file.
// Existing tables of the same name are replaced.
type SQLiteSink struct {
	Path   string
	logger *zap.Logger
}

// NewSQLiteSink returns a sink writing to the database file at path.
func NewSQLiteSink(path string, logger *zap.Logger) *SQLiteSink {
	return &SQLiteSink{Path: path, logger: logging.OrNop(logger).Named("store")}
}

// Write stores all tables in a single transaction.
func (s *SQLiteSink) Write(ctx context.Context, tables map[string]*table.Table) (Manifest, error) {
	if s.Path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	out := Manifest{}
	for _, name := range sortedNames(tables) {
		t := tables[name]
		target := name + CleanedSuffix
		if err := writeTable(ctx, tx, target, t); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		s.logger.Debug("wrote table", zap.String("table", name), zap.String("target", target), zap.Int("rows", t.Len()))
		out = append(out, Entry{Table: name, Location: s.Path + "#" + target, Rows: t.Len()})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return out, nil
}

func writeTable(ctx context.Context, tx *sql.Tx, target string, t *table.Table) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("table has no columns")
	}
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(target)); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}

	defs := make([]string, len(t.Columns))
	names := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = quoteIdent(c.Name)
		defs[i] = names[i] + " " + sqlType(c.Kind)
		marks[i] = "?"
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(target), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(target), strings.Join(names, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	args := make([]any, len(t.Columns))
	for r, row := range t.Rows {
		for c := range t.Columns {
			var v any
			if c < len(row) {
				v = row[c]
			}
			args[c] = sqlValue(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", r+1, err)
		}
	}
	return nil
}

func sqlType(k table.Kind) string {
	switch k {
	case table.KindNumeric:
		return "REAL"
	case table.KindBoolean:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

func sqlValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64, string:
		return x
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		// datetimes and anything else go in as their text form
		return table.FormatValue(x)
	}
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

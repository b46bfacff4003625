package parser_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tidyloom-cli/internal/parser"
	"github.com/KaramelBytes/tidyloom-cli/internal/table"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "orders", parser.TableName("data/orders.csv"))
	assert.Equal(t, "website.sessions", parser.TableName("/x/website.sessions.csv"))
	assert.Equal(t, "noext", parser.TableName("noext"))
}

func TestParseFileCSV(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "orders.csv", "order_id,price_usd\n1,49.99\n2,\n")
	tbl, err := parser.ParseFile(p)
	require.NoError(t, err)
	assert.Equal(t, "orders", tbl.Name)
	assert.Equal(t, table.KindNumeric, tbl.Columns[1].Kind)
	assert.Equal(t, 1, tbl.NullCount(1))
}

func TestParseFileSemicolonAndTSV(t *testing.T) {
	dir := t.TempDir()
	semi := writeFile(t, dir, "semi.csv", "a;b\n1;2\n")
	tsv := writeFile(t, dir, "tabbed.tsv", "a\tb\n1\t\n")

	st, err := parser.ParseFile(semi)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, st.ColumnNames())

	tt, err := parser.ParseFile(tsv)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tt.ColumnNames())
	assert.Equal(t, 1, tt.NullCount(1))
}

func TestParseFileUnsupported(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "notes.txt", "hello")
	_, err := parser.ParseFile(p)
	require.ErrorIs(t, err, parser.ErrUnsupported)
	assert.Contains(t, err.Error(), "notes.txt")
	assert.False(t, parser.Supported("notes.txt"))
	assert.True(t, parser.Supported("ORDERS.CSV"))
}

func TestParseFileBadWorkbookNamesFile(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "broken.xlsx", "not a zip")
	_, err := parser.ParseFile(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error processing broken.xlsx")
}

func TestLoadTables(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "website_sessions.csv", "website_session_id,utm_source\n1,gsearch\n2,\n")
	b := writeFile(t, dir, "orders.csv", "order_id,price_usd\n1,49.99\n")

	tables, err := parser.LoadTables(context.Background(), []string{a, b})
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, 2, tables["website_sessions"].Len())
	assert.Equal(t, 1, tables["orders"].Len())
}

func TestLoadTablesErrors(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "a.csv", "x\n1\n")
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	dup := writeFile(t, sub, "a.csv", "x\n2\n")

	_, err := parser.LoadTables(context.Background(), nil)
	require.Error(t, err)

	_, err = parser.LoadTables(context.Background(), []string{good, dup})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate table name")

	_, err = parser.LoadTables(context.Background(), []string{good, filepath.Join(dir, "missing.csv")})
	require.Error(t, err)
}

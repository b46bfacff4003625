package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tidyloom-cli/internal/utils"
)

func TestSafeWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	require.NoError(t, utils.EnsureDir(dir))

	path := filepath.Join(dir, "a.txt")
	require.NoError(t, utils.SafeWriteFile(path, []byte("one")))
	require.NoError(t, utils.SafeWriteFile(path, []byte("two")))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(b))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestSafeWriteFileMissingDir(t *testing.T) {
	err := utils.SafeWriteFile(filepath.Join(t.TempDir(), "nope", "a.txt"), []byte("x"))
	assert.ErrorContains(t, err, "write temp file")
}

func TestPrettyJSON(t *testing.T) {
	b, err := utils.PrettyJSON(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(b))

	_, err = utils.PrettyJSON(make(chan int))
	assert.Error(t, err)
}

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.csv", "c.tsv"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x\n1\n"), 0o644))
	}

	files, err := utils.ExpandPaths([]string{
		filepath.Join(dir, "*.csv"),
		filepath.Join(dir, "a.csv"),
		filepath.Join(dir, "c.tsv"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.csv"),
		filepath.Join(dir, "b.csv"),
		filepath.Join(dir, "c.tsv"),
	}, files)

	_, err = utils.ExpandPaths([]string{filepath.Join(dir, "*.xlsx")})
	assert.EqualError(t, err, "no input files matched")

	_, err = utils.ExpandPaths([]string{"[bad"})
	assert.Error(t, err)
}

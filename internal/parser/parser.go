package parser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/tidyloom-cli/internal/table"
)

// Parser turns the bytes of one file into a table.
type Parser interface {
	CanParse(filename string) bool
	Parse(name string, content []byte) (*table.Table, error)
}

var registry []Parser

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

// ErrUnsupported indicates a file format no registered parser accepts.
var ErrUnsupported = errors.New("unsupported file format")

// Supported reports whether any registered parser accepts the filename.
func Supported(filename string) bool {
	for _, p := range registry {
		if p.CanParse(filename) {
			return true
		}
	}
	return false
}

// TableName derives a table name from a file path: the base name with its
// last extension removed ("data/orders.csv" -> "orders").
func TableName(path string) string {
	base := filepath.Base(path)
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		return base[:i]
	}
	return base
}

// ParseFile reads path and parses it with the first parser that accepts it.
// Errors name the offending file.
func ParseFile(path string) (*table.Table, error) {
	var p Parser
	for _, cand := range registry {
		if cand.CanParse(path) {
			p = cand
			break
		}
	}
	if p == nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupported)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	t, err := p.Parse(TableName(path), data)
	if err != nil {
		return nil, fmt.Errorf("error processing %s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// LoadTables parses all paths concurrently and keys the tables by name.
// The first failure cancels the remaining work.
func LoadTables(ctx context.Context, paths []string) (map[string]*table.Table, error) {
	if len(paths) == 0 {
		return nil, errors.New("no valid data files given")
	}
	out := make([]*table.Table, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := ParseFile(p)
			if err != nil {
				return err
			}
			out[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	tables := make(map[string]*table.Table, len(out))
	from := make(map[string]string, len(out))
	for i, t := range out {
		if prev, dup := from[t.Name]; dup {
			return nil, fmt.Errorf("duplicate table name %q from %s and %s", t.Name, prev, paths[i])
		}
		from[t.Name] = paths[i]
		tables[t.Name] = t
	}
	return tables, nil
}

func init() {
	Register(csvParser{})
	Register(xlsxParser{})
}

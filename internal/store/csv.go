package store

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/KaramelBytes/tidyloom-cli/internal/logging"
	"github.com/KaramelBytes/tidyloom-cli/internal/table"
	"github.com/KaramelBytes/tidyloom-cli/internal/utils"
)

// DefaultOutputDir is where CSV outputs go when no directory is configured.
const DefaultOutputDir = "./cleaned_data"

// CSVSink writes <table>_cleaned.csv files into Dir.
type CSVSink struct {
	Dir    string
	logger *zap.Logger
}

// NewCSVSink returns a sink for dir ("" selects DefaultOutputDir).
func NewCSVSink(dir string, logger *zap.Logger) *CSVSink {
	if dir == "" {
		dir = DefaultOutputDir
	}
	return &CSVSink{Dir: dir, logger: logging.OrNop(logger).Named("store")}
}

// Write encodes every table and replaces any existing file atomically.
func (s *CSVSink) Write(ctx context.Context, tables map[string]*table.Table) (Manifest, error) {
	if err := utils.EnsureDir(s.Dir); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	out := Manifest{}
	for _, name := range sortedNames(tables) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t := tables[name]
		data, err := table.EncodeCSV(t)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		path := filepath.Join(s.Dir, name+CleanedSuffix+".csv")
		if err := utils.SafeWriteFile(path, data); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		s.logger.Debug("wrote table", zap.String("table", name), zap.String("path", path), zap.Int("rows", t.Len()))
		out = append(out, Entry{Table: name, Location: path, Rows: t.Len()})
	}
	return out, nil
}

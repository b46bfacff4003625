// Package store persists cleaned tables and reports where they went.
package store

import (
	"context"
	"sort"

	"github.com/KaramelBytes/tidyloom-cli/internal/table"
)

// CleanedSuffix is appended to table names for persisted outputs.
const CleanedSuffix = "_cleaned"

// Entry records one persisted table.
type Entry struct {
	Table    string `json:"table"`
	Location string `json:"location"`
	Rows     int    `json:"rows"`
}

// Manifest lists persisted tables in table-name order.
type Manifest []Entry

// Sink writes a set of cleaned tables.
type Sink interface {
	Write(ctx context.Context, tables map[string]*table.Table) (Manifest, error)
}

func sortedNames(tables map[string]*table.Table) []string {
	names := make([]string, 0, len(tables))
	for name, t := range tables {
		if t == nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

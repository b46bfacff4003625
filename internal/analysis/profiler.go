// Package analysis profiles tables for missing data and produces the health
// report that drives recommendation prompts.
package analysis

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/KaramelBytes/tidyloom-cli/internal/table"
)

// DefaultProject is the project label used when none is configured.
const DefaultProject = "ProjectX"

// sampleSize is the maximum number of distinct sample values per column.
const sampleSize = 3

// HealthReport summarizes missing data across a set of tables.
type HealthReport struct {
	Project string        `json:"project"`
	Summary Summary       `json:"summary"`
	Details []TableHealth `json:"details"`
}

// Summary holds report-wide counts.
type Summary struct {
	TotalTables int `json:"total_tables"`
}

// TableHealth is the per-table part of a report. Columns keep table order.
type TableHealth struct {
	TableName    string                                       `json:"table_name"`
	TotalRecords int                                          `json:"total_records"`
	Columns      *orderedmap.OrderedMap[string, ColumnHealth] `json:"columns"`
}

// ColumnHealth describes one column's missing data and meaning.
type ColumnHealth struct {
	InferredIntent string `json:"inferred_intent"`
	DataType       string `json:"data_type"`
	NullCount      int    `json:"null_count"`
	NullPercentage string `json:"null_percentage"`
	SampleData     []any  `json:"sample_data"`
}

// Percent returns NullPercentage as a number. Empty or malformed values read as 0.
func (c ColumnHealth) Percent() float64 {
	return ParsePercent(c.NullPercentage)
}

// Profiler builds health reports. It holds no mutable state.
type Profiler struct {
	project string
	intents IntentDictionary
}

// NewProfiler returns a profiler labelling reports with project.
func NewProfiler(project string, intents IntentDictionary) *Profiler {
	if project == "" {
		project = DefaultProject
	}
	if intents.m == nil {
		intents = DefaultIntents()
	}
	return &Profiler{project: project, intents: intents}
}

// Profile inspects every table. Details are ordered by table name.
func (p *Profiler) Profile(tables map[string]*table.Table) *HealthReport {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	rep := &HealthReport{
		Project: p.project,
		Summary: Summary{TotalTables: len(tables)},
		Details: make([]TableHealth, 0, len(names)),
	}
	for _, name := range names {
		rep.Details = append(rep.Details, p.profileTable(name, tables[name]))
	}
	return rep
}

func (p *Profiler) profileTable(name string, t *table.Table) TableHealth {
	th := TableHealth{
		TableName:    name,
		TotalRecords: t.Len(),
		Columns:      orderedmap.New[string, ColumnHealth](),
	}
	if t == nil {
		return th
	}
	for i, col := range t.Columns {
		nulls := t.NullCount(i)
		th.Columns.Set(col.Name, ColumnHealth{
			InferredIntent: p.intents.Lookup(col.Name),
			DataType:       string(col.Kind),
			NullCount:      nulls,
			NullPercentage: FormatPercent(nulls, th.TotalRecords),
			SampleData:     samples(t.Values(i), sampleSize),
		})
	}
	return th
}

// Lookup returns the health entry for table.column.
func (r *HealthReport) Lookup(tableName, column string) (ColumnHealth, bool) {
	if r == nil {
		return ColumnHealth{}, false
	}
	for _, d := range r.Details {
		if d.TableName != tableName || d.Columns == nil {
			continue
		}
		return d.Columns.Get(column)
	}
	return ColumnHealth{}, false
}

// FormatPercent renders nulls/total*100 rounded to two decimals, keeping at
// least one decimal place ("50.0%", "33.33%"). An empty table yields "0%".
func FormatPercent(nulls, total int) string {
	if total == 0 {
		return "0%"
	}
	v := math.Round(float64(nulls)/float64(total)*100*100) / 100
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s + "%"
}

// ParsePercent reads a "<number>%" string. Anything unparseable is 0.
func ParsePercent(s string) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// samples returns up to n distinct non-null values in first-seen order.
func samples(values []any, n int) []any {
	out := make([]any, 0, n)
	seen := make(map[any]struct{}, n)
	for _, v := range values {
		if v == nil {
			continue
		}
		key := v
		if tv, ok := v.(time.Time); ok {
			key = tv.UnixNano()
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
		if len(out) == n {
			break
		}
	}
	return out
}

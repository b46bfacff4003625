package analysis

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	tbl "github.com/KaramelBytes/tidyloom-cli/internal/table"
)

// Markdown renders a compact per-table summary of the report.
func (r *HealthReport) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Data health: %s\n\n", r.Project)
	fmt.Fprintf(&b, "Tables: %d\n", r.Summary.TotalTables)
	for _, d := range r.Details {
		fmt.Fprintf(&b, "\n## %s (%d records)\n\n", d.TableName, d.TotalRecords)
		if d.Columns == nil || d.Columns.Len() == 0 {
			b.WriteString("(no columns)\n")
			continue
		}
		tw := table.NewWriter()
		tw.AppendHeader(table.Row{"Column", "Type", "Nulls", "Null %", "Intent", "Samples"})
		for pair := d.Columns.Oldest(); pair != nil; pair = pair.Next() {
			c := pair.Value
			tw.AppendRow(table.Row{pair.Key, c.DataType, c.NullCount, c.NullPercentage, c.InferredIntent, joinSamples(c.SampleData)})
		}
		b.WriteString(tw.RenderMarkdown())
		b.WriteString("\n")
	}
	return b.String()
}

func joinSamples(vals []any) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = tbl.FormatValue(v)
	}
	return strings.Join(parts, ", ")
}

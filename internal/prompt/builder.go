// Package prompt renders health reports into recommendation requests.
package prompt

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/tidyloom-cli/internal/analysis"
)

const (
	preamble = "### ROLE: Senior Data Engineer\n### OBJECTIVE: Recommend data cleaning strategies.\n"

	outputFormat = "\n### OUTPUT FORMAT (JSON ONLY):\n" +
		"Return a JSON object where keys are table names. Each value is a dict of columns " +
		"mapping to {'cleaning_action': '...', 'replacement_value': '...', 'reasoning': '...'}"
)

// SystemMessage is sent as the system role by runtimes that accept one.
const SystemMessage = "You are a data quality assistant. Reply with a single JSON object and no prose. " +
	"Use one of these cleaning_action values: fill_constant, drop_row, impute_mean, ignore."

// BuildArchitectPrompt lists every column with missing values, grouped by
// table, followed by the required response shape. Columns without nulls are
// left out to keep the prompt small.
func BuildArchitectPrompt(rep *analysis.HealthReport) string {
	var b strings.Builder
	b.WriteString(preamble)
	if rep != nil {
		for _, t := range rep.Details {
			fmt.Fprintf(&b, "\nTABLE: %s\n", t.TableName)
			if t.Columns == nil {
				continue
			}
			for pair := t.Columns.Oldest(); pair != nil; pair = pair.Next() {
				info := pair.Value
				if info.NullCount <= 0 {
					continue
				}
				fmt.Fprintf(&b, " - %s: %s nulls | Intent: %s\n", pair.Key, info.NullPercentage, info.InferredIntent)
			}
		}
	}
	b.WriteString(outputFormat)
	return b.String()
}

package prompt_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KaramelBytes/tidyloom-cli/internal/analysis"
	"github.com/KaramelBytes/tidyloom-cli/internal/prompt"
	"github.com/KaramelBytes/tidyloom-cli/internal/table"
)

func sampleReport() *analysis.HealthReport {
	orders := table.New("orders",
		table.Column{Name: "order_id", Kind: table.KindNumeric},
		table.Column{Name: "price_usd", Kind: table.KindNumeric},
	)
	orders.AppendRow(1.0, 10.0)
	orders.AppendRow(2.0, nil)

	sessions := table.New("sessions",
		table.Column{Name: "utm_source", Kind: table.KindText},
	)
	sessions.AppendRow(nil)
	sessions.AppendRow("gsearch")
	sessions.AppendRow(nil)
	sessions.AppendRow("gsearch")

	return analysis.NewProfiler("p", analysis.DefaultIntents()).Profile(map[string]*table.Table{
		"orders":   orders,
		"sessions": sessions,
	})
}

func TestBuildArchitectPrompt(t *testing.T) {
	got := prompt.BuildArchitectPrompt(sampleReport())
	want := "### ROLE: Senior Data Engineer\n### OBJECTIVE: Recommend data cleaning strategies.\n" +
		"\nTABLE: orders\n" +
		" - price_usd: 50.0% nulls | Intent: Financial Metric: Selling price. Must be non-null for orders.\n" +
		"\nTABLE: sessions\n" +
		" - utm_source: 50.0% nulls | Intent: Marketing Source: Traffic origin. Nulls usually mean 'Direct'.\n" +
		"\n### OUTPUT FORMAT (JSON ONLY):\n" +
		"Return a JSON object where keys are table names. Each value is a dict of columns " +
		"mapping to {'cleaning_action': '...', 'replacement_value': '...', 'reasoning': '...'}"
	assert.Equal(t, want, got)
}

func TestBuildArchitectPromptOmitsCleanColumns(t *testing.T) {
	got := prompt.BuildArchitectPrompt(sampleReport())
	assert.NotContains(t, got, "order_id")
}

func TestBuildArchitectPromptDeterministic(t *testing.T) {
	rep := sampleReport()
	assert.Equal(t, prompt.BuildArchitectPrompt(rep), prompt.BuildArchitectPrompt(rep))
}

func TestBuildArchitectPromptEmpty(t *testing.T) {
	got := prompt.BuildArchitectPrompt(nil)
	assert.True(t, strings.HasPrefix(got, "### ROLE: Senior Data Engineer"))
	assert.Contains(t, got, "### OUTPUT FORMAT (JSON ONLY):")
	assert.NotContains(t, got, "TABLE:")
}

package prompt

import (
	"unicode/utf8"

	"github.com/KaramelBytes/tidyloom-cli/internal/ai"
)

// EstimateTokens approximates token usage at four characters per token.
// Non-empty text counts as at least one token.
func EstimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	switch {
	case n == 0:
		return 0
	case n < 4:
		return 1
	}
	return n / 4
}

// Estimate is a pre-flight view of one request.
type Estimate struct {
	Model        string
	PromptTokens int
	MaxTokens    int
	CostUSD      float64
	Priced       bool
	// FitsContext is false when prompt plus completion exceed the model's
	// known context window. Unknown models always fit.
	FitsContext bool
}

// EstimateRequest sizes text against model's catalog entry.
func EstimateRequest(model, text string, maxTokens int) Estimate {
	e := Estimate{Model: model, PromptTokens: EstimateTokens(text), MaxTokens: maxTokens, FitsContext: true}
	if mi, ok := ai.LookupModel(model); ok && mi.ContextTokens > 0 {
		e.FitsContext = e.PromptTokens+maxTokens <= mi.ContextTokens
	}
	e.CostUSD, e.Priced = ai.EstimateCostUSD(model, e.PromptTokens, maxTokens)
	return e
}

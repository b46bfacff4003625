package recommend

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// thinkTagPattern matches a leading <think>...</think> block emitted by reasoning models.
var thinkTagPattern = regexp.MustCompile(`(?s)^[\s]*<think>.*?</think>[\s]*`)

var errNoJSON = errors.New("no valid JSON found in response")

// ParseRaw resolves the service's text into a flat or nested RawOutput.
// Markdown fences, leading prose and <think> blocks are tolerated.
func ParseRaw(text string) (RawOutput, error) {
	js, err := extractJSON(text)
	if err != nil {
		return RawOutput{}, err
	}
	switch js[0] {
	case '[':
		var recs []Recommendation
		if err := json.Unmarshal([]byte(js), &recs); err != nil {
			return RawOutput{}, fmt.Errorf("decode recommendation list: %w", err)
		}
		if recs == nil {
			recs = []Recommendation{}
		}
		return RawOutput{Shape: ShapeFlat, Flat: recs}, nil
	case '{':
		m := orderedmap.New[string, json.RawMessage]()
		if err := json.Unmarshal([]byte(js), m); err != nil {
			return RawOutput{}, fmt.Errorf("decode recommendation object: %w", err)
		}
		return RawOutput{Shape: ShapeNested, Nested: m}, nil
	}
	return RawOutput{}, fmt.Errorf("expected a JSON object or array, got %.40s", js)
}

// extractJSON returns the first top-level JSON object or array in response.
// Bracketed prose that is not JSON is skipped. A span that never closes ends
// the search: whatever is nested inside a truncated document is not the answer.
func extractJSON(response string) (string, error) {
	cleaned := thinkTagPattern.ReplaceAllString(response, "")
	for from := 0; from < len(cleaned); {
		i := strings.IndexAny(cleaned[from:], "{[")
		if i < 0 {
			break
		}
		start := from + i
		span, ok := extractBalanced(cleaned, start)
		if !ok {
			return "", errNoJSON
		}
		if json.Valid([]byte(span)) {
			return span, nil
		}
		from = start + len(span)
	}
	return "", errNoJSON
}

// extractBalanced returns the bracket-balanced span opening at s[start],
// ignoring brackets inside string literals.
func extractBalanced(s string, start int) (string, bool) {
	openChar := s[start]
	closeChar := byte('}')
	if openChar == '[' {
		closeChar = ']'
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case openChar:
			depth++
		case closeChar:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

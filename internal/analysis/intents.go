package analysis

import "strings"

// DefaultIntent is reported for columns the dictionary does not know.
const DefaultIntent = "General Attribute"

// IntentDictionary maps lower-cased column names to a business-meaning label.
// It is immutable; With returns an extended copy.
type IntentDictionary struct {
	m map[string]string
}

// DefaultIntents returns the built-in dictionary.
func DefaultIntents() IntentDictionary {
	return IntentDictionary{m: map[string]string{
		"website_session_id": "Primary Relational Key: Links pageviews and sessions.",
		"utm_source":         "Marketing Source: Traffic origin. Nulls usually mean 'Direct'.",
		"price_usd":          "Financial Metric: Selling price. Must be non-null for orders.",
		"created_at":         "Temporal: Event timestamp.",
	}}
}

// With returns a copy of d with column mapped to intent.
func (d IntentDictionary) With(column, intent string) IntentDictionary {
	out := make(map[string]string, len(d.m)+1)
	for k, v := range d.m {
		out[k] = v
	}
	out[strings.ToLower(column)] = intent
	return IntentDictionary{m: out}
}

// WithAll returns a copy of d extended by every entry of extra.
func (d IntentDictionary) WithAll(extra map[string]string) IntentDictionary {
	out := d
	for k, v := range extra {
		out = out.With(k, v)
	}
	return out
}

// Lookup returns the intent for a column name, case-insensitively.
func (d IntentDictionary) Lookup(column string) string {
	if v, ok := d.m[strings.ToLower(column)]; ok {
		return v
	}
	return DefaultIntent
}

// Len reports the number of known columns.
func (d IntentDictionary) Len() int { return len(d.m) }

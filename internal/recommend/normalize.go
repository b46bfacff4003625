package recommend

import (
	"bytes"
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/KaramelBytes/tidyloom-cli/internal/analysis"
)

// Normalize converts raw service output into canonical recommendations.
// Flat lists pass through unchanged. Nested table -> column -> info objects
// are flattened in document order, with null percentages taken from report.
// Anything else yields an empty, non-nil list.
func Normalize(raw RawOutput, report *analysis.HealthReport) []Recommendation {
	switch raw.Shape {
	case ShapeFlat:
		if raw.Flat == nil {
			return []Recommendation{}
		}
		return raw.Flat
	case ShapeNested:
		return normalizeNested(raw.Nested, report)
	default:
		return []Recommendation{}
	}
}

func normalizeNested(nested *orderedmap.OrderedMap[string, json.RawMessage], report *analysis.HealthReport) []Recommendation {
	out := []Recommendation{}
	if nested == nil {
		return out
	}
	pcts := percentLookup(report)
	for tp := nested.Oldest(); tp != nil; tp = tp.Next() {
		if !isObject(tp.Value) {
			continue
		}
		cols := orderedmap.New[string, json.RawMessage]()
		if err := json.Unmarshal(tp.Value, cols); err != nil {
			continue
		}
		for cp := cols.Oldest(); cp != nil; cp = cp.Next() {
			if !isObject(cp.Value) {
				continue
			}
			var info map[string]json.RawMessage
			if err := json.Unmarshal(cp.Value, &info); err != nil {
				continue
			}
			id := tp.Key + "." + cp.Key
			rec := Recommendation{
				ID:                 id,
				TableName:          tp.Key,
				ColumnName:         cp.Key,
				NullPercentage:     pcts[id],
				RecommendationType: firstString(info, "action", "cleaning_action"),
				ReplacementValue:   firstValue(info, "replacement_value", "value"),
				Reasoning:          firstString(info, "reasoning", "explanation"),
			}
			if rec.RecommendationType == "" {
				rec.RecommendationType = ActionFillConstant
			}
			out = append(out, rec)
		}
	}
	return out
}

func percentLookup(report *analysis.HealthReport) map[string]float64 {
	out := map[string]float64{}
	if report == nil {
		return out
	}
	for _, d := range report.Details {
		if d.Columns == nil {
			continue
		}
		for pair := d.Columns.Oldest(); pair != nil; pair = pair.Next() {
			out[d.TableName+"."+pair.Key] = pair.Value.Percent()
		}
	}
	return out
}

// firstString returns the first key holding a non-empty value, read as text.
func firstString(info map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		if s := flexibleString(info[k]); s != "" {
			return s
		}
	}
	return ""
}

// firstValue returns the first key holding a non-null, non-empty value.
// Zero and false count as present.
func firstValue(info map[string]json.RawMessage, keys ...string) any {
	for _, k := range keys {
		raw, ok := info[k]
		if !ok {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			continue
		}
		return v
	}
	return nil
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

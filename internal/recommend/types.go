package recommend

import (
	"encoding/json"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/KaramelBytes/tidyloom-cli/internal/analysis"
)

// Known cleaning actions. Other strings are carried through untouched.
const (
	ActionFillConstant = "fill_constant"
	ActionDropRow      = "drop_row"
	ActionImputeMean   = "impute_mean"
	ActionIgnore       = "ignore"
)

// Recommendation is the canonical per-column suggestion.
type Recommendation struct {
	ID                 string  `json:"id"`
	TableName          string  `json:"table_name"`
	ColumnName         string  `json:"column_name"`
	NullPercentage     float64 `json:"null_percentage"`
	RecommendationType string  `json:"recommendation_type"`
	ReplacementValue   any     `json:"replacement_value,omitempty"`
	Reasoning          string  `json:"reasoning"`
}

// UnmarshalJSON accepts null_percentage as a number or a "50.0%" string and
// derives a missing id from the table and column names.
func (r *Recommendation) UnmarshalJSON(data []byte) error {
	type plain Recommendation
	var aux struct {
		plain
		NullPercentage json.RawMessage `json:"null_percentage"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Recommendation(aux.plain)
	r.NullPercentage = analysis.ParsePercent(flexibleString(aux.NullPercentage))
	if r.ID == "" && r.TableName != "" && r.ColumnName != "" {
		r.ID = r.TableName + "." + r.ColumnName
	}
	return nil
}

// Shape tags which variant of RawOutput is populated.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeFlat
	ShapeNested
	ShapeError
)

func (s Shape) String() string {
	switch s {
	case ShapeFlat:
		return "flat"
	case ShapeNested:
		return "nested"
	case ShapeError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrorResult is the structured failure returned instead of a Go error.
type ErrorResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RawOutput is what the service returned, resolved into one of three shapes.
// Nested keeps the document order of tables; column order is recovered
// during normalization.
type RawOutput struct {
	Shape  Shape
	Flat   []Recommendation
	Nested *orderedmap.OrderedMap[string, json.RawMessage]
	Error  *ErrorResult
}

// IsError reports whether the output is a service failure.
func (o RawOutput) IsError() bool { return o.Shape == ShapeError }

// MarshalJSON renders the populated variant as-is.
func (o RawOutput) MarshalJSON() ([]byte, error) {
	switch o.Shape {
	case ShapeFlat:
		if o.Flat == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(o.Flat)
	case ShapeNested:
		if o.Nested == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(o.Nested)
	case ShapeError:
		return json.Marshal(o.Error)
	default:
		return []byte("null"), nil
	}
}

func errorOutput(service string, err error) RawOutput {
	return RawOutput{
		Shape: ShapeError,
		Error: &ErrorResult{Status: "error", Message: fmt.Sprintf("%s: %s", service, err.Error())},
	}
}

// flexibleString reads a JSON scalar as text. Models sometimes send numbers or
// booleans where strings are expected. null and missing read as "".
func flexibleString(raw json.RawMessage) string {
	raw = json.RawMessage(strings.TrimSpace(string(raw)))
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f == float64(int64(f)) {
			return fmt.Sprintf("%d", int64(f))
		}
		return fmt.Sprintf("%g", f)
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return fmt.Sprintf("%t", b)
	}
	return string(raw)
}

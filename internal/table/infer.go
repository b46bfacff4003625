package table

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// nullTokens are raw cell values read as missing.
var nullTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
	"None": {},
	"#N/A": {},
}

// IsNullToken reports whether a raw text cell denotes a missing value.
func IsNullToken(s string) bool {
	_, ok := nullTokens[strings.TrimSpace(s)]
	return ok
}

var timeLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
}

func parseTimeMaybe(s string) (time.Time, bool) {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseNumeric(s string) (float64, bool) {
	raw := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// InferKind picks the narrowest kind every non-null value parses as.
// Columns with no values at all are text.
func InferKind(values []string) Kind {
	var seen, num, boo, dt int
	for _, v := range values {
		if IsNullToken(v) {
			continue
		}
		seen++
		v = strings.TrimSpace(v)
		if _, ok := parseNumeric(v); ok {
			num++
		}
		if _, ok := parseBool(v); ok {
			boo++
		}
		if _, ok := parseTimeMaybe(v); ok {
			dt++
		}
	}
	switch {
	case seen == 0:
		return KindText
	case num == seen:
		return KindNumeric
	case boo == seen:
		return KindBoolean
	case dt == seen:
		return KindDatetime
	default:
		return KindText
	}
}

// Convert turns a raw text cell into a typed value for the given kind.
// Null tokens become nil.
func Convert(raw string, k Kind) any {
	if IsNullToken(raw) {
		return nil
	}
	s := strings.TrimSpace(raw)
	switch k {
	case KindNumeric:
		if f, ok := parseNumeric(s); ok {
			return f
		}
	case KindBoolean:
		if b, ok := parseBool(s); ok {
			return b
		}
	case KindDatetime:
		if t, ok := parseTimeMaybe(s); ok {
			return t
		}
	}
	return raw
}

// FromRecords builds a typed table from a header and raw string records.
// Short records are padded with nulls.
func FromRecords(name string, header []string, records [][]string) *Table {
	cols := make([]Column, len(header))
	for i, h := range header {
		raw := make([]string, len(records))
		for r, rec := range records {
			if i < len(rec) {
				raw[r] = rec[i]
			}
		}
		cols[i] = Column{Name: strings.TrimSpace(h), Kind: InferKind(raw)}
	}
	t := &Table{Name: name, Columns: cols, Rows: make([][]any, 0, len(records))}
	for _, rec := range records {
		row := make([]any, len(cols))
		for i, c := range cols {
			if i < len(rec) {
				row[i] = Convert(rec[i], c.Kind)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Coerce converts a decoded JSON or YAML value to the Go type used for cells
// of kind k. Values that do not fit k are returned unchanged, except that
// text columns always receive strings.
func Coerce(v any, k Kind) any {
	var f float64
	isNum := true
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		if c := Convert(x, k); c != nil {
			return c
		}
		return x
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		g, err := x.Float64()
		if err != nil {
			return x.String()
		}
		f = g
	default:
		isNum = false
	}
	switch {
	case k == KindText:
		return FormatValue(v)
	case isNum && k == KindNumeric:
		return f
	}
	return v
}

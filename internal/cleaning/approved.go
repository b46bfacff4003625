package cleaning

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/tidyloom-cli/internal/recommend"
)

// Instruction is one approved action for a column. A nil ReplacementValue
// means no value was given.
type Instruction struct {
	Action           string `json:"action" yaml:"action"`
	ReplacementValue any    `json:"replacement_value,omitempty" yaml:"replacement_value,omitempty"`
}

// UnmarshalJSON also accepts the cleaning_action and value spellings.
func (in *Instruction) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return errors.New("instruction must be an object")
	}
	*in = Instruction{}
	for _, k := range []string{"action", "cleaning_action"} {
		var s string
		if raw, ok := fields[k]; ok && json.Unmarshal(raw, &s) == nil && s != "" {
			in.Action = s
			break
		}
	}
	for _, k := range []string{"replacement_value", "value"} {
		raw, ok := fields[k]
		if !ok {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		if v != nil {
			in.ReplacementValue = v
			break
		}
	}
	return nil
}

// ApprovedMap is table -> column -> Instruction, kept in document order.
type ApprovedMap struct {
	tables *orderedmap.OrderedMap[string, *orderedmap.OrderedMap[string, Instruction]]
}

// NewApprovedMap returns an empty map.
func NewApprovedMap() *ApprovedMap {
	return &ApprovedMap{tables: orderedmap.New[string, *orderedmap.OrderedMap[string, Instruction]]()}
}

// Set records an instruction, appending new tables and columns at the end.
func (m *ApprovedMap) Set(tableName, column string, in Instruction) {
	if m.tables == nil {
		m.tables = orderedmap.New[string, *orderedmap.OrderedMap[string, Instruction]]()
	}
	cols, ok := m.tables.Get(tableName)
	if !ok || cols == nil {
		cols = orderedmap.New[string, Instruction]()
		m.tables.Set(tableName, cols)
	}
	cols.Set(column, in)
}

// Get returns the instruction for tableName.column.
func (m *ApprovedMap) Get(tableName, column string) (Instruction, bool) {
	cols := m.columns(tableName)
	if cols == nil {
		return Instruction{}, false
	}
	return cols.Get(column)
}

// Tables lists table names in document order.
func (m *ApprovedMap) Tables() []string {
	if m == nil || m.tables == nil {
		return nil
	}
	out := make([]string, 0, m.tables.Len())
	for p := m.tables.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

// Len counts instructions across all tables.
func (m *ApprovedMap) Len() int {
	n := 0
	for _, name := range m.Tables() {
		if cols := m.columns(name); cols != nil {
			n += cols.Len()
		}
	}
	return n
}

func (m *ApprovedMap) columns(tableName string) *orderedmap.OrderedMap[string, Instruction] {
	if m == nil || m.tables == nil {
		return nil
	}
	cols, _ := m.tables.Get(tableName)
	return cols
}

// MarshalJSON writes the map in document order.
func (m *ApprovedMap) MarshalJSON() ([]byte, error) {
	if m == nil || m.tables == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m.tables)
}

// UnmarshalJSON reads a table -> column -> instruction object. Any value at
// either level that is not an object is rejected.
func (m *ApprovedMap) UnmarshalJSON(data []byte) error {
	tables := orderedmap.New[string, *orderedmap.OrderedMap[string, Instruction]]()
	if err := json.Unmarshal(data, tables); err != nil {
		return err
	}
	for p := tables.Oldest(); p != nil; p = p.Next() {
		if p.Value == nil {
			return fmt.Errorf("table %q: expected an object", p.Key)
		}
	}
	m.tables = tables
	return nil
}

// UnmarshalYAML walks the mapping nodes so document order survives.
func (m *ApprovedMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of tables", node.Line)
	}
	out := NewApprovedMap()
	for i := 0; i+1 < len(node.Content); i += 2 {
		tableName, cols := node.Content[i].Value, node.Content[i+1]
		if cols.Kind != yaml.MappingNode {
			return fmt.Errorf("line %d: table %q: expected a mapping of columns", cols.Line, tableName)
		}
		if len(cols.Content) == 0 {
			out.tables.Set(tableName, orderedmap.New[string, Instruction]())
		}
		for j := 0; j+1 < len(cols.Content); j += 2 {
			column, body := cols.Content[j].Value, cols.Content[j+1]
			in, err := decodeYAMLInstruction(body)
			if err != nil {
				return fmt.Errorf("line %d: %s.%s: %w", body.Line, tableName, column, err)
			}
			out.Set(tableName, column, in)
		}
	}
	*m = *out
	return nil
}

func decodeYAMLInstruction(node *yaml.Node) (Instruction, error) {
	if node.Kind != yaml.MappingNode {
		return Instruction{}, errors.New("instruction must be a mapping")
	}
	var fields map[string]any
	if err := node.Decode(&fields); err != nil {
		return Instruction{}, err
	}
	var in Instruction
	for _, k := range []string{"action", "cleaning_action"} {
		if s, ok := fields[k].(string); ok && s != "" {
			in.Action = s
			break
		}
	}
	for _, k := range []string{"replacement_value", "value"} {
		if v, ok := fields[k]; ok && v != nil {
			in.ReplacementValue = v
			break
		}
	}
	return in, nil
}

// ParseApprovedMap decodes data as "json" (the default) or "yaml"/"yml".
func ParseApprovedMap(data []byte, format string) (*ApprovedMap, error) {
	format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	m := NewApprovedMap()
	switch format {
	case "", "json":
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, errors.New("invalid approved map (json): empty document")
		}
		if err := json.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("invalid approved map (json): %w", err)
		}
	case "yaml", "yml":
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, errors.New("invalid approved map (yaml): empty document")
		}
		if err := yaml.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("invalid approved map (yaml): %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported approved map format %q", format)
	}
	return m, nil
}

// ApprovedFromRecommendations turns a reviewed recommendation list into an
// approved map, in list order. Later entries for the same column win.
func ApprovedFromRecommendations(recs []recommend.Recommendation) *ApprovedMap {
	m := NewApprovedMap()
	for _, r := range recs {
		if r.TableName == "" || r.ColumnName == "" {
			continue
		}
		m.Set(r.TableName, r.ColumnName, Instruction{Action: r.RecommendationType, ReplacementValue: r.ReplacementValue})
	}
	return m
}

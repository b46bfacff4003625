package parser

import (
	"strings"

	"github.com/KaramelBytes/tidyloom-cli/internal/table"
)

// xlsxParser reads the first worksheet of a workbook.
type xlsxParser struct{}

func (xlsxParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

func (xlsxParser) Parse(name string, content []byte) (*table.Table, error) {
	return table.ReadXLSX(content, name, "")
}

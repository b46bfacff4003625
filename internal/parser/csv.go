package parser

import (
	"bytes"
	"strings"

	"github.com/KaramelBytes/tidyloom-cli/internal/table"
)

type csvParser struct{}

func (csvParser) CanParse(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv")
}

func (csvParser) Parse(name string, content []byte) (*table.Table, error) {
	return table.ReadCSV(bytes.NewReader(content), name, sniffDelimiter(content))
}

// sniffDelimiter picks the most frequent of ',' ';' '\t' on the header line.
func sniffDelimiter(content []byte) rune {
	line := content
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		line = content[:i]
	}
	best, bestN := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

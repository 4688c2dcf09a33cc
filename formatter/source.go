package formatter

import (
	"os"
	"strings"
)

const tabWidth = 8

// SourceCode stores the content of a source code file.
type SourceCode struct {
	Lines []string
}

func ReadSourceCode(filename string) (*SourceCode, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return NewSourceCode(string(data)), nil
}

func NewSourceCode(src string) *SourceCode {
	return &SourceCode{Lines: strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")}
}

// Line returns the trimmed text of a 1-based line, or "" when out of range.
func (s *SourceCode) Line(n int) string {
	if s == nil || n < 1 || n > len(s.Lines) {
		return ""
	}
	return expandTabs(strings.TrimSpace(s.Lines[n-1]))
}

func expandTabs(line string) string {
	var expanded strings.Builder
	col := 0
	for _, ch := range line {
		if ch == '\t' {
			spaces := tabWidth - (col % tabWidth)
			expanded.WriteString(strings.Repeat(" ", spaces))
			col += spaces
		} else {
			expanded.WriteRune(ch)
			col++
		}
	}
	return expanded.String()
}

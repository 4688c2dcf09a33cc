package formatter

import (
	"fmt"
	"strings"

	"github.com/gnolang/asymptote/internal/types"
)

type IterativeFormatter struct{}

func (f *IterativeFormatter) ResultTemplate() string {
	return `{{header .AnalysisResult -}}
{{costTable .Rows .Source -}}
{{sectionTotal .Totals -}}
{{bounds .Totals -}}
{{symbols .Totals -}}
{{hypotheses .Hypotheses -}}
{{proof .Totals.Proof -}}
{{notes .Totals -}}
`
}

// costTable renders one row per costed line. Header rows of composite
// statements show their kind with an empty count.
func costTable(rows []types.CostRow, src *SourceCode) string {
	if len(rows) == 0 {
		return ""
	}

	expected := false
	lineWidth := 1
	for _, r := range rows {
		lineWidth = max(lineWidth, len(fmt.Sprint(r.Line)))
		if r.ExpectedRuns != nil {
			expected = true
		}
	}

	cells := make([][]string, 0, len(rows)+1)
	head := []string{"kind", "cost", "count"}
	if expected {
		head = append(head, "expected")
	}
	cells = append(cells, head)
	for _, r := range rows {
		row := []string{r.Kind, exprText(r.Label), exprText(r.ClosedCount)}
		if expected {
			row = append(row, exprText(r.ExpectedRuns))
		}
		cells = append(cells, row)
	}

	widths := make([]int, len(head))
	for _, row := range cells {
		for i, c := range row {
			widths[i] = max(widths[i], len([]rune(c)))
		}
	}

	padding := strings.Repeat(" ", lineWidth+1)
	var b strings.Builder
	b.WriteString(lineStyle.Sprintf("%s| ", padding))
	b.WriteString(sectionStyle.Sprint(strings.TrimRight(joinCells(cells[0], widths), " ")) + "\n")
	for i, r := range rows {
		b.WriteString(lineStyle.Sprintf("%*d | ", lineWidth, r.Line))
		text := joinCells(cells[i+1], widths)
		if line := src.Line(r.Line); line != "" {
			b.WriteString(text + noteStyle.Sprintf("  %s", line))
		} else {
			b.WriteString(strings.TrimRight(text, " "))
		}
		b.WriteString("\n")
	}
	b.WriteString(lineStyle.Sprintf("%s|\n", padding))
	return b.String()
}

func joinCells(row []string, widths []int) string {
	parts := make([]string, len(row))
	for i, c := range row {
		parts[i] = c + strings.Repeat(" ", widths[i]-len([]rune(c)))
	}
	return strings.Join(parts, "  ")
}

func sectionTotal(t types.Totals) string {
	var b strings.Builder
	if t.TOpen != nil {
		b.WriteString(sectionStyle.Sprint("T(n)  = ") + t.TOpen.String() + "\n")
	}
	if t.TPolynomial != nil && (t.TOpen == nil || t.TPolynomial.String() != t.TOpen.String()) {
		b.WriteString(sectionStyle.Sprint("      = ") + t.TPolynomial.String() + "\n")
	}
	return b.String()
}

func exprText(e fmt.Stringer) string {
	if e == nil {
		return ""
	}
	return e.String()
}

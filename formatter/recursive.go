package formatter

import (
	"fmt"
	"strings"

	"github.com/gnolang/asymptote/internal/types"
)

type RecursiveFormatter struct{}

func (f *RecursiveFormatter) ResultTemplate() string {
	return `{{header .AnalysisResult -}}
{{recurrence .Totals -}}
{{method .Totals -}}
{{bounds .Totals -}}
{{symbols .Totals -}}
{{proof .Totals.Proof -}}
{{notes .Totals -}}
`
}

func recurrence(t types.Totals) string {
	r := t.Recurrence
	if r == nil {
		return ""
	}
	out := sectionStyle.Sprint("Recurrence: ") + r.String()
	out += lineStyle.Sprintf("  (T(%d) = Θ(1))", r.BaseCase) + "\n"
	if r.Method != types.MethodAuto {
		out += sectionStyle.Sprint("Method: ") + r.Method.Title() + "\n"
	}
	return out
}

// method renders the details of whichever solver produced the result.
func method(t types.Totals) string {
	var b strings.Builder
	line := func(label, format string, args ...any) {
		b.WriteString(lineStyle.Sprintf("  %s: ", label))
		b.WriteString(fmt.Sprintf(format, args...) + "\n")
	}

	switch {
	case t.Master != nil:
		m := t.Master
		line("case", "%d", m.Case)
		line("critical exponent", "log_b(a) = %s", trimFloat(m.Critical))
		line("f(n)", "%s", m.G)
		line("comparison", "%s", m.Comparison)
		if m.Regularity != "" {
			line("regularity", "%s", m.Regularity)
		}
		if m.ThetaBest != "" {
			line("best case", "Θ(%s)", m.ThetaBest)
		}
	case t.Iteration != nil:
		it := t.Iteration
		for i, e := range it.Expansions {
			line(fmt.Sprintf("step %d", i+1), "%s", e)
		}
		line("general form", "%s", it.GeneralForm)
		line("base case", "%s", it.BaseCase)
		if it.Summation != "" {
			line("summation", "%s", it.Summation)
		}
		line("closed form", "%s", it.Closed)
	case t.RecursionTree != nil:
		rt := t.RecursionTree
		b.WriteString(treeLevels(rt.Levels))
		line("height", "%s", rt.Height)
		line("dominating level", "%s", rt.DominatingLevel)
	case t.Characteristic != nil:
		c := t.Characteristic
		line("equation", "%s", c.Equation)
		for _, r := range c.Roots {
			root := trimFloat(r.Value)
			if r.Exact != "" {
				root = r.Exact + " ≈ " + root
			}
			if r.Multiplicity > 1 {
				root += fmt.Sprintf(" (multiplicity %d)", r.Multiplicity)
			}
			line("root", "%s", root)
		}
		line("growth rate", "%s", c.GrowthRate)
		line("homogeneous solution", "%s", c.HomogeneousSolution)
		if c.ParticularSolution != "" {
			line("particular solution", "%s", c.ParticularSolution)
		}
		line("closed form", "%s", c.ClosedForm)
		if dp := c.DP; dp != nil {
			line("dp", "time %s, space %s, rolling %s", dp.Time, dp.Space, dp.RollingSpace)
			for _, s := range dp.Rolling {
				b.WriteString("      " + s + "\n")
			}
		}
	}
	return b.String()
}

func treeLevels(levels []types.TreeLevel) string {
	if len(levels) == 0 {
		return ""
	}
	cells := [][]string{{"depth", "nodes", "size", "per node", "level total"}}
	for _, l := range levels {
		cells = append(cells, []string{fmt.Sprint(l.Depth), l.Nodes, l.Size, l.PerNode, l.Total})
	}
	widths := make([]int, len(cells[0]))
	for _, row := range cells {
		for i, c := range row {
			widths[i] = max(widths[i], len([]rune(c)))
		}
	}

	var b strings.Builder
	b.WriteString(lineStyle.Sprint("  | ") + sectionStyle.Sprint(strings.TrimRight(joinCells(cells[0], widths), " ")) + "\n")
	for _, row := range cells[1:] {
		b.WriteString(lineStyle.Sprint("  | ") + strings.TrimRight(joinCells(row, widths), " ") + "\n")
	}
	return b.String()
}

func trimFloat(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", f), "0"), ".")
}

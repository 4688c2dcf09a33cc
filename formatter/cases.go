package formatter

import (
	"strings"

	"github.com/gnolang/asymptote/internal/types"
)

// CasesFormatter renders mode all: the summary bounds, then each distinct
// case. Cases aliased to the worst case are named instead of repeated.
type CasesFormatter struct{}

func (f *CasesFormatter) ResultTemplate() string {
	return `{{header .AnalysisResult -}}
{{bounds .Totals -}}
{{notes .Totals -}}
{{cases .Cases .Source -}}
`
}

func cases(c *types.Cases, src *SourceCode) string {
	var b strings.Builder
	if c.HasCaseVariability {
		b.WriteString(sectionStyle.Sprint("Cases differ:\n"))
	} else {
		b.WriteString(sectionStyle.Sprint("Cases agree:\n"))
	}

	render := func(label string, r *types.AnalysisResult) {
		if r == nil {
			return
		}
		b.WriteString(kindStyle.Sprintf("== %s ==\n", label))
		b.WriteString(buildResult(r, src, getResultFormatter(r)))
	}

	render("worst", c.Worst)
	for _, other := range []struct {
		label string
		r     *types.AnalysisResult
	}{{"best", c.Best}, {"avg", c.Average}} {
		if other.r == c.Worst {
			b.WriteString(lineStyle.Sprintf("== %s == same as worst\n", other.label))
			continue
		}
		render(other.label, other.r)
	}
	return b.String()
}

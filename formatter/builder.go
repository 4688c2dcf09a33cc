package formatter

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/fatih/color"

	"github.com/gnolang/asymptote/internal/types"
)

var (
	errorStyle   = color.New(color.FgRed, color.Bold)
	kindStyle    = color.New(color.FgYellow, color.Bold)
	fileStyle    = color.New(color.FgCyan, color.Bold)
	lineStyle    = color.New(color.FgHiBlue, color.Bold)
	boundStyle   = color.New(color.FgGreen, color.Bold)
	sectionStyle = color.New(color.FgMagenta, color.Bold)
	noteStyle    = color.New(color.FgHiBlack)
)

// resultFormatter is the interface that wraps the ResultTemplate method.
// Implementations render one kind of analysis result.
type resultFormatter interface {
	ResultTemplate() string
}

// getResultFormatter returns the formatter for the shape of the result.
func getResultFormatter(r *types.AnalysisResult) resultFormatter {
	switch {
	case r.Failure != nil:
		return &FailureFormatter{}
	case r.Cases != nil:
		return &CasesFormatter{}
	case r.Totals.Recurrence != nil:
		return &RecursiveFormatter{}
	default:
		return &IterativeFormatter{}
	}
}

// GenerateFormattedResult renders results as human-readable text. src may
// be nil when the analyzed input has no source text, e.g. a JSON AST.
func GenerateFormattedResult(results []*types.AnalysisResult, src *SourceCode) string {
	var builder strings.Builder
	for _, r := range results {
		builder.WriteString(buildResult(r, src, getResultFormatter(r)))
		builder.WriteString("\n")
	}
	return builder.String()
}

/***** Result Formatter Builder *****/

type ResultData struct {
	*types.AnalysisResult
	Source *SourceCode
}

func buildResult(r *types.AnalysisResult, src *SourceCode, formatter resultFormatter) string {
	funcMap := template.FuncMap{
		"header":       header,
		"costTable":    costTable,
		"sectionTotal": sectionTotal,
		"bounds":       bounds,
		"recurrence":   recurrence,
		"method":       method,
		"proof":        proof,
		"notes":        notes,
		"symbols":      symbols,
		"hypotheses":   hypotheses,
		"failure":      failure,
		"cases":        cases,
	}

	tmpl, err := template.New("result").Funcs(funcMap).Parse(formatter.ResultTemplate())
	if err != nil {
		return fmt.Sprintf("Error formatting result: %v", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ResultData{AnalysisResult: r, Source: src}); err != nil {
		return fmt.Sprintf("Error formatting result: %v", err)
	}
	return buf.String()
}

// utils functions used in the text templates

func header(r *types.AnalysisResult) string {
	name := r.Procedure
	if name == "" {
		name = "<program>"
	}
	kind := string(r.Kind)
	if kind == "" {
		kind = "analysis"
	}
	out := kindStyle.Sprint(kind) + ": " + fileStyle.Sprint(name)
	if r.Mode != "" {
		out += lineStyle.Sprintf(" [%s]", r.Mode)
	}
	out += "\n"
	if r.File != "" {
		out += lineStyle.Sprint(" --> ") + fileStyle.Sprint(r.File) + "\n"
	}
	return out
}

func bounds(t types.Totals) string {
	var b strings.Builder
	write := func(label, v string) {
		if v == "" {
			return
		}
		b.WriteString(lineStyle.Sprintf("  %-2s ", label))
		b.WriteString(boundStyle.Sprintf("%s(%s)", label, v))
		b.WriteString("\n")
	}
	write("O", t.BigO)
	write("Ω", t.BigOmega)
	write("Θ", t.BigTheta)
	return b.String()
}

func proof(p types.Proof) string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(sectionStyle.Sprint("Proof:\n"))
	width := 0
	for _, s := range p {
		width = max(width, len(s.ID))
	}
	for _, s := range p {
		b.WriteString(lineStyle.Sprintf("  %-*s | ", width, s.ID))
		b.WriteString(s.Text + "\n")
	}
	return b.String()
}

func notes(t types.Totals) string {
	var b strings.Builder
	for _, n := range t.Notes {
		b.WriteString(noteStyle.Sprintf("  note: %s\n", n))
	}
	return b.String()
}

func symbols(t types.Totals) string {
	if len(t.Symbols) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(sectionStyle.Sprint("Symbols:\n"))
	for _, s := range t.Symbols {
		b.WriteString(fmt.Sprintf("  %s: %s\n", s.Name, s.Description))
	}
	return b.String()
}

func hypotheses(h []string) string {
	if len(h) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(sectionStyle.Sprint("Hypotheses:\n"))
	for _, s := range h {
		b.WriteString("  - " + s + "\n")
	}
	return b.String()
}

func failure(e *types.AnalysisError) string {
	out := errorStyle.Sprintf("error[%s]: ", e.Code) + e.Message + "\n"
	if e.Expr != nil {
		out += lineStyle.Sprint("  = ") + "at " + e.Expr.String() + "\n"
	}
	return out
}

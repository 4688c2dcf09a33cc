package formatter

type FailureFormatter struct{}

func (f *FailureFormatter) ResultTemplate() string {
	return `{{header .AnalysisResult -}}
{{failure .Failure -}}
{{proof .Totals.Proof -}}
{{notes .Totals -}}
`
}

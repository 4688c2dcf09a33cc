package cost

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/gnolang/asymptote/internal/expr"
	"github.com/gnolang/asymptote/internal/summation"
	"github.com/gnolang/asymptote/internal/types"
)

// Limits of the per-row form of T_open. Past any of them the equation is
// collected by powers of the size variable.
const (
	MaxDistinctConstants = 8
	MaxOccurrences       = 15
	MaxSumDepth          = 2
)

// Table is the outcome of one cost run.
type Table struct {
	Mode    types.Mode
	SizeVar string
	Rows    []types.CostRow

	// TOpen is Σ label·count in its display shape, TClosed the same sum in
	// canonical form and TPolynomial TClosed with every constant set to 1.
	TOpen       expr.Expr
	TClosed     expr.Expr
	TPolynomial expr.Expr

	// Steps documents the closure of every summed count.
	Steps      []types.ProofStep
	Symbols    []types.Symbol
	Notes      []string
	Hypotheses []string
	Constants  []string
	// Unknowns are the trip-count placeholders left in TClosed.
	Unknowns []string

	// Failure is set when some count could not be closed; the rows then
	// carry the partial form.
	Failure *types.AnalysisError
}

func (b *Builder) assemble(rows []row) *Table {
	t := &Table{Mode: b.mode, Hypotheses: b.hyps}
	meta := b.meta

	var terms []expr.Expr
	var shown []expr.Expr
	seen := map[string]bool{}
	occurrences, depth := 0, 0
	for _, r := range rows {
		closure, err := summation.Close(r.raw)
		if err != nil {
			ae := types.AsAnalysisError(err)
			if t.Failure == nil {
				t.Failure = ae
			}
			meta.Note("line %d: %s; the count is left as %s", r.line, ae, closure.Closed)
			b.log.Debug("summation left open", zap.Int("line", r.line), zap.Error(err))
		}
		closed := closure.Closed
		if expr.HasSum(r.raw) {
			for _, s := range closure.Steps {
				t.Steps = append(t.Steps, types.ProofStep{
					ID:   fmt.Sprintf("line%d", r.line),
					Text: fmt.Sprintf("line %d: %s", r.line, s.Text),
				})
			}
		}
		label := Label(r.consts)
		cr := types.CostRow{
			Line:        r.line,
			Kind:        r.kind,
			Label:       label,
			Constants:   r.consts,
			RawCount:    r.raw,
			ClosedCount: closed,
			Note:        r.note,
		}
		if b.mode == types.Average {
			cr.ExpectedRuns = closed
		}
		t.Rows = append(t.Rows, cr)

		if expr.IsZero(closed) {
			continue
		}
		for _, c := range r.consts {
			if !seen[c] {
				seen[c] = true
				t.Constants = append(t.Constants, c)
			}
		}
		occurrences += len(r.consts)
		depth = max(depth, expr.SumDepth(r.raw))
		terms = append(terms, expr.MulOf(label, closed))
		shown = append(shown, display(label, closed)...)
	}

	t.TClosed = expr.AddOf(terms...)
	for _, name := range slices.Sorted(maps.Keys(b.placeholders)) {
		if expr.Contains(t.TClosed, name) {
			t.Unknowns = append(t.Unknowns, name)
			// a snapshot of an earlier run skips the placeholder call
			meta.AddSymbol(name, b.placeholders[name])
		}
	}
	t.SizeVar = b.inferSizeVar(t.TClosed, meta)
	t.TPolynomial = unitConstants(t.TClosed, t.Constants)

	switch {
	case len(shown) == 0:
		t.TOpen = expr.Zero
	case len(t.Constants) <= MaxDistinctConstants && occurrences <= MaxOccurrences && depth <= MaxSumDepth:
		if len(shown) == 1 {
			t.TOpen = shown[0]
		} else {
			t.TOpen = &expr.Add{Terms: shown}
		}
	default:
		t.TOpen = expr.Collect(t.TClosed, t.SizeVar)
		meta.Note("T_open collected by powers of %s (%d constants, %d occurrences)",
			t.SizeVar, len(t.Constants), occurrences)
	}

	if t.SizeVar != b.sizeVar() {
		meta.Note("size variable inferred as %s", t.SizeVar)
	}
	t.Symbols = meta.Symbols
	t.Notes = meta.Notes
	return t
}

// Label is the cost label of a row: one constant or the sum of several.
func Label(consts []string) expr.Expr {
	if len(consts) == 1 {
		return expr.Symbol(consts[0])
	}
	terms := make([]expr.Expr, len(consts))
	for i, c := range consts {
		terms[i] = expr.Symbol(c)
	}
	return &expr.Add{Terms: terms}
}

// display renders one row of the equation, keeping the label in order.
func display(label, count expr.Expr) []expr.Expr {
	if n, ok := count.(*expr.Num); ok && n.IsOne() {
		if a, ok := label.(*expr.Add); ok {
			return a.Terms
		}
		return []expr.Expr{label}
	}
	return []expr.Expr{&expr.Mul{Factors: []expr.Expr{label, count}}}
}

func unitConstants(e expr.Expr, consts []string) expr.Expr {
	for _, c := range consts {
		e = expr.Replace(e, c, expr.One)
	}
	return expr.Simplify(e)
}

// inferSizeVar keeps the configured size variable when the total mentions
// it, otherwise picks the free symbol of highest degree.
func (b *Builder) inferSizeVar(total expr.Expr, meta types.Totals) string {
	v := b.sizeVar()
	free := expr.Free(total)
	if slices.Contains(free, v) {
		return v
	}
	skip := map[string]bool{}
	for _, s := range meta.Symbols {
		skip[s.Name] = true
	}
	var consts []string
	for _, s := range free {
		if isConstant(s) {
			consts = append(consts, s)
		}
	}
	poly := unitConstants(total, consts)
	best, bestDeg := v, -1
	for _, s := range free {
		if skip[s] || isConstant(s) {
			continue
		}
		deg, _, ok := expr.Degree(poly, s)
		if !ok {
			deg = 1
		}
		if deg > bestDeg {
			best, bestDeg = s, deg
		}
	}
	return best
}

func isConstant(name string) bool {
	rest, ok := strings.CutPrefix(name, "C")
	if !ok || rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

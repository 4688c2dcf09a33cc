// Package probability supplies the branch weights and expected iteration
// counts used by average-case analysis.
package probability

import (
	"fmt"
	"strings"

	"github.com/gnolang/asymptote/internal/expr"
	"github.com/gnolang/asymptote/internal/types"
)

type Kind string

const (
	Uniform  Kind = "uniform"
	Symbolic Kind = "symbolic"
)

// Model is either uniform, with no parameters, or symbolic, where each
// decision point gets a named probability assumed to be a constant in (0, 1).
type Model struct {
	Kind    Kind
	Symbols []string
}

func NewUniform() Model { return Model{Kind: Uniform} }

func NewSymbolic(symbols ...string) Model {
	return Model{Kind: Symbolic, Symbols: symbols}
}

// Parse builds a model from its configuration name.
func Parse(kind string, symbols []string) (Model, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(kind))) {
	case "", Uniform:
		return NewUniform(), nil
	case Symbolic:
		return NewSymbolic(symbols...), nil
	}
	return Model{}, types.Errorf(types.CodeInvalidInput, "unknown probability model %q", kind)
}

func (m Model) IsSymbolic() bool { return m.Kind == Symbolic }

// SymbolName returns the probability symbol of the i-th decision point.
func (m Model) SymbolName(i int) string {
	if i < len(m.Symbols) {
		return m.Symbols[i]
	}
	if i == 0 && len(m.Symbols) == 0 {
		return "p"
	}
	return fmt.Sprintf("p%d", i+1)
}

// BranchWeights returns the probability of taking each of k branches. For
// the symbolic model with two branches these are p and 1-p; with more, the
// first branch gets p and the rest share 1-p evenly.
func (m Model) BranchWeights(k int, symbol string) []expr.Expr {
	if k <= 0 {
		return nil
	}
	out := make([]expr.Expr, k)
	if !m.IsSymbolic() || k == 1 {
		w := expr.Rat(1, int64(k))
		for i := range out {
			out[i] = w
		}
		return out
	}
	p := expr.Symbol(symbol)
	rest := expr.Div(expr.Sub(expr.One, p), expr.Int(int64(k-1)))
	out[0] = p
	for i := 1; i < k; i++ {
		out[i] = rest
	}
	return out
}

// ExpectedIterations is the expected number of iterations of a loop of at
// most total iterations that may exit early: (N+1)/2 under the uniform
// model, p·(N+1)/2 + (1-p)·N when p is the probability that the exit fires.
func (m Model) ExpectedIterations(total expr.Expr, symbol string) expr.Expr {
	half := expr.Div(expr.AddOf(total, expr.One), expr.Int(2))
	if !m.IsSymbolic() {
		return half
	}
	p := expr.Symbol(symbol)
	return expr.AddOf(expr.MulOf(p, half), expr.MulOf(expr.Sub(expr.One, p), total))
}

// Hypothesis states the assumption attached to a symbolic probability.
func Hypothesis(symbol string) string {
	return fmt.Sprintf("0 < %s < 1 (constant)", symbol)
}

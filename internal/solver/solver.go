// Package solver turns an extracted recurrence into an asymptotic bound with
// one of four methods: the master theorem, iteration, the recursion tree and
// the characteristic equation.
package solver

import (
	"fmt"
	"math"
	"strings"

	"github.com/gnolang/asymptote/internal/analysis/lattice"
	"github.com/gnolang/asymptote/internal/asymptotic"
	"github.com/gnolang/asymptote/internal/expr"
	"github.com/gnolang/asymptote/internal/types"
)

const eps = 1e-9

// Solution is the outcome of one solver. Exactly one of the method results
// is set.
type Solution struct {
	Method types.Method
	Growth lattice.Growth
	// Theta renders the bound; it differs from Growth.Format when the class
	// has no lattice form, such as n log log n.
	Theta string
	// Best is the best-case bound when an early exit cuts the recursion.
	Best string

	Master         *types.MasterResult
	Iteration      *types.IterationResult
	RecursionTree  *types.RecursionTreeResult
	Characteristic *types.CharacteristicResult

	Proof types.Proof
	Notes []string
}

func (s *Solution) note(format string, args ...any) {
	s.Notes = append(s.Notes, fmt.Sprintf(format, args...))
}

// Solve runs the given method. The method must be set; selection happens in
// the recurrence package.
func Solve(r *types.Recurrence, m types.Method) (*Solution, error) {
	var (
		s   *Solution
		err error
	)
	switch m {
	case types.MethodMaster:
		s, err = Master(r)
	case types.MethodIteration:
		s, err = Iteration(r)
	case types.MethodRecursionTree:
		s, err = RecursionTree(r)
	case types.MethodCharacteristic:
		s, err = Characteristic(r)
	default:
		return nil, types.Errorf(types.CodeNoApplicableMethod, "no solver for method %q", m)
	}
	if err != nil {
		return nil, err
	}
	if r.EarlyExit && s.Best == "" {
		s.Best = "1"
		s.Proof.Add("best", "an early exit precedes the recursive calls: best case Θ(1)")
	}
	return s, nil
}

// work returns f(n), defaulting to the constant 1.
func work(r *types.Recurrence) expr.Expr {
	if r.Work == nil {
		return expr.One
	}
	return r.Work
}

func workGrowth(r *types.Recurrence) (lattice.Growth, error) {
	f := work(r)
	if expr.IsZero(f) {
		return lattice.Constant, nil
	}
	g, ok := asymptotic.Growth(f, r.Var())
	if !ok {
		return lattice.Bottom, types.Errorf(types.CodeNoApplicableMethod,
			"cannot rank the non-recursive work f(%s) = %s", r.Var(), f).WithExpr(f)
	}
	return g, nil
}

func divideConquer(r *types.Recurrence, m types.Method) error {
	if r.Form != types.DivideConquer {
		return types.Errorf(types.CodeNoApplicableMethod, "%s needs T(n) = a·T(n/b) + f(n), got %s", m.Title(), r)
	}
	if r.A < 1 || r.B < 2 {
		return types.Errorf(types.CodeNoApplicableMethod, "%s needs a >= 1 and b >= 2, got a = %d, b = %d", m.Title(), r.A, r.B)
	}
	return nil
}

// critical is log_b a.
func critical(r *types.Recurrence) float64 {
	return math.Log(float64(r.A)) / math.Log(float64(r.B))
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

// levelSum sums a^i·f(n/b^i) over the levels of a divide and conquer
// recursion. The level ratio a/b^d decides which levels dominate.
type levelSum struct {
	Ratio      float64
	Growth     lattice.Growth
	Theta      string
	Dominating string
}

func sumLevels(r *types.Recurrence, f lattice.Growth) levelSum {
	v := r.Var()
	crit := critical(r)
	if f.IsExponential() {
		return levelSum{Ratio: 0, Growth: f, Theta: f.Format(v), Dominating: "root"}
	}
	ratio := float64(r.A) / math.Pow(float64(r.B), f.Deg)
	switch {
	case ratio < 1-eps:
		return levelSum{Ratio: ratio, Growth: f, Theta: f.Format(v), Dominating: "root"}
	case ratio > 1+eps:
		g := lattice.Poly(crit, 0)
		return levelSum{Ratio: ratio, Growth: g, Theta: g.Format(v), Dominating: "leaves"}
	}
	switch {
	case f.Log >= 0:
		g := lattice.Poly(f.Deg, f.Log+1)
		return levelSum{Ratio: ratio, Growth: g, Theta: g.Format(v), Dominating: "every level"}
	case f.Log == -1:
		g := lattice.Poly(f.Deg, 0)
		theta := "log log " + v
		if !g.IsConstant() {
			theta = g.Format(v) + " " + theta
		}
		return levelSum{Ratio: ratio, Growth: g, Theta: theta, Dominating: "every level"}
	}
	g := lattice.Poly(f.Deg, 0)
	return levelSum{Ratio: ratio, Growth: g, Theta: g.Format(v), Dominating: "leaves"}
}

// at evaluates f at the subproblem size x.
func at(f expr.Expr, v string, x expr.Expr) expr.Expr {
	return expr.Substitute(f, v, x)
}

func ipow(a, k int64) int64 {
	out := int64(1)
	for range k {
		out *= a
	}
	return out
}

var subDigits = []rune("₀₁₂₃₄₅₆₇₈₉")

func subscript(k int) string {
	var sb strings.Builder
	for _, d := range fmt.Sprint(k) {
		sb.WriteRune(subDigits[d-'0'])
	}
	return sb.String()
}

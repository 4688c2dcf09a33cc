package solver

import (
	"fmt"
	"math"

	"github.com/gnolang/asymptote/internal/analysis/lattice"
	"github.com/gnolang/asymptote/internal/asymptotic"
	"github.com/gnolang/asymptote/internal/expr"
	"github.com/gnolang/asymptote/internal/summation"
	"github.com/gnolang/asymptote/internal/types"
)

// unrolled is the number of expansions shown.
const unrolled = 3

// Iteration unrolls T(n) = c·T(n-s) + f(n) or T(n) = a·T(n/b) + f(n) down to
// the base case and closes the sum of the work along the way.
func Iteration(r *types.Recurrence) (*Solution, error) {
	switch {
	case r.Form == types.DivideConquer:
		if err := divideConquer(r, types.MethodIteration); err != nil {
			return nil, err
		}
		return iterateDivide(r)
	case r.Form == types.LinearShift && len(r.Coefficients) == 1:
		return iterateShift(r)
	}
	return nil, types.Errorf(types.CodeNoApplicableMethod,
		"iteration needs a single recursive term, got %s", r)
}

func iterateShift(r *types.Recurrence) (*Solution, error) {
	v := r.Var()
	n := expr.Symbol(v)
	step := int64(r.Offsets()[0])
	c := r.Coefficients[int(step)]
	if c < 1 {
		return nil, types.Errorf(types.CodeNoApplicableMethod, "coefficient %d of T(%s-%d) is not positive", c, v, step)
	}
	f := work(r)
	res := &types.IterationResult{}
	s := &Solution{Method: types.MethodIteration, Iteration: res}

	// T(n) = c^j·T(n - j·s) + Σ_{i<j} c^i·f(n - i·s)
	for j := int64(1); j <= unrolled; j++ {
		var acc []expr.Expr
		for i := int64(0); i < j; i++ {
			acc = append(acc, expr.MulOf(expr.Int(ipow(c, i)), at(f, v, expr.Sub(n, expr.Int(i*step)))))
		}
		t := fmt.Sprintf("T(%s)", expr.Sub(n, expr.Int(j*step)))
		if cj := ipow(c, j); cj != 1 {
			t = fmt.Sprintf("%d·%s", cj, t)
		}
		res.Expansions = append(res.Expansions, fmt.Sprintf("T(%s) = %s + %s", v, t, expr.AddOf(acc...)))
	}
	cs, ck := "", ""
	if c != 1 {
		cs, ck = fmt.Sprintf("%d^k·", c), fmt.Sprintf("%d^i·", c)
	}
	res.GeneralForm = fmt.Sprintf("T(%s) = %sT(%s - %d·k) + Σ[i=0..k-1] %sf(%s - %d·i)", v, cs, v, step, ck, v, step)
	k := expr.Div(expr.Sub(n, expr.Int(r.BaseCase)), expr.Int(step))
	res.BaseCase = fmt.Sprintf("%s - %d·k = %d ⇒ k = %s", v, step, r.BaseCase, k)
	for i, e := range res.Expansions {
		s.Proof.Add(fmt.Sprintf("expand-%d", i+1), "%s", e)
	}
	s.Proof.Add("general", "after k steps: %s", res.GeneralForm)
	s.Proof.Add("base", "the recursion stops at %s", res.BaseCase)

	i := expr.Symbol("i")
	body := at(f, v, expr.Sub(n, expr.MulOf(expr.Int(step), i)))
	if c != 1 {
		body = expr.MulOf(expr.PowOf(expr.Int(c), i), body)
	}
	sum := expr.SumOf(body, "i", expr.Zero, expr.Sub(expr.Symbol("k"), expr.One))
	res.Summation = summation.Format(sum)

	closure, err := summation.Close(sum)
	if err == nil {
		for _, st := range closure.Steps {
			s.Proof.Add("sum", "%s", st.Text)
		}
		closed := expr.Substitute(closure.Closed, "k", k)
		leaf := fmt.Sprintf("T(%d)", r.BaseCase)
		if c != 1 {
			leaf = fmt.Sprintf("%d^(%s)·%s", c, k, leaf)
		}
		res.Closed = fmt.Sprintf("%s + %s", closed, leaf)
		if g, ok := asymptotic.Growth(closed, v); ok && !g.IsBottom() {
			s.Growth = g
		}
		s.Proof.Add("closed", "with k = %s: T(%s) = %s", k, v, res.Closed)
	} else {
		s.note("the work sum %s did not close: %s", res.Summation, types.AsAnalysisError(err))
	}
	if s.Growth.IsBottom() {
		fg, err := workGrowth(r)
		if err != nil {
			return nil, err
		}
		// k = Θ(n) levels; the geometric factor dominates when c > 1
		if c == 1 {
			s.Growth = lattice.Times(lattice.Linear, fg)
		} else {
			s.Growth = lattice.Join(lattice.Exp(math.Pow(float64(c), 1/float64(step))), fg)
		}
		res.Closed = fmt.Sprintf("Θ(%s)", s.Growth.Format(v))
	}
	s.Theta = s.Growth.Format(v)
	res.Theta = s.Theta
	s.Proof.Add("theta", "T(%s) = Θ(%s)", v, s.Theta)
	return s, nil
}

func iterateDivide(r *types.Recurrence) (*Solution, error) {
	v := r.Var()
	n := expr.Symbol(v)
	a, b := int64(r.A), int64(r.B)
	f := work(r)
	fg, err := workGrowth(r)
	if err != nil {
		return nil, err
	}
	res := &types.IterationResult{}
	s := &Solution{Method: types.MethodIteration, Iteration: res}

	for j := int64(1); j <= unrolled; j++ {
		var acc []expr.Expr
		for i := int64(0); i < j; i++ {
			acc = append(acc, expr.MulOf(expr.Int(ipow(a, i)), at(f, v, expr.Div(n, expr.Int(ipow(b, i))))))
		}
		t := fmt.Sprintf("T(%s)", expr.Div(n, expr.Int(ipow(b, j))))
		if aj := ipow(a, j); aj != 1 {
			t = fmt.Sprintf("%d·%s", aj, t)
		}
		res.Expansions = append(res.Expansions, fmt.Sprintf("T(%s) = %s + %s", v, t, expr.AddOf(acc...)))
	}
	as, ai := "", ""
	if a != 1 {
		as, ai = fmt.Sprintf("%d^k·", a), fmt.Sprintf("%d^i·", a)
	}
	res.GeneralForm = fmt.Sprintf("T(%s) = %sT(%s/%d^k) + Σ[i=0..k-1] %sf(%s/%d^i)", v, as, v, b, ai, v, b)
	n0 := max(r.BaseCase, 1)
	k := expr.LogBase(expr.Div(n, expr.Int(n0)), expr.Int(b))
	res.BaseCase = fmt.Sprintf("%s/%d^k = %d ⇒ k = %s", v, b, n0, k)
	for i, e := range res.Expansions {
		s.Proof.Add(fmt.Sprintf("expand-%d", i+1), "%s", e)
	}
	s.Proof.Add("general", "after k steps: %s", res.GeneralForm)
	s.Proof.Add("base", "the recursion stops at %s", res.BaseCase)

	// a^i·f(n/b^i) = f(n)·(a/b^d)^i for f = n^d
	levels := sumLevels(r, fg)
	i := expr.Symbol("i")
	body := expr.MulOf(expr.PowOf(expr.Int(a), i), at(f, v, expr.Div(n, expr.PowOf(expr.Int(b), i))))
	sum := expr.SumOf(body, "i", expr.Zero, expr.Sub(expr.Symbol("k"), expr.One))
	res.Summation = summation.Format(sum)
	if d, ok := polyDegree(f, v); ok {
		ratio := expr.Div(expr.Int(a), expr.PowOf(expr.Int(b), expr.Int(int64(d))))
		geo := expr.SumOf(expr.MulOf(f, expr.PowOf(ratio, i)), "i", expr.Zero, expr.Sub(expr.Symbol("k"), expr.One))
		s.Proof.Add("sum", "%s = %s", res.Summation, summation.Format(geo))
		if closure, err := summation.Close(geo); err == nil {
			for _, st := range closure.Steps {
				s.Proof.Add("sum", "%s", st.Text)
			}
			res.Closed = fmt.Sprintf("%s with k = %s", closure.Closed, k)
		}
	}
	if res.Closed == "" {
		res.Closed = fmt.Sprintf("Θ(%s) summed over %s levels", levels.Theta, k)
		s.note("the level sum of %s was ranked without a closed form", res.Summation)
	}
	s.Proof.Add("levels", "level ratio a/b^d = %s, dominating level: %s", lattice.FormatFloat(levels.Ratio), levels.Dominating)
	s.Growth = levels.Growth
	s.Theta = levels.Theta
	res.Theta = s.Theta
	s.Proof.Add("theta", "T(%s) = Θ(%s)", v, s.Theta)
	return s, nil
}

// polyDegree returns d when f is c·v^d.
func polyDegree(f expr.Expr, v string) (int, bool) {
	coeffs, ok := expr.Coeffs(f, v)
	if !ok || len(coeffs) != 1 {
		return 0, false
	}
	for d := range coeffs {
		return d, true
	}
	return 0, false
}

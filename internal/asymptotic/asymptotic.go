// Package asymptotic extracts the dominant term of a closed cost expression
// and renders its O, Ω and Θ classes.
package asymptotic

import (
	"math"
	"math/big"

	"github.com/gnolang/asymptote/internal/analysis/lattice"
	"github.com/gnolang/asymptote/internal/expr"
)

// Growth returns the growth class of e in v: the join over its monomials.
// ok is false when some monomial has a shape the lattice cannot express,
// such as an unclosed summation over v.
func Growth(e expr.Expr, v string) (lattice.Growth, bool) {
	g, _, ok := dominant(e, v)
	return g, ok
}

// DominantTerm returns the fastest growing monomial of e with its
// coefficient and every v-free factor dropped. A constant expression has
// dominant term 1. DominantTerm is idempotent.
func DominantTerm(e expr.Expr, v string) expr.Expr {
	_, t, _ := dominant(e, v)
	return t
}

// BigO renders the upper bound of e, e.g. "n²" or "n log n". Symbols named
// in unknowns are counts with no closed bound; they stay in the result, as
// in "n·t3".
func BigO(e expr.Expr, v string, unknowns ...string) string { return bound(e, v, unknowns) }

// BigOmega renders the lower bound of e.
func BigOmega(e expr.Expr, v string, unknowns ...string) string { return bound(e, v, unknowns) }

// BigTheta renders the tight bound of e.
func BigTheta(e expr.Expr, v string, unknowns ...string) string { return bound(e, v, unknowns) }

func bound(e expr.Expr, v string, unknowns []string) string {
	if s, ok := unknownBound(e, v, unknowns); ok {
		return s
	}
	g, t, ok := dominant(e, v)
	if !ok {
		return t.String()
	}
	return g.Format(v)
}

func dominant(e expr.Expr, v string) (lattice.Growth, expr.Expr, bool) {
	terms := expr.Expand(e)
	if len(terms) == 0 {
		return lattice.Bottom, expr.Zero, true
	}
	best := lattice.Bottom
	var bestTerm expr.Expr = expr.One
	for _, t := range terms {
		g, term, tok := termGrowth(t, v)
		if !tok {
			// an unknown shape dominates everything we can rank
			return best, term, false
		}
		if best.IsBottom() || lattice.Compare(g, best) > 0 {
			best, bestTerm = g, term
		}
	}
	return best, bestTerm, true
}

// termGrowth classifies one monomial and returns its v-dependent part.
func termGrowth(t expr.Term, v string) (lattice.Growth, expr.Expr, bool) {
	g := lattice.Constant
	part := expr.Term{Coeff: big.NewRat(1, 1)}
	for _, f := range t.Factors {
		if !expr.Contains(f.Atom, v) {
			continue
		}
		fg, ok := atomGrowth(f.Atom, v)
		if !ok {
			return lattice.Bottom, t.Expr(), false
		}
		exp, _ := f.Exp.Float64()
		g = lattice.Times(g, raise(fg, exp))
		part.Factors = append(part.Factors, f)
	}
	return g, expr.Simplify(part.Expr()), true
}

func atomGrowth(a expr.Expr, v string) (lattice.Growth, bool) {
	switch a := a.(type) {
	case *expr.Sym:
		return lattice.Linear, a.Name == v
	case *expr.Log:
		if a.Base != nil && expr.Contains(a.Base, v) {
			return lattice.Bottom, false
		}
		inner, ok := Growth(a.Arg, v)
		if !ok {
			return lattice.Bottom, false
		}
		if inner.IsExponential() {
			// log(r^n) grows like n
			return lattice.Linear, true
		}
		if inner.IsConstant() || (inner.Deg <= 0 && inner.Log > 0) {
			// log log n and friends rank as constants here
			return lattice.Constant, true
		}
		return lattice.Logarithmic, true
	case *expr.Pow:
		if !expr.Contains(a.Exp, v) {
			x, ok := expr.Eval(a.Exp)
			if !ok {
				return lattice.Bottom, false
			}
			base, ok := Growth(a.Base, v)
			if !ok {
				return lattice.Bottom, false
			}
			return raise(base, x), true
		}
		if expr.Contains(a.Base, v) {
			return lattice.Bottom, false
		}
		r, ok := expr.Eval(a.Base)
		if !ok || r <= 0 {
			return lattice.Bottom, false
		}
		deg, lead, ok := expr.Degree(a.Exp, v)
		if !ok || deg != 1 {
			return lattice.Bottom, false
		}
		c, ok := expr.Eval(lead)
		if !ok {
			return lattice.Bottom, false
		}
		return lattice.Exp(math.Pow(r, c)), true
	case *expr.Add:
		return Growth(a, v)
	case *expr.Mul:
		g := lattice.Constant
		for _, f := range a.Factors {
			if !expr.Contains(f, v) {
				continue
			}
			fg, ok := atomGrowth(f, v)
			if !ok {
				return lattice.Bottom, false
			}
			g = lattice.Times(g, fg)
		}
		return g, true
	}
	return lattice.Bottom, false
}

// raise returns the class of g^x.
func raise(g lattice.Growth, x float64) lattice.Growth {
	if g.IsBottom() {
		return g
	}
	return lattice.Growth{
		Base: math.Pow(math.Max(g.Base, 1), x),
		Deg:  g.Deg * x,
		Log:  int(math.Round(float64(g.Log) * x)),
	}
}

// Package summation closes nested finite sums into polynomial, logarithmic
// or exponential closed forms and documents every rule it applies.
package summation

import (
	"fmt"
	"math/big"

	"github.com/gnolang/asymptote/internal/expr"
	"github.com/gnolang/asymptote/internal/types"
)

// Rule names the identity used to close one summation.
type Rule string

const (
	ConstantSum    Rule = "constant sum"
	ArithmeticSum  Rule = "arithmetic sum"
	PowerSum       Rule = "power sum"
	GeometricSum   Rule = "geometric sum"
	RectangularSum Rule = "nested rectangular sum"
	TriangularSum  Rule = "nested triangular sum"
	FactorOut      Rule = "factor out constant"
	Linearity      Rule = "linearity"
	Restatement    Rule = "closed form"
)

var oneRat = big.NewRat(1, 1)

// Step is one equation of the derivation.
type Step struct {
	Rule Rule
	Text string
}

// Closure is the result of closing an expression.
type Closure struct {
	Closed expr.Expr
	Steps  []Step
	// Unresolved holds the first summation that could not be closed.
	Unresolved expr.Expr
}

// Texts returns the rendered steps.
func (c Closure) Texts() []string {
	out := make([]string, len(c.Steps))
	for i, s := range c.Steps {
		out[i] = s.Text
	}
	return out
}

// Close evaluates every summation in e innermost first and returns the
// closed form with one step per summation, ending with a restatement of the
// result. An expression without sums yields only the restatement.
//
// When a summation cannot be closed, Close returns a SimplificationFailure
// carrying the unresolved sum; the closure then holds the best partial form
// and the bound variable is never substituted away.
func Close(e expr.Expr) (Closure, error) {
	c := &closer{}
	closed, err := c.close(e)
	if err != nil {
		partial, _ := expr.EvaluateSums(e)
		return Closure{Closed: partial, Steps: c.steps, Unresolved: c.unresolved}, err
	}
	closed = expr.Simplify(closed)
	c.steps = append(c.steps, Step{Rule: Restatement, Text: "= " + closed.String()})
	return Closure{Closed: closed, Steps: c.steps}, nil
}

type closer struct {
	steps      []Step
	unresolved expr.Expr
}

func (c *closer) close(e expr.Expr) (expr.Expr, error) {
	switch e := e.(type) {
	case *expr.Sum:
		return c.sum(e)
	case *expr.Add:
		out := make([]expr.Expr, len(e.Terms))
		for i, t := range e.Terms {
			x, err := c.close(t)
			if err != nil {
				return nil, err
			}
			out[i] = x
		}
		return expr.AddOf(out...), nil
	case *expr.Mul:
		out := make([]expr.Expr, len(e.Factors))
		for i, f := range e.Factors {
			x, err := c.close(f)
			if err != nil {
				return nil, err
			}
			out[i] = x
		}
		return expr.MulOf(out...), nil
	case *expr.Pow:
		b, err := c.close(e.Base)
		if err != nil {
			return nil, err
		}
		x, err := c.close(e.Exp)
		if err != nil {
			return nil, err
		}
		return expr.PowOf(b, x), nil
	case *expr.Log:
		a, err := c.close(e.Arg)
		if err != nil {
			return nil, err
		}
		return expr.Simplify(&expr.Log{Arg: a, Base: e.Base}), nil
	}
	return expr.Simplify(e), nil
}

func (c *closer) sum(s *expr.Sum) (expr.Expr, error) {
	body, err := c.close(s.Body)
	if err != nil {
		return nil, err
	}
	lo, err := c.close(s.Lower)
	if err != nil {
		return nil, err
	}
	hi, err := c.close(s.Upper)
	if err != nil {
		return nil, err
	}
	current := expr.SumOf(body, s.Var, lo, hi)
	closed, ok := expr.EvaluateSum(body, s.Var, lo, hi)
	if !ok {
		c.unresolved = current
		return nil, types.Errorf(types.CodeSimplificationFailure,
			"cannot close summation over %s", s.Var).WithExpr(current)
	}
	rule := classify(s, body)
	c.steps = append(c.steps, Step{
		Rule: rule,
		Text: fmt.Sprintf("%s = %s  [%s]", Format(current), closed, rule),
	})
	return closed, nil
}

func classify(s *expr.Sum, body expr.Expr) Rule {
	if inner, ok := s.Body.(*expr.Sum); ok {
		if expr.Contains(inner.Lower, s.Var) || expr.Contains(inner.Upper, s.Var) {
			return TriangularSum
		}
		return RectangularSum
	}
	v := s.Var
	if !expr.Contains(body, v) {
		if n, ok := body.(*expr.Num); ok && n.IsOne() {
			return ConstantSum
		}
		return FactorOut
	}
	terms := expr.Expand(body)
	if len(terms) > 1 {
		return Linearity
	}
	t := terms[0]
	scaled := t.Coeff.Cmp(oneRat) != 0
	rule := ArithmeticSum
	for _, f := range t.Factors {
		switch a := f.Atom.(type) {
		case *expr.Sym:
			if a.Name != v {
				scaled = true
				continue
			}
			if f.Exp.Cmp(oneRat) != 0 {
				rule = PowerSum
			}
		case *expr.Pow:
			if expr.Contains(a, v) {
				rule = GeometricSum
			} else {
				scaled = true
			}
		default:
			scaled = true
		}
	}
	if scaled {
		return FactorOut
	}
	return rule
}

// Format renders a summation as Σ_{i=lo}^{hi} body.
func Format(s *expr.Sum) string {
	body := s.Body.String()
	if _, ok := s.Body.(*expr.Add); ok {
		body = "(" + body + ")"
	}
	return fmt.Sprintf("Σ_{%s=%s}^{%s} %s", s.Var, s.Lower, s.Upper, body)
}

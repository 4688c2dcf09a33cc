package recurrence

import (
	"fmt"
	"math/big"

	"github.com/gnolang/asymptote/internal/ast"
	"github.com/gnolang/asymptote/internal/expr"
)

// Shape is how a recursive call shrinks the input.
type Shape int

const (
	Unclassified Shape = iota
	// Divide is n/b, divide and conquer.
	Divide
	// Subtract is n-k, decrease and conquer.
	Subtract
)

func (s Shape) String() string {
	switch s {
	case Divide:
		return "division"
	case Subtract:
		return "subtraction"
	}
	return "unclassified"
}

// Call is one self call and the size of its subproblem.
type Call struct {
	ID    ast.NodeID
	Line  int
	Shape Shape
	// Factor is the divisor b for Divide and the offset k for Subtract.
	Factor int64
	// Size is the subproblem size in terms of the size variable.
	Size expr.Expr
	Via  string
}

func (c Call) String() string {
	return fmt.Sprintf("line %d: size %s (%s by %d, %s)", c.Line, c.Size, c.Shape, c.Factor, c.Via)
}

// classify reads the new size a as a function of the old size v: a = v - k
// or a = v/b, ignoring additive constants of divisions.
func classify(a expr.Expr, v string) (Shape, int64, bool) {
	coeffs, ok := expr.Coeffs(a, v)
	if !ok {
		return Unclassified, 0, false
	}
	for k := range coeffs {
		if k > 1 {
			return Unclassified, 0, false
		}
	}
	c1, ok := coeffs[1]
	if !ok {
		return Unclassified, 0, false
	}
	lead, ok := expr.Constant(c1)
	if !ok || lead.Sign() <= 0 {
		return Unclassified, 0, false
	}
	var c0 *big.Rat
	if x, has := coeffs[0]; has {
		n, ok := expr.Constant(x)
		if !ok {
			return Unclassified, 0, false
		}
		c0 = n.Rat()
	} else {
		c0 = new(big.Rat)
	}

	one := big.NewRat(1, 1)
	switch cmp := lead.Rat().Cmp(one); {
	case cmp == 0:
		if c0.Sign() >= 0 || !c0.IsInt() || !c0.Num().IsInt64() {
			return Unclassified, 0, false
		}
		return Subtract, -c0.Num().Int64(), true
	case cmp < 0:
		b := new(big.Rat).Inv(lead.Rat())
		if !b.IsInt() || !b.Num().IsInt64() {
			return Unclassified, 0, false
		}
		return Divide, b.Num().Int64(), true
	}
	return Unclassified, 0, false
}

// sizeOf renders the subproblem size of a classified call.
func sizeOf(shape Shape, factor int64, v string) expr.Expr {
	n := expr.Symbol(v)
	if shape == Divide {
		return expr.Div(n, expr.Int(factor))
	}
	return expr.Sub(n, expr.Int(factor))
}

package ast

import (
	"slices"
	"strings"

	"github.com/gnolang/asymptote/internal/expr"
)

// DefaultSizeAliases are the calls and fields read as the input size.
var DefaultSizeAliases = []string{"length", "len", "size"}

// Symbols controls how expression nodes become symbolic expressions.
type Symbols struct {
	SizeVar string
	Aliases []string
}

func (s Symbols) sizeVar() string {
	if s.SizeVar == "" {
		return "n"
	}
	return s.SizeVar
}

func (s Symbols) isAlias(name string) bool {
	aliases := s.Aliases
	if aliases == nil {
		aliases = DefaultSizeAliases
	}
	return slices.Contains(aliases, strings.ToLower(name))
}

// IsSizeRef reports whether the node reads the input size: the size
// variable itself, length(A), len(A), size(A), A.length or A.size.
func (t *Tree) IsSizeRef(id NodeID, s Symbols) bool {
	switch n := t.Node(id).(type) {
	case *Ident:
		return n.Name == s.sizeVar()
	case *Call:
		return s.isAlias(n.Name) && len(n.Args) == 1
	case *Field:
		return s.isAlias(n.Name)
	}
	return false
}

// Symbolic converts an arithmetic expression node into an expr.Expr. It
// fails for data-dependent values (array elements, comparisons, modulo,
// calls other than size and rounding helpers).
func (t *Tree) Symbolic(id NodeID, s Symbols) (expr.Expr, bool) {
	if t.IsSizeRef(id, s) {
		return expr.Symbol(s.sizeVar()), true
	}
	switch n := t.Node(id).(type) {
	case *Number:
		return expr.FromRat(n.Value), true
	case *Ident:
		return expr.Symbol(n.Name), true
	case *Unary:
		x, ok := t.Symbolic(n.Operand, s)
		if !ok {
			return nil, false
		}
		switch n.Op {
		case "-":
			return expr.Neg(x), true
		case "+":
			return x, true
		}
		return nil, false
	case *Binary:
		l, ok := t.Symbolic(n.Left, s)
		if !ok {
			return nil, false
		}
		r, ok := t.Symbolic(n.Right, s)
		if !ok {
			return nil, false
		}
		switch n.Op {
		case "+":
			return expr.AddOf(l, r), true
		case "-":
			return expr.Sub(l, r), true
		case "*":
			return expr.MulOf(l, r), true
		case "/", "div", "//":
			if expr.IsZero(r) {
				return nil, false
			}
			return expr.Div(l, r), true
		case "^", "**":
			return expr.PowOf(l, r), true
		}
		return nil, false
	case *Call:
		if len(n.Args) != 1 {
			return nil, false
		}
		x, ok := t.Symbolic(n.Args[0], s)
		if !ok {
			return nil, false
		}
		switch strings.ToLower(n.Name) {
		case "floor", "ceil", "ceiling", "round", "int", "trunc":
			return x, true
		case "log2", "lg":
			return expr.LogBase(x, expr.Int(2)), true
		case "log":
			return expr.LogOf(x), true
		case "sqrt":
			return expr.PowOf(x, expr.Rat(1, 2)), true
		}
	}
	return nil, false
}

// Name returns the variable name of an identifier node, or of the array
// behind an index or field access.
func (t *Tree) Name(id NodeID) string {
	switch n := t.Node(id).(type) {
	case *Ident:
		return n.Name
	case *Index:
		return t.Name(n.Target)
	case *Field:
		return t.Name(n.Target)
	}
	return ""
}

// Mentions reports whether the subtree reads the variable.
func (t *Tree) Mentions(id NodeID, name string) bool {
	found := false
	t.Inspect(id, func(_ NodeID, n Node) bool {
		if in, ok := n.(*Ident); ok && in.Name == name {
			found = true
		}
		return !found
	})
	return found
}

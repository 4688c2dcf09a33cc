package cost

import (
	"fmt"
	"strings"

	"github.com/gnolang/asymptote/internal/ast"
	"github.com/gnolang/asymptote/internal/expr"
)

// trip is the number of times a loop body runs. A unit-step for loop keeps
// its induction variable and bounds so the body can be summed over it.
type trip struct {
	count expr.Expr

	v      string
	lo, hi expr.Expr

	// placeholder is set when no bound could be derived and count is a
	// fresh symbol.
	placeholder string
	how         string
}

func (t trip) multiplier() multiplier {
	if t.v != "" {
		return over(t.v, t.lo, t.hi)
	}
	return plain(t.count)
}

// first is the multiplier of a loop that leaves on its first iteration.
func (t trip) first() multiplier {
	if t.v != "" {
		return over(t.v, t.lo, t.lo)
	}
	return plain(expr.One)
}

// expected is the multiplier of a loop that runs e iterations on average.
func (t trip) expected(e expr.Expr) multiplier {
	if t.v != "" {
		return over(t.v, t.lo, expr.Sub(expr.AddOf(t.lo, e), expr.One))
	}
	return plain(e)
}

func placeholderTrip(line int) trip {
	name := fmt.Sprintf("t%d", line)
	return trip{count: expr.Symbol(name), placeholder: name}
}

// forTrip derives the iteration count of `for v = start to end [step k]`.
func (b *Builder) forTrip(id ast.NodeID, n *ast.For, f frame) trip {
	start, ok := b.symbolic(n.Start, f)
	if !ok {
		return placeholderTrip(b.tree.Line(id))
	}
	end, ok := b.symbolic(n.End, f)
	if !ok {
		return placeholderTrip(b.tree.Line(id))
	}
	step := expr.Expr(expr.One)
	if n.Step != ast.NoNode {
		if step, ok = b.symbolic(n.Step, f); !ok {
			return placeholderTrip(b.tree.Line(id))
		}
	}
	down := n.Downto
	if c, ok := expr.Constant(step); ok && c.Sign() < 0 {
		down = true
		step = expr.Neg(step)
	}
	lo, hi := start, end
	if down {
		lo, hi = end, start
	}
	if expr.Equal(step, expr.One) {
		return trip{
			count: expr.AddOf(expr.Sub(hi, lo), expr.One),
			v:     n.Var,
			lo:    lo,
			hi:    hi,
		}
	}
	return trip{
		count: expr.AddOf(expr.Div(expr.Sub(hi, lo), step), expr.One),
		how:   "step " + step.String(),
	}
}

// cmp is a loop guard `v op bound`.
type cmp struct {
	v     string
	op    string
	bound ast.NodeID
}

var flipped = map[string]string{"<": ">", "<=": ">=", ">": "<", ">=": "<=", "!=": "!=", "==": "=="}

var negated = map[string]string{"<": ">=", "<=": ">", ">": "<=", ">=": "<", "!=": "==", "==": "!="}

func normalizeOp(op string) string {
	switch strings.ToLower(op) {
	case "≤", "=<":
		return "<="
	case "≥", "=>":
		return ">="
	case "≠", "<>", "!=", "~=":
		return "!="
	case "=", "==":
		return "=="
	case "and", "&&", "∧":
		return "and"
	case "or", "||", "∨":
		return "or"
	}
	return op
}

// guards lists the comparisons of a loop condition that bound the loop:
// the condition itself, or the sides of a conjunction.
func (b *Builder) guards(id ast.NodeID, negate bool) []cmp {
	bin, ok := b.tree.Node(id).(*ast.Binary)
	if !ok {
		return nil
	}
	op := normalizeOp(bin.Op)
	switch {
	case op == "and" && !negate, op == "or" && negate:
		return append(b.guards(bin.Left, negate), b.guards(bin.Right, negate)...)
	case op == "and", op == "or":
		return nil
	}
	if negate {
		if op, ok = negated[op]; !ok {
			return nil
		}
	}
	if _, ok := flipped[op]; !ok {
		return nil
	}
	if l, ok := b.tree.Node(bin.Left).(*ast.Ident); ok {
		return []cmp{{v: l.Name, op: op, bound: bin.Right}}
	}
	if r, ok := b.tree.Node(bin.Right).(*ast.Ident); ok {
		return []cmp{{v: r.Name, op: flipped[op], bound: bin.Left}}
	}
	return nil
}

// conditionalTrip derives the iteration count of a while loop, or of a
// repeat loop when negate is set, from its guard and the update of the
// guarded variable in the body, in the manner of an add recurrence
// {start,+,step} or a multiplicative one {start,*,ratio}.
func (b *Builder) conditionalTrip(id, cond, body ast.NodeID, negate bool, f frame) trip {
	gs := b.guards(cond, negate)
	for _, g := range gs {
		if t, ok := b.guardTrip(g, body, f); ok {
			return t
		}
	}
	if t, ok := b.halvingTrip(gs, body, f); ok {
		return t
	}
	return placeholderTrip(b.tree.Line(id))
}

func (b *Builder) guardTrip(g cmp, body ast.NodeID, f frame) (trip, bool) {
	init, ok := f.env[g.v]
	if !ok {
		return trip{}, false
	}
	bound, ok := b.symbolic(g.bound, f)
	if !ok || expr.Contains(bound, g.v) {
		return trip{}, false
	}
	next, ok := b.update(body, g.v, f)
	if !ok {
		return trip{}, false
	}
	v := expr.Symbol(g.v)

	// additive step
	if d := expr.Sub(next, v); !expr.Contains(d, g.v) {
		c, ok := expr.Constant(d)
		if !ok || c.IsZero() {
			return trip{}, false
		}
		var span expr.Expr
		switch {
		case c.Sign() > 0 && (g.op == "<" || g.op == "!="):
			span = expr.Div(expr.Sub(bound, init), c)
		case c.Sign() > 0 && g.op == "<=":
			span = expr.AddOf(expr.Div(expr.Sub(bound, init), c), expr.One)
		case c.Sign() < 0 && (g.op == ">" || g.op == "!="):
			span = expr.Div(expr.Sub(init, bound), expr.Neg(c))
		case c.Sign() < 0 && g.op == ">=":
			span = expr.AddOf(expr.Div(expr.Sub(init, bound), expr.Neg(c)), expr.One)
		default:
			return trip{}, false
		}
		return trip{count: span, how: fmt.Sprintf("{%s,+,%s}", init, c)}, true
	}

	// multiplicative step
	r := expr.Div(next, v)
	if expr.Contains(r, g.v) {
		return trip{}, false
	}
	ratio, ok := expr.Constant(r)
	if !ok || ratio.Sign() <= 0 || ratio.IsOne() || expr.IsZero(init) {
		return trip{}, false
	}
	grows := ratio.Float64() > 1
	base := expr.Expr(ratio)
	if !grows {
		base = expr.Div(expr.One, ratio)
	}
	var count expr.Expr
	switch {
	case !grows && g.op == ">" && expr.IsZero(bound):
		// integer division reaches zero one step after one
		count = expr.AddOf(expr.LogBase(init, base), expr.One)
	case expr.IsZero(bound):
		return trip{}, false
	case grows && (g.op == "<" || g.op == "!="):
		count = expr.LogBase(expr.Div(bound, init), base)
	case grows && g.op == "<=":
		count = expr.AddOf(expr.LogBase(expr.Div(bound, init), base), expr.One)
	case !grows && (g.op == ">" || g.op == "!="):
		count = expr.LogBase(expr.Div(init, bound), base)
	case !grows && g.op == ">=":
		count = expr.AddOf(expr.LogBase(expr.Div(init, bound), base), expr.One)
	default:
		return trip{}, false
	}
	return trip{count: count, how: fmt.Sprintf("{%s,*,%s}", init, ratio)}, true
}

// update finds the unique assignment to v among the statements of the loop
// body and returns its symbolic value.
func (b *Builder) update(body ast.NodeID, v string, f frame) (expr.Expr, bool) {
	var found expr.Expr
	count := 0
	b.tree.Inspect(body, func(_ ast.NodeID, n ast.Node) bool {
		a, ok := n.(*ast.Assign)
		if !ok {
			return true
		}
		if b.tree.Name(a.Target) != v {
			return false
		}
		count++
		if _, plainTarget := b.tree.Node(a.Target).(*ast.Ident); !plainTarget {
			return false
		}
		if x, ok := b.symbolic(a.Value, f); ok {
			found = x
		}
		return false
	})
	if count != 1 || found == nil {
		return nil, false
	}
	return found, true
}

// halvingTrip recognizes the binary search shape: a guard `lo <= hi` and a
// body that computes mid = (lo + hi)/2 and moves lo or hi past it.
func (b *Builder) halvingTrip(gs []cmp, body ast.NodeID, f frame) (trip, bool) {
	for _, g := range gs {
		hiNode, ok := b.tree.Node(g.bound).(*ast.Ident)
		if !ok || (g.op != "<=" && g.op != "<") {
			continue
		}
		lo, hi := g.v, hiNode.Name
		mid := expr.Div(expr.AddOf(expr.Symbol(lo), expr.Symbol(hi)), expr.Int(2))
		midName := ""
		b.tree.Inspect(body, func(_ ast.NodeID, n ast.Node) bool {
			if a, ok := n.(*ast.Assign); ok {
				if x, ok := b.tree.Symbolic(a.Value, b.opts.Symbols); ok && expr.Equal(x, mid) {
					midName = b.tree.Name(a.Target)
				}
			}
			return midName == ""
		})
		if midName == "" {
			continue
		}
		if !b.assigns(body, lo) && !b.assigns(body, hi) {
			continue
		}
		size := expr.Expr(expr.Symbol(b.sizeVar()))
		if l, ok := f.env[lo]; ok {
			if h, ok := f.env[hi]; ok {
				size = expr.AddOf(expr.Sub(h, l), expr.One)
			}
		}
		return trip{
			count: expr.AddOf(expr.LogBase(size, expr.Int(2)), expr.One),
			how:   fmt.Sprintf("range halving on %s..%s", lo, hi),
		}, true
	}
	return trip{}, false
}

// assigns reports whether the subtree assigns to the variable.
func (b *Builder) assigns(id ast.NodeID, v string) bool {
	found := false
	b.tree.Inspect(id, func(_ ast.NodeID, n ast.Node) bool {
		if a, ok := n.(*ast.Assign); ok && b.tree.Name(a.Target) == v {
			found = true
		}
		return !found
	})
	return found
}

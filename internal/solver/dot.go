package solver

import (
	"fmt"
	"strings"

	"github.com/gnolang/asymptote/internal/expr"
	"github.com/gnolang/asymptote/internal/types"
)

// maxDOTNodes bounds the size of an exported tree.
const maxDOTNodes = 512

// DOT renders the first depth levels of a recursion tree in GraphViz
// format. Each node is labeled with its subproblem size and cost. Linear
// shift recurrences branch once per recursive term.
func DOT(r *types.Recurrence, depth int) string {
	v := r.Var()
	n := expr.Symbol(v)
	f := work(r)

	type node struct {
		id    int
		size  expr.Expr
		level int
	}
	children := func(size expr.Expr) []expr.Expr {
		var out []expr.Expr
		switch r.Form {
		case types.DivideConquer:
			for range r.A {
				out = append(out, expr.Div(size, expr.Int(int64(r.B))))
			}
		case types.LinearShift:
			for _, k := range r.Offsets() {
				for range r.Coefficients[k] {
					out = append(out, expr.Sub(size, expr.Int(int64(k))))
				}
			}
		}
		return out
	}

	var sb strings.Builder
	sb.WriteString("digraph recursion {\n")
	sb.WriteString("\tnode [shape=box, fontname=\"monospace\"];\n")
	fmt.Fprintf(&sb, "\tlabel=%q;\n", r.String())
	queue := []node{{id: 0, size: n}}
	next := 1
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		fmt.Fprintf(&sb, "\tn%d [label=\"T(%s)\\ncost %s\"];\n", cur.id, cur.size, at(f, v, cur.size))
		if cur.level+1 >= depth {
			continue
		}
		for _, c := range children(cur.size) {
			if next >= maxDOTNodes {
				break
			}
			fmt.Fprintf(&sb, "\tn%d -> n%d;\n", cur.id, next)
			queue = append(queue, node{id: next, size: c, level: cur.level + 1})
			next++
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

package solver

import (
	"fmt"

	"github.com/gnolang/asymptote/internal/analysis/lattice"
	"github.com/gnolang/asymptote/internal/expr"
	"github.com/gnolang/asymptote/internal/types"
)

// TreeLevels is the number of levels tabulated by RecursionTree.
const TreeLevels = 10

// RecursionTree tabulates the levels of T(n) = a·T(n/b) + f(n): level i has
// a^i nodes of size n/b^i, each costing f(n/b^i).
func RecursionTree(r *types.Recurrence) (*Solution, error) {
	if err := divideConquer(r, types.MethodRecursionTree); err != nil {
		return nil, err
	}
	fg, err := workGrowth(r)
	if err != nil {
		return nil, err
	}
	v := r.Var()
	res := &types.RecursionTreeResult{
		Levels: Levels(r, TreeLevels),
		Height: fmt.Sprintf("log_%d(%s/%d)", r.B, v, max(r.BaseCase, 1)),
	}
	s := &Solution{Method: types.MethodRecursionTree, RecursionTree: res}
	for _, l := range res.Levels[:min(3, len(res.Levels))] {
		s.Proof.Add("level", "level %d: %s node(s) of size %s, %s each, %s in total", l.Depth, l.Nodes, l.Size, l.PerNode, l.Total)
	}
	s.Proof.Add("height", "the tree has height %s", res.Height)

	levels := sumLevels(r, fg)
	switch levels.Dominating {
	case "root":
		res.DominatingLevel = "root: level totals shrink geometrically"
	case "leaves":
		res.DominatingLevel = fmt.Sprintf("leaves: %s^(log_%d %d) = %s leaves", v, r.B, r.A, lattice.Poly(critical(r), 0).Format(v))
	default:
		res.DominatingLevel = fmt.Sprintf("every level: %s levels of equal total", res.Height)
	}
	s.Proof.Add("dominating", "level ratio a/b^d = %s, dominating level: %s", lattice.FormatFloat(levels.Ratio), res.DominatingLevel)
	s.Growth = levels.Growth
	s.Theta = levels.Theta
	res.Theta = s.Theta
	s.Proof.Add("theta", "T(%s) = Θ(%s)", v, s.Theta)
	return s, nil
}

// Levels returns the first depth levels of the recursion tree.
func Levels(r *types.Recurrence, depth int) []types.TreeLevel {
	v := r.Var()
	n := expr.Symbol(v)
	f := work(r)
	a, b := int64(r.A), int64(r.B)
	out := make([]types.TreeLevel, 0, depth)
	for i := range int64(depth) {
		nodes := ipow(a, i)
		size := expr.Div(n, expr.Int(ipow(b, i)))
		per := at(f, v, size)
		out = append(out, types.TreeLevel{
			Depth:   int(i),
			Nodes:   fmt.Sprint(nodes),
			Size:    size.String(),
			PerNode: per.String(),
			Total:   expr.MulOf(expr.Int(nodes), per).String(),
		})
	}
	return out
}

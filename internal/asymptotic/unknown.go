package asymptotic

import (
	"math/big"
	"slices"
	"strings"

	"github.com/gnolang/asymptote/internal/analysis/lattice"
	"github.com/gnolang/asymptote/internal/expr"
)

// candidate is a monomial ranked by its growth in v and by the powers of
// the unknown counts it carries.
type candidate struct {
	growth lattice.Growth
	powers map[string]*big.Rat
	part   expr.Expr
}

// dominates reports whether c grows at least as fast as o: no slower in v
// and carrying every unknown of o to at least the same power.
func (c candidate) dominates(o candidate) bool {
	if lattice.Compare(c.growth, o.growth) < 0 {
		return false
	}
	for name, x := range o.powers {
		y, ok := c.powers[name]
		if !ok || y.Cmp(x) < 0 {
			return false
		}
	}
	return true
}

func (c candidate) String(v string) string {
	if c.part == nil {
		return c.growth.Format(v)
	}
	if c.growth.IsConstant() {
		return c.part.String()
	}
	return c.growth.Format(v) + "·" + c.part.String()
}

// unknownBound ranks the monomials of e when some of them carry an unknown
// count. Monomials no other one dominates all survive, joined by "+". ok
// is false when e has no unknowns or some monomial cannot be ranked.
func unknownBound(e expr.Expr, v string, unknowns []string) (string, bool) {
	if !slices.ContainsFunc(unknowns, func(u string) bool { return expr.Contains(e, u) }) {
		return "", false
	}
	var cands []candidate
	for _, t := range expr.Expand(e) {
		if t.Coeff.Sign() < 0 {
			continue
		}
		c := candidate{powers: map[string]*big.Rat{}}
		rest := expr.Term{Coeff: big.NewRat(1, 1)}
		held := expr.Term{Coeff: big.NewRat(1, 1)}
		for _, f := range t.Factors {
			if s, ok := f.Atom.(*expr.Sym); ok && slices.Contains(unknowns, s.Name) {
				c.powers[s.Name] = f.Exp
				held.Factors = append(held.Factors, f)
				continue
			}
			for _, u := range unknowns {
				if expr.Contains(f.Atom, u) {
					return "", false
				}
			}
			rest.Factors = append(rest.Factors, f)
		}
		g, _, ok := termGrowth(rest, v)
		if !ok {
			return "", false
		}
		c.growth = g
		if len(held.Factors) > 0 {
			c.part = expr.Simplify(held.Expr())
		}
		cands = append(cands, c)
	}
	if len(cands) == 0 {
		return "", false
	}

	var parts []string
	for i, c := range cands {
		dropped := false
		for j, o := range cands {
			if i == j || !o.dominates(c) {
				continue
			}
			// of two equal candidates the first one stays
			if !c.dominates(o) || j < i {
				dropped = true
				break
			}
		}
		if !dropped {
			parts = append(parts, c.String(v))
		}
	}
	return strings.Join(parts, " + "), true
}

package expr

import (
	"math/big"
	"sort"
)

// Degree returns the degree of e as a polynomial in v and the coefficient of
// the leading power. ok is false when e is not a polynomial in v: v appears
// under a log, a sum, a non-integer or negative power, or inside another
// atom.
func Degree(e Expr, v string) (deg int, lead Expr, ok bool) {
	coeffs, ok := Coeffs(e, v)
	if !ok {
		return 0, nil, false
	}
	if len(coeffs) == 0 {
		return 0, Int(0), true
	}
	for k := range coeffs {
		if k > deg {
			deg = k
		}
	}
	return deg, coeffs[deg], true
}

// Coeffs splits a polynomial in v into its coefficients by power.
func Coeffs(e Expr, v string) (map[int]Expr, bool) {
	groups := map[int][]Term{}
	for _, t := range toPoly(e) {
		k, rest, ok := splitPower(t, v)
		if !ok {
			return nil, false
		}
		groups[k] = append(groups[k], rest)
	}
	out := make(map[int]Expr, len(groups))
	for k, ts := range groups {
		out[k] = poly(ts).add(nil).build()
	}
	return out, true
}

// splitPower separates v^k from a term.
func splitPower(t Term, v string) (int, Term, bool) {
	rest := Term{Coeff: t.Coeff}
	k := 0
	for _, f := range t.Factors {
		if s, ok := f.Atom.(*Sym); ok && s.Name == v {
			if !f.Exp.IsInt() || f.Exp.Sign() < 0 || !f.Exp.Num().IsInt64() {
				return 0, Term{}, false
			}
			k = int(f.Exp.Num().Int64())
			continue
		}
		if Contains(f.Atom, v) {
			return 0, Term{}, false
		}
		rest.Factors = append(rest.Factors, f)
	}
	return k, rest, true
}

// Collect groups e by powers of v, highest first, keeping each coefficient
// as a parenthesized sum: (C1 + C3)*n^2 + C2*n + C4. Terms in which v does
// not appear as a plain power are appended unchanged. The result is a
// display shape; pass it through Simplify to get the canonical form back.
func Collect(e Expr, v string) Expr {
	groups := map[string][]Term{}
	pow := map[string]Factor{}
	var order []string
	var other []Expr
	for _, t := range toPoly(e) {
		var vf *Factor
		rest := Term{Coeff: t.Coeff}
		plain := true
		for _, f := range t.Factors {
			if isSymbol(f.Atom, v) && vf == nil {
				f := f
				vf = &f
				continue
			}
			if Contains(f.Atom, v) {
				plain = false
			}
			rest.Factors = append(rest.Factors, f)
		}
		if !plain {
			other = append(other, t.expr())
			continue
		}
		key := ""
		if vf != nil {
			key = vf.Exp.RatString()
			pow[key] = *vf
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], rest)
	}
	sort.SliceStable(order, func(i, j int) bool { return expOf(pow, order[i]).Cmp(expOf(pow, order[j])) > 0 })

	var terms []Expr
	for _, key := range order {
		coeff := poly(groups[key]).add(nil).build()
		f, hasV := pow[key]
		switch {
		case !hasV:
			terms = append(terms, coeff)
		case isOne(coeff):
			terms = append(terms, f.expr())
		default:
			terms = append(terms, &Mul{Factors: []Expr{coeff, f.expr()}})
		}
	}
	terms = append(terms, other...)
	switch len(terms) {
	case 0:
		return Int(0)
	case 1:
		return terms[0]
	}
	return &Add{Terms: terms}
}

func expOf(pow map[string]Factor, key string) *big.Rat {
	if f, ok := pow[key]; ok {
		return f.Exp
	}
	return new(big.Rat)
}

func isSymbol(e Expr, v string) bool {
	s, ok := e.(*Sym)
	return ok && s.Name == v
}

func isOne(e Expr) bool {
	n, ok := e.(*Num)
	return ok && n.IsOne()
}

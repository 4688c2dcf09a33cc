package expr

import (
	"math/big"
	"sync"
)

// EvaluateSum closes Σ_{v=lower}^{upper} body. It handles bodies that are
// linear combinations (with v-free coefficients) of v^k for integer k >= 0,
// through Faulhaber's formula over arbitrary bounds, and of r^v for a
// numeric ratio r. Anything else returns the unevaluated Sum and false; the
// bound variable never leaks into a result reported as closed.
func EvaluateSum(body Expr, v string, lower, upper Expr) (Expr, bool) {
	unevaluated := SumOf(body, v, lower, upper)
	if Contains(lower, v) || Contains(upper, v) || HasSum(body) {
		return unevaluated, false
	}
	total := poly{}
	for _, t := range toPoly(body) {
		indep := Term{Coeff: t.Coeff}
		k := 0
		var ratio *big.Rat
		for _, f := range t.Factors {
			switch {
			case isSymbol(f.Atom, v):
				if !f.Exp.IsInt() || f.Exp.Sign() < 0 || f.Exp.Num().Int64() >= MaxExpandDegree {
					return unevaluated, false
				}
				k = int(f.Exp.Num().Int64())
			case isGeometric(f, v):
				r := f.Atom.(*Pow).Base.(*Num)
				ratio = r.Rat()
			case Contains(f.Atom, v):
				return unevaluated, false
			default:
				indep.Factors = append(indep.Factors, f)
			}
		}
		var closed poly
		switch {
		case ratio != nil && k == 0:
			closed = geometric(ratio, lower, upper)
		case ratio != nil:
			return unevaluated, false
		default:
			closed = powerSum(k, lower, upper)
		}
		r, ok := poly{indep}.mul(closed)
		if !ok {
			return unevaluated, false
		}
		total = total.add(r)
	}
	out := total.build()
	if Contains(out, v) {
		return unevaluated, false
	}
	return out, true
}

// EvaluateSums closes every summation in e, innermost first. ok is false if
// any summation could not be closed; the partial result keeps those sums.
func EvaluateSums(e Expr) (Expr, bool) {
	switch e := e.(type) {
	case *Add:
		out := make([]Expr, len(e.Terms))
		ok := true
		for i, t := range e.Terms {
			var tok bool
			out[i], tok = EvaluateSums(t)
			ok = ok && tok
		}
		return Simplify(&Add{Terms: out}), ok
	case *Mul:
		out := make([]Expr, len(e.Factors))
		ok := true
		for i, f := range e.Factors {
			var fok bool
			out[i], fok = EvaluateSums(f)
			ok = ok && fok
		}
		return Simplify(&Mul{Factors: out}), ok
	case *Pow:
		b, bok := EvaluateSums(e.Base)
		x, xok := EvaluateSums(e.Exp)
		return PowOf(b, x), bok && xok
	case *Log:
		a, ok := EvaluateSums(e.Arg)
		return Simplify(&Log{Arg: a, Base: e.Base}), ok
	case *Sum:
		body, bok := EvaluateSums(e.Body)
		lo, lok := EvaluateSums(e.Lower)
		hi, hok := EvaluateSums(e.Upper)
		if !bok || !lok || !hok {
			return SumOf(body, e.Var, lo, hi), false
		}
		return EvaluateSum(body, e.Var, lo, hi)
	}
	return Simplify(e), true
}

func isGeometric(f Factor, v string) bool {
	p, ok := f.Atom.(*Pow)
	if !ok || f.Exp.Cmp(big.NewRat(1, 1)) != 0 {
		return false
	}
	if _, ok := p.Base.(*Num); !ok {
		return false
	}
	return isSymbol(p.Exp, v)
}

// powerSum returns Σ_{v=lo}^{hi} v^k = S_k(hi) - S_k(lo-1).
func powerSum(k int, lo, hi Expr) poly {
	upper := faulhaber(k, toPoly(hi))
	below := toPoly(&Add{Terms: []Expr{lo, Int(-1)}})
	return upper.add(faulhaber(k, below).scale(big.NewRat(-1, 1)))
}

// faulhaber returns S_k(m) = Σ_{i=1}^{m} i^k as a polynomial in m:
// 1/(k+1) Σ_{j=0}^{k} (-1)^j C(k+1, j) B_j m^(k+1-j).
func faulhaber(k int, m poly) poly {
	out := poly{}
	bern := bernoulli(k)
	for j := 0; j <= k; j++ {
		if bern[j].Sign() == 0 {
			continue
		}
		c := new(big.Rat).SetInt(new(big.Int).Binomial(int64(k+1), int64(j)))
		c.Mul(c, bern[j])
		if j%2 == 1 {
			c.Neg(c)
		}
		c.Quo(c, big.NewRat(int64(k+1), 1))
		p := numericPow(m, big.NewRat(int64(k+1-j), 1))
		out = out.add(p.scale(c))
	}
	return out
}

// geometric returns Σ_{v=lo}^{hi} r^v = (r^(hi+1) - r^lo) / (r - 1), or the
// term count when r = 1.
func geometric(r *big.Rat, lo, hi Expr) poly {
	if r.Cmp(big.NewRat(1, 1)) == 0 {
		return powerSum(0, lo, hi)
	}
	rn := FromRat(r)
	top := powPoly(rn, &Add{Terms: []Expr{hi, Int(1)}})
	bottom := powPoly(rn, lo)
	d := new(big.Rat).Sub(r, big.NewRat(1, 1))
	return top.add(bottom.scale(big.NewRat(-1, 1))).scale(new(big.Rat).Inv(d))
}

var (
	bernMu    sync.Mutex
	bernCache []*big.Rat
)

// bernoulli returns B_0..B_k with the B_1 = -1/2 convention.
func bernoulli(k int) []*big.Rat {
	bernMu.Lock()
	defer bernMu.Unlock()
	for m := len(bernCache); m <= k; m++ {
		if m == 0 {
			bernCache = append(bernCache, big.NewRat(1, 1))
			continue
		}
		s := new(big.Rat)
		for j := 0; j < m; j++ {
			c := new(big.Rat).SetInt(new(big.Int).Binomial(int64(m+1), int64(j)))
			s.Add(s, c.Mul(c, bernCache[j]))
		}
		s.Quo(s, big.NewRat(int64(m+1), 1))
		bernCache = append(bernCache, s.Neg(s))
	}
	return bernCache[:k+1]
}

func ratFromFloat(f float64) *big.Rat {
	r := new(big.Rat)
	if r.SetFloat64(f) == nil {
		return new(big.Rat)
	}
	return r
}

package expr

import (
	"math"
	"math/big"
	"sort"
	"strings"
)

// Expansion limits. Products whose expansion would exceed MaxTerms, and
// integer powers of sums above MaxExpandDegree, are kept as opaque atoms.
const (
	MaxTerms        = 512
	MaxExpandDegree = 12
	maxExactPow     = 64
)

// Factor is an atom raised to a rational power inside a Term.
type Factor struct {
	Atom Expr
	Exp  *big.Rat
	key  string
}

// Term is a monomial: a rational coefficient times a product of factors.
type Term struct {
	Coeff   *big.Rat
	Factors []Factor
}

type poly []Term

// Simplify returns the canonical form of e: products distributed over sums,
// like monomials combined, rational coefficients reduced, numeric powers and
// exact logarithms folded. Summations are canonicalized but not evaluated.
// Simplify is idempotent.
func Simplify(e Expr) Expr {
	return toPoly(e).build()
}

// Expand returns the canonical monomials of e.
func Expand(e Expr) []Term {
	return toPoly(e)
}

// Equal reports whether a and b have the same canonical form.
func Equal(a, b Expr) bool {
	return len(toPoly(&Add{Terms: []Expr{a, &Mul{Factors: []Expr{Int(-1), b}}}})) == 0
}

// IsZero reports whether e simplifies to 0.
func IsZero(e Expr) bool { return len(toPoly(e)) == 0 }

// Constant returns the numeric value of e when it simplifies to a number.
func Constant(e Expr) (*Num, bool) {
	v, ok := toPoly(e).constant()
	if !ok {
		return nil, false
	}
	return FromRat(v), true
}

// Build assembles terms back into a canonical expression.
func Build(terms []Term) Expr {
	out := make([]Expr, 0, len(terms))
	for _, t := range terms {
		out = append(out, t.expr())
	}
	return Simplify(&Add{Terms: out})
}

func toPoly(e Expr) poly {
	switch e := e.(type) {
	case nil:
		return nil
	case *Num:
		return constPoly(e.val)
	case *Sym:
		return atomPoly(e)
	case *Add:
		p := poly{}
		for _, t := range e.Terms {
			p = p.add(toPoly(t))
		}
		return p
	case *Mul:
		p := constPoly(big.NewRat(1, 1))
		for _, f := range e.Factors {
			r, ok := p.mul(toPoly(f))
			if !ok {
				return opaqueProduct(e)
			}
			p = r
		}
		return p
	case *Pow:
		return powPoly(e.Base, e.Exp)
	case *Log:
		return logPoly(e)
	case *Sum:
		return atomPoly(&Sum{
			Body:  Simplify(e.Body),
			Var:   e.Var,
			Lower: Simplify(e.Lower),
			Upper: Simplify(e.Upper),
		})
	}
	return atomPoly(e)
}

func opaqueProduct(m *Mul) poly {
	fs := make([]Expr, 0, len(m.Factors))
	for _, f := range m.Factors {
		fs = append(fs, Simplify(f))
	}
	sort.SliceStable(fs, func(i, j int) bool { return fs[i].String() < fs[j].String() })
	return atomPoly(&Mul{Factors: fs})
}

func constPoly(v *big.Rat) poly {
	if v.Sign() == 0 {
		return poly{}
	}
	return poly{{Coeff: new(big.Rat).Set(v)}}
}

func atomPoly(a Expr) poly {
	return atomPowPoly(a, big.NewRat(1, 1))
}

func atomPowPoly(a Expr, exp *big.Rat) poly {
	if exp.Sign() == 0 {
		return constPoly(big.NewRat(1, 1))
	}
	return poly{{
		Coeff:   big.NewRat(1, 1),
		Factors: []Factor{{Atom: a, Exp: new(big.Rat).Set(exp), key: a.String()}},
	}}
}

func (p poly) constant() (*big.Rat, bool) {
	switch {
	case len(p) == 0:
		return new(big.Rat), true
	case len(p) == 1 && len(p[0].Factors) == 0:
		return new(big.Rat).Set(p[0].Coeff), true
	}
	return nil, false
}

func (t Term) key() string {
	var sb strings.Builder
	for _, f := range t.Factors {
		sb.WriteString(f.key)
		sb.WriteByte('^')
		sb.WriteString(f.Exp.RatString())
		sb.WriteByte(';')
	}
	return sb.String()
}

// Degree is the sum of the factor exponents; used for ordering only.
func (t Term) degree() float64 {
	d := 0.0
	for _, f := range t.Factors {
		x, _ := f.Exp.Float64()
		d += x
	}
	return d
}

func (p poly) add(q poly) poly {
	idx := make(map[string]int, len(p))
	out := make(poly, 0, len(p)+len(q))
	for _, t := range append(append(poly{}, p...), q...) {
		k := t.key()
		if i, ok := idx[k]; ok {
			out[i].Coeff = new(big.Rat).Add(out[i].Coeff, t.Coeff)
			continue
		}
		idx[k] = len(out)
		out = append(out, Term{Coeff: new(big.Rat).Set(t.Coeff), Factors: t.Factors})
	}
	res := out[:0]
	for _, t := range out {
		if t.Coeff.Sign() != 0 {
			res = append(res, t)
		}
	}
	return res
}

func (p poly) mul(q poly) (poly, bool) {
	if len(p)*len(q) > MaxTerms {
		return nil, false
	}
	out := poly{}
	for _, a := range p {
		for _, b := range q {
			out = out.add(poly{mulTerm(a, b)})
		}
	}
	return out, true
}

func (p poly) scale(c *big.Rat) poly {
	out := make(poly, 0, len(p))
	for _, t := range p {
		out = append(out, Term{Coeff: new(big.Rat).Mul(t.Coeff, c), Factors: t.Factors})
	}
	return out.add(nil)
}

func mulTerm(a, b Term) Term {
	fs := make(map[string]Factor, len(a.Factors)+len(b.Factors))
	for _, f := range append(append([]Factor{}, a.Factors...), b.Factors...) {
		if g, ok := fs[f.key]; ok {
			fs[f.key] = Factor{Atom: g.Atom, Exp: new(big.Rat).Add(g.Exp, f.Exp), key: f.key}
			continue
		}
		fs[f.key] = f
	}
	out := Term{Coeff: new(big.Rat).Mul(a.Coeff, b.Coeff)}
	for _, f := range fs {
		if f.Exp.Sign() != 0 {
			out.Factors = append(out.Factors, f)
		}
	}
	sort.Slice(out.Factors, func(i, j int) bool { return out.Factors[i].key < out.Factors[j].key })
	return out
}

func powPoly(base, exp Expr) poly {
	b := toPoly(base)
	x := toPoly(exp)
	if xv, ok := x.constant(); ok {
		return numericPow(b, xv)
	}
	xe := x.build()
	if bv, ok := b.constant(); ok {
		// r^(c·log_b(x)) = x^(c·log_b(r))
		if len(x) == 1 && len(x[0].Factors) == 1 {
			if lg, ok := x[0].Factors[0].Atom.(*Log); ok && x[0].Factors[0].Exp.Cmp(big.NewRat(1, 1)) == 0 && lg.Base != nil {
				e := &Mul{Factors: []Expr{FromRat(x[0].Coeff), &Log{Arg: FromRat(bv), Base: lg.Base}}}
				return powPoly(lg.Arg, e)
			}
		}
		// r^(k + rest) = r^k · r^rest for integer k
		if len(x) > 1 {
			for i, t := range x {
				if len(t.Factors) == 0 && t.Coeff.IsInt() {
					rest := append(append(poly{}, x[:i]...), x[i+1:]...)
					head := numericPow(b, t.Coeff)
					if r, ok := head.mul(atomPoly(&Pow{Base: FromRat(bv), Exp: rest.build()})); ok {
						return r
					}
				}
			}
		}
		if bv.Sign() == 0 {
			return poly{}
		}
		if bv.Cmp(big.NewRat(1, 1)) == 0 {
			return constPoly(bv)
		}
		return atomPoly(&Pow{Base: FromRat(bv), Exp: xe})
	}
	if len(b) == 1 && b[0].Coeff.Cmp(big.NewRat(1, 1)) == 0 && len(b[0].Factors) == 1 {
		f := b[0].Factors[0]
		if p, ok := f.Atom.(*Pow); ok {
			// (a^e)^x = a^(e·x)
			return powPoly(p.Base, &Mul{Factors: []Expr{p.Exp, FromRat(f.Exp), xe}})
		}
		if f.Exp.Cmp(big.NewRat(1, 1)) != 0 {
			return powPoly(f.Atom, &Mul{Factors: []Expr{FromRat(f.Exp), xe}})
		}
	}
	return atomPoly(&Pow{Base: b.build(), Exp: xe})
}

func numericPow(b poly, xv *big.Rat) poly {
	if xv.Sign() == 0 {
		return constPoly(big.NewRat(1, 1))
	}
	if bv, ok := b.constant(); ok {
		if r, ok := ratPow(bv, xv); ok {
			return constPoly(r)
		}
		return atomPowPoly(FromRat(bv), xv)
	}
	if xv.IsInt() && xv.Sign() > 0 && xv.Num().Int64() <= MaxExpandDegree {
		k := xv.Num().Int64()
		out := constPoly(big.NewRat(1, 1))
		for i := int64(0); i < k; i++ {
			r, ok := out.mul(b)
			if !ok {
				return atomPowPoly(b.build(), xv)
			}
			out = r
		}
		return out
	}
	if len(b) == 1 {
		t := b[0]
		c, ok := ratPow(t.Coeff, xv)
		if ok {
			out := Term{Coeff: c}
			for _, f := range t.Factors {
				out.Factors = append(out.Factors, Factor{Atom: f.Atom, Exp: new(big.Rat).Mul(f.Exp, xv), key: f.key})
			}
			return poly{out}
		}
	}
	return atomPowPoly(b.build(), xv)
}

func logPoly(l *Log) poly {
	var base *big.Rat
	if l.Base != nil {
		bv, ok := toPoly(l.Base).constant()
		if !ok || bv.Sign() <= 0 || bv.Cmp(big.NewRat(1, 1)) == 0 {
			return atomPoly(&Log{Arg: Simplify(l.Arg), Base: Simplify(l.Base)})
		}
		base = bv
	}
	arg := toPoly(l.Arg)
	if v, ok := arg.constant(); ok {
		return logConst(v, base)
	}
	if len(arg) != 1 || arg[0].Coeff.Sign() <= 0 {
		return atomPoly(newLog(arg.build(), base))
	}
	t := arg[0]
	out := poly{}
	if t.Coeff.Cmp(big.NewRat(1, 1)) != 0 {
		out = out.add(logConst(t.Coeff, base))
	}
	for _, f := range t.Factors {
		var lp poly
		if p, ok := f.Atom.(*Pow); ok {
			// log(r^x) = x·log(r)
			inner := logPoly(&Log{Arg: p.Base, Base: baseExpr(base)})
			r, ok := inner.mul(toPoly(p.Exp))
			if !ok {
				lp = atomPoly(newLog(f.Atom, base))
			} else {
				lp = r
			}
		} else {
			lp = atomPoly(newLog(f.Atom, base))
		}
		out = out.add(lp.scale(f.Exp))
	}
	return out
}

func baseExpr(base *big.Rat) Expr {
	if base == nil {
		return nil
	}
	return FromRat(base)
}

func newLog(arg Expr, base *big.Rat) *Log {
	return &Log{Arg: arg, Base: baseExpr(base)}
}

func logConst(v *big.Rat, base *big.Rat) poly {
	if v.Cmp(big.NewRat(1, 1)) == 0 {
		return poly{}
	}
	if base != nil {
		if k, ok := exactLog(v, base); ok {
			return constPoly(big.NewRat(k, 1))
		}
	}
	return atomPoly(newLog(FromRat(v), base))
}

// exactLog finds an integer k with base^k == v.
func exactLog(v, base *big.Rat) (int64, bool) {
	if v.Sign() <= 0 {
		return 0, false
	}
	for k := int64(-maxExactPow); k <= maxExactPow; k++ {
		if r, ok := ratPow(base, big.NewRat(k, 1)); ok && r.Cmp(v) == 0 {
			return k, true
		}
	}
	return 0, false
}

// ratPow computes v^x exactly. Rational exponents p/q succeed only when v
// has an exact q-th root.
func ratPow(v, x *big.Rat) (*big.Rat, bool) {
	if !x.Num().IsInt64() || !x.Denom().IsInt64() {
		return nil, false
	}
	p, q := x.Num().Int64(), x.Denom().Int64()
	if p > maxExactPow || p < -maxExactPow || q > maxExactPow {
		return nil, false
	}
	if v.Sign() == 0 {
		if p < 0 {
			return nil, false
		}
		return new(big.Rat), true
	}
	if q != 1 {
		if v.Sign() < 0 {
			return nil, false
		}
		n, ok := intRoot(v.Num(), q)
		if !ok {
			return nil, false
		}
		d, ok := intRoot(v.Denom(), q)
		if !ok {
			return nil, false
		}
		v = new(big.Rat).SetFrac(n, d)
	}
	neg := p < 0
	if neg {
		p = -p
	}
	num := new(big.Int).Exp(v.Num(), big.NewInt(p), nil)
	den := new(big.Int).Exp(v.Denom(), big.NewInt(p), nil)
	if neg {
		if num.Sign() == 0 {
			return nil, false
		}
		num, den = den, num
	}
	return new(big.Rat).SetFrac(num, den), true
}

func intRoot(n *big.Int, q int64) (*big.Int, bool) {
	if n.Sign() < 0 {
		return nil, false
	}
	if q == 2 {
		r := new(big.Int).Sqrt(n)
		return r, new(big.Int).Mul(r, r).Cmp(n) == 0
	}
	f, _ := new(big.Float).SetInt(n).Float64()
	guess := int64(0)
	if f > 0 {
		guess = int64(math.Pow(f, 1/float64(q)) + 0.5)
	}
	for c := guess - 1; c <= guess+1; c++ {
		if c < 0 {
			continue
		}
		r := big.NewInt(c)
		if new(big.Int).Exp(r, big.NewInt(q), nil).Cmp(n) == 0 {
			return r, true
		}
	}
	return nil, false
}

func (p poly) build() Expr {
	if len(p) == 0 {
		return Int(0)
	}
	terms := append(poly{}, p...)
	sort.SliceStable(terms, func(i, j int) bool {
		di, dj := terms[i].degree(), terms[j].degree()
		if di != dj {
			return di > dj
		}
		return terms[i].key() < terms[j].key()
	})
	if len(terms) == 1 {
		return terms[0].expr()
	}
	out := make([]Expr, 0, len(terms))
	for _, t := range terms {
		out = append(out, t.expr())
	}
	return &Add{Terms: out}
}

func (t Term) expr() Expr {
	var fs []Expr
	if t.Coeff.Cmp(big.NewRat(1, 1)) != 0 || len(t.Factors) == 0 {
		fs = append(fs, FromRat(t.Coeff))
	}
	for _, f := range t.Factors {
		fs = append(fs, f.expr())
	}
	if len(fs) == 1 {
		return fs[0]
	}
	return &Mul{Factors: fs}
}

func (f Factor) expr() Expr {
	if f.Exp.Cmp(big.NewRat(1, 1)) == 0 {
		return f.Atom
	}
	return &Pow{Base: f.Atom, Exp: FromRat(f.Exp)}
}

// Expr returns the factor as an expression.
func (f Factor) Expr() Expr { return f.expr() }

// Expr returns the term as an expression.
func (t Term) Expr() Expr { return t.expr() }

// Package expr implements the small symbolic algebra used by the cost and
// recurrence analyses: symbols, exact rational constants, sums, products,
// powers, logarithms and finite summations over a bound variable.
//
// Values are immutable. The *Of constructors return canonical forms
// (expanded, like terms collected, rational coefficients reduced); struct
// literals may be used to build display-only shapes that keep their
// structure until passed through Simplify.
package expr

import (
	"math/big"
	"strings"
)

// Expr is a symbolic expression.
type Expr interface {
	String() string
	isExpr()
}

// Sym is a free symbol such as n, C3 or a loop induction variable.
type Sym struct {
	Name string
}

// Num is an exact rational constant.
type Num struct {
	val *big.Rat
}

// Add is a sum of terms.
type Add struct {
	Terms []Expr
}

// Mul is a product of factors.
type Mul struct {
	Factors []Expr
}

// Pow is Base raised to Exp.
type Pow struct {
	Base Expr
	Exp  Expr
}

// Log is the logarithm of Arg. A nil Base leaves the base unspecified,
// which is irrelevant asymptotically; a numeric Base is kept exact so that
// log_2(8) folds to 3.
type Log struct {
	Arg  Expr
	Base Expr
}

// Sum is the finite summation of Body for Var from Lower to Upper inclusive.
type Sum struct {
	Body  Expr
	Var   string
	Lower Expr
	Upper Expr
}

func (*Sym) isExpr() {}
func (*Num) isExpr() {}
func (*Add) isExpr() {}
func (*Mul) isExpr() {}
func (*Pow) isExpr() {}
func (*Log) isExpr() {}
func (*Sum) isExpr() {}

// Symbol returns the symbol with the given name.
func Symbol(name string) *Sym { return &Sym{Name: name} }

// Int returns the integer constant n.
func Int(n int64) *Num { return &Num{val: new(big.Rat).SetInt64(n)} }

// Rat returns the rational constant p/q. It panics when q is zero.
func Rat(p, q int64) *Num {
	if q == 0 {
		panic("expr: zero denominator")
	}
	return &Num{val: new(big.Rat).SetFrac64(p, q)}
}

// FromRat wraps a copy of r.
func FromRat(r *big.Rat) *Num { return &Num{val: new(big.Rat).Set(r)} }

var (
	Zero = Int(0)
	One  = Int(1)
)

func (n *Num) Rat() *big.Rat { return new(big.Rat).Set(n.val) }
func (n *Num) IsZero() bool  { return n.val.Sign() == 0 }
func (n *Num) IsOne() bool   { return n.val.Cmp(big.NewRat(1, 1)) == 0 }
func (n *Num) IsInt() bool   { return n.val.IsInt() }
func (n *Num) Sign() int     { return n.val.Sign() }

func (n *Num) Float64() float64 {
	f, _ := n.val.Float64()
	return f
}

// Int64 returns the value when it is an integer that fits in int64.
func (n *Num) Int64() (int64, bool) {
	if !n.val.IsInt() || !n.val.Num().IsInt64() {
		return 0, false
	}
	return n.val.Num().Int64(), true
}

// AddOf returns the canonical sum of the terms.
func AddOf(terms ...Expr) Expr { return Simplify(&Add{Terms: terms}) }

// MulOf returns the canonical product of the factors.
func MulOf(factors ...Expr) Expr { return Simplify(&Mul{Factors: factors}) }

// PowOf returns the canonical power base^exp.
func PowOf(base, exp Expr) Expr { return Simplify(&Pow{Base: base, Exp: exp}) }

// LogOf returns the canonical logarithm of arg with an unspecified base.
func LogOf(arg Expr) Expr { return Simplify(&Log{Arg: arg}) }

// LogBase returns the canonical logarithm of arg in the given base.
func LogBase(arg, base Expr) Expr { return Simplify(&Log{Arg: arg, Base: base}) }

// SumOf returns the unevaluated summation with canonical parts. Use
// EvaluateSum to close it.
func SumOf(body Expr, v string, lower, upper Expr) *Sum {
	return &Sum{Body: Simplify(body), Var: v, Lower: Simplify(lower), Upper: Simplify(upper)}
}

// Sub returns a - b.
func Sub(a, b Expr) Expr { return AddOf(a, &Mul{Factors: []Expr{Int(-1), b}}) }

// Neg returns -a.
func Neg(a Expr) Expr { return MulOf(Int(-1), a) }

// Div returns a / b.
func Div(a, b Expr) Expr { return MulOf(a, &Pow{Base: b, Exp: Int(-1)}) }

func (s *Sym) String() string { return s.Name }

func (n *Num) String() string {
	if n.val.IsInt() {
		return n.val.Num().String()
	}
	return n.val.RatString()
}

func (a *Add) String() string {
	if len(a.Terms) == 0 {
		return "0"
	}
	var sb strings.Builder
	for i, t := range a.Terms {
		s := t.String()
		if i == 0 {
			sb.WriteString(s)
			continue
		}
		if rest, ok := strings.CutPrefix(s, "-"); ok {
			sb.WriteString(" - ")
			sb.WriteString(rest)
		} else {
			sb.WriteString(" + ")
			sb.WriteString(s)
		}
	}
	return sb.String()
}

func (m *Mul) String() string {
	if len(m.Factors) == 0 {
		return "1"
	}
	coeff := big.NewRat(1, 1)
	var num, den []string
	for _, f := range m.Factors {
		switch f := f.(type) {
		case *Num:
			coeff.Mul(coeff, f.val)
		case *Pow:
			if e, ok := f.Exp.(*Num); ok && e.Sign() < 0 {
				den = append(den, powString(f.Base, FromRat(new(big.Rat).Neg(e.val))))
				continue
			}
			num = append(num, f.String())
		default:
			num = append(num, wrap(f, isAdd))
		}
	}
	sign := ""
	if coeff.Sign() < 0 {
		sign = "-"
		coeff.Neg(coeff)
	}
	if !coeff.Num().IsInt64() || coeff.Num().Int64() != 1 || len(num) == 0 {
		num = append([]string{coeff.Num().String()}, num...)
	}
	if !coeff.IsInt() {
		den = append([]string{coeff.Denom().String()}, den...)
	}
	s := strings.Join(num, "*")
	switch {
	case len(den) == 1:
		s += "/" + den[0]
	case len(den) > 1:
		s += "/(" + strings.Join(den, "*") + ")"
	}
	return sign + s
}

func (p *Pow) String() string {
	if e, ok := p.Exp.(*Num); ok && e.Sign() < 0 {
		return "1/" + powString(p.Base, FromRat(new(big.Rat).Neg(e.val)))
	}
	return powString(p.Base, p.Exp)
}

func powString(base, exp Expr) string {
	b := wrap(base, func(e Expr) bool {
		switch e := e.(type) {
		case *Add, *Mul, *Pow, *Sum:
			return true
		case *Num:
			return e.Sign() < 0 || !e.IsInt()
		}
		return false
	})
	if n, ok := exp.(*Num); ok && n.IsOne() {
		return b
	}
	switch e := exp.(type) {
	case *Sym:
		return b + "^" + e.Name
	case *Num:
		if e.IsInt() && e.Sign() > 0 {
			return b + "^" + e.String()
		}
	}
	return b + "^(" + exp.String() + ")"
}

func (l *Log) String() string {
	switch b := l.Base.(type) {
	case nil:
		return "log(" + l.Arg.String() + ")"
	case *Num:
		if b.IsInt() {
			return "log_" + b.String() + "(" + l.Arg.String() + ")"
		}
	}
	return "log_(" + l.Base.String() + ")(" + l.Arg.String() + ")"
}

func (s *Sum) String() string {
	return "Σ[" + s.Var + "=" + s.Lower.String() + ".." + s.Upper.String() + "](" + s.Body.String() + ")"
}

func isAdd(e Expr) bool {
	_, ok := e.(*Add)
	return ok
}

func wrap(e Expr, needs func(Expr) bool) string {
	if needs(e) {
		return "(" + e.String() + ")"
	}
	return e.String()
}

package expr

import (
	"math"
	"sort"
)

// Walk calls fn for e and every sub-expression in pre-order. Returning false
// stops the descent into that node's children.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch e := e.(type) {
	case *Add:
		for _, t := range e.Terms {
			Walk(t, fn)
		}
	case *Mul:
		for _, f := range e.Factors {
			Walk(f, fn)
		}
	case *Pow:
		Walk(e.Base, fn)
		Walk(e.Exp, fn)
	case *Log:
		Walk(e.Arg, fn)
		Walk(e.Base, fn)
	case *Sum:
		Walk(e.Lower, fn)
		Walk(e.Upper, fn)
		Walk(e.Body, fn)
	}
}

// Free returns the sorted names of the free symbols of e. Variables bound by
// a Sum are free only outside its body.
func Free(e Expr) []string {
	set := map[string]struct{}{}
	collectFree(e, map[string]int{}, set)
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func collectFree(e Expr, bound map[string]int, set map[string]struct{}) {
	switch e := e.(type) {
	case nil, *Num:
	case *Sym:
		if bound[e.Name] == 0 {
			set[e.Name] = struct{}{}
		}
	case *Add:
		for _, t := range e.Terms {
			collectFree(t, bound, set)
		}
	case *Mul:
		for _, f := range e.Factors {
			collectFree(f, bound, set)
		}
	case *Pow:
		collectFree(e.Base, bound, set)
		collectFree(e.Exp, bound, set)
	case *Log:
		collectFree(e.Arg, bound, set)
		collectFree(e.Base, bound, set)
	case *Sum:
		collectFree(e.Lower, bound, set)
		collectFree(e.Upper, bound, set)
		bound[e.Var]++
		collectFree(e.Body, bound, set)
		bound[e.Var]--
	}
}

// Contains reports whether v occurs free in e.
func Contains(e Expr, v string) bool {
	for _, name := range Free(e) {
		if name == v {
			return true
		}
	}
	return false
}

// HasSum reports whether e still contains a summation.
func HasSum(e Expr) bool {
	found := false
	Walk(e, func(x Expr) bool {
		if _, ok := x.(*Sum); ok {
			found = true
		}
		return !found
	})
	return found
}

// SumDepth returns the deepest nesting of summations in e.
func SumDepth(e Expr) int {
	switch e := e.(type) {
	case *Add:
		return maxDepth(e.Terms)
	case *Mul:
		return maxDepth(e.Factors)
	case *Pow:
		return maxDepth([]Expr{e.Base, e.Exp})
	case *Log:
		return SumDepth(e.Arg)
	case *Sum:
		return 1 + maxDepth([]Expr{e.Body, e.Lower, e.Upper})
	}
	return 0
}

func maxDepth(es []Expr) int {
	d := 0
	for _, e := range es {
		d = max(d, SumDepth(e))
	}
	return d
}

// Substitute replaces the free occurrences of name in e by value and
// returns the canonical result.
func Substitute(e Expr, name string, value Expr) Expr {
	return Simplify(Replace(e, name, value))
}

// Replace is Substitute without the final simplification; the shape of e is
// preserved.
func Replace(e Expr, name string, value Expr) Expr {
	switch e := e.(type) {
	case *Sym:
		if e.Name == name {
			return value
		}
		return e
	case *Add:
		out := make([]Expr, len(e.Terms))
		for i, t := range e.Terms {
			out[i] = Replace(t, name, value)
		}
		return &Add{Terms: out}
	case *Mul:
		out := make([]Expr, len(e.Factors))
		for i, f := range e.Factors {
			out[i] = Replace(f, name, value)
		}
		return &Mul{Factors: out}
	case *Pow:
		return &Pow{Base: Replace(e.Base, name, value), Exp: Replace(e.Exp, name, value)}
	case *Log:
		var base Expr
		if e.Base != nil {
			base = Replace(e.Base, name, value)
		}
		return &Log{Arg: Replace(e.Arg, name, value), Base: base}
	case *Sum:
		s := &Sum{Var: e.Var, Lower: Replace(e.Lower, name, value), Upper: Replace(e.Upper, name, value), Body: e.Body}
		if e.Var != name {
			s.Body = Replace(e.Body, name, value)
		}
		return s
	}
	return e
}

// Eval returns the numeric value of a constant expression. Logarithms with
// an unspecified base are natural. ok is false when e has free symbols or a
// summation that is not closed.
func Eval(e Expr) (float64, bool) {
	switch e := e.(type) {
	case *Num:
		return e.Float64(), true
	case *Add:
		s := 0.0
		for _, t := range e.Terms {
			x, ok := Eval(t)
			if !ok {
				return 0, false
			}
			s += x
		}
		return s, true
	case *Mul:
		p := 1.0
		for _, f := range e.Factors {
			x, ok := Eval(f)
			if !ok {
				return 0, false
			}
			p *= x
		}
		return p, true
	case *Pow:
		b, ok := Eval(e.Base)
		if !ok {
			return 0, false
		}
		x, ok := Eval(e.Exp)
		if !ok {
			return 0, false
		}
		return math.Pow(b, x), true
	case *Log:
		a, ok := Eval(e.Arg)
		if !ok || a <= 0 {
			return 0, false
		}
		if e.Base == nil {
			return math.Log(a), true
		}
		b, ok := Eval(e.Base)
		if !ok || b <= 0 || b == 1 {
			return 0, false
		}
		return math.Log(a) / math.Log(b), true
	case *Sum:
		closed, ok := EvaluateSum(e.Body, e.Var, e.Lower, e.Upper)
		if !ok {
			return 0, false
		}
		return Eval(closed)
	}
	return 0, false
}

// EvalAt evaluates e with each symbol bound to the given value.
func EvalAt(e Expr, env map[string]float64) (float64, bool) {
	for name, v := range env {
		r := new(Num)
		r.val = ratFromFloat(v)
		e = Replace(e, name, r)
	}
	return Eval(e)
}

package lattice

import (
	"math"
	"strconv"
	"strings"
)

const epsilon = 1e-9

// Growth models an asymptotic class of the form Base^n · n^Deg · log^Log n.
//
// The zero value is Bottom: no work at all (an unreachable or empty branch).
// Classes are totally ordered: exponential base first, then polynomial
// degree, then the power of the logarithm. This places n·log n strictly
// between n and n².
type Growth struct {
	Base float64
	Deg  float64
	Log  int
}

var (
	// Bottom is the class of code that never runs.
	Bottom = Growth{}
	// Constant is Θ(1).
	Constant = Growth{Base: 1}
	// Linear is Θ(n).
	Linear = Growth{Base: 1, Deg: 1}
	// Logarithmic is Θ(log n).
	Logarithmic = Growth{Base: 1, Log: 1}
)

// Poly returns the class n^deg · log^logs n.
func Poly(deg float64, logs int) Growth {
	return Growth{Base: 1, Deg: deg, Log: logs}
}

// Exp returns the class base^n.
func Exp(base float64) Growth {
	return Growth{Base: base}
}

func (g Growth) IsBottom() bool { return g.Base == 0 }

func (g Growth) IsConstant() bool {
	return !g.IsBottom() && !g.IsExponential() && near(g.Deg, 0) && g.Log == 0
}

func (g Growth) IsExponential() bool { return g.Base > 1+epsilon }

// Compare returns -1, 0 or 1 as g grows slower than, like, or faster than h.
func Compare(g, h Growth) int {
	if g.IsBottom() || h.IsBottom() {
		switch {
		case g.IsBottom() && h.IsBottom():
			return 0
		case g.IsBottom():
			return -1
		default:
			return 1
		}
	}
	gb, hb := math.Max(g.Base, 1), math.Max(h.Base, 1)
	if !near(gb, hb) {
		return sign(gb - hb)
	}
	if !near(g.Deg, h.Deg) {
		return sign(g.Deg - h.Deg)
	}
	switch {
	case g.Log < h.Log:
		return -1
	case g.Log > h.Log:
		return 1
	}
	return 0
}

// Join returns the least upper bound (the faster growing class).
func Join(a, b Growth) Growth {
	if Compare(a, b) >= 0 {
		return a
	}
	return b
}

// Meet returns the greatest lower bound (the slower growing class).
func Meet(a, b Growth) Growth {
	if Compare(a, b) <= 0 {
		return a
	}
	return b
}

// Times returns the class of running b once for every step of a.
func Times(a, b Growth) Growth {
	if a.IsBottom() || b.IsBottom() {
		return Bottom
	}
	return Growth{
		Base: math.Max(a.Base, 1) * math.Max(b.Base, 1),
		Deg:  a.Deg + b.Deg,
		Log:  a.Log + b.Log,
	}
}

// Equal reports whether both classes are the same.
func Equal(a, b Growth) bool { return Compare(a, b) == 0 }

// Rank flattens the class into a single number: polynomial degree plus 0.5
// when a log factor is present. Exponential classes rank above every
// polynomial.
func (g Growth) Rank() float64 {
	switch {
	case g.IsBottom():
		return math.Inf(-1)
	case g.IsExponential():
		return 1e6 + g.Base
	}
	r := g.Deg
	if g.Log > 0 {
		r += 0.5
	}
	return r
}

// String renders the class in the variable n.
func (g Growth) String() string {
	return g.Format("n")
}

// Format renders the class in the given variable, e.g. "n²", "n log n",
// "log n", "2ⁿ" or "n^1.585".
func (g Growth) Format(v string) string {
	if g.IsBottom() {
		return "0"
	}
	var parts []string
	switch {
	case near(g.Deg, 0):
	case near(g.Deg, 1):
		parts = append(parts, v)
	case near(g.Deg, math.Round(g.Deg)) && g.Deg > 0:
		parts = append(parts, v+superscript(int(math.Round(g.Deg))))
	default:
		parts = append(parts, v+"^"+FormatFloat(g.Deg))
	}
	switch {
	case g.Log == 1:
		parts = append(parts, "log "+v)
	case g.Log > 1:
		parts = append(parts, "log"+superscript(g.Log)+" "+v)
	}
	poly := strings.Join(parts, " ")
	if !g.IsExponential() {
		if poly == "" {
			return "1"
		}
		return poly
	}
	exp := FormatFloat(g.Base) + superscriptLetter(v)
	if poly == "" {
		return exp
	}
	return poly + "·" + exp
}

// FormatFloat prints f with at most three decimals and no trailing zeros.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

var superDigits = []rune("⁰¹²³⁴⁵⁶⁷⁸⁹")

func superscript(k int) string {
	if k < 0 {
		return "⁻" + superscript(-k)
	}
	var sb strings.Builder
	for _, d := range strconv.Itoa(k) {
		sb.WriteRune(superDigits[d-'0'])
	}
	return sb.String()
}

func superscriptLetter(v string) string {
	if v == "n" {
		return "ⁿ"
	}
	return "^" + v
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func sign(f float64) int {
	if f < 0 {
		return -1
	}
	return 1
}

// State maps variable names to the growth of the values they hold,
// e.g. a midpoint `mid = (lo + hi) / 2` tracks the size of the range.
// Missing entries are interpreted as Constant.
type State map[string]Growth

// Get returns the stored class or Constant when absent.
func (s State) Get(name string) Growth {
	if g, ok := s[name]; ok {
		return g
	}
	return Constant
}

// Set stores the class, dropping constant entries.
func (s State) Set(name string, g Growth) {
	if s == nil {
		return
	}
	if Equal(g, Constant) {
		delete(s, name)
		return
	}
	s[name] = g
}

// Clone returns a shallow copy of the state.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// JoinStates merges two states with Join on each variable.
func JoinStates(a, b State) State {
	out := a.Clone()
	for name, g := range b {
		out.Set(name, Join(a.Get(name), g))
	}
	return out
}

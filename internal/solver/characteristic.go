package solver

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/gnolang/asymptote/internal/analysis/lattice"
	"github.com/gnolang/asymptote/internal/asymptotic"
	"github.com/gnolang/asymptote/internal/expr"
	"github.com/gnolang/asymptote/internal/types"
)

// MaxDPOrder is the largest order for which a dynamic programming
// formulation is emitted.
const MaxDPOrder = 3

// Characteristic solves T(n) = Σ c_i·T(n-i) + g(n) through the roots of
// r^k - Σ c_i·r^(k-i) = 0, adding a particular solution by undetermined
// coefficients when g is a nonzero polynomial.
func Characteristic(r *types.Recurrence) (*Solution, error) {
	if r.Form != types.LinearShift || len(r.Coefficients) == 0 {
		return nil, types.Errorf(types.CodeNoApplicableMethod,
			"the characteristic equation needs T(n) = Σ c_i·T(n-i) + g(n), got %s", r)
	}
	v := r.Var()
	g := work(r)
	poly := characteristic(r)
	roots, err := realRoots(poly)
	if err != nil {
		return nil, err
	}
	dom, ok := dominantRoot(roots)
	if !ok {
		return nil, types.Errorf(types.CodeNoApplicableMethod, "%s has no real root", equation(poly))
	}

	res := &types.CharacteristicResult{
		Equation:     equation(poly),
		Roots:        roots,
		DominantRoot: dom.Value,
		GrowthRate:   rootString(dom),
		Homogeneous:  expr.IsZero(g),
	}
	s := &Solution{Method: types.MethodCharacteristic, Characteristic: res}
	s.Proof.Add("char-equation", "characteristic equation: %s", res.Equation)
	parts := make([]string, len(roots))
	for i, rt := range roots {
		parts[i] = rootString(rt)
		if rt.Multiplicity > 1 {
			parts[i] += fmt.Sprintf(" (multiplicity %d)", rt.Multiplicity)
		}
	}
	s.Proof.Add("char-roots", "real roots: %s", strings.Join(parts, ", "))

	// cross-check the dominant root against the companion matrix spectrum
	if num, err := companionRoots(poly); err == nil {
		if nd, ok := dominantRoot(num); ok && math.Abs(nd.Value-dom.Value) > 1e-6 {
			s.note("companion matrix dominant eigenvalue %s differs from %s", lattice.FormatFloat(nd.Value), lattice.FormatFloat(dom.Value))
		}
	} else {
		s.note("%s", types.AsAnalysisError(err).Message)
	}
	s.Proof.Add("char-dominant", "dominant root %s ≈ %s", rootString(dom), lattice.FormatFloat(dom.Value))

	res.HomogeneousSolution = homogeneous(roots, v)
	s.Proof.Add("char-homogeneous", "homogeneous solution: %s", res.HomogeneousSolution)

	growth := lattice.Poly(float64(dom.Multiplicity-1), 0)
	if math.Abs(dom.Value) > 1+eps {
		growth = lattice.Growth{Base: math.Abs(dom.Value), Deg: float64(dom.Multiplicity - 1)}
	}
	res.ClosedForm = fmt.Sprintf("T(%s) = %s", v, res.HomogeneousSolution)

	if !res.Homogeneous {
		p, err := particular(r, roots, g)
		switch {
		case err != nil:
			s.note("no particular solution for g(%s) = %s: %s", v, g, err)
			if fg, ok := asymptotic.Growth(g, v); ok {
				growth = lattice.Join(growth, fg)
			}
		default:
			res.ParticularSolution = p.String()
			if rest, neg := strings.CutPrefix(res.ParticularSolution, "-"); neg {
				res.ClosedForm += " - " + rest
			} else {
				res.ClosedForm += " + " + res.ParticularSolution
			}
			s.Proof.Add("char-particular", "particular solution for g(%s) = %s: %s", v, g, res.ParticularSolution)
			if pg, ok := asymptotic.Growth(p, v); ok {
				growth = lattice.Join(growth, pg)
			}
		}
	}
	s.Proof.Add("char-closed", "%s", res.ClosedForm)

	s.Growth = growth
	s.Theta = growth.Format(v)
	res.Theta = s.Theta
	s.Proof.Add("theta", "T(%s) = Θ(%s)", v, s.Theta)

	if r.Order() <= MaxDPOrder {
		res.DP = dp(r, g)
		s.Proof.Add("dp", "bottom-up evaluation: %s time, %s space, %s with rolling variables",
			res.DP.Time, res.DP.Space, res.DP.RollingSpace)
	}
	return s, nil
}

func equation(poly []*big.Int) string {
	r := expr.Symbol("r")
	k := len(poly) - 1
	terms := make([]expr.Expr, 0, len(poly))
	for i, c := range poly {
		terms = append(terms, expr.MulOf(expr.FromRat(new(big.Rat).SetInt(c)), expr.PowOf(r, expr.Int(int64(k-i)))))
	}
	return expr.AddOf(terms...).String() + " = 0"
}

func rootString(rt types.Root) string {
	if rt.Exact != "" {
		return rt.Exact
	}
	return lattice.FormatFloat(rt.Value)
}

// homogeneous renders Σ A_j·r_j^n, with polynomial factors for repeated
// roots.
func homogeneous(roots []types.Root, v string) string {
	var terms []string
	next := 1
	for _, rt := range roots {
		var coeffs []string
		for p := range rt.Multiplicity {
			a := "A" + subscript(next)
			next++
			switch p {
			case 0:
			case 1:
				a += "·" + v
			default:
				a += fmt.Sprintf("·%s^%d", v, p)
			}
			coeffs = append(coeffs, a)
		}
		coeff := coeffs[0]
		if len(coeffs) > 1 {
			coeff = "(" + strings.Join(coeffs, " + ") + ")"
		}
		base := rootString(rt)
		switch {
		case base == "1":
			terms = append(terms, coeff)
			continue
		case base == "0":
			continue
		case strings.ContainsAny(base, " -/"):
			base = "(" + base + ")"
		}
		terms = append(terms, fmt.Sprintf("%s·%s^%s", coeff, base, v))
	}
	if len(terms) == 0 {
		return "0"
	}
	return strings.Join(terms, " + ")
}

// particular finds P(n) = n^m·Σ p_j·n^j with P(n) - Σ c_i·P(n-i) = g(n),
// where m is the multiplicity of the root 1.
func particular(r *types.Recurrence, roots []types.Root, g expr.Expr) (expr.Expr, error) {
	v := r.Var()
	n := expr.Symbol(v)
	coeffs, ok := expr.Coeffs(g, v)
	if !ok {
		return nil, fmt.Errorf("g is not a polynomial in %s", v)
	}
	d := 0
	for k, c := range coeffs {
		if _, ok := expr.Constant(c); !ok {
			return nil, fmt.Errorf("coefficient %s of g is not numeric", c)
		}
		d = max(d, k)
	}
	m := 0
	for _, rt := range roots {
		if rt.Exact == "1" {
			m = rt.Multiplicity
		}
	}

	unknowns := make([]string, d+1)
	var terms []expr.Expr
	for j := range unknowns {
		unknowns[j] = fmt.Sprintf("'p%d", j)
		terms = append(terms, expr.MulOf(expr.Symbol(unknowns[j]), expr.PowOf(n, expr.Int(int64(j+m)))))
	}
	p := expr.AddOf(terms...)
	resid := []expr.Expr{p, expr.Neg(g)}
	for _, k := range r.Offsets() {
		shifted := expr.Substitute(p, v, expr.Sub(n, expr.Int(int64(k))))
		resid = append(resid, expr.MulOf(expr.Int(-r.Coefficients[k]), shifted))
	}
	byPower, ok := expr.Coeffs(expr.AddOf(resid...), v)
	if !ok {
		return nil, fmt.Errorf("residual is not a polynomial in %s", v)
	}

	// one linear equation per power of n
	var rows [][]*big.Rat
	var rhs []*big.Rat
	for _, c := range byPower {
		row := make([]*big.Rat, len(unknowns))
		rest := c
		for j, u := range unknowns {
			uc, ok := expr.Coeffs(c, u)
			if !ok {
				return nil, fmt.Errorf("residual is not linear in the unknowns")
			}
			row[j] = new(big.Rat)
			if x, has := uc[1]; has {
				num, ok := expr.Constant(x)
				if !ok {
					return nil, fmt.Errorf("residual is not linear in the unknowns")
				}
				row[j] = num.Rat()
			}
			rest = expr.Substitute(rest, u, expr.Zero)
		}
		num, ok := expr.Constant(rest)
		if !ok {
			return nil, fmt.Errorf("residual has a non-numeric constant term")
		}
		rows = append(rows, row)
		rhs = append(rhs, new(big.Rat).Neg(num.Rat()))
	}
	sol, err := solveLinear(rows, rhs, len(unknowns))
	if err != nil {
		return nil, err
	}
	for j, u := range unknowns {
		p = expr.Substitute(p, u, expr.FromRat(sol[j]))
	}
	return p, nil
}

// solveLinear solves rows·x = rhs exactly by Gauss-Jordan elimination. The
// system may be overdetermined but must be consistent with a unique
// solution.
func solveLinear(rows [][]*big.Rat, rhs []*big.Rat, k int) ([]*big.Rat, error) {
	a := make([][]*big.Rat, len(rows))
	for i, row := range rows {
		a[i] = make([]*big.Rat, k+1)
		for j := range k {
			a[i][j] = new(big.Rat).Set(row[j])
		}
		a[i][k] = new(big.Rat).Set(rhs[i])
	}
	rank := 0
	for col := 0; col < k && rank < len(a); col++ {
		pivot := -1
		for i := rank; i < len(a); i++ {
			if a[i][col].Sign() != 0 {
				pivot = i
				break
			}
		}
		if pivot < 0 {
			continue
		}
		a[rank], a[pivot] = a[pivot], a[rank]
		inv := new(big.Rat).Inv(a[rank][col])
		for j := col; j <= k; j++ {
			a[rank][j].Mul(a[rank][j], inv)
		}
		for i := range a {
			if i == rank || a[i][col].Sign() == 0 {
				continue
			}
			f := new(big.Rat).Set(a[i][col])
			for j := col; j <= k; j++ {
				a[i][j].Sub(a[i][j], new(big.Rat).Mul(f, a[rank][j]))
			}
		}
		rank++
	}
	for i := rank; i < len(a); i++ {
		if a[i][k].Sign() != 0 {
			return nil, fmt.Errorf("inconsistent system")
		}
	}
	if rank < k {
		return nil, fmt.Errorf("underdetermined system")
	}
	x := make([]*big.Rat, k)
	for i := range k {
		x[i] = a[i][k]
	}
	return x, nil
}

// dp writes the bottom-up evaluation order of the recurrence.
func dp(r *types.Recurrence, g expr.Expr) *types.DPFormulation {
	k := r.Order()
	n0 := r.BaseCase
	first := max(n0+1, int64(k))
	i := expr.Symbol("i")
	gi := expr.Substitute(g, r.Var(), i)

	var table, rolling []string
	for _, off := range r.Offsets() {
		term := fmt.Sprintf("dp[i-%d]", off)
		if c := r.Coefficients[off]; c != 1 {
			term = fmt.Sprintf("%d·%s", c, term)
		}
		table = append(table, term)
		rv := fmt.Sprintf("v%d", off)
		if c := r.Coefficients[off]; c != 1 {
			rv = fmt.Sprintf("%d·%s", c, rv)
		}
		rolling = append(rolling, rv)
	}
	if !expr.IsZero(gi) {
		table = append(table, gi.String())
		rolling = append(rolling, gi.String())
	}
	vars := make([]string, k)
	for j := range k {
		vars[j] = fmt.Sprintf("v%d", j+1)
	}
	inits := make([]string, k)
	for j := range k {
		inits[j] = fmt.Sprintf("T(%d)", first-int64(j)-1)
	}
	shift := "v1 = next"
	space := "O(1)"
	if k > 1 {
		space = fmt.Sprintf("O(%d) = O(1)", k)
		shift = fmt.Sprintf("(%s) = (next, %s)", strings.Join(vars, ", "), strings.Join(vars[:k-1], ", "))
	}
	return &types.DPFormulation{
		Table: []string{
			fmt.Sprintf("dp[0..%d] = base cases", first-1),
			fmt.Sprintf("for i = %d to n: dp[i] = %s", first, strings.Join(table, " + ")),
			"return dp[n]",
		},
		Rolling: []string{
			fmt.Sprintf("%s = %s", strings.Join(vars, ", "), strings.Join(inits, ", ")),
			fmt.Sprintf("for i = %d to n: next = %s; %s", first, strings.Join(rolling, " + "), shift),
			"return v1",
		},
		Time:         "O(n)",
		Space:        "O(n)",
		RollingSpace: space,
	}
}

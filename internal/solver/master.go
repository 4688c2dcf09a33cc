package solver

import (
	"fmt"
	"math"

	"github.com/gnolang/asymptote/internal/analysis/lattice"
	"github.com/gnolang/asymptote/internal/types"
)

// Master applies the master theorem to T(n) = a·T(n/b) + f(n), comparing
// f(n) with g(n) = n^(log_b a). Case 2 is the extended one: f = Θ(g·log^k n)
// gives Θ(g·log^(k+1) n).
func Master(r *types.Recurrence) (*Solution, error) {
	if err := divideConquer(r, types.MethodMaster); err != nil {
		return nil, err
	}
	f, err := workGrowth(r)
	if err != nil {
		return nil, err
	}
	v := r.Var()
	crit := critical(r)
	g := lattice.Poly(crit, 0)
	res := &types.MasterResult{
		Critical: crit,
		G:        fmt.Sprintf("%s^(log_%d %d) = %s", v, r.B, r.A, g.Format(v)),
	}
	s := &Solution{Method: types.MethodMaster, Master: res}
	s.Proof.Add("master-params", "a = %d, b = %d, f(%s) = %s", r.A, r.B, v, work(r))
	s.Proof.Add("master-g", "g(%s) = %s, log_%d %d = %s", v, res.G, r.B, r.A, lattice.FormatFloat(crit))

	fs := f.Format(v)
	switch {
	case f.IsExponential() || f.Deg > crit+eps:
		ratio := 0.0
		if !f.IsExponential() {
			ratio = float64(r.A) / math.Pow(float64(r.B), f.Deg)
		}
		if ratio >= 1-eps {
			return nil, types.Errorf(types.CodeNoApplicableMethod,
				"regularity fails: a·f(n/b) = %s·f(n)", lattice.FormatFloat(ratio))
		}
		res.Case = 3
		res.Comparison = fmt.Sprintf("f(%s)/g(%s) → ∞: f(%s) = %s = Ω(%s^(%s + ε))", v, v, v, fs, v, lattice.FormatFloat(crit))
		if f.IsExponential() {
			res.Regularity = fmt.Sprintf("a·f(%s/%d) / f(%s) → 0 < 1", v, r.B, v)
		} else {
			res.Regularity = fmt.Sprintf("a·f(%s/%d) = %d/%d^%s·f(%s) = %s·f(%s) with %s < 1",
				v, r.B, r.A, r.B, lattice.FormatFloat(f.Deg), v, lattice.FormatFloat(ratio), v, lattice.FormatFloat(ratio))
		}
		s.Growth = f
	case near(f.Deg, crit):
		if f.Log < 0 {
			return nil, types.Errorf(types.CodeNoApplicableMethod,
				"f(%s) = %s falls between case 1 and case 2", v, fs)
		}
		res.Case = 2
		if f.Log == 0 {
			res.Comparison = fmt.Sprintf("f(%s)/g(%s) → a positive constant: f(%s) = Θ(%s)", v, v, v, g.Format(v))
		} else {
			res.Comparison = fmt.Sprintf("f(%s)/g(%s) = Θ(log^%d %s): f(%s) = Θ(g(%s)·log^%d %s)", v, v, f.Log, v, v, v, f.Log, v)
		}
		s.Growth = lattice.Poly(crit, f.Log+1)
	default:
		res.Case = 1
		res.Comparison = fmt.Sprintf("f(%s)/g(%s) → 0: f(%s) = %s = O(%s^(%s - ε))", v, v, v, fs, v, lattice.FormatFloat(crit))
		s.Growth = g
	}
	s.Theta = s.Growth.Format(v)
	res.Theta = s.Theta
	s.Proof.Add("master-compare", "%s", res.Comparison)
	if res.Regularity != "" {
		s.Proof.Add("master-regularity", "regularity: %s", res.Regularity)
	}
	s.Proof.Add("master-case", "case %d: T(%s) = Θ(%s)", res.Case, v, s.Theta)
	if r.EarlyExit {
		res.ThetaBest = "1"
		s.Best = "1"
		s.Proof.Add("best", "an early exit precedes the recursive calls: best case Θ(1)")
	}
	return s, nil
}

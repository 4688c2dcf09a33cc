package solver

import (
	"fmt"
	"math"
	"math/big"
	"math/cmplx"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/gnolang/asymptote/internal/analysis/lattice"
	"github.com/gnolang/asymptote/internal/types"
)

// maxDivisorScan bounds the rational root search.
const maxDivisorScan = 1 << 20

// characteristic returns the integer coefficients of
// r^k - c_1·r^(k-1) - ... - c_k, highest power first.
func characteristic(r *types.Recurrence) []*big.Int {
	k := r.Order()
	poly := make([]*big.Int, k+1)
	poly[0] = big.NewInt(1)
	for i := 1; i <= k; i++ {
		poly[i] = big.NewInt(-r.Coefficients[i])
	}
	return poly
}

func evalPoly(poly []*big.Int, x *big.Int) *big.Int {
	acc := new(big.Int)
	for _, c := range poly {
		acc.Mul(acc, x)
		acc.Add(acc, c)
	}
	return acc
}

// deflate divides poly by (r - x), assuming x is a root.
func deflate(poly []*big.Int, x *big.Int) []*big.Int {
	out := make([]*big.Int, len(poly)-1)
	acc := new(big.Int)
	for i := range out {
		acc = new(big.Int).Add(new(big.Int).Mul(acc, x), poly[i])
		out[i] = acc
	}
	return out
}

// integerRoots finds the integer roots of a monic integer polynomial with
// their multiplicities; by the rational root theorem they are its only
// rational roots. It returns the deflated remainder.
func integerRoots(poly []*big.Int) ([]types.Root, []*big.Int) {
	var roots []types.Root
	for len(poly) > 1 && poly[len(poly)-1].Sign() == 0 {
		poly = poly[:len(poly)-1]
		if len(roots) == 0 {
			roots = append(roots, types.Root{Value: 0, Exact: "0"})
		}
		roots[0].Multiplicity++
	}
	if len(poly) <= 1 {
		return roots, poly
	}
	c := new(big.Int).Abs(poly[len(poly)-1])
	if !c.IsInt64() || c.Int64() > maxDivisorScan {
		return roots, poly
	}
	for d := int64(1); d <= c.Int64(); d++ {
		if c.Int64()%d != 0 {
			continue
		}
		for _, x := range []int64{d, -d} {
			bx := big.NewInt(x)
			m := 0
			for len(poly) > 1 && evalPoly(poly, bx).Sign() == 0 {
				poly = deflate(poly, bx)
				m++
			}
			if m > 0 {
				roots = append(roots, types.Root{Value: float64(x), Multiplicity: m, Exact: fmt.Sprint(x)})
			}
		}
	}
	return roots, poly
}

// quadraticRoots solves x² + p·x + q with exact surd rendering.
func quadraticRoots(p, q *big.Int) []types.Root {
	// x = (-p ± √(p² - 4q)) / 2
	disc := new(big.Int).Sub(new(big.Int).Mul(p, p), new(big.Int).Mul(big.NewInt(4), q))
	if disc.Sign() < 0 {
		return nil
	}
	pf, _ := new(big.Float).SetInt(p).Float64()
	df, _ := new(big.Float).SetInt(disc).Float64()
	sq := math.Sqrt(df)
	if disc.Sign() == 0 {
		x := -pf / 2
		return []types.Root{{Value: x, Multiplicity: 2, Exact: lattice.FormatFloat(x)}}
	}
	s, m := squareFree(disc)
	neg := new(big.Int).Neg(p)
	return []types.Root{
		{Value: (-pf + sq) / 2, Multiplicity: 1, Exact: surd(neg, s, m, "+")},
		{Value: (-pf - sq) / 2, Multiplicity: 1, Exact: surd(neg, s, m, "-")},
	}
}

// squareFree writes d = s²·m with m square free.
func squareFree(d *big.Int) (*big.Int, *big.Int) {
	s, m := big.NewInt(1), new(big.Int).Set(d)
	for f := big.NewInt(2); new(big.Int).Mul(f, f).Cmp(m) <= 0; f.Add(f, big.NewInt(1)) {
		f2 := new(big.Int).Mul(f, f)
		for new(big.Int).Mod(m, f2).Sign() == 0 {
			m.Div(m, f2)
			s.Mul(s, f)
		}
		if f.Cmp(big.NewInt(1000)) > 0 {
			break
		}
	}
	return s, m
}

// surd renders (a sign s·√m) / 2 in lowest terms.
func surd(a, s, m *big.Int, sign string) string {
	root := "√" + m.String()
	if s.Cmp(big.NewInt(1)) != 0 {
		root = s.String() + root
	}
	two := big.NewInt(2)
	if new(big.Int).Mod(a, two).Sign() == 0 && new(big.Int).Mod(s, two).Sign() == 0 {
		half := new(big.Int).Div(a, two)
		hs := new(big.Int).Div(s, two)
		root = "√" + m.String()
		if hs.Cmp(big.NewInt(1)) != 0 {
			root = hs.String() + root
		}
		if half.Sign() == 0 {
			if sign == "-" {
				return "-" + root
			}
			return root
		}
		return fmt.Sprintf("%s %s %s", half, sign, root)
	}
	if a.Sign() == 0 {
		if sign == "-" {
			return "-" + root + "/2"
		}
		return root + "/2"
	}
	return fmt.Sprintf("(%s %s %s)/2", a, sign, root)
}

// companionRoots returns the real eigenvalues of the companion matrix of a
// monic polynomial, grouped by multiplicity.
func companionRoots(poly []*big.Int) ([]types.Root, error) {
	k := len(poly) - 1
	if k < 1 {
		return nil, nil
	}
	data := make([]float64, k*k)
	for j := range k {
		c, _ := new(big.Float).SetInt(poly[j+1]).Float64()
		data[j] = -c
	}
	for i := 1; i < k; i++ {
		data[i*k+i-1] = 1
	}
	var eig mat.Eigen
	if ok := eig.Factorize(mat.NewDense(k, k, data), mat.EigenNone); !ok {
		return nil, types.Errorf(types.CodeNoApplicableMethod, "eigenvalue decomposition of the companion matrix failed")
	}
	var roots []types.Root
	for _, z := range eig.Values(nil) {
		if math.Abs(imag(z)) > 1e-6*math.Max(1, cmplx.Abs(z)) {
			continue
		}
		x := real(z)
		if i := slices.IndexFunc(roots, func(r types.Root) bool { return math.Abs(r.Value-x) < 1e-6 }); i >= 0 {
			roots[i].Multiplicity++
			continue
		}
		roots = append(roots, types.Root{Value: x, Multiplicity: 1})
	}
	return roots, nil
}

// realRoots combines exact integer roots, exact quadratic surds and the
// companion matrix eigenvalues of whatever remains.
func realRoots(poly []*big.Int) ([]types.Root, error) {
	roots, rest := integerRoots(poly)
	switch len(rest) - 1 {
	case 0:
	case 1:
		// monic linear remainder r + c
		x, _ := new(big.Float).SetInt(new(big.Int).Neg(rest[1])).Float64()
		roots = append(roots, types.Root{Value: x, Multiplicity: 1, Exact: lattice.FormatFloat(x)})
	case 2:
		roots = append(roots, quadraticRoots(rest[1], rest[2])...)
	default:
		num, err := companionRoots(rest)
		if err != nil {
			return nil, err
		}
		roots = append(roots, num...)
	}
	slices.SortFunc(roots, func(a, b types.Root) int {
		switch {
		case a.Value > b.Value:
			return -1
		case a.Value < b.Value:
			return 1
		}
		return 0
	})
	return roots, nil
}

// dominantRoot is the root of largest magnitude, preferring the positive
// one on ties.
func dominantRoot(roots []types.Root) (types.Root, bool) {
	if len(roots) == 0 {
		return types.Root{}, false
	}
	best := roots[0]
	for _, r := range roots[1:] {
		if math.Abs(r.Value) > math.Abs(best.Value)+1e-9 {
			best = r
		}
	}
	return best, true
}

package solver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/asymptote/internal/expr"
	"github.com/gnolang/asymptote/internal/types"
)

func divide(a, b int, f expr.Expr, n0 int64) *types.Recurrence {
	return &types.Recurrence{Form: types.DivideConquer, A: a, B: b, Work: f, BaseCase: n0, SizeVar: "n"}
}

func shift(coeffs map[int]int64, f expr.Expr, n0 int64) *types.Recurrence {
	return &types.Recurrence{Form: types.LinearShift, Coefficients: coeffs, Work: f, BaseCase: n0, SizeVar: "n"}
}

var n = expr.Symbol("n")

func TestMaster(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		r     *types.Recurrence
		cases int
		theta string
	}{
		{"binary search", divide(1, 2, expr.One, 0), 2, "log n"},
		{"merge sort", divide(2, 2, n, 1), 2, "n log n"},
		{"leaves dominate", divide(8, 2, expr.PowOf(n, expr.Int(2)), 1), 1, "n³"},
		{"root dominates", divide(2, 2, expr.PowOf(n, expr.Int(2)), 1), 3, "n²"},
		{"strassen", divide(7, 2, expr.PowOf(n, expr.Int(2)), 1), 1, "n^2.807"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := Master(tt.r)
			require.NoError(t, err)
			assert.Equal(t, types.MethodMaster, s.Method)
			assert.Equal(t, tt.cases, s.Master.Case)
			assert.Equal(t, tt.theta, s.Theta)
			assert.Equal(t, tt.theta, s.Master.Theta)
			assert.NotEmpty(t, s.Master.Comparison)
			if tt.cases == 3 {
				assert.NotEmpty(t, s.Master.Regularity)
			}
		})
	}
}

func TestMasterEarlyExit(t *testing.T) {
	t.Parallel()

	r := divide(1, 2, expr.One, 0)
	r.EarlyExit = true
	s, err := Solve(r, types.MethodMaster)
	require.NoError(t, err)
	assert.Equal(t, "log n", s.Theta)
	assert.Equal(t, "1", s.Best)
	assert.Equal(t, "1", s.Master.ThetaBest)
}

func TestIteration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		r     *types.Recurrence
		theta string
	}{
		{"factorial", shift(map[int]int64{1: 1}, expr.One, 1), "n"},
		{"selection sort", shift(map[int]int64{1: 1}, n, 1), "n²"},
		{"hanoi", shift(map[int]int64{1: 2}, expr.One, 0), "2ⁿ"},
		{"merge sort", divide(2, 2, n, 1), "n log n"},
		{"binary search", divide(1, 2, expr.One, 1), "log n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := Iteration(tt.r)
			require.NoError(t, err)
			assert.Equal(t, tt.theta, s.Theta)
			assert.Len(t, s.Iteration.Expansions, unrolled)
			assert.NotEmpty(t, s.Iteration.GeneralForm)
			assert.NotEmpty(t, s.Iteration.BaseCase)
			assert.NotEmpty(t, s.Iteration.Closed)
		})
	}
}

func TestRecursionTree(t *testing.T) {
	t.Parallel()

	s, err := RecursionTree(divide(2, 2, n, 1))
	require.NoError(t, err)
	res := s.RecursionTree
	require.Len(t, res.Levels, TreeLevels)
	assert.Equal(t, "1", res.Levels[0].Nodes)
	assert.Equal(t, "2", res.Levels[1].Nodes)
	assert.Equal(t, "512", res.Levels[9].Nodes)
	assert.Equal(t, 9, res.Levels[9].Depth)
	assert.Equal(t, "log_2(n/1)", res.Height)
	assert.True(t, strings.HasPrefix(res.DominatingLevel, "every level"))
	assert.Equal(t, "n log n", s.Theta)

	s, err = RecursionTree(divide(4, 2, n, 1))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s.RecursionTree.DominatingLevel, "leaves"))
	assert.Equal(t, "n²", s.Theta)
}

func TestCharacteristic(t *testing.T) {
	t.Parallel()

	t.Run("fibonacci", func(t *testing.T) {
		t.Parallel()
		s, err := Characteristic(shift(map[int]int64{1: 1, 2: 1}, expr.One, 1))
		require.NoError(t, err)
		res := s.Characteristic
		assert.InDelta(t, 1.618034, res.DominantRoot, 1e-5)
		assert.Equal(t, "(1 + √5)/2", res.GrowthRate)
		require.Len(t, res.Roots, 2)
		assert.Equal(t, "(1 - √5)/2", res.Roots[1].Exact)
		assert.Equal(t, "-1", res.ParticularSolution)
		assert.True(t, strings.HasSuffix(res.ClosedForm, " - 1"))
		assert.False(t, res.Homogeneous)
		assert.Equal(t, "1.618ⁿ", s.Theta)
		require.NotNil(t, res.DP)
		assert.Equal(t, "O(n)", res.DP.Time)
		assert.Equal(t, "O(2) = O(1)", res.DP.RollingSpace)
		assert.Equal(t, "v1, v2 = T(1), T(0)", res.DP.Rolling[0])
	})

	t.Run("hanoi", func(t *testing.T) {
		t.Parallel()
		s, err := Characteristic(shift(map[int]int64{1: 2}, expr.One, 0))
		require.NoError(t, err)
		assert.Equal(t, "2", s.Characteristic.GrowthRate)
		assert.Equal(t, "-1", s.Characteristic.ParticularSolution)
		assert.Equal(t, "2ⁿ", s.Theta)
		// one rolling variable is plain constant space
		require.NotNil(t, s.Characteristic.DP)
		assert.Equal(t, "O(1)", s.Characteristic.DP.RollingSpace)
		assert.True(t, strings.HasSuffix(s.Characteristic.DP.Rolling[1], "; v1 = next"))
	})

	t.Run("factorial", func(t *testing.T) {
		t.Parallel()
		s, err := Characteristic(shift(map[int]int64{1: 1}, expr.One, 1))
		require.NoError(t, err)
		assert.Equal(t, "n", s.Characteristic.ParticularSolution)
		assert.Equal(t, "n", s.Theta)
	})

	t.Run("tribonacci", func(t *testing.T) {
		t.Parallel()
		s, err := Characteristic(shift(map[int]int64{1: 1, 2: 1, 3: 1}, expr.Zero, 2))
		require.NoError(t, err)
		res := s.Characteristic
		assert.True(t, res.Homogeneous)
		assert.InDelta(t, 1.839287, res.DominantRoot, 1e-5)
		assert.Equal(t, "1.839ⁿ", s.Theta)
		assert.NotNil(t, res.DP)
	})

	t.Run("repeated root", func(t *testing.T) {
		t.Parallel()
		s, err := Characteristic(shift(map[int]int64{1: 2, 2: -1}, expr.Zero, 1))
		require.NoError(t, err)
		require.Len(t, s.Characteristic.Roots, 1)
		assert.Equal(t, 2, s.Characteristic.Roots[0].Multiplicity)
		assert.Equal(t, "(A₁ + A₂·n)", s.Characteristic.HomogeneousSolution)
		assert.Equal(t, "n", s.Theta)
	})

	t.Run("order above dp limit", func(t *testing.T) {
		t.Parallel()
		s, err := Characteristic(shift(map[int]int64{1: 1, 4: 1}, expr.Zero, 3))
		require.NoError(t, err)
		assert.Nil(t, s.Characteristic.DP)
	})
}

func TestNoApplicableMethod(t *testing.T) {
	t.Parallel()

	fib := shift(map[int]int64{1: 1, 2: 1}, expr.One, 1)
	tests := []struct {
		name string
		run  func() (*Solution, error)
	}{
		{"master on a shift", func() (*Solution, error) { return Master(fib) }},
		{"tree on a shift", func() (*Solution, error) { return RecursionTree(fib) }},
		{"iteration with two terms", func() (*Solution, error) { return Iteration(fib) }},
		{"characteristic on divide", func() (*Solution, error) { return Characteristic(divide(2, 2, n, 1)) }},
		{"master with b = 1", func() (*Solution, error) { return Master(divide(2, 1, n, 1)) }},
		{"unknown method", func() (*Solution, error) { return Solve(fib, types.MethodAuto) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := tt.run()
			require.Error(t, err)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, types.ErrNoApplicableMethod)
		})
	}
}

func TestDOT(t *testing.T) {
	t.Parallel()

	out := DOT(divide(2, 2, n, 1), 3)
	assert.True(t, strings.HasPrefix(out, "digraph recursion {"))
	assert.Contains(t, out, "n0 -> n1;")
	assert.Equal(t, 6, strings.Count(out, "->"))

	out = DOT(shift(map[int]int64{1: 1, 2: 1}, expr.One, 1), 4)
	assert.Equal(t, 2+4+8, strings.Count(out, "->"))
}

func TestSubscript(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "₁", subscript(1))
	assert.Equal(t, "₁₂", subscript(12))
}

package summation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/asymptote/internal/expr"
	"github.com/gnolang/asymptote/internal/types"
)

var (
	n = expr.Symbol("n")
	i = expr.Symbol("i")
)

func TestCloseConstantSum(t *testing.T) {
	t.Parallel()
	c, err := Close(expr.SumOf(expr.One, "i", expr.One, n))
	require.NoError(t, err)
	assert.Equal(t, "n", c.Closed.String())
	require.Len(t, c.Steps, 2)
	assert.Equal(t, ConstantSum, c.Steps[0].Rule)
	assert.Equal(t, "Σ_{i=1}^{n} 1 = n  [constant sum]", c.Steps[0].Text)
	assert.Equal(t, Restatement, c.Steps[1].Rule)
}

func TestCloseArithmeticSum(t *testing.T) {
	t.Parallel()
	c, err := Close(expr.SumOf(i, "i", expr.One, n))
	require.NoError(t, err)
	want := expr.Div(expr.MulOf(n, expr.AddOf(n, expr.One)), expr.Int(2))
	assert.True(t, expr.Equal(want, c.Closed), "got %s", c.Closed)
	assert.Equal(t, ArithmeticSum, c.Steps[0].Rule)
}

func TestCloseTriangular(t *testing.T) {
	t.Parallel()
	inner := expr.SumOf(expr.One, "j", expr.AddOf(i, expr.One), n)
	outer := expr.SumOf(inner, "i", expr.One, expr.Sub(n, expr.One))
	c, err := Close(outer)
	require.NoError(t, err)
	want := expr.Div(expr.MulOf(n, expr.Sub(n, expr.One)), expr.Int(2))
	assert.True(t, expr.Equal(want, c.Closed), "got %s", c.Closed)

	require.Len(t, c.Steps, 3)
	assert.Equal(t, ConstantSum, c.Steps[0].Rule)
	assert.Equal(t, TriangularSum, c.Steps[1].Rule)
	assert.Equal(t, "= "+c.Closed.String(), c.Steps[2].Text)
}

func TestCloseRectangular(t *testing.T) {
	t.Parallel()
	inner := expr.SumOf(expr.Symbol("C1"), "j", expr.One, n)
	outer := expr.SumOf(inner, "i", expr.One, n)
	c, err := Close(expr.AddOf(outer, expr.Symbol("C2")))
	require.NoError(t, err)
	assert.Equal(t, "C1*n^2 + C2", c.Closed.String())
	assert.Equal(t, FactorOut, c.Steps[0].Rule)
	assert.Equal(t, RectangularSum, c.Steps[1].Rule)
}

func TestCloseRules(t *testing.T) {
	t.Parallel()
	tests := []struct {
		body expr.Expr
		rule Rule
	}{
		{expr.MulOf(expr.Int(3), i), FactorOut},
		{expr.AddOf(i, expr.One), Linearity},
		{expr.PowOf(i, expr.Int(2)), PowerSum},
		{expr.PowOf(expr.Int(2), i), GeometricSum},
		{n, FactorOut},
	}
	for _, tt := range tests {
		c, err := Close(expr.SumOf(tt.body, "i", expr.One, n))
		require.NoError(t, err)
		assert.Equal(t, tt.rule, c.Steps[0].Rule, "body %s", tt.body)
		assert.False(t, expr.Contains(c.Closed, "i"))
	}
}

func TestCloseClosedExpressionIsIdentity(t *testing.T) {
	t.Parallel()
	e := expr.AddOf(expr.MulOf(expr.Symbol("C1"), expr.PowOf(n, expr.Int(2))), n, expr.One)
	c, err := Close(e)
	require.NoError(t, err)
	assert.Equal(t, e.String(), c.Closed.String())
	require.Len(t, c.Steps, 1)
	assert.Equal(t, Restatement, c.Steps[0].Rule)
}

func TestCloseFailure(t *testing.T) {
	t.Parallel()
	s := expr.SumOf(expr.LogOf(i), "i", expr.One, n)
	c, err := Close(expr.AddOf(s, n))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrSimplificationFailure))
	require.NotNil(t, c.Unresolved)
	assert.True(t, expr.HasSum(c.Closed))
	assert.True(t, expr.Contains(c.Unresolved, "n"))
}

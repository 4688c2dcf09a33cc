package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/asymptote/internal/expr"
)

func TestAnalysisErrorIs(t *testing.T) {
	t.Parallel()
	err := Errorf(CodeSimplificationFailure, "sum not closed").WithExpr(expr.SumOf(expr.Symbol("i"), "i", expr.One, expr.Symbol("n")))
	wrapped := fmt.Errorf("closing T_open: %w", err)

	assert.True(t, errors.Is(wrapped, ErrSimplificationFailure))
	assert.False(t, errors.Is(wrapped, ErrNoApplicableMethod))
	assert.Contains(t, err.Error(), "Σ[i=1..n](i)")

	ae := AsAnalysisError(wrapped)
	require.NotNil(t, ae)
	assert.Equal(t, CodeSimplificationFailure, ae.Code)

	plain := AsAnalysisError(errors.New("boom"))
	assert.Equal(t, CodeInvalidInput, plain.Code)
	assert.Nil(t, AsAnalysisError(nil))
}

func TestParse(t *testing.T) {
	t.Parallel()
	m, err := ParseMode("average")
	require.NoError(t, err)
	assert.Equal(t, Average, m)
	_, err = ParseMode("typical")
	assert.True(t, errors.Is(err, ErrInvalidInput))

	method, err := ParseMethod("recursion-tree")
	require.NoError(t, err)
	assert.Equal(t, MethodRecursionTree, method)
	_, err = ParseMethod("guess")
	assert.True(t, errors.Is(err, ErrInvalidPreferredMethod))
}

func TestProofAdd(t *testing.T) {
	t.Parallel()
	var p Proof
	p.Add("a", "T(n) = %s", "n")
	p.Add("b", "T(n) = %s", "n")
	p.Add("c", "Θ(n)")
	require.Len(t, p, 2)
	assert.Equal(t, "c", p[1].ID)
}

func TestRecurrenceString(t *testing.T) {
	t.Parallel()
	n := expr.Symbol("n")
	ms := &Recurrence{Form: DivideConquer, A: 2, B: 2, Work: n}
	assert.Equal(t, "T(n) = 2T(n/2) + n", ms.String())

	fib := &Recurrence{Form: LinearShift, Coefficients: map[int]int64{2: 1, 1: 1}, Work: expr.One}
	assert.Equal(t, "T(n) = T(n-1) + T(n-2) + 1", fib.String())
	assert.Equal(t, []int{1, 2}, fib.Offsets())
	assert.Equal(t, 2, fib.Order())
	assert.EqualValues(t, 2, fib.Calls())
}

func TestResultJSON(t *testing.T) {
	t.Parallel()
	n := expr.Symbol("n")
	res := AnalysisResult{
		Kind: Iterative,
		Mode: Worst,
		Rows: []CostRow{{Line: 2, Kind: "assign", Label: expr.Symbol("C1"), RawCount: expr.SumOf(expr.One, "i", expr.One, n), ClosedCount: n}},
		Totals: Totals{
			TOpen:    expr.MulOf(expr.Symbol("C1"), n),
			BigTheta: "n",
		},
	}
	data, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	totals := decoded["totals"].(map[string]any)
	assert.Equal(t, "C1*n", totals["T_open"])
	rows := decoded["byLine"].([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "Σ[i=1..n](1)", rows[0].(map[string]any)["rawCount"])
}

func TestResultsRoundTrip(t *testing.T) {
	t.Parallel()
	n := expr.Symbol("n")
	res := &AnalysisResult{
		File:         "fib.json",
		Kind:         Recursive,
		Mode:         Worst,
		Procedure:    "fib",
		SizeVariable: "n",
		Rows: []CostRow{{
			Line:        2,
			Kind:        "for",
			Label:       expr.Symbol("C1"),
			Constants:   []string{"C1"},
			RawCount:    expr.SumOf(expr.One, "i", expr.One, n),
			ClosedCount: n,
		}},
		Totals: Totals{
			TPolynomial: expr.AddOf(n, expr.One),
			BigTheta:    "1.618ⁿ",
			Recurrence: &Recurrence{
				Form:         LinearShift,
				Coefficients: map[int]int64{1: 1, 2: 1},
				Work:         expr.One,
				BaseCase:     1,
				Method:       MethodCharacteristic,
				SizeVar:      "n",
			},
			Proof: Proof{{ID: "recurrence", Text: "T(n) = T(n-1) + T(n-2) + 1"}},
		},
		Failure: Errorf(CodeNoApplicableMethod, "no case applies").WithExpr(n),
	}
	first, err := json.Marshal([]*AnalysisResult{res})
	require.NoError(t, err)

	decoded, err := DecodeResults(first)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	got := decoded[0]
	assert.Equal(t, "n + 1", got.Totals.TPolynomial.String())
	assert.Equal(t, "Σ[i=1..n](1)", got.Rows[0].RawCount.String())
	assert.Equal(t, res.Totals.Recurrence.String(), got.Totals.Recurrence.String())
	assert.Equal(t, CodeNoApplicableMethod, got.Failure.Code)

	second, err := json.Marshal(decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))

	_, err = DecodeResults([]byte(`{`))
	assert.Error(t, err)
}

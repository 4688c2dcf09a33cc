package recurrence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/asymptote/internal/ast"
	"github.com/gnolang/asymptote/internal/types"
)

func extract(t *testing.T, tree *ast.Tree, name string) (*Extraction, error) {
	t.Helper()
	_, id, ok := tree.Main(name)
	require.True(t, ok)
	return Extract(tree, id, Options{})
}

func factorial() *ast.Tree {
	b := ast.NewBuilder()
	proc := b.Proc("fact", []string{"k"},
		b.If(b.Bin("<=", b.Ident("k"), b.Num(1)),
			[]ast.NodeID{b.Return(b.Num(1))}, nil),
		b.Return(b.Bin("*", b.Ident("k"), b.Call("fact", b.Bin("-", b.Ident("k"), b.Num(1))))))
	return b.Tree(b.Program(proc))
}

func fibonacci() *ast.Tree {
	b := ast.NewBuilder()
	proc := b.Proc("fib", []string{"n"},
		b.If(b.Bin("<=", b.Ident("n"), b.Num(1)),
			[]ast.NodeID{b.Return(b.Ident("n"))}, nil),
		b.Return(b.Bin("+",
			b.Call("fib", b.Bin("-", b.Ident("n"), b.Num(1))),
			b.Call("fib", b.Bin("-", b.Ident("n"), b.Num(2))))))
	return b.Tree(b.Program(proc))
}

func binarySearch() *ast.Tree {
	b := ast.NewBuilder()
	mid := func() ast.NodeID { return b.Ident("mid") }
	proc := b.Proc("bs", []string{"A", "lo", "hi", "x"},
		b.If(b.Bin(">", b.Ident("lo"), b.Ident("hi")),
			[]ast.NodeID{b.Return(b.Unary("-", b.Num(1)))}, nil),
		b.Set("mid", b.Bin("/", b.Bin("+", b.Ident("lo"), b.Ident("hi")), b.Num(2))),
		b.If(b.Bin("==", b.Index(b.Ident("A"), mid()), b.Ident("x")),
			[]ast.NodeID{b.Return(mid())}, nil),
		b.If(b.Bin("<", b.Index(b.Ident("A"), mid()), b.Ident("x")),
			[]ast.NodeID{b.Return(b.Call("bs", b.Ident("A"), b.Bin("+", mid(), b.Num(1)), b.Ident("hi"), b.Ident("x")))},
			[]ast.NodeID{b.Return(b.Call("bs", b.Ident("A"), b.Ident("lo"), b.Bin("-", mid(), b.Num(1)), b.Ident("x")))}))
	return b.Tree(b.Program(proc))
}

func mergeSort() *ast.Tree {
	b := ast.NewBuilder()
	merge := b.Proc("merge", []string{"A", "lo", "mid", "hi"},
		b.For("k", b.Ident("lo"), b.Ident("hi"),
			b.Assign(b.Index(b.Ident("B"), b.Ident("k")), b.Index(b.Ident("A"), b.Ident("k")))))
	sort := b.Proc("msort", []string{"A", "lo", "hi"},
		b.If(b.Bin("<", b.Ident("lo"), b.Ident("hi")), []ast.NodeID{
			b.Set("mid", b.Bin("/", b.Bin("+", b.Ident("lo"), b.Ident("hi")), b.Num(2))),
			b.Call("msort", b.Ident("A"), b.Ident("lo"), b.Ident("mid")),
			b.Call("msort", b.Ident("A"), b.Bin("+", b.Ident("mid"), b.Num(1)), b.Ident("hi")),
			b.Call("merge", b.Ident("A"), b.Ident("lo"), b.Ident("mid"), b.Ident("hi")),
		}, nil))
	return b.Tree(b.Program(sort, merge))
}

func hanoi() *ast.Tree {
	b := ast.NewBuilder()
	proc := b.Proc("hanoi", []string{"n", "a", "b", "c"},
		b.If(b.Bin("==", b.Ident("n"), b.Num(0)),
			[]ast.NodeID{b.Return(ast.NoNode)}, nil),
		b.Call("hanoi", b.Bin("-", b.Ident("n"), b.Num(1)), b.Ident("a"), b.Ident("c"), b.Ident("b")),
		b.Print(b.Ident("a"), b.Ident("c")),
		b.Call("hanoi", b.Bin("-", b.Ident("n"), b.Num(1)), b.Ident("c"), b.Ident("b"), b.Ident("a")))
	return b.Tree(b.Program(proc))
}

func TestFactorial(t *testing.T) {
	t.Parallel()
	x, err := extract(t, factorial(), "")
	require.NoError(t, err)

	r := x.Recurrence
	assert.Equal(t, types.LinearShift, r.Form)
	assert.Equal(t, map[int]int64{1: 1}, r.Coefficients)
	assert.Equal(t, "1", r.Work.String())
	assert.Equal(t, int64(1), r.BaseCase)
	assert.False(t, r.EarlyExit)
	assert.Equal(t, "T(n) = T(n-1) + 1", r.String())
	assert.Equal(t, "k", x.Size)

	m, err := Select(r, types.MethodAuto)
	require.NoError(t, err)
	assert.Equal(t, types.MethodIteration, m)
}

func TestFibonacci(t *testing.T) {
	t.Parallel()
	x, err := extract(t, fibonacci(), "")
	require.NoError(t, err)

	r := x.Recurrence
	assert.Equal(t, map[int]int64{1: 1, 2: 1}, r.Coefficients)
	assert.Equal(t, "T(n) = T(n-1) + T(n-2) + 1", r.String())
	assert.Equal(t, 2, r.Order())
	require.Len(t, x.Calls, 2)
	assert.Equal(t, "n - 2", x.Calls[1].Size.String())

	m, err := Select(r, types.MethodAuto)
	require.NoError(t, err)
	assert.Equal(t, types.MethodCharacteristic, m)
}

func TestBinarySearch(t *testing.T) {
	t.Parallel()
	x, err := extract(t, binarySearch(), "")
	require.NoError(t, err)

	r := x.Recurrence
	assert.Equal(t, types.DivideConquer, r.Form)
	assert.Equal(t, 1, r.A)
	assert.Equal(t, 2, r.B)
	assert.Equal(t, "1", r.Work.String())
	assert.Equal(t, int64(0), r.BaseCase)
	assert.True(t, r.EarlyExit)
	assert.Equal(t, "lo..hi", x.Size)
	for _, c := range x.Calls {
		assert.Equal(t, Divide, c.Shape)
		assert.Equal(t, "range halving", c.Via)
	}

	m, err := Select(r, types.MethodAuto)
	require.NoError(t, err)
	assert.Equal(t, types.MethodMaster, m)
}

func TestMergeSort(t *testing.T) {
	t.Parallel()
	x, err := extract(t, mergeSort(), "msort")
	require.NoError(t, err)

	r := x.Recurrence
	assert.Equal(t, 2, r.A)
	assert.Equal(t, 2, r.B)
	assert.Equal(t, "n", r.Work.String())
	assert.Equal(t, int64(1), r.BaseCase)
	assert.False(t, r.EarlyExit)
	assert.Equal(t, "T(n) = 2T(n/2) + n", r.String())
	assert.NotEmpty(t, x.Proof)
	assert.Equal(t, "calls", x.Proof[0].ID)
}

func TestHanoi(t *testing.T) {
	t.Parallel()
	x, err := extract(t, hanoi(), "")
	require.NoError(t, err)

	r := x.Recurrence
	assert.Equal(t, map[int]int64{1: 2}, r.Coefficients)
	assert.Equal(t, int64(0), r.BaseCase)
	assert.Equal(t, "T(n) = 2T(n-1) + 1", r.String())

	m, err := Select(r, types.MethodAuto)
	require.NoError(t, err)
	assert.Equal(t, types.MethodCharacteristic, m)
}

func TestConstantLoopOfCalls(t *testing.T) {
	t.Parallel()
	b := ast.NewBuilder()
	proc := b.Proc("f", []string{"n"},
		b.If(b.Bin("<=", b.Ident("n"), b.Num(1)), []ast.NodeID{b.Return(b.Num(0))}, nil),
		b.For("i", b.Num(1), b.Num(3),
			b.Call("f", b.Bin("/", b.Ident("n"), b.Num(3)))))
	x, err := extract(t, b.Tree(b.Program(proc)), "")
	require.NoError(t, err)
	assert.Equal(t, 3, x.Recurrence.A)
	assert.Equal(t, 3, x.Recurrence.B)
}

func TestExtractErrors(t *testing.T) {
	t.Parallel()

	t.Run("no recursive call", func(t *testing.T) {
		t.Parallel()
		b := ast.NewBuilder()
		proc := b.Proc("f", []string{"n"}, b.Return(b.Ident("n")))
		_, err := extract(t, b.Tree(b.Program(proc)), "")
		assert.ErrorIs(t, err, types.ErrNoRecursiveCallFound)
	})

	t.Run("mixed subproblem types", func(t *testing.T) {
		t.Parallel()
		b := ast.NewBuilder()
		proc := b.Proc("f", []string{"n"},
			b.If(b.Bin("<=", b.Ident("n"), b.Num(1)), []ast.NodeID{b.Return(b.Num(0))}, nil),
			b.Call("f", b.Bin("/", b.Ident("n"), b.Num(2))),
			b.Call("f", b.Bin("-", b.Ident("n"), b.Num(1))))
		_, err := extract(t, b.Tree(b.Program(proc)), "")
		assert.ErrorIs(t, err, types.ErrMixedSubproblemTypes)
	})

	t.Run("data-dependent size", func(t *testing.T) {
		t.Parallel()
		b := ast.NewBuilder()
		proc := b.Proc("f", []string{"A", "n"},
			b.Call("f", b.Ident("A"), b.Index(b.Ident("A"), b.Num(0))))
		_, err := extract(t, b.Tree(b.Program(proc)), "")
		assert.ErrorIs(t, err, types.ErrSubproblemSizeUndetermined)
	})

	t.Run("different divisors", func(t *testing.T) {
		t.Parallel()
		b := ast.NewBuilder()
		proc := b.Proc("f", []string{"n"},
			b.Call("f", b.Bin("/", b.Ident("n"), b.Num(2))),
			b.Call("f", b.Bin("/", b.Ident("n"), b.Num(3))))
		_, err := extract(t, b.Tree(b.Program(proc)), "")
		assert.ErrorIs(t, err, types.ErrSubproblemSizeUndetermined)
	})

	t.Run("call in a loop over n", func(t *testing.T) {
		t.Parallel()
		b := ast.NewBuilder()
		proc := b.Proc("f", []string{"n"},
			b.For("i", b.Num(1), b.Ident("n"),
				b.Call("f", b.Bin("-", b.Ident("n"), b.Num(1)))))
		_, err := extract(t, b.Tree(b.Program(proc)), "")
		assert.ErrorIs(t, err, types.ErrSubproblemSizeUndetermined)
	})

	t.Run("not a procedure", func(t *testing.T) {
		t.Parallel()
		tree := factorial()
		_, err := Extract(tree, tree.Root, Options{})
		assert.ErrorIs(t, err, types.ErrNoMainProcedureFound)
	})
}

func TestPreferredMethod(t *testing.T) {
	t.Parallel()
	dc := &types.Recurrence{Form: types.DivideConquer, A: 2, B: 2}
	shift := &types.Recurrence{Form: types.LinearShift, Coefficients: map[int]int64{1: 1}}
	fib := &types.Recurrence{Form: types.LinearShift, Coefficients: map[int]int64{1: 1, 2: 1}}

	tests := []struct {
		rec    *types.Recurrence
		method types.Method
		ok     bool
	}{
		{dc, types.MethodMaster, true},
		{dc, types.MethodRecursionTree, true},
		{dc, types.MethodIteration, true},
		{dc, types.MethodCharacteristic, false},
		{shift, types.MethodIteration, true},
		{shift, types.MethodCharacteristic, true},
		{shift, types.MethodMaster, false},
		{fib, types.MethodIteration, false},
		{fib, types.MethodRecursionTree, false},
		{fib, types.MethodCharacteristic, true},
	}
	for _, tt := range tests {
		m, err := Select(tt.rec, tt.method)
		if tt.ok {
			require.NoError(t, err, "%s with %s", tt.rec, tt.method)
			assert.Equal(t, tt.method, m)
			continue
		}
		assert.ErrorIs(t, err, types.ErrInvalidPreferredMethod, "%s with %s", tt.rec, tt.method)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		build  func(b *ast.Builder) ast.NodeID
		shape  Shape
		factor int64
	}{
		{"n-1", func(b *ast.Builder) ast.NodeID { return b.Bin("-", b.Ident("n"), b.Num(1)) }, Subtract, 1},
		{"n-3", func(b *ast.Builder) ast.NodeID { return b.Bin("-", b.Ident("n"), b.Num(3)) }, Subtract, 3},
		{"n/2", func(b *ast.Builder) ast.NodeID { return b.Bin("/", b.Ident("n"), b.Num(2)) }, Divide, 2},
		{"floor(n/4)", func(b *ast.Builder) ast.NodeID {
			return b.Call("floor", b.Bin("/", b.Ident("n"), b.Num(4)))
		}, Divide, 4},
		{"(n-1)/2", func(b *ast.Builder) ast.NodeID {
			return b.Bin("/", b.Bin("-", b.Ident("n"), b.Num(1)), b.Num(2))
		}, Divide, 2},
		{"n", func(b *ast.Builder) ast.NodeID { return b.Ident("n") }, Unclassified, 0},
		{"n+1", func(b *ast.Builder) ast.NodeID { return b.Bin("+", b.Ident("n"), b.Num(1)) }, Unclassified, 0},
		{"2n/3", func(b *ast.Builder) ast.NodeID {
			return b.Bin("/", b.Bin("*", b.Num(2), b.Ident("n")), b.Num(3))
		}, Unclassified, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := ast.NewBuilder()
			id := tt.build(b)
			tree := b.Tree(id)
			e, ok := tree.Symbolic(id, ast.Symbols{})
			require.True(t, ok)
			shape, factor, _ := classify(e, "n")
			assert.Equal(t, tt.shape, shape)
			assert.Equal(t, tt.factor, factor)
		})
	}
}

func TestCallGraph(t *testing.T) {
	t.Parallel()
	b := ast.NewBuilder()
	even := b.Proc("even", []string{"n"},
		b.If(b.Bin("==", b.Ident("n"), b.Num(0)), []ast.NodeID{b.Return(b.Num(1))}, nil),
		b.Return(b.Call("odd", b.Bin("-", b.Ident("n"), b.Num(1)))))
	odd := b.Proc("odd", []string{"n"},
		b.If(b.Bin("==", b.Ident("n"), b.Num(0)), []ast.NodeID{b.Return(b.Num(0))}, nil),
		b.Return(b.Call("even", b.Bin("-", b.Ident("n"), b.Num(1)))))
	main := b.Proc("main", []string{"n"},
		b.Print(b.Call("even", b.Ident("n"))),
		b.Print(b.Call("helper", b.Ident("n"))))
	helper := b.Proc("helper", []string{"n"},
		b.Return(b.Call("helper", b.Bin("-", b.Ident("n"), b.Num(1)))))
	tree := b.Tree(b.Program(main, even, odd, helper))

	cg := NewCallGraph(tree)
	assert.Equal(t, []string{"even", "helper"}, cg.Callees("main"))
	assert.Equal(t, []string{"even", "odd"}, cg.Cycle("odd"))
	assert.Nil(t, cg.Cycle("helper"))
	assert.True(t, cg.CallsItself("helper"))
	assert.True(t, cg.Recursive("even"))
	assert.False(t, cg.Recursive("main"))

	order := cg.Order("main")
	assert.Len(t, order, 4)
	assert.Equal(t, "main", order[len(order)-1])

	_, err := extract(t, tree, "even")
	assert.ErrorIs(t, err, types.ErrNoRecursiveCallFound)
}

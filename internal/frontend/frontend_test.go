package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/asymptote/internal/ast"
)

const src = `package algo

type Stack struct{ items []int }

func (s *Stack) Push(v int) {
	s.items = append(s.items, v)
}

func sum(a []int, n int) int {
	total := 0
	for i := 0; i < n; i++ {
		total += a[i]
	}
	return total
}

func halve(n int) int {
	steps := 0
	for n > 1 {
		n /= 2
		steps++
	}
	return steps
}

func down(n int) {
	for i := n; i >= 1; i -= 2 {
		println(i)
	}
}

func each(n int, xs []int) {
	for i := range n {
		println(i)
	}
	for _, x := range xs {
		println(x)
	}
}

func pick(x int) int {
	switch {
	case x > 0:
		return 1
	}
	return 0
}

func decl() {}
`

func proc(t *testing.T, tree *ast.Tree, name string) *ast.ProcDef {
	t.Helper()
	p, _, ok := tree.Proc(name)
	require.True(t, ok, "procedure %s", name)
	return p
}

func TestParseFunctions(t *testing.T) {
	t.Parallel()

	f, err := Parse("algo.go", []byte(src))
	require.NoError(t, err)

	var names []string
	for _, fn := range f.Functions {
		names = append(names, fn.Name)
	}
	assert.Equal(t, []string{"Stack.Push", "sum", "halve", "down", "each", "pick", "decl"}, names)
	assert.Len(t, f.Tree.Procedures(), len(names))

	assert.Equal(t, 9, f.Functions[1].Line)
	assert.Equal(t, 2, f.Functions[1].Complexity)
	assert.Equal(t, 1, f.Functions[6].Complexity)
}

func TestCountedLoop(t *testing.T) {
	t.Parallel()

	f, err := Parse("algo.go", []byte(src))
	require.NoError(t, err)
	tree := f.Tree

	p := proc(t, tree, "sum")
	assert.Equal(t, []string{"a", "n"}, p.Params)
	stmts := tree.Stmts(p.Body)
	require.Len(t, stmts, 3)

	loop, ok := tree.Node(stmts[1]).(*ast.For)
	require.True(t, ok)
	assert.Equal(t, "i", loop.Var)
	assert.False(t, loop.Downto)
	assert.Equal(t, ast.NoNode, loop.Step)
	end := tree.Node(loop.End).(*ast.Binary)
	assert.Equal(t, "-", end.Op)
	assert.Equal(t, "n", tree.Node(end.Left).(*ast.Ident).Name)
	assert.Equal(t, 11, tree.Line(stmts[1]))

	// total += a[i] becomes total = total + a[i]
	body := tree.Stmts(loop.Body)
	require.Len(t, body, 1)
	assign := tree.Node(body[0]).(*ast.Assign)
	assert.Equal(t, "+", tree.Node(assign.Value).(*ast.Binary).Op)

	p = proc(t, tree, "down")
	loop, ok = tree.Node(tree.Stmts(p.Body)[0]).(*ast.For)
	require.True(t, ok)
	assert.True(t, loop.Downto)
	assert.NotEqual(t, ast.NoNode, loop.Step)
	assert.Equal(t, "n", tree.Node(loop.Start).(*ast.Ident).Name)
	assert.Equal(t, ast.KindNumber, tree.Kind(loop.End))
}

func TestWhileLoop(t *testing.T) {
	t.Parallel()

	f, err := Parse("algo.go", []byte(src))
	require.NoError(t, err)
	tree := f.Tree

	p := proc(t, tree, "halve")
	stmts := tree.Stmts(p.Body)
	require.Len(t, stmts, 3)
	loop, ok := tree.Node(stmts[1]).(*ast.While)
	require.True(t, ok)
	assert.Equal(t, ">", tree.Node(loop.Cond).(*ast.Binary).Op)
	assert.Len(t, tree.Stmts(loop.Body), 2)
}

func TestRangeLoops(t *testing.T) {
	t.Parallel()

	f, err := Parse("algo.go", []byte(src))
	require.NoError(t, err)
	tree := f.Tree

	p := proc(t, tree, "each")
	stmts := tree.Stmts(p.Body)
	require.Len(t, stmts, 2)

	overInt := tree.Node(stmts[0]).(*ast.For)
	assert.Equal(t, "i", overInt.Var)
	end := tree.Node(overInt.End).(*ast.Binary)
	assert.Equal(t, ast.KindIdent, tree.Kind(end.Left))

	overSlice := tree.Node(stmts[1]).(*ast.For)
	assert.Equal(t, "_", overSlice.Var)
	end = tree.Node(overSlice.End).(*ast.Binary)
	assert.Equal(t, "len", tree.Node(end.Left).(*ast.Call).Name)

	// the value variable is bound at the top of the body
	body := tree.Stmts(overSlice.Body)
	require.Len(t, body, 2)
	assert.Equal(t, ast.KindAssign, tree.Kind(body[0]))
	assert.Equal(t, ast.KindPrint, tree.Kind(body[1]))
}

func TestUnknownConstructs(t *testing.T) {
	t.Parallel()

	f, err := Parse("algo.go", []byte(src))
	require.NoError(t, err)

	var pick Function
	for _, fn := range f.Functions {
		if fn.Name == "pick" {
			pick = fn
		}
	}
	require.Len(t, pick.Notes, 1)
	assert.Contains(t, pick.Notes[0], "SwitchStmt")

	p := proc(t, f.Tree, "pick")
	unknown, ok := f.Tree.Node(f.Tree.Stmts(p.Body)[0]).(*ast.Unknown)
	require.True(t, ok)
	assert.Equal(t, "*ast.SwitchStmt", unknown.Type)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	_, err := Parse("bad.go", []byte("package"))
	assert.Error(t, err)

	_, err = Parse("types.go", []byte("package p\n\ntype T int\n\nfunc external()\n"))
	assert.ErrorContains(t, err, "no function with a body")
}

const ignoreSrc = `package algo

// helper is not analyzed.
//
//asymptote:ignore generated
func helper(n int) int {
	return n
}

//asymptote:ignore
func debug() {}

func work(n int) int {
	c := helper(n)
	//asymptote:ignore tracing
	for i := 0; i < n; i++ {
		println(i)
	}
	println(c) //asymptote:ignore
	//asymptote:ignored is not a directive
	return c
}
`

func TestIgnoreDirective(t *testing.T) {
	t.Parallel()

	f, err := Parse("ignore.go", []byte(ignoreSrc))
	require.NoError(t, err)

	require.Len(t, f.Functions, 1)
	work := f.Functions[0]
	assert.Equal(t, "work", work.Name)
	assert.Equal(t, []string{"line 16: statement ignored", "line 19: statement ignored"}, work.Notes)

	// ignored functions are still callable
	assert.Len(t, f.Tree.Procedures(), 3)
	p := proc(t, f.Tree, "work")
	stmts := f.Tree.Stmts(p.Body)
	require.Len(t, stmts, 2)
	assert.Equal(t, ast.KindAssign, f.Tree.Kind(stmts[0]))
	assert.Equal(t, ast.KindReturn, f.Tree.Kind(stmts[1]))
}

func TestIgnoreFile(t *testing.T) {
	t.Parallel()

	f, err := Parse("gen.go", []byte("//asymptote:ignore\n\npackage gen\n\nfunc f(n int) int { return n }\n"))
	require.NoError(t, err)
	assert.Empty(t, f.Functions)
	assert.Len(t, f.Tree.Procedures(), 1)
}

package ast

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const linearScan = `{
  "kind": "iterative",
  "procedure": "scan",
  "ast": {
    "type": "Program",
    "body": [
      {"type": "ProcDef", "name": "scan", "params": ["A", "n"], "line": 1, "body": [
        {"type": "Assign", "line": 2, "target": {"type": "Identifier", "name": "s"}, "value": {"type": "Number", "value": 0}},
        {"type": "For", "line": 3, "var": "i", "start": {"type": "Number", "value": 1},
         "end": {"type": "Call", "name": "length", "args": [{"type": "Identifier", "name": "A"}]},
         "body": [
          {"type": "Assign", "line": 4, "target": {"type": "Identifier", "name": "s"},
           "value": {"type": "Binary", "op": "+", "left": {"type": "Identifier", "name": "s"},
                     "right": {"type": "Index", "target": {"type": "Identifier", "name": "A"}, "index": {"type": "Identifier", "name": "i"}}}}
        ]},
        {"type": "Return", "line": 5, "value": {"type": "Identifier", "name": "s"}},
        {"type": "Goto", "line": 6, "label": {"type": "Identifier", "name": "end"}}
      ]}
    ]
  }
}`

func TestDecode(t *testing.T) {
	t.Parallel()
	doc, err := Decode([]byte(linearScan))
	require.NoError(t, err)
	assert.Equal(t, "iterative", doc.Kind)
	assert.Equal(t, "scan", doc.Procedure)

	tree := doc.Tree
	require.Equal(t, KindProgram, tree.Kind(tree.Root))
	proc, id, ok := tree.Main("")
	require.True(t, ok)
	assert.Equal(t, "scan", proc.Name)
	assert.Equal(t, []string{"A", "n"}, proc.Params)
	assert.Equal(t, 1, tree.Line(id))

	stmts := tree.Stmts(proc.Body)
	require.Len(t, stmts, 4)
	assert.Equal(t, KindAssign, tree.Kind(stmts[0]))
	assert.Equal(t, KindFor, tree.Kind(stmts[1]))
	assert.Equal(t, KindReturn, tree.Kind(stmts[2]))

	unknown, ok := tree.Node(stmts[3]).(*Unknown)
	require.True(t, ok)
	assert.Equal(t, "Goto", unknown.Type)
	assert.Len(t, unknown.Children, 1)

	loop := tree.Node(stmts[1]).(*For)
	assert.Equal(t, "i", loop.Var)
	assert.True(t, tree.IsSizeRef(loop.End, Symbols{}))
	end, ok := tree.Symbolic(loop.End, Symbols{})
	require.True(t, ok)
	assert.Equal(t, "n", end.String())
}

func TestDecodeBareNode(t *testing.T) {
	t.Parallel()
	doc, err := Decode([]byte(`{"type": "Block", "statements": [{"type": "Print", "value": "x"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "", doc.Kind)
	require.Equal(t, KindBlock, doc.Tree.Kind(doc.Tree.Root))
	assert.Len(t, doc.Tree.Stmts(doc.Tree.Root), 1)
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()
	_, err := Decode([]byte(`{"type": `))
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = Decode([]byte(`null`))
	assert.True(t, errors.Is(err, ErrInvalidInput))

	deep := strings.Repeat(`{"type": "Unary", "op": "-", "operand": `, MaxDepth+2) + `1` + strings.Repeat(`}`, MaxDepth+2)
	_, err = Decode([]byte(deep))
	assert.True(t, errors.Is(err, ErrDepthExceeded))
}

func TestBuilderLines(t *testing.T) {
	t.Parallel()
	b := NewBuilder()
	body := b.For("i", b.Num(1), b.Ident("n"),
		b.Set("x", b.Bin("+", b.Ident("x"), b.Num(1))),
	)
	ret := b.Return(b.Ident("x"))
	root := b.Program(b.Proc("f", []string{"n"}, body, ret))
	tree := b.Tree(root)

	proc, _, ok := tree.Proc("f")
	require.True(t, ok)
	assert.Equal(t, 1, tree.Line(tree.Procedures()[0]))
	stmts := tree.Stmts(proc.Body)
	assert.Equal(t, 2, tree.Line(stmts[0]))
	inner := tree.Stmts(tree.Node(stmts[0]).(*For).Body)
	assert.Equal(t, 3, tree.Line(inner[0]))
	assert.Equal(t, 4, tree.Line(stmts[1]))
}

func TestSymbolic(t *testing.T) {
	t.Parallel()
	b := NewBuilder()
	half := b.Bin("/", b.Bin("+", b.Ident("lo"), b.Ident("hi")), b.Num(2))
	size := b.Field(b.Ident("A"), "length")
	elem := b.Index(b.Ident("A"), b.Ident("i"))
	mod := b.Bin("%", b.Ident("n"), b.Num(2))
	lg := b.Call("log2", b.Ident("n"))
	tree := b.Tree(b.Block())

	tests := []struct {
		id       NodeID
		expected string
		ok       bool
	}{
		{half, "hi/2 + lo/2", true},
		{size, "n", true},
		{elem, "", false},
		{mod, "", false},
		{lg, "log_2(n)", true},
	}
	for _, tt := range tests {
		got, ok := tree.Symbolic(tt.id, Symbols{})
		require.Equal(t, tt.ok, ok)
		if ok {
			assert.Equal(t, tt.expected, got.String())
		}
	}
}

func TestMainSkipsHelpers(t *testing.T) {
	t.Parallel()
	b := NewBuilder()
	helper := b.Proc("merge", []string{"A"}, b.Return(b.Num(0)))
	sort := b.Proc("sort", []string{"A", "n"},
		b.Call("sort", b.Ident("A"), b.Bin("/", b.Ident("n"), b.Num(2))),
		b.Call("merge", b.Ident("A")),
	)
	tree := b.Tree(b.Program(helper, sort))

	p, id, ok := tree.Main("")
	require.True(t, ok)
	assert.Equal(t, "sort", p.Name)
	assert.True(t, tree.IsRecursive(id))
	assert.Len(t, tree.CallsTo(p.Body, "sort"), 1)

	_, _, ok = tree.Main("missing")
	assert.False(t, ok)
}

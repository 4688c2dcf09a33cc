// Package frontend lowers Go functions into the pseudocode tree analyzed by
// the engine. Counted loops become for nodes, other loops while nodes;
// constructs without a pseudocode counterpart become unknown nodes that
// keep their children. Code marked with IgnoreDirective is left out.
package frontend

import (
	"fmt"
	goast "go/ast"
	"go/parser"
	"go/token"
	"math/big"
	"strconv"

	"github.com/fzipp/gocyclo"
	"golang.org/x/tools/go/ast/astutil"

	"github.com/gnolang/asymptote/internal/ast"
)

// Function describes one lowered function.
type Function struct {
	Name       string
	Line       int
	Complexity int
	// Notes lists the constructs lowered approximately.
	Notes []string
}

// File is a lowered Go source file: one procedure per function with a
// body, in source order. Functions omits ignored functions.
type File struct {
	Tree      *ast.Tree
	Functions []Function
}

// Parse lowers the functions of a Go source file. Methods are named
// Recv.Name; calls through a selector keep only the selected name.
func Parse(filename string, src []byte) (*File, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("error parsing go source: %w", err)
	}
	unparen(f)

	complexity := map[int]int{}
	for _, st := range gocyclo.AnalyzeASTFile(f, fset, nil) {
		complexity[st.Pos.Line] = st.Complexity
	}

	ig := parseIgnores(f, fset)
	l := &lowerer{fset: fset, b: ast.NewBuilder(), ignored: ig.stmts}
	out := &File{}
	var procs []ast.NodeID
	for _, decl := range f.Decls {
		fn, ok := decl.(*goast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}
		name := funcName(fn)
		line := fset.Position(fn.Pos()).Line
		// ignored functions stay in the tree so calls to them resolve
		procs = append(procs, l.proc(name, fn))
		if ig.file || ig.funcs[fn] {
			l.notes = nil
			continue
		}
		out.Functions = append(out.Functions, Function{
			Name:       name,
			Line:       line,
			Complexity: complexity[line],
			Notes:      l.notes,
		})
		l.notes = nil
	}
	if len(procs) == 0 {
		return nil, fmt.Errorf("%s: no function with a body", filename)
	}
	out.Tree = l.b.Tree(l.b.Program(procs...))
	return out, nil
}

// unparen drops parentheses; the tree keeps precedence structurally.
func unparen(f *goast.File) {
	astutil.Apply(f, nil, func(c *astutil.Cursor) bool {
		if p, ok := c.Node().(*goast.ParenExpr); ok {
			c.Replace(p.X)
		}
		return true
	})
}

func funcName(fn *goast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return fn.Name.Name
	}
	t := fn.Recv.List[0].Type
	if s, ok := t.(*goast.StarExpr); ok {
		t = s.X
	}
	if id, ok := t.(*goast.Ident); ok {
		return id.Name + "." + fn.Name.Name
	}
	return fn.Name.Name
}

type lowerer struct {
	fset  *token.FileSet
	b     *ast.Builder
	notes []string
	// integer parameters of the current function, for `range n`
	ints    map[string]bool
	ignored map[goast.Stmt]bool
}

func (l *lowerer) at(n goast.Node) *ast.Builder {
	return l.b.At(l.fset.Position(n.Pos()).Line)
}

func (l *lowerer) note(n goast.Node, format string, args ...any) {
	l.notes = append(l.notes, fmt.Sprintf("line %d: %s", l.fset.Position(n.Pos()).Line, fmt.Sprintf(format, args...)))
}

func (l *lowerer) proc(name string, fn *goast.FuncDecl) ast.NodeID {
	var params []string
	l.ints = map[string]bool{}
	for _, field := range fn.Type.Params.List {
		t, _ := field.Type.(*goast.Ident)
		for _, id := range field.Names {
			params = append(params, id.Name)
			if t != nil && isIntType(t.Name) {
				l.ints[id.Name] = true
			}
		}
	}
	body := l.stmts(fn.Body.List)
	return l.at(fn).Proc(name, params, body...)
}

func (l *lowerer) stmts(list []goast.Stmt) []ast.NodeID {
	var out []ast.NodeID
	for _, s := range list {
		out = append(out, l.stmt(s)...)
	}
	return out
}

func (l *lowerer) stmt(s goast.Stmt) []ast.NodeID {
	if l.ignored[s] {
		l.note(s, "statement ignored")
		return nil
	}
	b := l.at(s)
	switch s := s.(type) {
	case *goast.AssignStmt:
		return l.assign(s)
	case *goast.IncDecStmt:
		op := "+"
		if s.Tok == token.DEC {
			op = "-"
		}
		return []ast.NodeID{b.Assign(l.expr(s.X), b.Bin(op, l.expr(s.X), b.Num(1)))}
	case *goast.ExprStmt:
		if call, ok := s.X.(*goast.CallExpr); ok && isPrint(call) {
			return []ast.NodeID{b.Print(l.exprs(call.Args)...)}
		}
		return []ast.NodeID{l.expr(s.X)}
	case *goast.ReturnStmt:
		if len(s.Results) == 0 {
			return []ast.NodeID{b.Return(ast.NoNode)}
		}
		return []ast.NodeID{b.Return(l.expr(s.Results[0]))}
	case *goast.BlockStmt:
		return []ast.NodeID{b.Block(l.stmts(s.List)...)}
	case *goast.IfStmt:
		var out []ast.NodeID
		if s.Init != nil {
			out = l.stmt(s.Init)
		}
		return append(out, l.ifStmt(s))
	case *goast.ForStmt:
		return l.forStmt(s)
	case *goast.RangeStmt:
		return l.rangeStmt(s)
	case *goast.DeclStmt:
		return l.decl(s)
	case *goast.EmptyStmt:
		return nil
	}
	l.note(s, "%T lowered to an unknown node", s)
	return []ast.NodeID{b.Unknown(fmt.Sprintf("%T", s))}
}

func (l *lowerer) assign(s *goast.AssignStmt) []ast.NodeID {
	b := l.at(s)
	if len(s.Lhs) != len(s.Rhs) {
		l.note(s, "multi-value assignment lowered to an unknown node")
		return []ast.NodeID{b.Unknown("AssignStmt", l.exprs(s.Rhs)...)}
	}
	var out []ast.NodeID
	for i := range s.Lhs {
		value := l.expr(s.Rhs[i])
		if op, ok := opAssign[s.Tok]; ok {
			value = b.Bin(op, l.expr(s.Lhs[i]), value)
		}
		out = append(out, b.Assign(l.expr(s.Lhs[i]), value))
	}
	return out
}

var opAssign = map[token.Token]string{
	token.ADD_ASSIGN: "+",
	token.SUB_ASSIGN: "-",
	token.MUL_ASSIGN: "*",
	token.QUO_ASSIGN: "/",
	token.REM_ASSIGN: "%",
	token.SHL_ASSIGN: "<<",
	token.SHR_ASSIGN: ">>",
}

func (l *lowerer) ifStmt(s *goast.IfStmt) ast.NodeID {
	then := l.stmts(s.Body.List)
	var els []ast.NodeID
	switch e := s.Else.(type) {
	case *goast.BlockStmt:
		els = l.stmts(e.List)
		if els == nil {
			els = []ast.NodeID{}
		}
	case *goast.IfStmt:
		els = l.stmt(e)
	}
	return l.at(s).If(l.expr(s.Cond), then, els)
}

// forStmt recognizes `for i := a; i < b; i++` and its variants as counted
// loops; everything else becomes a while loop with the post statement
// appended to the body.
func (l *lowerer) forStmt(s *goast.ForStmt) []ast.NodeID {
	if v, start, end, step, downto, ok := l.counted(s); ok {
		body := l.stmts(s.Body.List)
		return []ast.NodeID{l.at(s).ForStep(v, start, end, step, downto, body...)}
	}
	var out []ast.NodeID
	if s.Init != nil {
		out = l.stmt(s.Init)
	}
	body := l.stmts(s.Body.List)
	if s.Post != nil {
		body = append(body, l.stmt(s.Post)...)
	}
	b := l.at(s)
	var cond ast.NodeID
	if s.Cond != nil {
		cond = l.expr(s.Cond)
	} else {
		cond = b.Ident("true")
		l.note(s, "unconditional loop")
	}
	return append(out, b.While(cond, body...))
}

func (l *lowerer) counted(s *goast.ForStmt) (v string, start, end, step ast.NodeID, downto, ok bool) {
	init, ok1 := s.Init.(*goast.AssignStmt)
	cond, ok2 := s.Cond.(*goast.BinaryExpr)
	if !ok1 || !ok2 || s.Post == nil || len(init.Lhs) != 1 || len(init.Rhs) != 1 {
		return "", ast.NoNode, ast.NoNode, ast.NoNode, false, false
	}
	id, ok3 := init.Lhs[0].(*goast.Ident)
	cv, ok4 := cond.X.(*goast.Ident)
	if !ok3 || !ok4 || id.Name != cv.Name {
		return "", ast.NoNode, ast.NoNode, ast.NoNode, false, false
	}
	v = id.Name
	b := l.at(s)

	var delta goast.Expr
	inc := true
	switch p := s.Post.(type) {
	case *goast.IncDecStmt:
		if x, ok := p.X.(*goast.Ident); !ok || x.Name != v {
			return "", ast.NoNode, ast.NoNode, ast.NoNode, false, false
		}
		inc = p.Tok == token.INC
	case *goast.AssignStmt:
		x, ok := p.Lhs[0].(*goast.Ident)
		if !ok || x.Name != v || len(p.Rhs) != 1 || (p.Tok != token.ADD_ASSIGN && p.Tok != token.SUB_ASSIGN) {
			return "", ast.NoNode, ast.NoNode, ast.NoNode, false, false
		}
		delta = p.Rhs[0]
		inc = p.Tok == token.ADD_ASSIGN
	default:
		return "", ast.NoNode, ast.NoNode, ast.NoNode, false, false
	}

	bound := l.expr(cond.Y)
	switch {
	case inc && cond.Op == token.LSS, !inc && cond.Op == token.GTR:
		// exclusive bound
		op := "-"
		if !inc {
			op = "+"
		}
		end = b.Bin(op, bound, b.Num(1))
	case inc && cond.Op == token.LEQ, !inc && cond.Op == token.GEQ:
		end = bound
	default:
		return "", ast.NoNode, ast.NoNode, ast.NoNode, false, false
	}
	step = ast.NoNode
	if delta != nil {
		step = l.expr(delta)
	}
	return v, l.expr(init.Rhs[0]), end, step, !inc, true
}

func (l *lowerer) rangeStmt(s *goast.RangeStmt) []ast.NodeID {
	body := l.stmts(s.Body.List)
	b := l.at(s)
	v := "_"
	if id, ok := s.Key.(*goast.Ident); ok {
		v = id.Name
	}
	var end ast.NodeID
	if l.isInt(s.X) {
		end = b.Bin("-", l.expr(s.X), b.Num(1))
	} else {
		end = b.Bin("-", b.Call("len", l.expr(s.X)), b.Num(1))
	}
	if id, ok := s.Value.(*goast.Ident); ok && id.Name != "_" {
		elem := b.Set(id.Name, b.Index(l.expr(s.X), b.Ident(v)))
		body = append([]ast.NodeID{elem}, body...)
	}
	return []ast.NodeID{b.For(v, b.Num(0), end, body...)}
}

// isInt reports whether a range expression is an integer: a literal or an
// integer parameter.
func (l *lowerer) isInt(x goast.Expr) bool {
	switch x := x.(type) {
	case *goast.BasicLit:
		return x.Kind == token.INT
	case *goast.Ident:
		return l.ints[x.Name]
	}
	return false
}

func isIntType(name string) bool {
	switch name {
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
		return true
	}
	return false
}

func (l *lowerer) decl(s *goast.DeclStmt) []ast.NodeID {
	gd, ok := s.Decl.(*goast.GenDecl)
	if !ok || gd.Tok != token.VAR {
		return nil
	}
	var out []ast.NodeID
	for _, spec := range gd.Specs {
		vs := spec.(*goast.ValueSpec)
		for i, name := range vs.Names {
			b := l.at(name)
			if i < len(vs.Values) {
				out = append(out, b.Set(name.Name, l.expr(vs.Values[i])))
				continue
			}
			size := ast.NoNode
			if at, ok := vs.Type.(*goast.ArrayType); ok && at.Len != nil {
				size = l.expr(at.Len)
			}
			out = append(out, b.Decl(name.Name, size))
		}
	}
	return out
}

func (l *lowerer) exprs(list []goast.Expr) []ast.NodeID {
	out := make([]ast.NodeID, 0, len(list))
	for _, e := range list {
		out = append(out, l.expr(e))
	}
	return out
}

func (l *lowerer) expr(e goast.Expr) ast.NodeID {
	b := l.at(e)
	switch e := e.(type) {
	case *goast.Ident:
		return b.Ident(e.Name)
	case *goast.BasicLit:
		if e.Kind == token.INT {
			if v, err := strconv.ParseInt(e.Value, 0, 64); err == nil {
				return b.Num(v)
			}
		}
		if e.Kind == token.FLOAT {
			if r, ok := new(big.Rat).SetString(e.Value); ok && r.IsInt() {
				return b.Num(r.Num().Int64())
			}
		}
		return b.Unknown("BasicLit")
	case *goast.BinaryExpr:
		return b.Bin(e.Op.String(), l.expr(e.X), l.expr(e.Y))
	case *goast.UnaryExpr:
		return b.Unary(e.Op.String(), l.expr(e.X))
	case *goast.IndexExpr:
		return b.Index(l.expr(e.X), l.expr(e.Index))
	case *goast.SelectorExpr:
		return b.Field(l.expr(e.X), e.Sel.Name)
	case *goast.CallExpr:
		switch fn := e.Fun.(type) {
		case *goast.Ident:
			return b.Call(fn.Name, l.exprs(e.Args)...)
		case *goast.SelectorExpr:
			return b.Call(fn.Sel.Name, l.exprs(e.Args)...)
		}
		return b.Unknown("CallExpr", l.exprs(e.Args)...)
	case *goast.SliceExpr:
		return b.Unknown("SliceExpr", l.expr(e.X))
	case *goast.StarExpr:
		return l.expr(e.X)
	}
	return b.Unknown(fmt.Sprintf("%T", e))
}

func isPrint(call *goast.CallExpr) bool {
	switch fn := call.Fun.(type) {
	case *goast.Ident:
		return fn.Name == "println" || fn.Name == "print"
	case *goast.SelectorExpr:
		if pkg, ok := fn.X.(*goast.Ident); ok && pkg.Name == "fmt" {
			switch fn.Sel.Name {
			case "Println", "Printf", "Print":
				return true
			}
		}
	}
	return false
}

package ast

import "math/big"

// Builder assembles trees in code, for the Go frontend and for tests.
type Builder struct {
	tree *Tree
	line int
}

func NewBuilder() *Builder { return &Builder{tree: NewTree()} }

// At sets the source line given to the nodes created next. Nodes created
// while the line is 0 are numbered by Tree in source order.
func (b *Builder) At(line int) *Builder {
	b.line = line
	return b
}

func (b *Builder) add(n Node) NodeID {
	n.header().pos = Pos{Line: b.line}
	return b.tree.Add(n)
}

func (b *Builder) Ident(name string) NodeID { return b.add(&Ident{Name: name}) }

func (b *Builder) Num(v int64) NodeID {
	return b.add(&Number{Value: new(big.Rat).SetInt64(v)})
}

func (b *Builder) Bin(op string, l, r NodeID) NodeID {
	return b.add(&Binary{Op: op, Left: l, Right: r})
}

func (b *Builder) Unary(op string, x NodeID) NodeID {
	return b.add(&Unary{Op: op, Operand: x})
}

func (b *Builder) Index(target, index NodeID) NodeID {
	return b.add(&Index{Target: target, Index: index})
}

func (b *Builder) Field(target NodeID, name string) NodeID {
	return b.add(&Field{Target: target, Name: name})
}

// Call builds a call; it serves both as a statement and as an expression.
func (b *Builder) Call(name string, args ...NodeID) NodeID {
	return b.add(&Call{Name: name, Args: args})
}

func (b *Builder) Assign(target, value NodeID) NodeID {
	return b.add(&Assign{Target: target, Value: value})
}

// Set is Assign to a plain variable.
func (b *Builder) Set(name string, value NodeID) NodeID {
	return b.Assign(b.Ident(name), value)
}

func (b *Builder) Print(args ...NodeID) NodeID { return b.add(&Print{Args: args}) }

func (b *Builder) Return(value NodeID) NodeID { return b.add(&Return{Value: value}) }

func (b *Builder) Decl(name string, size NodeID) NodeID {
	return b.add(&Decl{Name: name, Size: size, Value: NoNode})
}

func (b *Builder) Unknown(typ string, children ...NodeID) NodeID {
	return b.add(&Unknown{Type: typ, Children: children})
}

func (b *Builder) Block(stmts ...NodeID) NodeID { return b.add(&Block{Stmts: stmts}) }

// For builds `for v = start to end` with step 1.
func (b *Builder) For(v string, start, end NodeID, body ...NodeID) NodeID {
	return b.ForStep(v, start, end, NoNode, false, body...)
}

func (b *Builder) ForStep(v string, start, end, step NodeID, downto bool, body ...NodeID) NodeID {
	return b.add(&For{Var: v, Start: start, End: end, Step: step, Downto: downto, Body: b.Block(body...)})
}

func (b *Builder) While(cond NodeID, body ...NodeID) NodeID {
	return b.add(&While{Cond: cond, Body: b.Block(body...)})
}

func (b *Builder) Repeat(until NodeID, body ...NodeID) NodeID {
	return b.add(&Repeat{Body: b.Block(body...), Cond: until})
}

// If builds a conditional; a nil els leaves the else branch absent.
func (b *Builder) If(cond NodeID, then []NodeID, els []NodeID) NodeID {
	e := NoNode
	if els != nil {
		e = b.Block(els...)
	}
	return b.add(&If{Cond: cond, Then: b.Block(then...), Else: e})
}

func (b *Builder) Proc(name string, params []string, body ...NodeID) NodeID {
	return b.add(&ProcDef{Name: name, Params: params, Body: b.Block(body...)})
}

func (b *Builder) Program(items ...NodeID) NodeID { return b.add(&Program{Body: items}) }

// Tree finalizes the tree rooted at root. Statements without a line are
// numbered in source order after the highest explicit line; expressions
// inherit the line of their statement.
func (b *Builder) Tree(root NodeID) *Tree {
	t := b.tree
	t.Root = root
	next := 1
	for _, n := range t.nodes {
		next = max(next, n.Pos().Line+1)
	}
	var number func(id NodeID, cur int, stmt bool)
	number = func(id NodeID, cur int, stmt bool) {
		n := t.Node(id)
		if n == nil {
			return
		}
		h := n.header()
		if h.pos.Line == 0 {
			if stmt {
				h.pos.Line = next
				next++
			} else {
				h.pos.Line = cur
			}
		}
		k := n.Kind()
		for _, c := range t.Children(id) {
			number(c, h.pos.Line, k == KindBlock || k == KindProgram)
		}
	}
	number(root, 0, false)
	return t
}

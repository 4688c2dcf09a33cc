// Package ast holds the pseudocode syntax tree consumed by the analyses.
//
// Nodes live in an arena owned by a Tree and refer to each other by NodeID,
// so a node's identity is a small integer that stays stable for the life of
// the tree.
package ast

import (
	"fmt"
	"math/big"
)

// NodeID indexes a node inside its Tree.
type NodeID int

// NoNode marks an absent optional child.
const NoNode NodeID = -1

// MaxDepth bounds the nesting accepted by the decoder and the walkers.
const MaxDepth = 256

type Kind int

const (
	KindUnknown Kind = iota
	KindProgram
	KindBlock
	KindProcDef
	KindFor
	KindWhile
	KindRepeat
	KindIf
	KindAssign
	KindCall
	KindPrint
	KindReturn
	KindDecl
	KindIdent
	KindNumber
	KindBinary
	KindUnary
	KindIndex
	KindField
)

var kindNames = [...]string{
	KindUnknown: "unknown",
	KindProgram: "program",
	KindBlock:   "block",
	KindProcDef: "procedure",
	KindFor:     "for",
	KindWhile:   "while",
	KindRepeat:  "repeat",
	KindIf:      "if",
	KindAssign:  "assign",
	KindCall:    "call",
	KindPrint:   "print",
	KindReturn:  "return",
	KindDecl:    "decl",
	KindIdent:   "identifier",
	KindNumber:  "number",
	KindBinary:  "binary",
	KindUnary:   "unary",
	KindIndex:   "index",
	KindField:   "field",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// IsStatement reports whether nodes of this kind occupy a line of their own.
func (k Kind) IsStatement() bool {
	switch k {
	case KindFor, KindWhile, KindRepeat, KindIf, KindAssign, KindCall,
		KindPrint, KindReturn, KindDecl, KindUnknown:
		return true
	}
	return false
}

// Pos is a source position. Zero values mean unknown.
type Pos struct {
	Line   int
	Column int
}

// Node is one of the concrete node types below.
type Node interface {
	Kind() Kind
	Pos() Pos
	header() *nodeHeader
}

type nodeHeader struct {
	pos Pos
}

func (h *nodeHeader) Pos() Pos            { return h.pos }
func (h *nodeHeader) header() *nodeHeader { return h }

type (
	Program struct {
		nodeHeader
		Body []NodeID
	}

	Block struct {
		nodeHeader
		Stmts []NodeID
	}

	ProcDef struct {
		nodeHeader
		Name   string
		Params []string
		Body   NodeID
	}

	// For iterates Var from Start to End inclusive, by Step (NoNode for 1).
	For struct {
		nodeHeader
		Var    string
		Start  NodeID
		End    NodeID
		Step   NodeID
		Downto bool
		Body   NodeID
	}

	While struct {
		nodeHeader
		Cond NodeID
		Body NodeID
	}

	// Repeat runs Body until Cond holds; the body runs at least once.
	Repeat struct {
		nodeHeader
		Body NodeID
		Cond NodeID
	}

	If struct {
		nodeHeader
		Cond NodeID
		Then NodeID
		Else NodeID
	}

	Assign struct {
		nodeHeader
		Target NodeID
		Value  NodeID
	}

	Call struct {
		nodeHeader
		Name string
		Args []NodeID
	}

	Print struct {
		nodeHeader
		Args []NodeID
	}

	Return struct {
		nodeHeader
		Value NodeID
	}

	// Decl declares Name, optionally as an array of Size elements.
	Decl struct {
		nodeHeader
		Name  string
		Size  NodeID
		Value NodeID
	}

	Ident struct {
		nodeHeader
		Name string
	}

	Number struct {
		nodeHeader
		Value *big.Rat
	}

	Binary struct {
		nodeHeader
		Op    string
		Left  NodeID
		Right NodeID
	}

	Unary struct {
		nodeHeader
		Op      string
		Operand NodeID
	}

	Index struct {
		nodeHeader
		Target NodeID
		Index  NodeID
	}

	Field struct {
		nodeHeader
		Target NodeID
		Name   string
	}

	// Unknown stands in for node types the analyses do not model.
	Unknown struct {
		nodeHeader
		Type     string
		Children []NodeID
	}
)

func (*Program) Kind() Kind { return KindProgram }
func (*Block) Kind() Kind   { return KindBlock }
func (*ProcDef) Kind() Kind { return KindProcDef }
func (*For) Kind() Kind     { return KindFor }
func (*While) Kind() Kind   { return KindWhile }
func (*Repeat) Kind() Kind  { return KindRepeat }
func (*If) Kind() Kind      { return KindIf }
func (*Assign) Kind() Kind  { return KindAssign }
func (*Call) Kind() Kind    { return KindCall }
func (*Print) Kind() Kind   { return KindPrint }
func (*Return) Kind() Kind  { return KindReturn }
func (*Decl) Kind() Kind    { return KindDecl }
func (*Ident) Kind() Kind   { return KindIdent }
func (*Number) Kind() Kind  { return KindNumber }
func (*Binary) Kind() Kind  { return KindBinary }
func (*Unary) Kind() Kind   { return KindUnary }
func (*Index) Kind() Kind   { return KindIndex }
func (*Field) Kind() Kind   { return KindField }
func (*Unknown) Kind() Kind { return KindUnknown }

// Tree is an arena of nodes with a distinguished root.
type Tree struct {
	nodes []Node
	Root  NodeID
}

func NewTree() *Tree { return &Tree{Root: NoNode} }

// Add stores n and returns its id.
func (t *Tree) Add(n Node) NodeID {
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

// Node returns the node with the given id, or nil for NoNode.
func (t *Tree) Node(id NodeID) Node {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return t.nodes[id]
}

func (t *Tree) Len() int { return len(t.nodes) }

// Kind returns the kind of the node, KindUnknown for NoNode.
func (t *Tree) Kind(id NodeID) Kind {
	if n := t.Node(id); n != nil {
		return n.Kind()
	}
	return KindUnknown
}

// Line returns the source line of the node, 0 when unknown.
func (t *Tree) Line(id NodeID) int {
	if n := t.Node(id); n != nil {
		return n.Pos().Line
	}
	return 0
}

// Children returns the direct children of a node in source order.
func (t *Tree) Children(id NodeID) []NodeID {
	var out []NodeID
	add := func(ids ...NodeID) {
		for _, c := range ids {
			if c != NoNode {
				out = append(out, c)
			}
		}
	}
	switch n := t.Node(id).(type) {
	case *Program:
		add(n.Body...)
	case *Block:
		add(n.Stmts...)
	case *ProcDef:
		add(n.Body)
	case *For:
		add(n.Start, n.End, n.Step, n.Body)
	case *While:
		add(n.Cond, n.Body)
	case *Repeat:
		add(n.Body, n.Cond)
	case *If:
		add(n.Cond, n.Then, n.Else)
	case *Assign:
		add(n.Target, n.Value)
	case *Call:
		add(n.Args...)
	case *Print:
		add(n.Args...)
	case *Return:
		add(n.Value)
	case *Decl:
		add(n.Size, n.Value)
	case *Binary:
		add(n.Left, n.Right)
	case *Unary:
		add(n.Operand)
	case *Index:
		add(n.Target, n.Index)
	case *Field:
		add(n.Target)
	case *Unknown:
		add(n.Children...)
	case *Ident, *Number, nil:
	}
	return out
}

// Inspect walks the subtree rooted at id in pre-order. Returning false from
// fn skips the node's children.
func (t *Tree) Inspect(id NodeID, fn func(NodeID, Node) bool) {
	n := t.Node(id)
	if n == nil || !fn(id, n) {
		return
	}
	for _, c := range t.Children(id) {
		t.Inspect(c, fn)
	}
}

// Stmts returns the statements of a block-like node: the statements of a
// Block, the body of a Program, or the node itself as a single statement.
func (t *Tree) Stmts(id NodeID) []NodeID {
	switch n := t.Node(id).(type) {
	case nil:
		return nil
	case *Block:
		return n.Stmts
	case *Program:
		return n.Body
	}
	return []NodeID{id}
}

// Depth returns the nesting depth of the subtree rooted at id.
func (t *Tree) Depth(id NodeID) int {
	d := 0
	for _, c := range t.Children(id) {
		d = max(d, t.Depth(c))
	}
	if t.Node(id) == nil {
		return 0
	}
	return d + 1
}

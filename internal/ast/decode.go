package ast

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
)

var (
	ErrDepthExceeded = errors.New("ast nesting exceeds maximum depth")
	ErrInvalidInput  = errors.New("invalid ast input")
)

// Document is a decoded parser payload: the tree plus the optional
// algorithm-kind label and procedure name supplied with it.
type Document struct {
	Kind      string
	Procedure string
	Tree      *Tree
}

type envelope struct {
	Kind      string          `json:"kind"`
	Procedure string          `json:"procedure"`
	AST       json.RawMessage `json:"ast"`
}

type rawNode struct {
	Type       string            `json:"type"`
	Line       int               `json:"line"`
	Column     int               `json:"column"`
	Name       json.RawMessage   `json:"name"`
	Params     []json.RawMessage `json:"params"`
	Var        json.RawMessage   `json:"var"`
	Start      json.RawMessage   `json:"start"`
	End        json.RawMessage   `json:"end"`
	Step       json.RawMessage   `json:"step"`
	Downto     bool              `json:"downto"`
	Cond       json.RawMessage   `json:"cond"`
	Then       json.RawMessage   `json:"then"`
	Else       json.RawMessage   `json:"else"`
	Body       json.RawMessage   `json:"body"`
	Target     json.RawMessage   `json:"target"`
	Value      json.RawMessage   `json:"value"`
	Args       []json.RawMessage `json:"args"`
	Op         string            `json:"op"`
	Left       json.RawMessage   `json:"left"`
	Right      json.RawMessage   `json:"right"`
	Operand    json.RawMessage   `json:"operand"`
	Index      json.RawMessage   `json:"index"`
	Field      string            `json:"field"`
	Size       json.RawMessage   `json:"size"`
	Statements []json.RawMessage `json:"statements"`
}

// Decode reads either an envelope {"kind", "procedure", "ast"} or a bare
// node object.
func Decode(data []byte) (*Document, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	doc := &Document{Kind: strings.ToLower(env.Kind), Procedure: env.Procedure}
	payload := data
	if len(env.AST) > 0 {
		payload = env.AST
	}
	d := &decoder{tree: NewTree()}
	root, err := d.node(payload, 0)
	if err != nil {
		return nil, err
	}
	if root == NoNode {
		return nil, fmt.Errorf("%w: empty tree", ErrInvalidInput)
	}
	d.tree.Root = root
	doc.Tree = d.tree
	return doc, nil
}

type decoder struct {
	tree *Tree
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func (d *decoder) node(raw json.RawMessage, depth int) (NodeID, error) {
	if isNull(raw) {
		return NoNode, nil
	}
	if depth > MaxDepth {
		return NoNode, ErrDepthExceeded
	}
	raw = bytes.TrimSpace(raw)
	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return NoNode, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		stmts, err := d.list(items, depth+1)
		if err != nil {
			return NoNode, err
		}
		return d.tree.Add(&Block{Stmts: stmts}), nil
	case '"':
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return NoNode, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return d.tree.Add(&Ident{Name: name}), nil
	case '{':
	default:
		r, ok := new(big.Rat).SetString(string(raw))
		if !ok {
			return NoNode, fmt.Errorf("%w: unexpected value %s", ErrInvalidInput, raw)
		}
		return d.tree.Add(&Number{Value: r}), nil
	}

	var rn rawNode
	if err := json.Unmarshal(raw, &rn); err != nil {
		return NoNode, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	n, err := d.build(&rn, raw, depth)
	if err != nil {
		return NoNode, err
	}
	n.header().pos = Pos{Line: rn.Line, Column: rn.Column}
	return d.tree.Add(n), nil
}

func (d *decoder) list(items []json.RawMessage, depth int) ([]NodeID, error) {
	out := make([]NodeID, 0, len(items))
	for _, it := range items {
		id, err := d.node(it, depth)
		if err != nil {
			return nil, err
		}
		if id != NoNode {
			out = append(out, id)
		}
	}
	return out, nil
}

func (d *decoder) build(rn *rawNode, raw json.RawMessage, depth int) (Node, error) {
	var err error
	child := func(r json.RawMessage) NodeID {
		if err != nil {
			return NoNode
		}
		var id NodeID
		id, err = d.node(r, depth+1)
		return id
	}
	children := func(rs []json.RawMessage) []NodeID {
		if err != nil {
			return nil
		}
		var ids []NodeID
		ids, err = d.list(rs, depth+1)
		return ids
	}

	var n Node
	switch normalizeType(rn.Type) {
	case "program":
		body := rn.Body
		if isNull(body) && rn.Statements != nil {
			n = &Program{Body: children(rn.Statements)}
			break
		}
		n = &Program{Body: d.tree.Stmts(child(body))}
	case "block":
		stmts := rn.Statements
		if stmts == nil && !isNull(rn.Body) {
			if json.Unmarshal(rn.Body, &stmts) != nil {
				stmts = []json.RawMessage{rn.Body}
			}
		}
		n = &Block{Stmts: children(stmts)}
	case "procdef":
		params := make([]string, 0, len(rn.Params))
		for _, p := range rn.Params {
			params = append(params, nameOf(p))
		}
		n = &ProcDef{Name: nameOf(rn.Name), Params: params, Body: child(rn.Body)}
	case "for":
		n = &For{
			Var:    nameOf(rn.Var),
			Start:  child(rn.Start),
			End:    child(rn.End),
			Step:   child(rn.Step),
			Downto: rn.Downto,
			Body:   child(rn.Body),
		}
	case "while":
		n = &While{Cond: child(rn.Cond), Body: child(rn.Body)}
	case "repeat":
		n = &Repeat{Body: child(rn.Body), Cond: child(rn.Cond)}
	case "if":
		n = &If{Cond: child(rn.Cond), Then: child(rn.Then), Else: child(rn.Else)}
	case "assign":
		n = &Assign{Target: child(rn.Target), Value: child(rn.Value)}
	case "call":
		n = &Call{Name: nameOf(rn.Name), Args: children(rn.Args)}
	case "print":
		args := rn.Args
		if args == nil && !isNull(rn.Value) {
			args = []json.RawMessage{rn.Value}
		}
		n = &Print{Args: children(args)}
	case "return":
		n = &Return{Value: child(rn.Value)}
	case "decl":
		n = &Decl{Name: nameOf(rn.Name), Size: child(rn.Size), Value: child(rn.Value)}
	case "identifier":
		n = &Ident{Name: nameOf(rn.Name)}
	case "number":
		v, ok := new(big.Rat).SetString(strings.Trim(string(bytes.TrimSpace(rn.Value)), `"`))
		if !ok {
			v = new(big.Rat)
		}
		n = &Number{Value: v}
	case "binary":
		n = &Binary{Op: strings.ToLower(rn.Op), Left: child(rn.Left), Right: child(rn.Right)}
	case "unary":
		n = &Unary{Op: strings.ToLower(rn.Op), Operand: child(rn.Operand)}
	case "index":
		n = &Index{Target: child(rn.Target), Index: child(rn.Index)}
	case "field":
		name := rn.Field
		if name == "" {
			name = nameOf(rn.Name)
		}
		n = &Field{Target: child(rn.Target), Name: name}
	default:
		n = &Unknown{Type: rn.Type, Children: d.unknownChildren(raw, depth, &err)}
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// unknownChildren keeps every object-valued field of an unrecognized node so
// the walkers can still see calls nested inside it.
func (d *decoder) unknownChildren(raw json.RawMessage, depth int, errp *error) []NodeID {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []NodeID
	for _, k := range keys {
		v := bytes.TrimSpace(fields[k])
		if len(v) == 0 || (v[0] != '{' && v[0] != '[') {
			continue
		}
		id, err := d.node(v, depth+1)
		if err != nil {
			*errp = err
			return nil
		}
		if id != NoNode {
			out = append(out, id)
		}
	}
	return out
}

func normalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	switch t {
	case "procedure", "function", "procdef", "proc", "funcdef":
		return "procdef"
	case "ident", "identifier", "var", "variable":
		return "identifier"
	case "literal", "number", "num", "int", "integer":
		return "number"
	case "binop", "binary", "binaryop", "compare", "condition":
		return "binary"
	case "unop", "unary", "not":
		return "unary"
	case "arrayaccess", "index", "subscript":
		return "index"
	case "field", "fieldaccess", "attribute", "member":
		return "field"
	case "assignment", "assign":
		return "assign"
	case "declaration", "decl", "vardecl", "arraydecl":
		return "decl"
	case "callstmt", "call", "callexpr", "proccall":
		return "call"
	}
	return t
}

// nameOf accepts a bare string or an Identifier-like object.
func nameOf(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Name
	}
	return ""
}

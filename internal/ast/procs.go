package ast

// Procedures returns the procedure definitions reachable from the root in
// source order.
func (t *Tree) Procedures() []NodeID {
	var out []NodeID
	t.Inspect(t.Root, func(id NodeID, n Node) bool {
		if _, ok := n.(*ProcDef); ok {
			out = append(out, id)
			return false
		}
		return n.Kind() == KindProgram || n.Kind() == KindBlock
	})
	return out
}

// Proc looks up a procedure by name.
func (t *Tree) Proc(name string) (*ProcDef, NodeID, bool) {
	for _, id := range t.Procedures() {
		p := t.Node(id).(*ProcDef)
		if p.Name == name {
			return p, id, true
		}
	}
	return nil, NoNode, false
}

// Main picks the procedure to analyze: the named one when name is set,
// otherwise the first procedure that is not called by another one, falling
// back to the first procedure.
func (t *Tree) Main(name string) (*ProcDef, NodeID, bool) {
	if name != "" {
		return t.Proc(name)
	}
	procs := t.Procedures()
	if len(procs) == 0 {
		return nil, NoNode, false
	}
	called := map[string]bool{}
	for _, id := range procs {
		p := t.Node(id).(*ProcDef)
		for _, c := range t.Calls(p.Body) {
			if callee := t.Node(c).(*Call).Name; callee != p.Name {
				called[callee] = true
			}
		}
	}
	for _, id := range procs {
		if p := t.Node(id).(*ProcDef); !called[p.Name] {
			return p, id, true
		}
	}
	return t.Node(procs[0]).(*ProcDef), procs[0], true
}

// Calls returns every call node in the subtree, statement or expression.
func (t *Tree) Calls(id NodeID) []NodeID {
	var out []NodeID
	t.Inspect(id, func(cid NodeID, n Node) bool {
		if _, ok := n.(*Call); ok {
			out = append(out, cid)
		}
		return true
	})
	return out
}

// CallsTo returns the calls to the named procedure inside the subtree.
func (t *Tree) CallsTo(id NodeID, name string) []NodeID {
	var out []NodeID
	for _, c := range t.Calls(id) {
		if t.Node(c).(*Call).Name == name {
			out = append(out, c)
		}
	}
	return out
}

// IsRecursive reports whether the procedure calls itself.
func (t *Tree) IsRecursive(id NodeID) bool {
	p, ok := t.Node(id).(*ProcDef)
	return ok && len(t.CallsTo(p.Body, p.Name)) > 0
}

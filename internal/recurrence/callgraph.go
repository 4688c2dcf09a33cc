package recurrence

import (
	"slices"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/gnolang/asymptote/internal/ast"
)

// CallGraph links the procedures of a program to the procedures they call.
// Self calls are kept aside since simple graphs have no self loops.
type CallGraph struct {
	g        *simple.DirectedGraph
	nameToID map[string]int64
	idToName map[int64]string
	self     map[string]bool
}

func NewCallGraph(tree *ast.Tree) *CallGraph {
	cg := &CallGraph{
		g:        simple.NewDirectedGraph(),
		nameToID: make(map[string]int64),
		idToName: make(map[int64]string),
		self:     make(map[string]bool),
	}
	procs := tree.Procedures()
	for i, id := range procs {
		name := tree.Node(id).(*ast.ProcDef).Name
		nid := int64(i)
		cg.nameToID[name] = nid
		cg.idToName[nid] = name
		cg.g.AddNode(simple.Node(nid))
	}
	for _, id := range procs {
		p := tree.Node(id).(*ast.ProcDef)
		from := cg.nameToID[p.Name]
		for _, c := range tree.Calls(p.Body) {
			callee := tree.Node(c).(*ast.Call).Name
			to, ok := cg.nameToID[callee]
			switch {
			case !ok:
			case to == from:
				cg.self[p.Name] = true
			default:
				cg.g.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
			}
		}
	}
	return cg
}

// Callees returns the procedures called by name, sorted.
func (cg *CallGraph) Callees(name string) []string {
	id, ok := cg.nameToID[name]
	if !ok {
		return nil
	}
	var out []string
	it := cg.g.From(id)
	for it.Next() {
		out = append(out, cg.idToName[it.Node().ID()])
	}
	slices.Sort(out)
	return out
}

// CallsItself reports a direct self call.
func (cg *CallGraph) CallsItself(name string) bool { return cg.self[name] }

// Cycle returns the strongly connected component holding name when it has
// more than one procedure: a set of mutually recursive procedures.
func (cg *CallGraph) Cycle(name string) []string {
	id, ok := cg.nameToID[name]
	if !ok {
		return nil
	}
	for _, scc := range topo.TarjanSCC(cg.g) {
		if len(scc) < 2 {
			continue
		}
		var names []string
		found := false
		for _, n := range scc {
			found = found || n.ID() == id
			names = append(names, cg.idToName[n.ID()])
		}
		if found {
			slices.Sort(names)
			return names
		}
	}
	return nil
}

// Recursive reports whether name can reach itself, directly or through
// other procedures.
func (cg *CallGraph) Recursive(name string) bool {
	return cg.CallsItself(name) || len(cg.Cycle(name)) > 0
}

// Order lists the procedures reachable from name callees first, the order
// in which auxiliary work is estimated.
func (cg *CallGraph) Order(name string) []string {
	id, ok := cg.nameToID[name]
	if !ok {
		return nil
	}
	reach := map[int64]bool{id: true}
	stack := []int64{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		it := cg.g.From(cur)
		for it.Next() {
			if nid := it.Node().ID(); !reach[nid] {
				reach[nid] = true
				stack = append(stack, nid)
			}
		}
	}
	// TarjanSCC returns components in reverse topological order
	var out []string
	for _, scc := range topo.TarjanSCC(cg.g) {
		var names []string
		for _, n := range scc {
			if reach[n.ID()] {
				names = append(names, cg.idToName[n.ID()])
			}
		}
		slices.Sort(names)
		out = append(out, names...)
	}
	return out
}

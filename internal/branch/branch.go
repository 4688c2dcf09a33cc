package branch

import "github.com/gnolang/asymptote/internal/ast"

// Branch stores the information of one arm of an if statement.
type Branch struct {
	BranchKind
	// HasLoop is set when the arm contains a loop.
	HasLoop bool
	// Stmts is the number of statements directly in the arm.
	Stmts int
}

// BlockBranch classifies a block by its last statement.
func BlockBranch(tree *ast.Tree, id ast.NodeID) Branch {
	if tree.Node(id) == nil {
		return Empty.Branch()
	}
	stmts := tree.Stmts(id)
	if len(stmts) == 0 {
		return Empty.Branch()
	}

	b := StmtBranch(tree, stmts[len(stmts)-1])
	b.Stmts = len(stmts)
	b.HasLoop = hasLoop(tree, id)

	return b
}

func StmtBranch(tree *ast.Tree, id ast.NodeID) Branch {
	switch tree.Node(id).(type) {
	case *ast.Return:
		return Return.Branch()
	case *ast.Block:
		return BlockBranch(tree, id)
	case *ast.Call:
		if kind, ok := CallKind(tree, id); ok {
			return kind.Branch()
		}
	case *ast.If:
		// an if deviates only when both arms do
		chain := IfChain(tree, id)
		if chain.If.Deviates() && chain.Else.Deviates() {
			return Return.Branch()
		}
	case nil:
		return Empty.Branch()
	}

	return Regular.Branch()
}

// Terminates reports whether running the block always leaves the procedure.
func Terminates(tree *ast.Tree, id ast.NodeID) bool {
	return BlockBranch(tree, id).Deviates()
}

// ContainsReturn reports whether a return or exit appears anywhere inside
// the subtree, not counting nested procedure definitions.
func ContainsReturn(tree *ast.Tree, id ast.NodeID) bool {
	found := false
	tree.Inspect(id, func(cid ast.NodeID, n ast.Node) bool {
		switch n.(type) {
		case *ast.ProcDef:
			return cid == id
		case *ast.Return:
			found = true
		case *ast.Call:
			if _, ok := CallKind(tree, cid); ok {
				found = true
			}
		}
		return !found
	})
	return found
}

func hasLoop(tree *ast.Tree, id ast.NodeID) bool {
	found := false
	tree.Inspect(id, func(_ ast.NodeID, n ast.Node) bool {
		switch n.Kind() {
		case ast.KindFor, ast.KindWhile, ast.KindRepeat:
			found = true
		}
		return !found
	})
	return found
}

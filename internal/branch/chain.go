package branch

import "github.com/gnolang/asymptote/internal/ast"

// Chain describes both arms of an if statement.
type Chain struct {
	If   Branch
	Else Branch
	// HasElse is false when the else arm is absent, which counts as Empty.
	HasElse bool
}

func IfChain(tree *ast.Tree, id ast.NodeID) Chain {
	n, ok := tree.Node(id).(*ast.If)
	if !ok {
		return Chain{If: Empty.Branch(), Else: Empty.Branch()}
	}
	return Chain{
		If:      BlockBranch(tree, n.Then),
		Else:    BlockBranch(tree, n.Else),
		HasElse: n.Else != ast.NoNode,
	}
}

// EarlyExit reports whether exactly one arm leaves the procedure, the
// shape of a guard such as `if A[i] = x then return i`.
func (c Chain) EarlyExit() bool {
	return c.If.Deviates() != c.Else.Deviates()
}

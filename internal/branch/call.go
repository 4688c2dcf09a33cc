package branch

import (
	"strings"

	"github.com/gnolang/asymptote/internal/ast"
)

// DeviatingCalls lists pseudocode calls that never return to the caller.
var DeviatingCalls = map[string]BranchKind{
	"exit":  Exit,
	"halt":  Exit,
	"abort": Exit,
	"error": Exit,
	"panic": Exit,
	"throw": Exit,
}

// CallKind reports the deviation of a call statement, if any.
func CallKind(tree *ast.Tree, id ast.NodeID) (BranchKind, bool) {
	call, ok := tree.Node(id).(*ast.Call)
	if !ok {
		return Regular, false
	}
	kind, ok := DeviatingCalls[strings.ToLower(call.Name)]
	return kind, ok
}

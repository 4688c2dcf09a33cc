package branch

type BranchKind int

const (
	Empty BranchKind = iota

	// Return branches return from the current procedure
	Return

	// Exit branches stop the whole program (exit, halt, error)
	Exit

	// Regular branches not categorized as any of the above
	Regular
)

func (k BranchKind) IsEmpty() bool  { return k == Empty }
func (k BranchKind) Returns() bool  { return k == Return }
func (k BranchKind) Branch() Branch { return Branch{BranchKind: k} }

func (k BranchKind) Deviates() bool {
	switch k {
	case Empty, Regular:
		return false
	case Return, Exit:
		return true
	default:
		panic("unreachable")
	}
}

func (k BranchKind) String() string {
	switch k {
	case Empty:
		return ""
	case Regular:
		return "..."
	case Return:
		return "... return"
	case Exit:
		return "... exit()"
	default:
		panic("invalid kind")
	}
}

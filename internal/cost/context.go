package cost

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/gnolang/asymptote/internal/ast"
	"github.com/gnolang/asymptote/internal/expr"
	"github.com/gnolang/asymptote/internal/types"
)

// multiplier is one entry of the loop context: a plain repetition count, or
// a summation over the induction variable of a for loop.
type multiplier struct {
	count expr.Expr

	v      string
	lo, hi expr.Expr
}

func plain(count expr.Expr) multiplier { return multiplier{count: count} }

func over(v string, lo, hi expr.Expr) multiplier {
	return multiplier{v: v, lo: lo, hi: hi}
}

func (m multiplier) String() string {
	if m.v == "" {
		return m.count.String()
	}
	return "Σ[" + m.v + "=" + m.lo.String() + ".." + m.hi.String() + "]"
}

// frame is the state a subtree is visited under. The outermost multiplier
// comes first and becomes the outermost summation.
type frame struct {
	loops []multiplier
	// env holds the last symbolic value assigned to each variable, used to
	// find the initial value of a while loop counter.
	env map[string]expr.Expr
	// bindings maps parameters of an inlined procedure to the call arguments.
	bindings map[string]expr.Expr
	// calls is the stack of inlined procedures.
	calls []string
}

func (f frame) push(m multiplier) frame {
	f.loops = append(slices.Clip(f.loops), m)
	return f
}

func (f frame) assign(name string, value expr.Expr) frame {
	env := maps.Clone(f.env)
	if env == nil {
		env = map[string]expr.Expr{}
	}
	if value == nil {
		delete(env, name)
	} else {
		env[name] = value
	}
	f.env = env
	return f
}

// wrap places base under every active multiplier.
func (f frame) wrap(base expr.Expr) expr.Expr {
	e := base
	for i := len(f.loops) - 1; i >= 0; i-- {
		m := f.loops[i]
		if m.v == "" {
			e = expr.MulOf(m.count, e)
			continue
		}
		e = expr.SumOf(e, m.v, m.lo, m.hi)
	}
	return e
}

// inLoop reports whether any multiplier is active.
func (f frame) inLoop() bool { return len(f.loops) > 0 }

func (f frame) onStack(name string) bool { return slices.Contains(f.calls, name) }

// hash digests everything a memoized subtree result depends on.
func (f frame) hash() uint64 {
	var sb strings.Builder
	for _, m := range f.loops {
		sb.WriteString(m.String())
		sb.WriteByte('|')
	}
	writeEnv(&sb, "env", f.env)
	writeEnv(&sb, "bind", f.bindings)
	sb.WriteString(strings.Join(f.calls, ","))
	return xxhash.Sum64String(sb.String())
}

func writeEnv(sb *strings.Builder, tag string, env map[string]expr.Expr) {
	sb.WriteString(tag)
	for _, k := range slices.Sorted(maps.Keys(env)) {
		sb.WriteString(";" + k + "=" + env[k].String())
	}
	sb.WriteByte('|')
}

// MemoKey identifies a subtree visit.
type MemoKey struct {
	Node    ast.NodeID
	Mode    types.Mode
	Context uint64
}

func (k MemoKey) String() string {
	return strconv.Itoa(int(k.Node)) + "/" + string(k.Mode) + "/" + strconv.FormatUint(k.Context, 16)
}

// memoEntry is a snapshot of the rows produced for a subtree.
type memoEntry struct {
	rows  []row
	exits bool
}

func (e memoEntry) clone() memoEntry {
	return memoEntry{rows: slices.Clone(e.rows), exits: e.exits}
}

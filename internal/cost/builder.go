// Package cost builds the per-line cost table of an iterative procedure:
// one row per visited statement with a fresh cost constant and its
// execution count under the active loop multipliers.
package cost

import (
	"fmt"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/gnolang/asymptote/internal/analysis/lattice"
	"github.com/gnolang/asymptote/internal/asymptotic"
	"github.com/gnolang/asymptote/internal/ast"
	"github.com/gnolang/asymptote/internal/branch"
	"github.com/gnolang/asymptote/internal/expr"
	"github.com/gnolang/asymptote/internal/probability"
	"github.com/gnolang/asymptote/internal/types"
)

// Row kinds.
const (
	KindAssign = "assign"
	KindFor    = "for"
	KindWhile  = "while"
	KindRepeat = "repeat"
	KindIf     = "if"
	KindCall   = "call"
	KindReturn = "return"
	KindDecl   = "decl"
	KindPrint  = "print"
	KindOther  = "other"
)

type Options struct {
	Symbols     ast.Symbols
	Probability probability.Model
	Logger      *zap.Logger
}

// Builder walks a tree and accumulates cost rows. A Builder belongs to a
// single analysis session and must not be shared between goroutines.
type Builder struct {
	tree *ast.Tree
	opts Options
	log  *zap.Logger

	memo map[MemoKey]memoEntry
	// trip-count placeholders by name, kept alongside the memo
	placeholders map[string]string

	// per run
	mode      types.Mode
	next      int
	decisions int
	depth     int
	hits      int
	meta      types.Totals
	hyps      []string
}

func NewBuilder(tree *ast.Tree, opts Options) *Builder {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	b := &Builder{tree: tree, opts: opts, log: log}
	b.Reset()
	return b
}

// Reset drops the memo table and every per-run counter.
func (b *Builder) Reset() {
	b.memo = make(map[MemoKey]memoEntry)
	b.placeholders = make(map[string]string)
	b.start(types.Worst)
}

func (b *Builder) start(mode types.Mode) {
	b.mode = mode
	b.next = 0
	b.decisions = 0
	b.depth = 0
	b.hits = 0
	b.meta = types.Totals{}
	b.hyps = nil
}

// row is a cost row before its count is closed.
type row struct {
	line   int
	kind   string
	consts []string
	raw    expr.Expr
	note   string
}

// Build runs one analysis of the subtree rooted at root, a procedure or a
// whole program, in the given mode. Memo entries of earlier runs survive
// until Reset; their keys carry the mode.
func (b *Builder) Build(root ast.NodeID, mode types.Mode) (*Table, error) {
	if mode != types.Worst && mode != types.Best && mode != types.Average {
		return nil, types.Errorf(types.CodeInvalidInput, "cost table needs a single mode, got %q", mode)
	}
	b.start(mode)

	f := frame{}
	if p, ok := b.tree.Node(root).(*ast.ProcDef); ok {
		f.calls = []string{p.Name}
	}
	e, err := b.visit(root, f)
	if err != nil {
		return nil, err
	}
	b.log.Debug("cost rows built",
		zap.String("mode", string(mode)),
		zap.Int("rows", len(e.rows)),
		zap.Int("constants", b.next),
		zap.Int("memo_hits", b.hits))
	return b.assemble(e.rows), nil
}

// MemoHits is the number of subtree visits served from the memo table in
// the last run.
func (b *Builder) MemoHits() int { return b.hits }

func (b *Builder) sizeVar() string {
	if b.opts.Symbols.SizeVar == "" {
		return "n"
	}
	return b.opts.Symbols.SizeVar
}

func memoizable(k ast.Kind) bool {
	switch k {
	case ast.KindBlock, ast.KindFor, ast.KindIf, ast.KindWhile, ast.KindRepeat,
		ast.KindProcDef, ast.KindProgram:
		return true
	}
	return false
}

func (b *Builder) visit(id ast.NodeID, f frame) (memoEntry, error) {
	n := b.tree.Node(id)
	if n == nil {
		return memoEntry{}, nil
	}
	b.depth++
	defer func() { b.depth-- }()
	if b.depth > ast.MaxDepth {
		return memoEntry{}, types.Errorf(types.CodeDepthExceeded,
			"statement nesting exceeds %d at line %d", ast.MaxDepth, b.tree.Line(id))
	}
	if !memoizable(n.Kind()) {
		return b.dispatch(id, n, f)
	}

	key := MemoKey{Node: id, Mode: b.mode, Context: f.hash()}
	if e, ok := b.memo[key]; ok {
		b.hits++
		b.log.Debug("memo hit", zap.Stringer("key", key), zap.Int("line", b.tree.Line(id)))
		return b.renumber(e.clone()), nil
	}
	e, err := b.dispatch(id, n, f)
	if err != nil {
		return memoEntry{}, err
	}
	b.memo[key] = e.clone()
	return e, nil
}

func (b *Builder) dispatch(id ast.NodeID, n ast.Node, f frame) (memoEntry, error) {
	switch n := n.(type) {
	case *ast.Program:
		return b.block(n.Body, f)
	case *ast.Block:
		return b.block(n.Stmts, f)
	case *ast.ProcDef:
		return b.procedure(n, f)
	case *ast.For:
		return b.forLoop(id, n, f)
	case *ast.While:
		return b.whileLoop(id, n.Cond, n.Body, KindWhile, f)
	case *ast.Repeat:
		return b.whileLoop(id, n.Cond, n.Body, KindRepeat, f)
	case *ast.If:
		return b.ifStmt(id, n, f)
	case *ast.Assign:
		return b.simple(id, KindAssign, f)
	case *ast.Call:
		return b.simple(id, KindCall, f)
	case *ast.Print:
		return b.simple(id, KindPrint, f)
	case *ast.Return:
		return b.simple(id, KindReturn, f)
	case *ast.Decl:
		return b.simple(id, KindDecl, f)
	case *ast.Ident, *ast.Number, *ast.Binary, *ast.Unary, *ast.Index, *ast.Field:
		return b.simple(id, KindOther, f)
	case *ast.Unknown:
		err := types.Errorf(types.CodeUnsupportedNodeKind, "node type %q at line %d", n.Type, b.tree.Line(id))
		b.meta.Note("%s; counted as one constant-cost line", err)
		e, _ := b.simple(id, KindOther, f)
		e.rows[0].note = fmt.Sprintf("unsupported node %q", n.Type)
		return e, nil
	default:
		return memoEntry{}, types.Errorf(types.CodeUnsupportedNodeKind, "unexpected node %T", n)
	}
}

// block visits statements in order. Once a statement leaves the procedure
// on the analyzed path, the statements after it keep their rows with count 0.
func (b *Builder) block(stmts []ast.NodeID, f frame) (memoEntry, error) {
	var out memoEntry
	for _, s := range stmts {
		if b.tree.Kind(s) == ast.KindProcDef {
			continue
		}
		e, err := b.visit(s, f)
		if err != nil {
			return memoEntry{}, err
		}
		if out.exits {
			e.rows = scale(e.rows, expr.Zero, "unreachable after an early exit")
		}
		out.rows = append(out.rows, e.rows...)
		out.exits = out.exits || e.exits
		f = b.track(s, f)
	}
	return out, nil
}

// track records the symbolic value of plain assignments and forgets
// variables written inside compound statements.
func (b *Builder) track(id ast.NodeID, f frame) frame {
	if a, ok := b.tree.Node(id).(*ast.Assign); ok {
		if v, ok := b.tree.Node(a.Target).(*ast.Ident); ok {
			x, ok := b.symbolic(a.Value, f)
			if !ok || expr.Contains(x, v.Name) {
				return f.assign(v.Name, nil)
			}
			return f.assign(v.Name, x)
		}
		return f
	}
	b.tree.Inspect(id, func(_ ast.NodeID, n ast.Node) bool {
		switch n := n.(type) {
		case *ast.Assign:
			if name := b.tree.Name(n.Target); name != "" {
				f = f.assign(name, nil)
			}
		case *ast.For:
			f = f.assign(n.Var, nil)
		}
		return true
	})
	return f
}

func (b *Builder) procedure(p *ast.ProcDef, f frame) (memoEntry, error) {
	for _, param := range p.Params {
		if v, ok := f.bindings[param]; ok {
			f = f.assign(param, v)
		} else {
			f = f.assign(param, expr.Symbol(param))
		}
	}
	e, err := b.visit(p.Body, f)
	if err != nil {
		return memoEntry{}, err
	}
	// a return ends the procedure, not its caller
	e.exits = false
	return e, nil
}

// symbolic converts an expression node, replacing the parameters of an
// inlined procedure by the caller's arguments.
func (b *Builder) symbolic(id ast.NodeID, f frame) (expr.Expr, bool) {
	e, ok := b.tree.Symbolic(id, b.opts.Symbols)
	if !ok {
		return nil, false
	}
	if len(f.bindings) == 0 {
		return e, true
	}
	names := slices.Sorted(maps.Keys(f.bindings))
	for _, k := range names {
		e = expr.Replace(e, k, expr.Symbol("'"+k))
	}
	for _, k := range names {
		e = expr.Replace(e, "'"+k, f.bindings[k])
	}
	return expr.Simplify(e), true
}

// ops counts the operations of an expression subtree: index and field
// accesses, binary and unary operators, and calls.
func (b *Builder) ops(id ast.NodeID) int {
	n := 0
	b.tree.Inspect(id, func(cid ast.NodeID, node ast.Node) bool {
		switch node.(type) {
		case *ast.Index, *ast.Field, *ast.Binary, *ast.Unary, *ast.Call:
			if !b.tree.IsSizeRef(cid, b.opts.Symbols) {
				n++
			}
		}
		return true
	})
	return n
}

// renumber gives the rows of a reused snapshot fresh constants so that no
// two rows of a table share one.
func (b *Builder) renumber(e memoEntry) memoEntry {
	for i := range e.rows {
		if len(e.rows[i].consts) > 0 {
			e.rows[i].consts = b.fresh(len(e.rows[i].consts))
		}
	}
	return e
}

// fresh allocates k new cost constants.
func (b *Builder) fresh(k int) []string {
	out := make([]string, max(k, 1))
	for i := range out {
		b.next++
		out[i] = fmt.Sprintf("C%d", b.next)
	}
	return out
}

func (b *Builder) header(id ast.NodeID, kind string, count expr.Expr, f frame, parts ...ast.NodeID) row {
	k := 1
	for _, p := range parts {
		k += b.ops(p)
	}
	return row{
		line:   b.tree.Line(id),
		kind:   kind,
		consts: b.fresh(k),
		raw:    f.wrap(count),
	}
}

func (b *Builder) simple(id ast.NodeID, kind string, f frame) (memoEntry, error) {
	k := 1
	if kind == KindCall {
		k = b.ops(id)
	} else {
		for _, c := range b.tree.Children(id) {
			k += b.ops(c)
		}
	}
	out := memoEntry{rows: []row{{
		line:   b.tree.Line(id),
		kind:   kind,
		consts: b.fresh(k),
		raw:    f.wrap(expr.One),
	}}}

	for _, c := range b.tree.Calls(id) {
		rows, err := b.inline(c, f)
		if err != nil {
			return memoEntry{}, err
		}
		out.rows = append(out.rows, rows...)
	}
	out.exits = kind == KindReturn || branch.StmtBranch(b.tree, id).Deviates()
	return out, nil
}

// inline adds the cost of a call to a procedure defined in the program,
// visited under the caller's loop context with its parameters bound to the
// arguments.
func (b *Builder) inline(id ast.NodeID, f frame) ([]row, error) {
	call := b.tree.Node(id).(*ast.Call)
	if b.tree.IsSizeRef(id, b.opts.Symbols) {
		return nil, nil
	}
	p, pid, ok := b.tree.Proc(call.Name)
	if !ok {
		return nil, nil
	}
	if f.onStack(p.Name) {
		b.meta.Note("recursive call to %s at line %d counted as one operation", p.Name, b.tree.Line(id))
		return nil, nil
	}
	callee := frame{loops: f.loops, calls: append(slices.Clip(f.calls), p.Name)}
	for i, param := range p.Params {
		if i >= len(call.Args) {
			break
		}
		if x, ok := b.symbolic(call.Args[i], f); ok {
			if callee.bindings == nil {
				callee.bindings = map[string]expr.Expr{}
			}
			callee.bindings[param] = x
		}
	}
	e, err := b.visit(pid, callee)
	if err != nil {
		return nil, err
	}
	return e.rows, nil
}

func (b *Builder) forLoop(id ast.NodeID, n *ast.For, f frame) (memoEntry, error) {
	t := b.forTrip(id, n, f)
	b.placeholder(t, id, KindFor)
	body, count, exits := b.loopShape(t, id, n.Body, expr.AddOf(t.count, expr.One))

	h := b.header(id, KindFor, count, f, n.Start, n.End, n.Step)
	h.note = t.how
	e, err := b.visit(n.Body, f.push(body).assign(n.Var, nil))
	if err != nil {
		return memoEntry{}, err
	}
	return memoEntry{rows: append([]row{h}, e.rows...), exits: exits}, nil
}

func (b *Builder) whileLoop(id, cond, bodyID ast.NodeID, kind string, f frame) (memoEntry, error) {
	t := b.conditionalTrip(id, cond, bodyID, kind == KindRepeat, f)
	b.placeholder(t, id, kind)
	// a while guard is checked once more than the body runs; a repeat
	// guard once per iteration
	checks := expr.AddOf(t.count, expr.One)
	if kind == KindRepeat {
		checks = t.count
	}
	body, count, exits := b.loopShape(t, id, bodyID, checks)

	h := b.header(id, kind, count, f, cond)
	h.note = t.how
	e, err := b.visit(bodyID, f.push(body))
	if err != nil {
		return memoEntry{}, err
	}
	return memoEntry{rows: append([]row{h}, e.rows...), exits: exits}, nil
}

// loopShape decides how often the body of a loop and its guard run. A loop
// whose body can return leaves on its first iteration in the best case and
// after the expected number of iterations in the average case.
func (b *Builder) loopShape(t trip, id, body ast.NodeID, checks expr.Expr) (multiplier, expr.Expr, bool) {
	if !branch.ContainsReturn(b.tree, body) {
		return t.multiplier(), checks, false
	}
	switch b.mode {
	case types.Best:
		b.meta.Note("loop at line %d exits on its first iteration in the best case", b.tree.Line(id))
		return t.first(), expr.One, true
	case types.Average:
		sym := b.decision()
		e := b.opts.Probability.ExpectedIterations(t.count, sym)
		b.meta.Note("loop at line %d runs %s iterations on average", b.tree.Line(id), e)
		return t.expected(e), e, false
	}
	return t.multiplier(), checks, false
}

func (b *Builder) placeholder(t trip, id ast.NodeID, kind string) {
	if t.placeholder == "" {
		return
	}
	line := b.tree.Line(id)
	desc := fmt.Sprintf("number of iterations of the %s loop at line %d", kind, line)
	b.placeholders[t.placeholder] = desc
	b.meta.AddSymbol(t.placeholder, desc)
	b.meta.Note("no closed bound for the %s loop at line %d; its iteration count is %s", kind, line, t.placeholder)
}

// decision allocates the probability symbol of the next decision point.
func (b *Builder) decision() string {
	sym := b.opts.Probability.SymbolName(b.decisions)
	b.decisions++
	if b.opts.Probability.IsSymbolic() {
		b.meta.AddSymbol(sym, "probability of the branch taken at a decision point")
		h := probability.Hypothesis(sym)
		if !slices.Contains(b.hyps, h) {
			b.hyps = append(b.hyps, h)
		}
	}
	return sym
}

func (b *Builder) ifStmt(id ast.NodeID, n *ast.If, f frame) (memoEntry, error) {
	h := b.header(id, KindIf, expr.One, f, n.Cond)
	then, err := b.visit(n.Then, f)
	if err != nil {
		return memoEntry{}, err
	}
	els, err := b.visit(n.Else, f)
	if err != nil {
		return memoEntry{}, err
	}
	chain := branch.IfChain(b.tree, id)

	out := memoEntry{rows: []row{h}}
	switch b.mode {
	case types.Average:
		w := b.opts.Probability.BranchWeights(2, b.decision())
		out.rows = append(out.rows, scale(then.rows, w[0], "weighted by "+w[0].String())...)
		out.rows = append(out.rows, scale(els.rows, w[1], "weighted by "+w[1].String())...)
		out.exits = then.exits && els.exits && chain.HasElse
		return out, nil
	}

	takeThen := b.pick(then, els, chain)
	note := fmt.Sprintf("branch not taken in the %s case", b.mode)
	if takeThen {
		els.rows = scale(els.rows, expr.Zero, note)
		out.exits = then.exits
	} else {
		then.rows = scale(then.rows, expr.Zero, note)
		out.exits = els.exits
	}
	out.rows = append(out.rows, then.rows...)
	out.rows = append(out.rows, els.rows...)
	return out, nil
}

// pick reports whether the then branch is the one analyzed. The worst case
// avoids an early exit and otherwise takes the costlier branch; the best
// case takes the early exit and otherwise the cheaper branch.
func (b *Builder) pick(then, els memoEntry, chain branch.Chain) bool {
	if chain.EarlyExit() {
		thenExits := chain.If.Deviates()
		if b.mode == types.Best {
			return thenExits
		}
		return !thenExits
	}
	c := b.compare(then.rows, els.rows)
	if b.mode == types.Best {
		return c < 0
	}
	return c >= 0
}

type weight struct {
	growth lattice.Growth
	known  bool
	ops    int
}

// compare orders two row sets by the growth of their total count, then by
// the number of operations.
func (b *Builder) compare(x, y []row) int {
	wx, wy := b.weigh(x), b.weigh(y)
	switch {
	case wx.known != wy.known:
		if wx.known {
			return -1
		}
		return 1
	}
	if c := lattice.Compare(wx.growth, wy.growth); c != 0 {
		return c
	}
	switch {
	case wx.ops < wy.ops:
		return -1
	case wx.ops > wy.ops:
		return 1
	}
	return 0
}

func (b *Builder) weigh(rows []row) weight {
	w := weight{growth: lattice.Bottom, known: true}
	var terms []expr.Expr
	for _, r := range rows {
		if expr.IsZero(r.raw) {
			continue
		}
		closed, _ := expr.EvaluateSums(r.raw)
		terms = append(terms, closed)
		w.ops += len(r.consts)
	}
	if len(terms) == 0 {
		return w
	}
	w.growth, w.known = asymptotic.Growth(expr.AddOf(terms...), b.sizeVar())
	return w
}

// scale multiplies the counts of rows by factor.
func scale(rows []row, factor expr.Expr, note string) []row {
	out := make([]row, len(rows))
	for i, r := range rows {
		r.raw = expr.MulOf(factor, r.raw)
		if r.note == "" {
			r.note = note
		}
		out[i] = r
	}
	return out
}

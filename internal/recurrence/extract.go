// Package recurrence extracts T(n) = a·T(n/b) + f(n) or
// T(n) = Σ c_i·T(n-i) + g(n) from a recursive procedure and selects the
// method that solves it.
package recurrence

import (
	"fmt"
	"math/big"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/gnolang/asymptote/internal/asymptotic"
	"github.com/gnolang/asymptote/internal/ast"
	"github.com/gnolang/asymptote/internal/branch"
	"github.com/gnolang/asymptote/internal/cost"
	"github.com/gnolang/asymptote/internal/expr"
	"github.com/gnolang/asymptote/internal/types"
)

type Options struct {
	Symbols ast.Symbols
	Logger  *zap.Logger
}

// Extraction is a recurrence with the evidence it was read from.
type Extraction struct {
	Recurrence *types.Recurrence
	Procedure  string
	Calls      []Call
	// Size names the parameters carrying the input size: "n" or "lo..hi".
	Size  string
	Proof types.Proof
	Notes []string
}

func (x *Extraction) note(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if !slices.Contains(x.Notes, msg) {
		x.Notes = append(x.Notes, msg)
	}
}

// candidate is a reading of the input size: one parameter, or a pair
// (lo, hi) with size hi - lo + 1.
type candidate struct {
	lo, hi string
}

func (c candidate) pair() bool { return c.hi != "" }

func (c candidate) String() string {
	if c.pair() {
		return c.lo + ".." + c.hi
	}
	return c.lo
}

// span is the placeholder for hi - lo while arguments are classified.
const span = "'span"

type extractor struct {
	tree  *ast.Tree
	opts  Options
	log   *zap.Logger
	proc  *ast.ProcDef
	pid   ast.NodeID
	defs  map[string]expr.Expr
	calls []ast.NodeID
	out   *Extraction
}

// Extract reads the recurrence of the procedure at proc.
func Extract(tree *ast.Tree, proc ast.NodeID, opts Options) (*Extraction, error) {
	p, ok := tree.Node(proc).(*ast.ProcDef)
	if !ok {
		return nil, types.Errorf(types.CodeNoMainProcedureFound, "node %d is not a procedure", proc)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	x := &extractor{
		tree:  tree,
		opts:  opts,
		log:   log,
		proc:  p,
		pid:   proc,
		calls: tree.CallsTo(p.Body, p.Name),
		out:   &Extraction{Procedure: p.Name},
	}
	if len(x.calls) == 0 {
		return nil, types.Errorf(types.CodeNoRecursiveCallFound, "procedure %s never calls itself", p.Name)
	}
	if cycle := NewCallGraph(tree).Cycle(p.Name); len(cycle) > 0 {
		x.out.note("%s is mutually recursive with %s; only calls to %s are analyzed",
			p.Name, strings.Join(slices.DeleteFunc(cycle, func(s string) bool { return s == p.Name }), ", "), p.Name)
	}
	x.defs = x.definitions()

	cand, calls, err := x.classifyCalls()
	if err != nil {
		return nil, err
	}
	x.out.Calls = calls
	x.out.Size = cand.String()

	byID := make(map[ast.NodeID]Call, len(calls))
	for _, c := range calls {
		byID[c.ID] = c
	}
	counts, exclusive, err := x.multiplicity(p.Body, byID)
	if err != nil {
		return nil, err
	}
	work, err := x.work(cand)
	if err != nil {
		return nil, err
	}
	n0, guardLine := x.baseCase(cand)

	v := x.sizeVar()
	rec := &types.Recurrence{Work: work, BaseCase: n0, SizeVar: v}
	if calls[0].Shape == Divide {
		rec.Form = types.DivideConquer
		rec.B = int(calls[0].Factor)
		for _, c := range counts {
			rec.A += int(c)
		}
	} else {
		rec.Form = types.LinearShift
		rec.Coefficients = make(map[int]int64, len(counts))
		for k, c := range counts {
			rec.Coefficients[int(k)] = c
		}
	}
	rec.EarlyExit = x.earlyExit()

	proof := &x.out.Proof
	descr := make([]string, len(calls))
	for i, c := range calls {
		descr[i] = fmt.Sprintf("%s(%s) at line %d", p.Name, c.Size, c.Line)
	}
	proof.Add("calls", "recursive calls: %s", strings.Join(descr, ", "))
	for _, c := range calls {
		proof.Add("size", "line %d: subproblem size %s (%s by %d, %s)", c.Line, c.Size, c.Shape, c.Factor, c.Via)
	}
	switch {
	case exclusive:
		proof.Add("multiplicity", "calls in exclusive branches count once: %d recursive term(s)", rec.Calls())
	default:
		proof.Add("multiplicity", "sequential calls add: %d recursive term(s)", rec.Calls())
	}
	proof.Add("work", "non-recursive work f(%s) = %s", v, work)
	if guardLine > 0 {
		proof.Add("base", "base case n0 = %d from the guard at line %d", n0, guardLine)
	} else {
		proof.Add("base", "no base case guard found; n0 = %d assumed", n0)
		x.out.note("no base case guard found; n0 = %d assumed", n0)
	}
	if rec.EarlyExit {
		proof.Add("early-exit", "a data-dependent return precedes the recursive calls")
	}
	proof.Add("recurrence", "%s", rec)

	x.out.Recurrence = rec
	x.log.Debug("recurrence extracted",
		zap.String("procedure", p.Name),
		zap.String("size", x.out.Size),
		zap.Stringer("recurrence", rec))
	return x.out, nil
}

func (x *extractor) sizeVar() string {
	if x.opts.Symbols.SizeVar == "" {
		return "n"
	}
	return x.opts.Symbols.SizeVar
}

// definitions collects the locals assigned exactly once with a symbolic
// value, such as mid = (lo + hi) / 2.
func (x *extractor) definitions() map[string]expr.Expr {
	count := map[string]int{}
	vals := map[string]expr.Expr{}
	x.tree.Inspect(x.proc.Body, func(_ ast.NodeID, n ast.Node) bool {
		switch n := n.(type) {
		case *ast.ProcDef:
			return false
		case *ast.Assign:
			name := x.tree.Name(n.Target)
			if _, ok := x.tree.Node(n.Target).(*ast.Ident); !ok || name == "" {
				return true
			}
			count[name]++
			if e, ok := x.tree.Symbolic(n.Value, x.opts.Symbols); ok {
				vals[name] = e
			}
		case *ast.Decl:
			if n.Value != ast.NoNode {
				count[n.Name]++
				if e, ok := x.tree.Symbolic(n.Value, x.opts.Symbols); ok {
					vals[n.Name] = e
				}
			}
		}
		return true
	})
	defs := map[string]expr.Expr{}
	for name, e := range vals {
		if count[name] != 1 || slices.Contains(x.proc.Params, name) || expr.Contains(e, name) {
			continue
		}
		defs[name] = e
	}
	return defs
}

// resolve inlines the single-assignment locals of e.
func (x *extractor) resolve(e expr.Expr) (expr.Expr, bool) {
	via := false
	for range 8 {
		changed := false
		for _, s := range expr.Free(e) {
			if d, ok := x.defs[s]; ok {
				e = expr.Replace(e, s, d)
				changed, via = true, true
			}
		}
		if !changed {
			break
		}
	}
	return expr.Simplify(e), via
}

func (x *extractor) candidates() []candidate {
	params := x.proc.Params
	var first, singles, pairs []candidate
	for _, p := range params {
		if p == x.sizeVar() {
			first = append(first, candidate{lo: p})
		} else {
			singles = append(singles, candidate{lo: p})
		}
	}
	for i := range params {
		for j := i + 1; j < len(params); j++ {
			pairs = append(pairs, candidate{lo: params[i], hi: params[j]})
		}
	}
	return slices.Concat(first, pairs, singles)
}

// classifyCalls finds the parameter reading under which every self call
// shrinks the input the same way.
func (x *extractor) classifyCalls() (candidate, []Call, error) {
	var mixed, undetermined *types.AnalysisError
	for _, cand := range x.candidates() {
		calls := make([]Call, 0, len(x.calls))
		for _, id := range x.calls {
			c, ok := x.classifyCall(id, cand)
			if !ok {
				break
			}
			calls = append(calls, c)
		}
		if len(calls) != len(x.calls) {
			continue
		}
		shapes := map[Shape]bool{}
		divisors := map[int64]bool{}
		for _, c := range calls {
			shapes[c.Shape] = true
			if c.Shape == Divide {
				divisors[c.Factor] = true
			}
		}
		switch {
		case len(shapes) > 1:
			if mixed == nil {
				mixed = types.Errorf(types.CodeMixedSubproblemTypes,
					"%s mixes division and subtraction over %s", x.proc.Name, cand)
			}
			continue
		case len(divisors) > 1:
			if undetermined == nil {
				undetermined = types.Errorf(types.CodeSubproblemSizeUndetermined,
					"%s divides %s by different factors", x.proc.Name, cand)
			}
			continue
		}
		return cand, calls, nil
	}
	if mixed != nil {
		return candidate{}, nil, mixed
	}
	if undetermined != nil {
		return candidate{}, nil, undetermined
	}
	return candidate{}, nil, types.Errorf(types.CodeSubproblemSizeUndetermined,
		"cannot relate the arguments of the calls to %s to any of its parameters", x.proc.Name)
}

func (x *extractor) arg(call *ast.Call, param string) (expr.Expr, bool, bool) {
	i := slices.Index(x.proc.Params, param)
	if i < 0 || i >= len(call.Args) {
		return nil, false, false
	}
	e, ok := x.tree.Symbolic(call.Args[i], x.opts.Symbols)
	if !ok {
		return nil, false, false
	}
	e, via := x.resolve(e)
	return e, via, true
}

func (x *extractor) classifyCall(id ast.NodeID, cand candidate) (Call, bool) {
	call := x.tree.Node(id).(*ast.Call)
	c := Call{ID: id, Line: x.tree.Line(id)}
	var size expr.Expr
	var v string
	if cand.pair() {
		lo, viaLo, ok := x.arg(call, cand.lo)
		if !ok {
			return c, false
		}
		hi, viaHi, ok := x.arg(call, cand.hi)
		if !ok {
			return c, false
		}
		// hi - lo of the callee, with hi = lo + span in the caller
		size = expr.Substitute(expr.Sub(hi, lo), cand.hi, expr.AddOf(expr.Symbol(cand.lo), expr.Symbol(span)))
		v = span
		c.Via = "index range"
		if viaLo || viaHi {
			c.Via = "range halving"
		}
	} else {
		a, via, ok := x.arg(call, cand.lo)
		if !ok {
			return c, false
		}
		size, v = a, cand.lo
		c.Via = "argument"
		if via {
			c.Via = "intermediate assignment"
		}
	}
	shape, factor, ok := classify(size, v)
	if !ok {
		return c, false
	}
	c.Shape, c.Factor = shape, factor
	c.Size = sizeOf(shape, factor, x.sizeVar())
	return c, true
}

type counts map[int64]int64

func (c counts) total() int64 {
	var t int64
	for _, v := range c {
		t += v
	}
	return t
}

func (c counts) add(o counts) counts {
	out := counts{}
	for k, v := range c {
		out[k] += v
	}
	for k, v := range o {
		out[k] += v
	}
	return out
}

func (c counts) scale(k int64) counts {
	out := counts{}
	for key, v := range c {
		out[key] = v * k
	}
	return out
}

// multiplicity counts the recursive terms of a subtree per factor:
// sequential calls add, exclusive branches take the larger side, and
// loops of constant length multiply.
func (x *extractor) multiplicity(id ast.NodeID, calls map[ast.NodeID]Call) (counts, bool, error) {
	if id == ast.NoNode {
		return counts{}, false, nil
	}
	switch n := x.tree.Node(id).(type) {
	case *ast.Block:
		return x.sequence(n.Stmts, calls)
	case *ast.Program:
		return x.sequence(n.Body, calls)
	case *ast.ProcDef:
		return counts{}, false, nil
	case *ast.If:
		cond := x.direct(n.Cond, calls)
		then, ex1, err := x.multiplicity(n.Then, calls)
		if err != nil {
			return nil, false, err
		}
		els, ex2, err := x.multiplicity(n.Else, calls)
		if err != nil {
			return nil, false, err
		}
		exclusive := ex1 || ex2 || (then.total() > 0 && els.total() > 0)
		pick := then
		if els.total() > then.total() {
			pick = els
		}
		return cond.add(pick), exclusive, nil
	case *ast.For:
		body, ex, err := x.multiplicity(n.Body, calls)
		if err != nil || body.total() == 0 {
			return body, ex, err
		}
		k, ok := x.constantTrip(n)
		if !ok {
			return nil, false, types.Errorf(types.CodeSubproblemSizeUndetermined,
				"recursive call inside a loop of variable length at line %d", x.tree.Line(id))
		}
		return body.scale(k), ex, nil
	case *ast.While, *ast.Repeat:
		body, ex, err := x.sequence(x.tree.Children(id), calls)
		if err != nil || body.total() == 0 {
			return body, ex, err
		}
		return nil, false, types.Errorf(types.CodeSubproblemSizeUndetermined,
			"recursive call inside a conditional loop at line %d", x.tree.Line(id))
	}
	return x.direct(id, calls), false, nil
}

func (x *extractor) sequence(stmts []ast.NodeID, calls map[ast.NodeID]Call) (counts, bool, error) {
	out := counts{}
	exclusive := false
	for _, s := range stmts {
		c, ex, err := x.multiplicity(s, calls)
		if err != nil {
			return nil, false, err
		}
		out = out.add(c)
		exclusive = exclusive || ex
	}
	return out, exclusive, nil
}

// direct counts the self calls of an expression or simple statement.
func (x *extractor) direct(id ast.NodeID, calls map[ast.NodeID]Call) counts {
	out := counts{}
	if id == ast.NoNode {
		return out
	}
	for _, c := range x.tree.CallsTo(id, x.proc.Name) {
		if cl, ok := calls[c]; ok {
			out[cl.Factor]++
		}
	}
	return out
}

func (x *extractor) constantTrip(n *ast.For) (int64, bool) {
	if n.Step != ast.NoNode {
		return 0, false
	}
	start, ok := x.tree.Symbolic(n.Start, x.opts.Symbols)
	if !ok {
		return 0, false
	}
	end, ok := x.tree.Symbolic(n.End, x.opts.Symbols)
	if !ok {
		return 0, false
	}
	d := expr.Sub(end, start)
	if n.Downto {
		d = expr.Neg(d)
	}
	c, ok := expr.Constant(d)
	if !ok {
		return 0, false
	}
	k := new(big.Rat).Add(c.Rat(), big.NewRat(1, 1))
	if !k.IsInt() || k.Sign() < 0 || !k.Num().IsInt64() {
		return 0, false
	}
	return k.Num().Int64(), true
}

// work estimates f(n): the worst-case cost of one activation with the
// recursive calls counted as single operations.
func (x *extractor) work(cand candidate) (expr.Expr, error) {
	b := cost.NewBuilder(x.tree, cost.Options{Symbols: x.opts.Symbols, Logger: x.log})
	table, err := b.Build(x.pid, types.Worst)
	if err != nil {
		return nil, fmt.Errorf("estimating the work of %s: %w", x.proc.Name, err)
	}
	if table.Failure != nil {
		x.out.note("non-recursive work of %s left partially open: %s", x.proc.Name, table.Failure)
	}
	v := x.sizeVar()
	poly, _ := x.resolve(table.TPolynomial)
	switch {
	case cand.pair():
		// size = hi - lo + 1
		hi := expr.AddOf(expr.Symbol(cand.lo), expr.Symbol(v), expr.Int(-1))
		poly = expr.Substitute(poly, cand.hi, hi)
	case cand.lo != v:
		poly = expr.Substitute(poly, cand.lo, expr.Symbol(v))
	}
	work := asymptotic.DominantTerm(poly, v)
	if others := slices.DeleteFunc(expr.Free(work), func(s string) bool { return s == v }); len(others) > 0 {
		x.out.note("non-recursive work depends on %s", strings.Join(others, ", "))
	}
	return work, nil
}

var negatedOp = map[string]string{
	"<": ">=", "<=": ">", ">": "<=", ">=": "<", "==": "!=", "!=": "==",
}

var flippedOp = map[string]string{
	"<": ">", "<=": ">=", ">": "<", ">=": "<=", "==": "==", "!=": "!=",
}

func normalizeOp(op string) string {
	switch op {
	case "=":
		return "=="
	case "<>", "≠":
		return "!="
	case "≤":
		return "<="
	case "≥":
		return ">="
	}
	return op
}

// baseCase reads n0 from the first guard that bounds the size by a
// constant. It defaults to 1.
func (x *extractor) baseCase(cand candidate) (int64, int) {
	var n0 int64 = 1
	line := 0
	x.tree.Inspect(x.proc.Body, func(id ast.NodeID, n ast.Node) bool {
		if line > 0 {
			return false
		}
		if _, ok := n.(*ast.ProcDef); ok {
			return false
		}
		i, ok := n.(*ast.If)
		if !ok {
			return true
		}
		recursiveThen := len(x.tree.CallsTo(i.Then, x.proc.Name)) > 0
		if k, ok := x.guardBound(i.Cond, cand, recursiveThen); ok {
			n0, line = k, x.tree.Line(id)
			return false
		}
		return true
	})
	return n0, line
}

// guardBound returns the largest size for which cond selects the base
// case. negate is set when cond guards the recursive branch.
func (x *extractor) guardBound(cond ast.NodeID, cand candidate, negate bool) (int64, bool) {
	bin, ok := x.tree.Node(cond).(*ast.Binary)
	if !ok {
		return 0, false
	}
	switch strings.ToLower(bin.Op) {
	case "and", "&&", "or", "||":
		if k, ok := x.guardBound(bin.Left, cand, negate); ok {
			return k, true
		}
		return x.guardBound(bin.Right, cand, negate)
	}
	op := normalizeOp(bin.Op)
	if _, ok := negatedOp[op]; !ok {
		return 0, false
	}
	l, ok := x.tree.Symbolic(bin.Left, x.opts.Symbols)
	if !ok {
		return 0, false
	}
	r, ok := x.tree.Symbolic(bin.Right, x.opts.Symbols)
	if !ok {
		return 0, false
	}
	g := expr.Sub(l, r)
	v := cand.lo
	if cand.pair() {
		g = expr.Substitute(g, cand.hi, expr.AddOf(expr.Symbol(cand.lo), expr.Symbol(span)))
		v = span
	} else if cand.lo != x.sizeVar() {
		g = expr.Substitute(g, x.sizeVar(), expr.Symbol(cand.lo))
	}
	// g op 0 with g = a·s + c
	coeffs, ok := expr.Coeffs(g, v)
	if !ok || len(coeffs) > 2 {
		return 0, false
	}
	a, ok := constantCoeff(coeffs, 1)
	if !ok || new(big.Rat).Abs(a).Cmp(big.NewRat(1, 1)) != 0 {
		return 0, false
	}
	c, ok := constantCoeff(coeffs, 0)
	if !ok {
		return 0, false
	}
	// s op -c/a
	k := new(big.Rat).Neg(c)
	if a.Sign() < 0 {
		k.Neg(k)
		op = flippedOp[op]
	}
	if negate {
		op = negatedOp[op]
	}
	var bound *big.Rat
	switch op {
	case "<=", "==":
		bound = floor(k)
	case "<":
		bound = floor(k)
		if k.IsInt() {
			bound.Sub(bound, big.NewRat(1, 1))
		}
	default:
		return 0, false
	}
	if cand.pair() {
		// size = span + 1
		bound.Add(bound, big.NewRat(1, 1))
	}
	if bound.Sign() < 0 {
		bound.SetInt64(0)
	}
	return bound.Num().Int64(), true
}

func constantCoeff(coeffs map[int]expr.Expr, k int) (*big.Rat, bool) {
	e, ok := coeffs[k]
	if !ok {
		return new(big.Rat), true
	}
	n, ok := expr.Constant(e)
	if !ok {
		return nil, false
	}
	return n.Rat(), true
}

func floor(r *big.Rat) *big.Rat {
	q := new(big.Int).Div(r.Num(), r.Denom())
	return new(big.Rat).SetInt(q)
}

// earlyExit reports an if statement that returns on a data-dependent
// condition before the first recursive call is reached.
func (x *extractor) earlyExit() bool {
	order := map[ast.NodeID]int{}
	i := 0
	x.tree.Inspect(x.proc.Body, func(id ast.NodeID, n ast.Node) bool {
		if _, ok := n.(*ast.ProcDef); ok {
			return false
		}
		order[id] = i
		i++
		return true
	})
	first := i
	for _, c := range x.calls {
		first = min(first, order[c])
	}
	found := false
	x.tree.Inspect(x.proc.Body, func(id ast.NodeID, n ast.Node) bool {
		if found || order[id] >= first {
			return false
		}
		in, ok := n.(*ast.If)
		if !ok {
			return true
		}
		if !x.dataDependent(in.Cond) {
			return true
		}
		chain := branch.IfChain(x.tree, id)
		found = x.exits(chain.If, in.Then, chain.Else, in.Else) ||
			(chain.HasElse && x.exits(chain.Else, in.Else, chain.If, in.Then))
		return !found
	})
	return found
}

// exits reports an arm that leaves without recursing while the other arm
// carries on or recurses.
func (x *extractor) exits(arm branch.Branch, armID ast.NodeID, other branch.Branch, otherID ast.NodeID) bool {
	if !arm.Deviates() || len(x.tree.CallsTo(armID, x.proc.Name)) > 0 {
		return false
	}
	return !other.Deviates() || len(x.tree.CallsTo(otherID, x.proc.Name)) > 0
}

// dataDependent reports a condition reading array elements, fields or
// calls, as opposed to a guard on the size alone.
func (x *extractor) dataDependent(id ast.NodeID) bool {
	dep := false
	x.tree.Inspect(id, func(cid ast.NodeID, n ast.Node) bool {
		switch n.(type) {
		case *ast.Index, *ast.Field, *ast.Call:
			if !x.tree.IsSizeRef(cid, x.opts.Symbols) {
				dep = true
			}
		}
		return !dep
	})
	return dep
}

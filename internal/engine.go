package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/gnolang/asymptote/internal/asymptotic"
	"github.com/gnolang/asymptote/internal/ast"
	"github.com/gnolang/asymptote/internal/cost"
	"github.com/gnolang/asymptote/internal/frontend"
	"github.com/gnolang/asymptote/internal/probability"
	"github.com/gnolang/asymptote/internal/recurrence"
	"github.com/gnolang/asymptote/internal/solver"
	"github.com/gnolang/asymptote/internal/types"
)

// Options configure every session built by an Engine.
type Options struct {
	Symbols         ast.Symbols
	Probability     probability.Model
	PreferredMethod types.Method
	Logger          *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Session analyzes one tree. It owns the memo table and the constant
// counter of its cost builder and must not be shared between goroutines.
type Session struct {
	tree *ast.Tree
	opts Options
	log  *zap.Logger
	cost *cost.Builder
	runs int
}

func NewSession(tree *ast.Tree, opts Options) *Session {
	s := &Session{tree: tree, opts: opts, log: opts.logger()}
	s.cost = cost.NewBuilder(tree, cost.Options{
		Symbols:     opts.Symbols,
		Probability: opts.Probability,
		Logger:      s.log,
	})
	return s
}

// Reset restores the state the session had right after NewSession.
func (s *Session) Reset() {
	s.cost.Reset()
	s.runs = 0
}

// Analyze runs the path selected by kind on the named procedure, or on the
// main procedure when name is empty. Iterative programs without any
// procedure are analyzed as a whole. Structural failures of the selected
// path are reported in Failure; the error is reserved for invalid input.
func (s *Session) Analyze(kind types.AlgorithmKind, name string, mode types.Mode) (*types.AnalysisResult, error) {
	s.Reset()
	if s.tree == nil || s.tree.Root == ast.NoNode {
		return nil, types.Errorf(types.CodeInvalidInput, "empty tree")
	}
	switch kind {
	case types.Iterative, types.Recursive, types.Hybrid:
	default:
		return nil, types.Errorf(types.CodeInvalidInput, "unknown algorithm kind %q", kind)
	}

	root, procName := s.tree.Root, ""
	if p, id, ok := s.tree.Main(name); ok {
		root, procName = id, p.Name
	} else if name != "" || kind != types.Iterative {
		res := s.result(kind, mode, name)
		res.Failure = types.Errorf(types.CodeNoMainProcedureFound, "no procedure %q in the program", name)
		if name == "" {
			res.Failure.Message = "the program defines no procedure"
		}
		return res, nil
	}

	if mode == types.All {
		return s.all(kind, root, procName)
	}
	if mode != types.Worst && mode != types.Best && mode != types.Average {
		return nil, types.Errorf(types.CodeInvalidInput, "unknown mode %q", mode)
	}
	return s.one(kind, root, procName, mode), nil
}

func (s *Session) result(kind types.AlgorithmKind, mode types.Mode, proc string) *types.AnalysisResult {
	v := s.opts.Symbols.SizeVar
	if v == "" {
		v = "n"
	}
	return &types.AnalysisResult{Kind: kind, Mode: mode, Procedure: proc, SizeVariable: v}
}

func (s *Session) one(kind types.AlgorithmKind, root ast.NodeID, proc string, mode types.Mode) *types.AnalysisResult {
	s.runs++
	res := s.result(kind, mode, proc)
	if kind == types.Iterative {
		s.iterative(res, root)
	} else {
		s.recursive(res, root)
	}
	if res.Failure != nil {
		s.log.Debug("analysis path failed",
			zap.Int("run", s.runs),
			zap.String("procedure", proc),
			zap.String("mode", string(mode)),
			zap.String("code", string(res.Failure.Code)),
			zap.String("message", res.Failure.Message))
	}
	return res
}

func (s *Session) iterative(res *types.AnalysisResult, root ast.NodeID) {
	table, err := s.cost.Build(root, res.Mode)
	if err != nil {
		res.Failure = types.AsAnalysisError(err)
		return
	}
	s.log.Debug("cost table built", zap.Int("rows", len(table.Rows)), zap.Int("memo_hits", s.cost.MemoHits()))
	res.Rows = table.Rows
	res.SizeVariable = table.SizeVar
	res.Hypotheses = table.Hypotheses
	t := &res.Totals
	t.TOpen = table.TOpen
	t.TPolynomial = table.TPolynomial
	t.Proof = append(t.Proof, table.Steps...)
	t.Symbols = table.Symbols
	t.Notes = table.Notes
	if table.Failure != nil {
		res.Failure = table.Failure
		t.Note("bounds are not classified while a count is left open")
		return
	}
	v := table.SizeVar
	t.BigO = asymptotic.BigO(table.TPolynomial, v, table.Unknowns...)
	t.BigOmega = asymptotic.BigOmega(table.TPolynomial, v, table.Unknowns...)
	t.BigTheta = asymptotic.BigTheta(table.TPolynomial, v, table.Unknowns...)
	if len(table.Unknowns) > 0 {
		t.Note("bounds keep the unbounded iteration counts %s", strings.Join(table.Unknowns, ", "))
	}
	t.Proof.Add("total", "T(%s) = %s", v, table.TPolynomial)
	t.Proof.Add("theta", "dominant term: T(%s) = Θ(%s)", v, t.BigTheta)
}

func (s *Session) recursive(res *types.AnalysisResult, root ast.NodeID) {
	t := &res.Totals
	if !s.tree.IsRecursive(root) && res.Kind == types.Hybrid {
		// hybrids without a self-call degrade to the iterative path
		t.Note("%s does not call itself; analyzed iteratively", res.Procedure)
		s.iterative(res, root)
		return
	}
	x, err := recurrence.Extract(s.tree, root, recurrence.Options{Symbols: s.opts.Symbols, Logger: s.log})
	if err != nil {
		res.Failure = types.AsAnalysisError(err)
		return
	}
	rec := x.Recurrence
	res.SizeVariable = rec.Var()
	t.Recurrence = rec
	t.Proof = append(t.Proof, x.Proof...)
	for _, n := range x.Notes {
		t.Note("%s", n)
	}

	method, err := recurrence.Select(rec, s.opts.PreferredMethod)
	if err != nil {
		res.Failure = types.AsAnalysisError(err)
		return
	}
	sol, err := solver.Solve(rec, method)
	if err != nil && s.opts.PreferredMethod == types.MethodAuto && method == types.MethodMaster {
		t.Note("master theorem does not apply: %s; falling back to the recursion tree", types.AsAnalysisError(err).Message)
		method = types.MethodRecursionTree
		sol, err = solver.Solve(rec, method)
	}
	if err != nil {
		res.Failure = types.AsAnalysisError(err)
		return
	}
	s.log.Debug("recurrence solved",
		zap.String("recurrence", rec.String()),
		zap.String("method", string(method)),
		zap.String("theta", sol.Theta))

	rec.Method = sol.Method
	t.Master = sol.Master
	t.Iteration = sol.Iteration
	t.RecursionTree = sol.RecursionTree
	t.Characteristic = sol.Characteristic
	t.Proof = append(t.Proof, sol.Proof...)
	for _, n := range sol.Notes {
		t.Note("%s", n)
	}

	theta := sol.Theta
	switch res.Mode {
	case types.Best:
		if sol.Best != "" {
			theta = sol.Best
		}
	case types.Average:
		if sol.Best != "" {
			t.Note("the early exit is taken with bounded probability per call; the average case follows the recursion")
		}
	}
	t.BigO, t.BigOmega, t.BigTheta = theta, theta, theta
}

// all runs the three modes. Best and average alias worst when their bounds
// agree with it; the summary takes O from worst, Ω from best and Θ only when
// both agree.
func (s *Session) all(kind types.AlgorithmKind, root ast.NodeID, proc string) (*types.AnalysisResult, error) {
	worst := s.one(kind, root, proc, types.Worst)
	best := s.one(kind, root, proc, types.Best)
	avg := s.one(kind, root, proc, types.Average)

	cases := &types.Cases{Worst: worst, Best: best, Average: avg}
	if sameBounds(best, worst) {
		cases.Best = worst
	} else {
		cases.HasCaseVariability = true
	}
	if sameBounds(avg, worst) {
		cases.Average = worst
	} else {
		cases.HasCaseVariability = true
	}

	res := *worst
	res.Mode = types.All
	res.Cases = cases
	res.Totals.Notes = slices.Clone(worst.Totals.Notes)
	res.Totals.BigOmega = best.Totals.BigOmega
	if res.Totals.BigOmega != res.Totals.BigO {
		res.Totals.BigTheta = ""
		res.Totals.Note("no tight bound across cases: O(%s) in the worst case, Ω(%s) in the best", res.Totals.BigO, res.Totals.BigOmega)
	}
	return &res, nil
}

func sameBounds(a, b *types.AnalysisResult) bool {
	if (a.Failure == nil) != (b.Failure == nil) {
		return false
	}
	return a.Totals.BigTheta == b.Totals.BigTheta &&
		exprString(a.Totals.TPolynomial) == exprString(b.Totals.TPolynomial)
}

// DetectKind is the fallback classifier used when the caller supplies no
// label: procedures calling themselves are recursive, or hybrid when they
// also loop.
func DetectKind(tree *ast.Tree, name string) types.AlgorithmKind {
	_, id, ok := tree.Main(name)
	if !ok || !tree.IsRecursive(id) {
		return types.Iterative
	}
	loops := false
	tree.Inspect(id, func(_ ast.NodeID, n ast.Node) bool {
		switch n.Kind() {
		case ast.KindFor, ast.KindWhile, ast.KindRepeat:
			loops = true
		}
		return !loops
	})
	if loops {
		return types.Hybrid
	}
	return types.Recursive
}

// Engine analyzes files: parser JSON documents (.json) and Go sources
// (.go), one session per analyzed procedure.
type Engine struct {
	opts Options
	log  *zap.Logger
}

func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts, log: opts.logger()}
}

// Supported reports whether the engine reads the file.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json", ".go":
		return true
	}
	return false
}

// Run analyzes a file in the given mode.
func (e *Engine) Run(filename string, mode types.Mode) ([]*types.AnalysisResult, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	results, err := e.RunSource(filename, src, mode)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		r.File = filename
	}
	return results, nil
}

// RunSource analyzes src; the extension of filename picks the reader.
func (e *Engine) RunSource(filename string, src []byte, mode types.Mode) ([]*types.AnalysisResult, error) {
	if strings.EqualFold(filepath.Ext(filename), ".go") {
		return e.runGo(filename, src, mode)
	}
	doc, err := ast.Decode(src)
	if err != nil {
		code := types.CodeInvalidInput
		if errors.Is(err, ast.ErrDepthExceeded) {
			code = types.CodeDepthExceeded
		}
		return nil, types.Errorf(code, "%s", err).Wrap(err)
	}
	kind, ok := types.ParseKind(doc.Kind)
	if !ok {
		kind = DetectKind(doc.Tree, doc.Procedure)
		e.log.Debug("algorithm kind detected", zap.String("file", filename), zap.String("kind", string(kind)))
	}
	res, err := NewSession(doc.Tree, e.opts).Analyze(kind, doc.Procedure, mode)
	if err != nil {
		return nil, err
	}
	return []*types.AnalysisResult{res}, nil
}

func (e *Engine) runGo(filename string, src []byte, mode types.Mode) ([]*types.AnalysisResult, error) {
	f, err := frontend.Parse(filename, src)
	if err != nil {
		return nil, types.Errorf(types.CodeInvalidInput, "%s", err).Wrap(err)
	}
	var out []*types.AnalysisResult
	for _, fn := range f.Functions {
		kind := DetectKind(f.Tree, fn.Name)
		res, err := NewSession(f.Tree, e.opts).Analyze(kind, fn.Name, mode)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fn.Name, err)
		}
		res.Totals.Note("cyclomatic complexity %d", fn.Complexity)
		for _, n := range fn.Notes {
			res.Totals.Note("%s", n)
		}
		out = append(out, res)
	}
	return out, nil
}

// WithMethod returns an engine sharing e's options except the preferred
// solving method.
func (e *Engine) WithMethod(m types.Method) *Engine {
	opts := e.opts
	opts.PreferredMethod = m
	return &Engine{opts: opts, log: e.log}
}

// DefaultTreeDepth is the number of recursion tree levels Tree renders
// when no depth is given.
const DefaultTreeDepth = 4

// Tree renders the recursion tree of a recursive procedure in src as
// GraphViz DOT. An empty procedure selects the first recursive one.
func (e *Engine) Tree(filename string, src []byte, procedure string, depth int) (string, error) {
	if depth <= 0 {
		depth = DefaultTreeDepth
	}
	results, err := e.RunSource(filename, src, types.Worst)
	if err != nil {
		return "", err
	}
	for _, r := range results {
		if r.Totals.Recurrence == nil {
			continue
		}
		if procedure == "" || r.Procedure == procedure {
			return solver.DOT(r.Totals.Recurrence, depth), nil
		}
	}
	if procedure == "" {
		return "", types.Errorf(types.CodeNoRecursiveCallFound, "no recursive procedure in %s", filename)
	}
	return "", types.Errorf(types.CodeNoRecursiveCallFound, "no recurrence for %q in %s", procedure, filename)
}

func exprString(e fmt.Stringer) string {
	if e == nil {
		return ""
	}
	return e.String()
}

package types

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/gnolang/asymptote/internal/expr"
)

// Mode selects which case of the running time is analyzed.
type Mode string

const (
	Worst   Mode = "worst"
	Best    Mode = "best"
	Average Mode = "avg"
	All     Mode = "all"
)

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "worst":
		return Worst, nil
	case "best":
		return Best, nil
	case "avg", "average":
		return Average, nil
	case "all":
		return All, nil
	}
	return "", Errorf(CodeInvalidInput, "unknown mode %q", s)
}

// Method is a recurrence solving strategy.
type Method string

const (
	MethodAuto           Method = ""
	MethodMaster         Method = "master"
	MethodIteration      Method = "iteration"
	MethodRecursionTree  Method = "recursion_tree"
	MethodCharacteristic Method = "characteristic"
)

func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")) {
	case "", "auto":
		return MethodAuto, nil
	case "master", "master_theorem":
		return MethodMaster, nil
	case "iteration", "unrolling":
		return MethodIteration, nil
	case "tree", "recursion_tree", "recursiontree":
		return MethodRecursionTree, nil
	case "characteristic", "characteristic_equation", "characteristicequation":
		return MethodCharacteristic, nil
	}
	return "", Errorf(CodeInvalidPreferredMethod, "unknown method %q", s)
}

func (m Method) Title() string {
	switch m {
	case MethodMaster:
		return "Master Theorem"
	case MethodIteration:
		return "Iteration"
	case MethodRecursionTree:
		return "Recursion Tree"
	case MethodCharacteristic:
		return "Characteristic Equation"
	}
	return "auto"
}

// AlgorithmKind is the label supplied by the external classifier.
type AlgorithmKind string

const (
	Iterative AlgorithmKind = "iterative"
	Recursive AlgorithmKind = "recursive"
	Hybrid    AlgorithmKind = "hybrid"
)

func ParseKind(s string) (AlgorithmKind, bool) {
	switch AlgorithmKind(strings.ToLower(s)) {
	case Iterative:
		return Iterative, true
	case Recursive:
		return Recursive, true
	case Hybrid:
		return Hybrid, true
	}
	return "", false
}

// CostRow is the cost of one source line under its loop context.
type CostRow struct {
	Line         int
	Kind         string
	Label        expr.Expr
	Constants    []string
	RawCount     expr.Expr
	ClosedCount  expr.Expr
	ExpectedRuns expr.Expr
	Note         string
}

func (r CostRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Line         int      `json:"line"`
		Kind         string   `json:"kind"`
		Label        string   `json:"costLabel"`
		Constants    []string `json:"constants,omitempty"`
		RawCount     string   `json:"rawCount"`
		ClosedCount  string   `json:"closedCount"`
		ExpectedRuns string   `json:"expectedRuns,omitempty"`
		Note         string   `json:"note,omitempty"`
	}{r.Line, r.Kind, exprString(r.Label), r.Constants, exprString(r.RawCount),
		exprString(r.ClosedCount), exprString(r.ExpectedRuns), r.Note})
}

// ProofStep is one line of a derivation.
type ProofStep struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Proof is an append-only derivation.
type Proof []ProofStep

// Add appends a step, skipping an exact repeat of the previous one.
func (p *Proof) Add(id, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	if n := len(*p); n > 0 && (*p)[n-1].Text == text {
		return
	}
	*p = append(*p, ProofStep{ID: id, Text: text})
}

// Symbol documents a symbol introduced by the analysis.
type Symbol struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RecurrenceForm distinguishes the two recurrence shapes.
type RecurrenceForm string

const (
	DivideConquer RecurrenceForm = "divide_conquer"
	LinearShift   RecurrenceForm = "linear_shift"
)

// Recurrence is T(n) = a·T(n/b) + f(n) or T(n) = Σ c_i·T(n-i) + g(n).
type Recurrence struct {
	Form RecurrenceForm
	// divide and conquer
	A int
	B int
	// linear shift: offset -> coefficient
	Coefficients map[int]int64
	Work         expr.Expr
	BaseCase     int64
	Method       Method
	// EarlyExit is set when a data-dependent return precedes every
	// recursive call.
	EarlyExit bool
	SizeVar   string
}

func (r *Recurrence) Var() string {
	if r.SizeVar == "" {
		return "n"
	}
	return r.SizeVar
}

// Offsets returns the shift offsets in increasing order.
func (r *Recurrence) Offsets() []int {
	var out []int
	for k := range r.Coefficients {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Order is the largest offset of a linear-shift recurrence.
func (r *Recurrence) Order() int {
	o := 0
	for k := range r.Coefficients {
		o = max(o, k)
	}
	return o
}

// Calls is the number of recursive terms.
func (r *Recurrence) Calls() int64 {
	if r.Form == DivideConquer {
		return int64(r.A)
	}
	var s int64
	for _, c := range r.Coefficients {
		s += c
	}
	return s
}

func (r *Recurrence) String() string {
	v := r.Var()
	var terms []string
	switch r.Form {
	case DivideConquer:
		t := fmt.Sprintf("T(%s/%d)", v, r.B)
		if r.A != 1 {
			t = fmt.Sprintf("%d%s", r.A, t)
		}
		terms = append(terms, t)
	case LinearShift:
		for _, k := range r.Offsets() {
			t := fmt.Sprintf("T(%s-%d)", v, k)
			if c := r.Coefficients[k]; c != 1 {
				t = fmt.Sprintf("%d%s", c, t)
			}
			terms = append(terms, t)
		}
	}
	if r.Work != nil && !expr.IsZero(r.Work) {
		terms = append(terms, r.Work.String())
	}
	return fmt.Sprintf("T(%s) = %s", v, strings.Join(terms, " + "))
}

func (r *Recurrence) MarshalJSON() ([]byte, error) {
	coeffs := map[string]int64{}
	for k, c := range r.Coefficients {
		coeffs[fmt.Sprint(k)] = c
	}
	out := struct {
		Form         RecurrenceForm   `json:"form"`
		Equation     string           `json:"equation"`
		A            int              `json:"a,omitempty"`
		B            int              `json:"b,omitempty"`
		Coefficients map[string]int64 `json:"coefficients,omitempty"`
		Work         string           `json:"f"`
		BaseCase     int64            `json:"n0"`
		Method       Method           `json:"method"`
		EarlyExit    bool             `json:"earlyExit,omitempty"`
		SizeVar      string           `json:"sizeVar,omitempty"`
	}{r.Form, r.String(), r.A, r.B, coeffs, exprString(r.Work), r.BaseCase, r.Method, r.EarlyExit, r.SizeVar}
	return json.Marshal(out)
}

type MasterResult struct {
	Case       int     `json:"case"`
	Critical   float64 `json:"criticalExponent"`
	G          string  `json:"g"`
	Comparison string  `json:"comparison"`
	Regularity string  `json:"regularity,omitempty"`
	Theta      string  `json:"theta"`
	ThetaBest  string  `json:"thetaBest,omitempty"`
}

type IterationResult struct {
	Expansions  []string `json:"expansions"`
	GeneralForm string   `json:"generalForm"`
	BaseCase    string   `json:"baseCase"`
	Summation   string   `json:"summation"`
	Closed      string   `json:"closed"`
	Theta       string   `json:"theta"`
}

type TreeLevel struct {
	Depth   int    `json:"depth"`
	Nodes   string `json:"nodes"`
	Size    string `json:"size"`
	PerNode string `json:"perNode"`
	Total   string `json:"total"`
}

type RecursionTreeResult struct {
	Levels          []TreeLevel `json:"levels"`
	Height          string      `json:"height"`
	DominatingLevel string      `json:"dominatingLevel"`
	Theta           string      `json:"theta"`
}

type Root struct {
	Value        float64 `json:"value"`
	Multiplicity int     `json:"multiplicity"`
	Exact        string  `json:"exact,omitempty"`
}

type DPFormulation struct {
	Table        []string `json:"table"`
	Rolling      []string `json:"rolling"`
	Time         string   `json:"time"`
	Space        string   `json:"space"`
	RollingSpace string   `json:"rollingSpace"`
}

type CharacteristicResult struct {
	Equation            string         `json:"equation"`
	Roots               []Root         `json:"roots"`
	DominantRoot        float64        `json:"dominantRoot"`
	GrowthRate          string         `json:"growthRate"`
	Homogeneous         bool           `json:"homogeneous"`
	HomogeneousSolution string         `json:"homogeneousSolution"`
	ParticularSolution  string         `json:"particularSolution,omitempty"`
	ClosedForm          string         `json:"closedForm"`
	Theta               string         `json:"theta"`
	DP                  *DPFormulation `json:"dp,omitempty"`
}

// Totals aggregates the per-row costs or the recurrence solution.
type Totals struct {
	TOpen          expr.Expr
	TPolynomial    expr.Expr
	BigO           string
	BigOmega       string
	BigTheta       string
	Recurrence     *Recurrence
	Master         *MasterResult
	Iteration      *IterationResult
	RecursionTree  *RecursionTreeResult
	Characteristic *CharacteristicResult
	Proof          Proof
	Symbols        []Symbol
	Notes          []string
}

// Note appends a note once.
func (t *Totals) Note(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	for _, n := range t.Notes {
		if n == msg {
			return
		}
	}
	t.Notes = append(t.Notes, msg)
}

// AddSymbol records a symbol once.
func (t *Totals) AddSymbol(name, description string) {
	for _, s := range t.Symbols {
		if s.Name == name {
			return
		}
	}
	t.Symbols = append(t.Symbols, Symbol{Name: name, Description: description})
}

func (t Totals) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TOpen          string                `json:"T_open,omitempty"`
		TPolynomial    string                `json:"T_polynomial,omitempty"`
		BigO           string                `json:"bigO,omitempty"`
		BigOmega       string                `json:"bigOmega,omitempty"`
		BigTheta       string                `json:"bigTheta,omitempty"`
		Recurrence     *Recurrence           `json:"recurrence,omitempty"`
		Master         *MasterResult         `json:"master,omitempty"`
		Iteration      *IterationResult      `json:"iteration,omitempty"`
		RecursionTree  *RecursionTreeResult  `json:"recursionTree,omitempty"`
		Characteristic *CharacteristicResult `json:"characteristicEquation,omitempty"`
		Proof          Proof                 `json:"proof,omitempty"`
		Symbols        []Symbol              `json:"symbols,omitempty"`
		Notes          []string              `json:"notes,omitempty"`
	}{exprString(t.TOpen), exprString(t.TPolynomial), t.BigO, t.BigOmega, t.BigTheta,
		t.Recurrence, t.Master, t.Iteration, t.RecursionTree, t.Characteristic,
		t.Proof, t.Symbols, t.Notes})
}

// AnalysisResult is the uniform output of both analysis paths.
type AnalysisResult struct {
	File         string         `json:"file,omitempty"`
	Kind         AlgorithmKind  `json:"kind"`
	Mode         Mode           `json:"mode"`
	Procedure    string         `json:"procedure,omitempty"`
	SizeVariable string         `json:"sizeVariable"`
	Rows         []CostRow      `json:"byLine"`
	Totals       Totals         `json:"totals"`
	Hypotheses   []string       `json:"hypotheses,omitempty"`
	Cases        *Cases         `json:"cases,omitempty"`
	Failure      *AnalysisError `json:"failure,omitempty"`
}

// Cases holds the three per-case results of mode all.
type Cases struct {
	Worst              *AnalysisResult `json:"worst"`
	Best               *AnalysisResult `json:"best"`
	Average            *AnalysisResult `json:"avg"`
	HasCaseVariability bool            `json:"hasCaseVariability"`
}

func exprString(e expr.Expr) string {
	if e == nil {
		return ""
	}
	return e.String()
}

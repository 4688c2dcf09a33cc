package types

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gnolang/asymptote/internal/expr"
)

// Decoded results keep every expression as an opaque symbol holding its
// rendered text; they print exactly like the originals but cannot be
// simplified further.

func opaque(s string) expr.Expr {
	if s == "" {
		return nil
	}
	return expr.Symbol(s)
}

func (r *CostRow) UnmarshalJSON(data []byte) error {
	var raw struct {
		Line         int      `json:"line"`
		Kind         string   `json:"kind"`
		Label        string   `json:"costLabel"`
		Constants    []string `json:"constants"`
		RawCount     string   `json:"rawCount"`
		ClosedCount  string   `json:"closedCount"`
		ExpectedRuns string   `json:"expectedRuns"`
		Note         string   `json:"note"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = CostRow{
		Line:         raw.Line,
		Kind:         raw.Kind,
		Label:        opaque(raw.Label),
		Constants:    raw.Constants,
		RawCount:     opaque(raw.RawCount),
		ClosedCount:  opaque(raw.ClosedCount),
		ExpectedRuns: opaque(raw.ExpectedRuns),
		Note:         raw.Note,
	}
	return nil
}

func (t *Totals) UnmarshalJSON(data []byte) error {
	var raw struct {
		TOpen          string                `json:"T_open"`
		TPolynomial    string                `json:"T_polynomial"`
		BigO           string                `json:"bigO"`
		BigOmega       string                `json:"bigOmega"`
		BigTheta       string                `json:"bigTheta"`
		Recurrence     *Recurrence           `json:"recurrence"`
		Master         *MasterResult         `json:"master"`
		Iteration      *IterationResult      `json:"iteration"`
		RecursionTree  *RecursionTreeResult  `json:"recursionTree"`
		Characteristic *CharacteristicResult `json:"characteristicEquation"`
		Proof          Proof                 `json:"proof"`
		Symbols        []Symbol              `json:"symbols"`
		Notes          []string              `json:"notes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Totals{
		TOpen:          opaque(raw.TOpen),
		TPolynomial:    opaque(raw.TPolynomial),
		BigO:           raw.BigO,
		BigOmega:       raw.BigOmega,
		BigTheta:       raw.BigTheta,
		Recurrence:     raw.Recurrence,
		Master:         raw.Master,
		Iteration:      raw.Iteration,
		RecursionTree:  raw.RecursionTree,
		Characteristic: raw.Characteristic,
		Proof:          raw.Proof,
		Symbols:        raw.Symbols,
		Notes:          raw.Notes,
	}
	return nil
}

func (r *Recurrence) UnmarshalJSON(data []byte) error {
	var raw struct {
		Form         RecurrenceForm   `json:"form"`
		A            int              `json:"a"`
		B            int              `json:"b"`
		Coefficients map[string]int64 `json:"coefficients"`
		Work         string           `json:"f"`
		BaseCase     int64            `json:"n0"`
		Method       Method           `json:"method"`
		EarlyExit    bool             `json:"earlyExit"`
		SizeVar      string           `json:"sizeVar"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Recurrence{
		Form:      raw.Form,
		A:         raw.A,
		B:         raw.B,
		Work:      opaque(raw.Work),
		BaseCase:  raw.BaseCase,
		Method:    raw.Method,
		EarlyExit: raw.EarlyExit,
		SizeVar:   raw.SizeVar,
	}
	if len(raw.Coefficients) > 0 {
		r.Coefficients = make(map[int]int64, len(raw.Coefficients))
		for k, c := range raw.Coefficients {
			off, err := strconv.Atoi(k)
			if err != nil {
				return fmt.Errorf("recurrence offset %q: %w", k, err)
			}
			r.Coefficients[off] = c
		}
	}
	return nil
}

func (e *AnalysisError) UnmarshalJSON(data []byte) error {
	var raw struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
		Expr    string `json:"expr"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = AnalysisError{Code: raw.Code, Message: raw.Message, Expr: opaque(raw.Expr)}
	return nil
}

// DecodeResults reads results written by json.Marshal.
func DecodeResults(data []byte) ([]*AnalysisResult, error) {
	var out []*AnalysisResult
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("error decoding results: %w", err)
	}
	return out, nil
}

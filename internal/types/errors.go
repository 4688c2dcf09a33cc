package types

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gnolang/asymptote/internal/expr"
)

// Code classifies an analysis failure.
type Code string

const (
	CodeNoMainProcedureFound       Code = "NoMainProcedureFound"
	CodeNoRecursiveCallFound       Code = "NoRecursiveCallFound"
	CodeSubproblemSizeUndetermined Code = "SubproblemSizeUndetermined"
	CodeMixedSubproblemTypes       Code = "MixedSubproblemTypes"
	CodeNoApplicableMethod         Code = "NoApplicableMethod"
	CodeInvalidPreferredMethod     Code = "InvalidPreferredMethod"
	CodeSimplificationFailure      Code = "SimplificationFailure"
	CodeUnsupportedNodeKind        Code = "UnsupportedNodeKind"
	CodeDepthExceeded              Code = "DepthExceeded"
	CodeInvalidInput               Code = "InvalidInput"
)

// AnalysisError is a structured failure of one analysis path. Expr holds
// the offending expression when there is one, e.g. the sum that could not
// be closed.
type AnalysisError struct {
	Code    Code
	Message string
	Expr    expr.Expr
	Err     error
}

// Sentinels for errors.Is; they match any AnalysisError with the same code.
var (
	ErrNoMainProcedureFound       = &AnalysisError{Code: CodeNoMainProcedureFound}
	ErrNoRecursiveCallFound       = &AnalysisError{Code: CodeNoRecursiveCallFound}
	ErrSubproblemSizeUndetermined = &AnalysisError{Code: CodeSubproblemSizeUndetermined}
	ErrMixedSubproblemTypes       = &AnalysisError{Code: CodeMixedSubproblemTypes}
	ErrNoApplicableMethod         = &AnalysisError{Code: CodeNoApplicableMethod}
	ErrInvalidPreferredMethod     = &AnalysisError{Code: CodeInvalidPreferredMethod}
	ErrSimplificationFailure      = &AnalysisError{Code: CodeSimplificationFailure}
	ErrUnsupportedNodeKind        = &AnalysisError{Code: CodeUnsupportedNodeKind}
	ErrDepthExceeded              = &AnalysisError{Code: CodeDepthExceeded}
	ErrInvalidInput               = &AnalysisError{Code: CodeInvalidInput}
)

// Errorf builds an AnalysisError with a formatted message.
func Errorf(code Code, format string, args ...any) *AnalysisError {
	return &AnalysisError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithExpr attaches the offending expression.
func (e *AnalysisError) WithExpr(x expr.Expr) *AnalysisError {
	c := *e
	c.Expr = x
	return &c
}

// Wrap records the underlying cause.
func (e *AnalysisError) Wrap(err error) *AnalysisError {
	c := *e
	c.Err = err
	return &c
}

func (e *AnalysisError) Error() string {
	msg := string(e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Expr != nil {
		msg += " (" + e.Expr.String() + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AnalysisError) Unwrap() error { return e.Err }

func (e *AnalysisError) Is(target error) bool {
	t, ok := target.(*AnalysisError)
	return ok && t.Code == e.Code
}

func (e *AnalysisError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code    Code   `json:"code"`
		Message string `json:"message,omitempty"`
		Expr    string `json:"expr,omitempty"`
	}{e.Code, e.Message, exprString(e.Expr)})
}

// AsAnalysisError extracts an AnalysisError from the chain. Other errors are
// wrapped as InvalidInput.
func AsAnalysisError(err error) *AnalysisError {
	if err == nil {
		return nil
	}
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae
	}
	return &AnalysisError{Code: CodeInvalidInput, Message: err.Error(), Err: err}
}

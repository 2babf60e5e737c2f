package errors

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dalec/dalec/internal/ast"
)

// Report is the canonical structured error type for dalec. Every error
// builder in the compiler returns a *Report, which can be wrapped as a
// ReportError and flows back through ordinary Go error returns — the
// core never throws or unwinds (spec.md §7/§9).
type Report struct {
	Schema  string         `json:"schema"`         // Always "dalec.error/v1"
	Code    string         `json:"code"`            // One of the constants in codes.go
	Phase   string         `json:"phase"`           // "dispatch", "ctx", "lower", "macro", "dtm", "driver", ...
	Message string         `json:"message"`         // Human-readable message
	Span    *ast.Span      `json:"span,omitempty"`  // Source location (nil for internal errors)
	Data    map[string]any `json:"data,omitempty"`  // Structured data (e.g. candidate overloads)
}

// ReportError wraps a Report as an error so it can travel through
// ordinary `error` returns and still be recovered with AsReport.
type ReportError struct {
	Rep *Report
}

func (e *ReportError) Error() string {
	if e.Rep == nil {
		return "unknown error"
	}
	return e.Rep.Code + ": " + e.Rep.Message
}

// AsReport extracts a Report from an error chain.
func AsReport(err error) (*Report, bool) {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}

// WrapReport wraps a Report as an error.
func WrapReport(r *Report) error {
	if r == nil {
		return nil
	}
	return &ReportError{Rep: r}
}

// New builds a Report for the given code/phase/span with a formatted
// message, following the same builder shape the teacher uses for its
// own per-phase error constructors.
func New(code, phase string, span *ast.Span, format string, args ...any) *Report {
	return &Report{
		Schema:  "dalec.error/v1",
		Code:    code,
		Phase:   phase,
		Message: fmt.Sprintf(format, args...),
		Span:    span,
		Data:    map[string]any{},
	}
}

// WithData attaches structured data to a Report and returns it.
func (r *Report) WithData(key string, value any) *Report {
	if r.Data == nil {
		r.Data = map[string]any{}
	}
	r.Data[key] = value
	return r
}

// ToJSON renders a Report as deterministic JSON.
func (r *Report) ToJSON(compact bool) (string, error) {
	var data []byte
	var err error
	if compact {
		data, err = json.Marshal(r)
	} else {
		data, err = json.MarshalIndent(r, "", "  ")
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// NewInternal creates a Report for a fatal engine failure (failed IR
// verification, ffi_prep_cif failure, missing runtime library — spec.md
// §7). Internal errors always abort after printing; they are never
// buffered or recovered from.
func NewInternal(phase string, err error) *Report {
	return &Report{
		Schema:  "dalec.error/v1",
		Code:    InternalError,
		Phase:   phase,
		Message: err.Error(),
		Data:    map[string]any{},
	}
}

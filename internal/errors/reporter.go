package errors

import (
	"fmt"
	"io"
	"sort"
)

// Reporter accumulates Reports during compilation of a single Unit. It
// is the Go analogue of the teacher's batched-error-collection style
// (internal/module and internal/link both gather *errors.Report values
// and return them in a slice) generalized into a long-lived,
// flush-between-top-forms accumulator per spec.md §3 C3 / §7.
type Reporter struct {
	reports []*Report
}

// NewReporter returns an empty Reporter.
func NewReporter() *Reporter {
	return &Reporter{}
}

// Add records a report. Nil reports are ignored so call sites can
// write `reporter.Add(maybeNil())` unconditionally.
func (r *Reporter) Add(rep *Report) {
	if rep == nil {
		return
	}
	r.reports = append(r.reports, rep)
}

// AddAll records a batch of reports (used by C8's rollback/re-emit path).
func (r *Reporter) AddAll(reps []*Report) {
	for _, rep := range reps {
		r.Add(rep)
	}
}

// Count returns the number of reports recorded so far.
func (r *Reporter) Count() int {
	return len(r.reports)
}

// HasErrors reports whether any error was recorded — the driver refuses
// emission when this is true at end-of-unit (spec.md §7).
func (r *Reporter) HasErrors() bool {
	return len(r.reports) > 0
}

// Reports returns the accumulated reports in recorded order.
func (r *Reporter) Reports() []*Report {
	return r.reports
}

// Flush writes all accumulated reports to w and clears the buffer —
// called by cmd/dalec once compilation has reported errors, and by
// internal/replshell after a line that reported errors.
func (r *Reporter) Flush(w io.Writer) {
	for _, rep := range r.reports {
		fmt.Fprintf(w, "%s: %s: %s\n", rep.Phase, rep.Code, rep.Message)
		if rep.Span != nil {
			fmt.Fprintf(w, "  at %s\n", rep.Span.Begin)
		}
	}
	r.reports = r.reports[:0]
}

// Checkpoint is an opaque mark returned by Mark and consumed by
// Since/Rollback, used by the macro engine's buffered-error rollback
// (spec.md §4.7 step 4).
type Checkpoint int

// Mark returns a checkpoint at the current report count.
func (r *Reporter) Mark() Checkpoint {
	return Checkpoint(len(r.reports))
}

// Since returns the reports recorded after cp, without removing them.
func (r *Reporter) Since(cp Checkpoint) []*Report {
	out := make([]*Report, len(r.reports)-int(cp))
	copy(out, r.reports[cp:])
	return out
}

// Discard removes every report recorded after cp — used when a macro
// argument lowering failure turns out not to matter because the
// overload chosen was a macro (spec.md §4.7 step 3).
func (r *Reporter) Discard(cp Checkpoint) {
	r.reports = r.reports[:cp]
}

// SortedByCode returns a copy of the reports sorted by code, used by
// deterministic test assertions.
func (r *Reporter) SortedByCode() []*Report {
	out := make([]*Report, len(r.reports))
	copy(out, r.reports)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Package merge implements the account merge workflow: an ordered pipeline
// of named steps that transfers every dependent record domain from one voter
// to another and reconciles their scalar fields.
package merge

import (
	"fmt"
	"strings"
)

// Outcome classifies the result of one workflow step.
type Outcome string

const (
	// OutcomeOK means the step completed.
	OutcomeOK Outcome = "ok"
	// OutcomeSkipped means the step had nothing to do.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeWriteFailure means a store write failed; the workflow records
	// it and continues with the remaining steps.
	OutcomeWriteFailure Outcome = "write_failure"
	// OutcomeManualIntervention means the workflow refused to proceed and
	// halted. No later step runs.
	OutcomeManualIntervention Outcome = "manual_intervention"
)

// StepResult is one entry of the structured merge log.
type StepResult struct {
	Step    string
	Outcome Outcome
	Detail  string
	Moved   int64
	Skipped int64
}

// Log is the ordered record of what a merge run did.
type Log []StepResult

// String joins the log into a single line for human-readable logging.
func (l Log) String() string {
	parts := make([]string, 0, len(l))
	for _, r := range l {
		s := fmt.Sprintf("%s:%s", r.Step, r.Outcome)
		if r.Moved != 0 || r.Skipped != 0 {
			s += fmt.Sprintf("(moved=%d skipped=%d)", r.Moved, r.Skipped)
		}
		if r.Detail != "" {
			s += " " + r.Detail
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "; ")
}

// HasOutcome reports whether any step ended with the given outcome.
func (l Log) HasOutcome(o Outcome) bool {
	for _, r := range l {
		if r.Outcome == o {
			return true
		}
	}
	return false
}

// TotalMoved sums moved counts across all steps.
func (l Log) TotalMoved() int64 {
	var n int64
	for _, r := range l {
		n += r.Moved
	}
	return n
}

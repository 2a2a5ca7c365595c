package executor

import (
	"fmt"

	"github.com/fortiblox/X1-Conduit/pkg/xcm"
)

// OutcomeKind tags the result of one message execution.
type OutcomeKind uint8

const (
	// OutcomeComplete means every instruction executed successfully.
	OutcomeComplete OutcomeKind = iota
	// OutcomeIncomplete means execution started but at least one
	// instruction failed; the first error is recorded.
	OutcomeIncomplete
	// OutcomeError means execution never started.
	OutcomeError
)

// Outcome is the result of one message execution.
type Outcome struct {
	Kind OutcomeKind

	// Used is the weight actually consumed; zero for OutcomeError.
	Used xcm.Weight

	// Error is the failure; meaningful unless Kind is OutcomeComplete.
	Error xcm.Error
}

// CompleteOutcome returns a fully successful outcome.
func CompleteOutcome(used xcm.Weight) Outcome {
	return Outcome{Kind: OutcomeComplete, Used: used}
}

// IncompleteOutcome returns a partially executed outcome.
func IncompleteOutcome(used xcm.Weight, err xcm.Error) Outcome {
	return Outcome{Kind: OutcomeIncomplete, Used: used, Error: err}
}

// ErrorOutcome returns an outcome for a message that never started.
func ErrorOutcome(err xcm.Error) Outcome {
	return Outcome{Kind: OutcomeError, Error: err}
}

// Succeeded returns true for a complete outcome.
func (o Outcome) Succeeded() bool {
	return o.Kind == OutcomeComplete
}

// String renders the outcome for logs.
func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeComplete:
		return fmt.Sprintf("complete(used=%d/%d)", o.Used.RefTime, o.Used.ProofSize)
	case OutcomeIncomplete:
		return fmt.Sprintf("incomplete(used=%d/%d, error=%v)", o.Used.RefTime, o.Used.ProofSize, o.Error)
	default:
		return fmt.Sprintf("error(%v)", o.Error)
	}
}

package pipeline

import (
	"fmt"
	"strings"
)

// Failure taxonomy. GenerationFailure, ValidationFailure and extract.ParseError
// are absorbed into retry attempts inside runWithRetry; PhaseExhausted is
// absorbed at the phase boundary and converted into a degraded default. None
// of these ever reach the caller of Run.

// GenerationFailure reports that the remote generation call itself failed.
type GenerationFailure struct {
	Phase string
	Err   error
}

func (e *GenerationFailure) Error() string {
	return fmt.Sprintf("%s: generation call failed: %v", e.Phase, e.Err)
}

func (e *GenerationFailure) Unwrap() error { return e.Err }

// ValidationFailure reports that a parsed payload failed schema checks.
// Errors is the ordered defect list produced by the validator.
type ValidationFailure struct {
	Phase  string
	Errors []string
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("%s: validation failed: %s", e.Phase, strings.Join(e.Errors, "; "))
}

// PhaseExhausted reports that a phase spent its whole retry budget without
// producing a valid artifact. LastErr is the failure of the final attempt.
type PhaseExhausted struct {
	Phase    string
	Attempts int
	LastErr  error
}

func (e *PhaseExhausted) Error() string {
	return fmt.Sprintf("%s: exhausted %d attempts: %v", e.Phase, e.Attempts, e.LastErr)
}

func (e *PhaseExhausted) Unwrap() error { return e.LastErr }

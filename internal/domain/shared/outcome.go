package shared

import (
	"errors"
	"fmt"
)

// OutcomeKind classifies how an at-least-once operation ended
type OutcomeKind string

const (
	OutcomeProcessed        OutcomeKind = "processed"
	OutcomeAlreadyProcessed OutcomeKind = "already_processed"
	OutcomeIgnored          OutcomeKind = "ignored"
	OutcomeValidationFailed OutcomeKind = "validation_failed"
	OutcomeNotFound         OutcomeKind = "not_found"
	OutcomeTransientFailure OutcomeKind = "transient_failure"
)

// Outcome is the explicit result of an idempotent operation.
// Duplicates are reported as AlreadyProcessed instead of surfacing storage errors.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
	Err    error
}

// Processed returns a successful outcome
func Processed() Outcome {
	return Outcome{Kind: OutcomeProcessed}
}

// AlreadyProcessed returns the outcome of a duplicate delivery
func AlreadyProcessed() Outcome {
	return Outcome{Kind: OutcomeAlreadyProcessed}
}

// Ignored returns the outcome of an event that was recorded but had no effect
func Ignored(reason string) Outcome {
	return Outcome{Kind: OutcomeIgnored, Reason: reason}
}

// Failed classifies err into a failure outcome
func Failed(err error) Outcome {
	return OutcomeFromError(err)
}

// OutcomeFromError maps domain errors onto outcome kinds.
// Anything that is not a known domain error is treated as transient.
func OutcomeFromError(err error) Outcome {
	if err == nil {
		return Processed()
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return Outcome{Kind: OutcomeNotFound, Reason: err.Error(), Err: err}
	case errors.Is(err, ErrConcurrencyConflict):
		return Outcome{Kind: OutcomeTransientFailure, Reason: err.Error(), Err: err}
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidState):
		return Outcome{Kind: OutcomeValidationFailed, Reason: err.Error(), Err: err}
	}
	var de *DomainError
	if errors.As(err, &de) {
		return Outcome{Kind: OutcomeValidationFailed, Reason: err.Error(), Err: err}
	}
	return Outcome{Kind: OutcomeTransientFailure, Reason: err.Error(), Err: err}
}

// IsSuccess reports whether callers should treat the delivery as accepted
func (o Outcome) IsSuccess() bool {
	switch o.Kind {
	case OutcomeProcessed, OutcomeAlreadyProcessed, OutcomeIgnored:
		return true
	}
	return false
}

func (o Outcome) String() string {
	if o.Reason == "" {
		return string(o.Kind)
	}
	return fmt.Sprintf("%s: %s", o.Kind, o.Reason)
}

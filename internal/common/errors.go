// Package common defines the sentinel errors shared by the check-in engine,
// its storage layer and its callers. Callers should match them with errors.Is.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Submission outcomes.
	ErrValidation           = errors.New("validation error")
	ErrDuplicateSubmission  = errors.New("duplicate submission")
	ErrSubmissionInProgress = errors.New("submission in progress")
	ErrNetwork              = errors.New("network error")
	ErrAttemptCanceled      = errors.New("attempt canceled")

	// Post-commit bookkeeping failed; the remote write still stands.
	ErrReconciliation = errors.New("reconciliation error")
)

// SubmissionError describes why an attempt did not commit.
//
// Retryable is set when the write was not confirmed and a new attempt is safe:
// the new attempt re-runs the duplicate check before appending.
type SubmissionError struct {
	Kind      error
	Reason    string
	Retryable bool
	Err       error
}

func (e *SubmissionError) Error() string {
	msg := e.Kind.Error()
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *SubmissionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Rejected builds a submission error for a refused attempt. Only a refusal
// because another attempt is in flight can be retried, once that attempt ends.
func Rejected(kind error, reason string) *SubmissionError {
	return &SubmissionError{Kind: kind, Reason: reason, Retryable: errors.Is(kind, ErrSubmissionInProgress)}
}

// Failed builds a submission error for an unconfirmed write.
func Failed(kind error, err error) *SubmissionError {
	return &SubmissionError{Kind: kind, Retryable: true, Err: err}
}

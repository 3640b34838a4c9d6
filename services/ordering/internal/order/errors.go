package order

import (
	"errors"
	"fmt"

	"github.com/appetiteclub/tableside/services/ordering/internal/session"
)

// ValidationError is shared with the session package so that a bad table
// number is reported the same way at entry and at submission.
type ValidationError = session.ValidationError

var (
	ErrSubmissionInProgress = errors.New("an order for this cart is already being submitted")
	ErrNoSubmitter          = errors.New("order submitter not configured")
)

// SubmissionError reports that the order was not accepted. The cart and the
// accumulator are left as they were before the call.
type SubmissionError struct {
	OrderID string
	Scope   Scope
	Err     error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("order %s (%s) was not accepted: %v", e.OrderID, e.Scope, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// RejectedError carries the message of a collaborator that answered with a
// failed result instead of an error.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	if e.Reason == "" {
		return "order rejected"
	}
	return "order rejected: " + e.Reason
}

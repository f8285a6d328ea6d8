package risk

import (
	"errors"
	"fmt"
)

// ErrAnalysisFailed wraps every error an analyzer returns.
var ErrAnalysisFailed = errors.New("analysis failed")

// ValidationError reports caller input that cannot be analyzed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// FetchError reports a fullnode read that failed or returned something
// unusable.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ComputationError reports an unexpected internal fault while scoring.
type ComputationError struct {
	Op  string
	Err error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

// IsValidation reports whether err was caused by bad caller input.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func failed(err error) error {
	return fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
}

// recoverComputation turns a panic in the calling function into a
// ComputationError assigned to *errp. Use as a deferred call.
func recoverComputation(errp *error, op string) {
	if r := recover(); r != nil {
		*errp = failed(&ComputationError{Op: op, Err: fmt.Errorf("panic: %v", r)})
	}
}

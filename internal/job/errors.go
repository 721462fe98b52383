package job

import (
	"fmt"

	"interviewhub/internal/errors"
)

var (
	// ErrJobState matches every JobStateError.
	ErrJobState = errors.New("job state error")
	// ErrPolicyValidation matches every PolicyValidationError.
	ErrPolicyValidation = errors.New("policy validation error")
)

// JobStateError reports an operation that the job's current status forbids.
type JobStateError struct {
	Op     string
	Status Status
}

func (e *JobStateError) Error() string {
	return fmt.Sprintf("cannot %s job in status %s", e.Op, e.Status)
}

// PolicyValidationError reports an invalid policy value or a mutation of a frozen policy.
type PolicyValidationError struct {
	Field  string
	Reason string
}

func (e *PolicyValidationError) Error() string {
	if e.Field == "" {
		return "invalid policy: " + e.Reason
	}
	return fmt.Sprintf("invalid policy %s: %s", e.Field, e.Reason)
}

func stateError(op string, status Status) error {
	return errors.WithStack(errors.Mark(&JobStateError{Op: op, Status: status}, ErrJobState))
}

func policyError(field, reason string) error {
	return errors.WithStack(errors.Mark(&PolicyValidationError{Field: field, Reason: reason}, ErrPolicyValidation))
}

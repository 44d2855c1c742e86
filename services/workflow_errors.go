package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by the workflow service. Controllers map these to
// HTTP status codes; none of them is transient, retrying without changing
// the request or the algorithm's state will fail the same way.
var (
	ErrAlgorithmNotFound   = errors.New("algorithm not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrNoReviewersSelected = errors.New("at least one reviewer must be selected")
	ErrReviewerNotAssigned = errors.New("reviewer is not assigned to this algorithm")
	ErrMissingComments     = errors.New("review comments are required for this conclusion")
	ErrForbidden           = errors.New("insufficient permissions")
	ErrConflict            = errors.New("algorithm was modified concurrently, reload and retry")
	ErrStorageUnavailable  = errors.New("storage unavailable")
)

// InvalidTransitionError reports an operation fired from a status that does
// not allow it. The algorithm is left unchanged.
type InvalidTransitionError struct {
	Status string
	Event  string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: cannot %s while status is %s", e.Event, e.Status)
}

// ValidationError carries field-level problems from structural validation of
// a submission payload.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Issues, "; ")
}

// storageError wraps persistence-layer faults so callers can match on
// ErrStorageUnavailable without caring about the driver error.
func storageError(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

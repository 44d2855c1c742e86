package services

import "algo-asset-api/models"

// Workflow events. Each event is legal from exactly one status; anything
// else is an InvalidTransitionError and a no-op on stored data.
const (
	EventSubmit          = "submit"
	EventAssignReviewers = "assign_reviewers"
	EventSubmitReview    = "submit_review"
	EventConfirmResult   = "confirm_result"
	EventProductHandoff  = "product_handoff"
	EventFrontendHandoff = "frontend_handoff"
	EventDeprecate       = "deprecate"
)

// eventSourceStatus is the status an algorithm must be in for the event to
// fire. Target statuses are decided by the operations themselves because
// submit_review and confirm_result branch on their outcome.
var eventSourceStatus = map[string]string{
	EventSubmit:          models.StatusDraft,
	EventAssignReviewers: models.StatusPendingReview,
	EventSubmitReview:    models.StatusUnderReview,
	EventConfirmResult:   models.StatusPendingConfirmation,
	EventProductHandoff:  models.StatusPendingProduct,
	EventFrontendHandoff: models.StatusPendingFrontend,
	EventDeprecate:       models.StatusLive,
}

// checkTransition rejects an event fired from the wrong status.
func checkTransition(current, event string) error {
	if want, ok := eventSourceStatus[event]; !ok || current != want {
		return &InvalidTransitionError{Status: current, Event: event}
	}
	return nil
}

// CanFire reports whether the event is legal from the given status. Used by
// the presentation layer to decide which actions to offer.
func CanFire(current, event string) bool {
	return checkTransition(current, event) == nil
}

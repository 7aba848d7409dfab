package subscription

import "errors"

// Every error here is recoverable and user-facing; none is fatal to the
// process. Handlers map them onto HTTP statuses.
var (
	// ErrNoOccurrences means no deliverable week survived filtering;
	// the caller should send the customer to delivery setup.
	ErrNoOccurrences = errors.New("no deliverable occurrences available")

	// ErrCartLocked rejects any mutation against a week that is
	// invalid or whose order cart reached a terminal status.
	ErrCartLocked = errors.New("week cart is locked")

	// ErrCartFull rejects an add when no empty slot remains; callers
	// may route this into an add-on flow.
	ErrCartFull = errors.New("week cart is full")

	// ErrDuplicateSelection rejects re-adding a single-select product
	// while the cart status disallows it.
	ErrDuplicateSelection = errors.New("product is single-select and already selected")

	// ErrPlanMismatch flags a server cart whose product count differs
	// from the plan's recipe count. Never silently padded or truncated;
	// a mismatch implies a plan change and the session must restart.
	ErrPlanMismatch = errors.New("server cart does not match plan capacity")

	// ErrSlotIndex rejects a remove outside the slot array.
	ErrSlotIndex = errors.New("slot index out of range")

	// ErrSubmitInFlight guards against duplicate submissions for the
	// same session.
	ErrSubmitInFlight = errors.New("a submission is already in flight")

	// ErrSessionNotFound covers unknown or expired menu sessions.
	ErrSessionNotFound = errors.New("menu session not found")

	// ErrNotHydrated rejects mutations against a week whose cart has
	// not been hydrated since it became active.
	ErrNotHydrated = errors.New("week cart has not been hydrated yet")

	// ErrServerCartUnavailable means the server cart could not be
	// fetched; the week stays un-hydrated and edits stay blocked until
	// a retry succeeds.
	ErrServerCartUnavailable = errors.New("server cart could not be fetched")

	// ErrUnknownDirection rejects an advance that is neither "next"
	// nor "previous".
	ErrUnknownDirection = errors.New("unknown advance direction")

	// ErrCartIncomplete rejects submitting a week with empty slots.
	ErrCartIncomplete = errors.New("week cart is not complete")
)

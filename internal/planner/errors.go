package planner

import "errors"

var (
	// ErrNoMealPlans means generation was requested for a range with no
	// scheduled meals. Callers should prompt the user rather than treat it as a fault.
	ErrNoMealPlans = errors.New("no meal plans scheduled in range")

	// ErrReadOnlyPeriod means a mutation targeted a list whose period has ended.
	ErrReadOnlyPeriod = errors.New("period is read-only")

	// ErrItemIndexOutOfRange means the client referenced an item the list does not have.
	ErrItemIndexOutOfRange = errors.New("item index out of range")

	// ErrStoreUnavailable wraps persistence failures. The cause stays in the chain.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrListNotFound means the list does not exist or belongs to another user.
	ErrListNotFound = errors.New("grocery list not found")

	// ErrStaleRevision means the list changed since the client last read it.
	ErrStaleRevision = errors.New("grocery list changed since it was read")

	// ErrInvalidRange means the period end precedes its start.
	ErrInvalidRange = errors.New("invalid date range")
)

package visits

import "errors"

var (
	// ErrAlreadyCheckedIn is the same-day dedup rejection: the patient
	// already has an active visit today.
	ErrAlreadyCheckedIn = errors.New("visits: already checked in today")

	// ErrVisitNotFound is returned when no visit matches the id for the day.
	ErrVisitNotFound = errors.New("visits: visit not found")

	// ErrInvalidStatus is returned for an unknown target status.
	ErrInvalidStatus = errors.New("visits: invalid status")

	// ErrForbidden is returned when a session's role does not permit the
	// operation.
	ErrForbidden = errors.New("visits: operation not permitted for this session")
)

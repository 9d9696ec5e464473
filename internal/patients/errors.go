package patients

import "errors"

var (
	// ErrPatientNotFound is returned when no record exists for a patient
	// number. The name-verification strategy never surfaces it to callers;
	// it hides behind ErrIdentityMismatch so valid card numbers cannot be
	// probed.
	ErrPatientNotFound = errors.New("patients: patient not found")

	// ErrIdentityMismatch is the deliberately generic credential failure:
	// it does not reveal which of card number, name or birth date was wrong.
	ErrIdentityMismatch = errors.New("patients: patient id or credential does not match")

	// ErrAlreadyLinked is returned when a record is bound to a different
	// messaging identity than the caller's.
	ErrAlreadyLinked = errors.New("patients: patient record is linked to another account")
)

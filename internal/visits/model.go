package visits

import "time"

// Status of one check-in event. The state machine is deliberately flat:
// staff may move a visit between any two states to correct mistakes.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the three known states.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// Creator values for the createdBy field.
const (
	CreatedByPatient = "patient"
	CreatedByStaff   = "staff"
)

// ClosedByStaff marks visits cancelled by the end-of-day bulk close.
const ClosedByStaff = "staff"

// Visit is one check-in event for one patient on one clinic day. Name is
// denormalized at creation and corrected independently by staff.
type Visit struct {
	ID             string     `dynamodbav:"id" json:"id"`
	Date           string     `dynamodbav:"date" json:"date"`
	PatientID      string     `dynamodbav:"patientId" json:"patientId"`
	Name           string     `dynamodbav:"name" json:"name"`
	LinkedIdentity string     `dynamodbav:"linkedIdentity,omitempty" json:"linkedIdentity,omitempty"`
	OwnerSubjectID string     `dynamodbav:"ownerSubjectId,omitempty" json:"ownerSubjectId,omitempty"`
	Status         Status     `dynamodbav:"status" json:"status"`
	ArrivedAt      time.Time  `dynamodbav:"arrivedAt" json:"arrivedAt"`
	CompletedAt    *time.Time `dynamodbav:"completedAt,omitempty" json:"completedAt,omitempty"`
	CreatedBy      string     `dynamodbav:"createdBy" json:"createdBy"`
	ClosedBy       string     `dynamodbav:"closedBy,omitempty" json:"closedBy,omitempty"`
	ReceiptStatus  bool       `dynamodbav:"receiptStatus" json:"receiptStatus"`
}

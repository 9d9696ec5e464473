package patients

import "time"

// Patient is one clinic registrant. The patientId is the clinic-issued
// card number and doubles as the document key; it is never generated here.
type Patient struct {
	PatientID      string     `dynamodbav:"patientId" json:"patientId"`
	Name           string     `dynamodbav:"name" json:"name"`
	Kana           string     `dynamodbav:"kana,omitempty" json:"kana,omitempty"`
	BirthDate      string     `dynamodbav:"birthDate,omitempty" json:"birthDate,omitempty"`
	LinkedIdentity string     `dynamodbav:"linkedIdentity,omitempty" json:"linkedIdentity,omitempty"`
	OwnerSubjectID string     `dynamodbav:"ownerSubjectId,omitempty" json:"ownerSubjectId,omitempty"`
	LinkedAt       *time.Time `dynamodbav:"linkedAt,omitempty" json:"linkedAt,omitempty"`
	LastVisit      *time.Time `dynamodbav:"lastVisit,omitempty" json:"lastVisit,omitempty"`
	UpdatedAt      time.Time  `dynamodbav:"updatedAt" json:"updatedAt"`
}

// Linked reports whether the record is already bound to a messaging identity.
func (p *Patient) Linked() bool {
	return p != nil && p.LinkedIdentity != ""
}

// LinkRequest carries a patient's attempt to bind their card number to the
// calling session's identity. BirthDate is only consulted by the
// birth-date verification strategy.
type LinkRequest struct {
	PatientID string `json:"patientId"`
	Name      string `json:"name"`
	Kana      string `json:"kana,omitempty"`
	BirthDate string `json:"birthDate,omitempty"`
}

// ImportRecord is one parsed line of a staff bulk-import file.
type ImportRecord struct {
	PatientID string
	Name      string
}

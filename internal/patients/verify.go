package patients

import (
	"context"
	"fmt"

	"github.com/nssukenkyu-prog/SCC-reception-system/internal/config"
)

// Verifier checks the claimed credential in a link request against the
// stored record. Which field it reads depends on the configured strategy:
// the display name for VerifyByName, the birth date for VerifyByBirthDate.
type Verifier interface {
	Verify(ctx context.Context, req LinkRequest) (*Patient, error)
}

// Finder is the read surface a verifier needs.
type Finder interface {
	GetByID(ctx context.Context, patientID string) (*Patient, error)
}

// NewVerifier selects the verification strategy. Unknown names fall back
// to name matching, the strategy the clinic has run longest.
func NewVerifier(strategy string, finder Finder) Verifier {
	if strategy == config.VerifyByBirthDate {
		return &birthDateVerifier{finder: finder}
	}
	return &nameVerifier{finder: finder}
}

// nameVerifier performs blind verification: a missing record and a name
// mismatch produce the same error so card numbers cannot be enumerated.
type nameVerifier struct {
	finder Finder
}

func (v *nameVerifier) Verify(ctx context.Context, req LinkRequest) (*Patient, error) {
	p, err := v.finder.GetByID(ctx, NormalizeDigits(req.PatientID))
	if err != nil {
		return nil, fmt.Errorf("patients: verify lookup: %w", err)
	}
	if p == nil {
		return nil, ErrIdentityMismatch
	}
	if NormalizeName(p.Name) != NormalizeName(req.Name) {
		return nil, ErrIdentityMismatch
	}
	return p, nil
}

// birthDateVerifier distinguishes "unknown card number" (the caller may
// proceed to self-registration) from "known number, wrong date" (hard
// failure that never reveals the stored date).
type birthDateVerifier struct {
	finder Finder
}

func (v *birthDateVerifier) Verify(ctx context.Context, req LinkRequest) (*Patient, error) {
	p, err := v.finder.GetByID(ctx, NormalizeDigits(req.PatientID))
	if err != nil {
		return nil, fmt.Errorf("patients: verify lookup: %w", err)
	}
	if p == nil {
		return nil, ErrPatientNotFound
	}
	if p.BirthDate == "" || NormalizeDigits(p.BirthDate) != NormalizeDigits(req.BirthDate) {
		return nil, ErrIdentityMismatch
	}
	return p, nil
}

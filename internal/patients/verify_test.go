package patients

import (
	"context"
	"errors"
	"testing"

	"github.com/nssukenkyu-prog/SCC-reception-system/internal/config"
)

type stubFinder struct {
	patient *Patient
	err     error
}

func (f *stubFinder) GetByID(ctx context.Context, patientID string) (*Patient, error) {
	return f.patient, f.err
}

func TestNameVerifier_Match(t *testing.T) {
	finder := &stubFinder{patient: &Patient{PatientID: "1001", Name: "山田太郎"}}
	v := NewVerifier(config.VerifyByName, finder)

	p, err := v.Verify(context.Background(), LinkRequest{PatientID: "1001", Name: "山田 太郎"})
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if p.PatientID != "1001" {
		t.Fatalf("unexpected patient: %#v", p)
	}
}

func TestNameVerifier_MismatchAndAbsentAreIndistinguishable(t *testing.T) {
	v := NewVerifier(config.VerifyByName, &stubFinder{patient: &Patient{PatientID: "1001", Name: "山田太郎"}})
	_, mismatchErr := v.Verify(context.Background(), LinkRequest{PatientID: "1001", Name: "佐藤花子"})

	v = NewVerifier(config.VerifyByName, &stubFinder{})
	_, absentErr := v.Verify(context.Background(), LinkRequest{PatientID: "9999", Name: "山田太郎"})

	if !errors.Is(mismatchErr, ErrIdentityMismatch) {
		t.Fatalf("expected mismatch error, got %v", mismatchErr)
	}
	if !errors.Is(absentErr, ErrIdentityMismatch) {
		t.Fatalf("expected the same error for an unknown number, got %v", absentErr)
	}
}

func TestBirthDateVerifier(t *testing.T) {
	finder := &stubFinder{patient: &Patient{PatientID: "1001", Name: "山田太郎", BirthDate: "1990-04-01"}}
	v := NewVerifier(config.VerifyByBirthDate, finder)

	if _, err := v.Verify(context.Background(), LinkRequest{PatientID: "1001", BirthDate: "1990-04-01"}); err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if _, err := v.Verify(context.Background(), LinkRequest{PatientID: "1001", BirthDate: "1991-04-01"}); !errors.Is(err, ErrIdentityMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

func TestBirthDateVerifier_UnknownNumberIsNotFound(t *testing.T) {
	v := NewVerifier(config.VerifyByBirthDate, &stubFinder{})
	if _, err := v.Verify(context.Background(), LinkRequest{PatientID: "9999", BirthDate: "1990-04-01"}); !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBirthDateVerifier_StoredDateMissingNeverMatches(t *testing.T) {
	finder := &stubFinder{patient: &Patient{PatientID: "1001", Name: "山田太郎"}}
	v := NewVerifier(config.VerifyByBirthDate, finder)
	if _, err := v.Verify(context.Background(), LinkRequest{PatientID: "1001", BirthDate: ""}); !errors.Is(err, ErrIdentityMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

func TestNewVerifier_UnknownStrategyFallsBackToName(t *testing.T) {
	v := NewVerifier("something-else", &stubFinder{patient: &Patient{PatientID: "1001", Name: "山田太郎"}})
	if _, ok := v.(*nameVerifier); !ok {
		t.Fatalf("expected name verifier, got %T", v)
	}
}

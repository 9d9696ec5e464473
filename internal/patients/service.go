package patients

import (
	"context"
	"errors"
	"strings"

	"github.com/nssukenkyu-prog/SCC-reception-system/internal/clinictime"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/events"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/identity"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/observability/metrics"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/store"
	"github.com/nssukenkyu-prog/SCC-reception-system/pkg/logging"
)

// ErrInvalidInput rejects link requests missing their required fields
// before any store round trip.
var ErrInvalidInput = errors.New("patients: patient id and name are required")

// ActiveVisitKeyLister locates a patient's active visits so a name
// correction can rewrite them in the same transaction.
type ActiveVisitKeyLister interface {
	ListActiveVisitKeys(ctx context.Context, date, patientID string) ([]store.Key, error)
}

// Service owns patient identity: lookups, verification, linking and
// staff corrections. Every operation takes the caller's session
// explicitly.
type Service struct {
	repo      Repository
	verifier  Verifier
	visitKeys ActiveVisitKeyLister
	bus       events.Bus
	clock     *clinictime.Clock
	metrics   *metrics.ReceptionMetrics
	logger    *logging.Logger
}

// NewService wires the directory.
func NewService(repo Repository, verifier Verifier, visitKeys ActiveVisitKeyLister, bus events.Bus, clock *clinictime.Clock, m *metrics.ReceptionMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:      repo,
		verifier:  verifier,
		visitKeys: visitKeys,
		bus:       bus,
		clock:     clock,
		metrics:   m,
		logger:    logger,
	}
}

// LookupByIdentity resolves the session's linked patient record, or nil
// when the identity has never linked (the auto-login path).
func (s *Service) LookupByIdentity(ctx context.Context, sess identity.Session) (*Patient, error) {
	return s.repo.GetByIdentity(ctx, sess.Subject)
}

// LookupByID returns the record for a card number, or nil. Staff-side
// autofill; patient-facing flows go through Verify instead.
func (s *Service) LookupByID(ctx context.Context, patientID string) (*Patient, error) {
	return s.repo.GetByID(ctx, NormalizeDigits(patientID))
}

// Verify runs the configured verification strategy without writing.
func (s *Service) Verify(ctx context.Context, req LinkRequest) (*Patient, error) {
	return s.verifier.Verify(ctx, req)
}

// Link binds the card number to the session's identity. An unknown number
// self-registers; a known one is re-verified here regardless of any
// earlier Verify call, because Link is independently invocable.
func (s *Service) Link(ctx context.Context, sess identity.Session, req LinkRequest) (*Patient, error) {
	req.PatientID = NormalizeDigits(req.PatientID)
	req.Name = strings.TrimSpace(req.Name)
	if req.PatientID == "" || req.Name == "" {
		return nil, ErrInvalidInput
	}

	existing, err := s.repo.GetByID(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		p, err := s.register(ctx, sess, req)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrAlreadyLinked) {
			return nil, err
		}
		// Lost a creation race; fall through to the link path against
		// the record the winner wrote.
	}

	if _, err := s.verifier.Verify(ctx, req); err != nil {
		s.metrics.ObserveLinkAttempt("mismatch")
		return nil, err
	}

	p, err := s.repo.Link(ctx, req.PatientID, sess.Subject, sess.Subject, s.clock.Now())
	if err != nil {
		if errors.Is(err, ErrAlreadyLinked) {
			s.metrics.ObserveLinkAttempt("already_linked")
		}
		return nil, err
	}
	s.metrics.ObserveLinkAttempt("linked")
	s.logger.Info("patient linked", "patient_id", p.PatientID)
	return p, nil
}

func (s *Service) register(ctx context.Context, sess identity.Session, req LinkRequest) (*Patient, error) {
	now := s.clock.Now()
	p := &Patient{
		PatientID:      req.PatientID,
		Name:           req.Name,
		Kana:           strings.TrimSpace(req.Kana),
		BirthDate:      req.BirthDate,
		LinkedIdentity: sess.Subject,
		OwnerSubjectID: sess.Subject,
		LinkedAt:       &now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.metrics.ObserveLinkAttempt("registered")
	s.logger.Info("patient self-registered", "patient_id", p.PatientID)
	return p, nil
}

// CorrectName overwrites the stored name and propagates it to today's
// active visits atomically, so the queue and the directory never visibly
// disagree while the patient waits.
func (s *Service) CorrectName(ctx context.Context, sess identity.Session, patientID, name string) error {
	if sess.Role != identity.RoleStaff {
		return ErrForbidden
	}
	patientID = NormalizeDigits(patientID)
	name = strings.TrimSpace(name)
	if patientID == "" || name == "" {
		return ErrInvalidInput
	}

	today := s.clock.Today()
	keys, err := s.visitKeys.ListActiveVisitKeys(ctx, today, patientID)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateName(ctx, patientID, name, keys, s.clock.Now()); err != nil {
		return err
	}
	s.logger.Info("patient name corrected", "patient_id", patientID, "active_visits", len(keys))
	if len(keys) > 0 {
		if err := s.bus.PublishVisitChange(ctx, events.VisitChange{Date: today, At: s.clock.Now()}); err != nil {
			s.logger.Warn("failed to publish visit change after rename", "error", err)
		}
	}
	return nil
}

// ErrForbidden is returned when a session's role does not permit the
// operation.
var ErrForbidden = errors.New("patients: operation not permitted for this session")

package visits

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/clinictime"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/events"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/identity"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/observability/metrics"
	"github.com/nssukenkyu-prog/SCC-reception-system/pkg/logging"
)

// PatientToucher stamps the directory's lastVisit field. Best effort; the
// visit itself is the source of truth.
type PatientToucher interface {
	TouchLastVisit(ctx context.Context, patientID string, at time.Time) error
}

// CheckInInput is the patient snapshot copied onto a new visit.
type CheckInInput struct {
	PatientID      string
	Name           string
	LinkedIdentity string
	OwnerSubjectID string
}

// Service owns the visit lifecycle. Every operation takes the caller's
// session explicitly; there is no ambient signed-in user.
type Service struct {
	repo     Repository
	patients PatientToucher
	bus      events.Bus
	clock    *clinictime.Clock
	metrics  *metrics.ReceptionMetrics
	logger   *logging.Logger
}

// NewService wires the queue.
func NewService(repo Repository, patients PatientToucher, bus events.Bus, clock *clinictime.Clock, m *metrics.ReceptionMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, patients: patients, bus: bus, clock: clock, metrics: m, logger: logger}
}

// ListByDate returns the day's queue in arrival order.
func (s *Service) ListByDate(ctx context.Context, date string) ([]Visit, error) {
	return s.repo.ListByDate(ctx, date)
}

// Today exposes the clinic-local day for handlers defaulting a date.
func (s *Service) Today() string {
	return s.clock.Today()
}

// CheckInSelf registers the patient's own arrival, subject to the
// same-day dedup invariant.
func (s *Service) CheckInSelf(ctx context.Context, sess identity.Session, in CheckInInput) (*Visit, error) {
	if sess.Role != identity.RolePatient {
		return nil, ErrForbidden
	}
	now := s.clock.Now()
	v := &Visit{
		ID:             uuid.NewString(),
		Date:           s.clock.Today(),
		PatientID:      in.PatientID,
		Name:           in.Name,
		LinkedIdentity: in.LinkedIdentity,
		OwnerSubjectID: in.OwnerSubjectID,
		Status:         StatusActive,
		ArrivedAt:      now,
		CreatedBy:      CreatedByPatient,
	}

	if err := s.repo.CheckIn(ctx, v); err != nil {
		if errors.Is(err, ErrAlreadyCheckedIn) {
			s.metrics.ObserveDuplicateCheckin()
		}
		return nil, err
	}

	if err := s.patients.TouchLastVisit(ctx, in.PatientID, now); err != nil {
		s.logger.Warn("failed to stamp last visit", "patient_id", in.PatientID, "error", err)
	}
	s.metrics.ObserveCheckin(CreatedByPatient)
	s.logger.Info("patient checked in", "visit_id", v.ID, "patient_id", in.PatientID, "date", v.Date)
	s.announce(ctx, v.Date)
	return v, nil
}

// CheckInProxy registers an arrival on a patient's behalf. The desk
// override skips the dedup check, but the marker is still recorded so a
// subsequent self check-in dedups against the proxy visit.
func (s *Service) CheckInProxy(ctx context.Context, sess identity.Session, patientID, name string) (*Visit, error) {
	if sess.Role != identity.RoleStaff {
		return nil, ErrForbidden
	}
	v := &Visit{
		ID:        uuid.NewString(),
		Date:      s.clock.Today(),
		PatientID: patientID,
		Name:      name,
		Status:    StatusActive,
		ArrivedAt: s.clock.Now(),
		CreatedBy: CreatedByStaff,
	}
	if err := s.repo.CreateProxy(ctx, v); err != nil {
		return nil, err
	}
	s.metrics.ObserveCheckin(CreatedByStaff)
	s.logger.Info("proxy visit created", "visit_id", v.ID, "patient_id", patientID)
	s.announce(ctx, v.Date)
	return v, nil
}

// UpdateStatus moves a visit to the requested state.
func (s *Service) UpdateStatus(ctx context.Context, sess identity.Session, date, visitID string, to Status) (*Visit, error) {
	if sess.Role != identity.RoleStaff {
		return nil, ErrForbidden
	}
	v, err := s.repo.UpdateStatus(ctx, date, visitID, to, s.clock.Now())
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveTransition(string(to))
	s.logger.Info("visit status updated", "visit_id", visitID, "to", to)
	s.announce(ctx, date)
	return v, nil
}

// CloseAllActive cancels the remaining queue at end of day.
func (s *Service) CloseAllActive(ctx context.Context, sess identity.Session, date string) (int, error) {
	if sess.Role != identity.RoleStaff {
		return 0, ErrForbidden
	}
	closed, err := s.repo.CloseAllActive(ctx, date)
	if err != nil {
		return 0, err
	}
	s.logger.Info("closed all active visits", "date", date, "count", closed)
	if closed > 0 {
		s.announce(ctx, date)
	}
	return closed, nil
}

// ToggleReceipt flips the receipt annotation.
func (s *Service) ToggleReceipt(ctx context.Context, sess identity.Session, date, visitID string) (*Visit, error) {
	if sess.Role != identity.RoleStaff {
		return nil, ErrForbidden
	}
	v, err := s.repo.ToggleReceipt(ctx, date, visitID)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, date)
	return v, nil
}

func (s *Service) announce(ctx context.Context, date string) {
	change := events.VisitChange{Date: date, At: s.clock.Now()}
	if err := s.bus.PublishVisitChange(ctx, change); err != nil {
		// Subscribers heal on their next event; the write itself committed.
		s.logger.Warn("failed to publish visit change", "date", date, "error", err)
	}
}

package patients

import (
	"context"
	"sync"
	"time"

	"github.com/nssukenkyu-prog/SCC-reception-system/internal/store"
)

// InMemoryRepository implements Repository with a mutex-guarded map. It
// mirrors the conditional-write semantics of the DynamoDB repository so
// the link race is testable without a store.
type InMemoryRepository struct {
	mu       sync.Mutex
	patients map[string]*Patient
}

var _ Repository = (*InMemoryRepository)(nil)

// NewInMemoryRepository creates an empty in-memory directory.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{patients: make(map[string]*Patient)}
}

func (r *InMemoryRepository) GetByID(ctx context.Context, patientID string) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[patientID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *InMemoryRepository) GetByIdentity(ctx context.Context, subject string) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.patients {
		if p.LinkedIdentity == subject {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *InMemoryRepository) Create(ctx context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.patients[p.PatientID]; exists {
		return ErrAlreadyLinked
	}
	cp := *p
	r.patients[p.PatientID] = &cp
	return nil
}

func (r *InMemoryRepository) Link(ctx context.Context, patientID, identity, owner string, at time.Time) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[patientID]
	if !ok {
		return nil, ErrAlreadyLinked
	}
	if p.LinkedIdentity != "" && p.LinkedIdentity != identity {
		return nil, ErrAlreadyLinked
	}
	linkedAt := at
	p.LinkedIdentity = identity
	p.OwnerSubjectID = owner
	p.LinkedAt = &linkedAt
	p.UpdatedAt = at
	cp := *p
	return &cp, nil
}

func (r *InMemoryRepository) TouchLastVisit(ctx context.Context, patientID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.patients[patientID]; ok {
		visitedAt := at
		p.LastVisit = &visitedAt
	}
	return nil
}

func (r *InMemoryRepository) UpdateName(ctx context.Context, patientID, name string, visitKeys []store.Key, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[patientID]
	if !ok {
		return ErrPatientNotFound
	}
	p.Name = name
	p.UpdatedAt = at
	return nil
}

func (r *InMemoryRepository) BulkUpsert(ctx context.Context, records []ImportRecord, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		if p, ok := r.patients[rec.PatientID]; ok {
			p.Name = rec.Name
			p.UpdatedAt = at
			continue
		}
		r.patients[rec.PatientID] = &Patient{
			PatientID: rec.PatientID,
			Name:      rec.Name,
			UpdatedAt: at,
		}
	}
	return nil
}

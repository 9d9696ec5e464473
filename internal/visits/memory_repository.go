package visits

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nssukenkyu-prog/SCC-reception-system/internal/store"
)

// InMemoryRepository implements Repository with the same marker semantics
// as the DynamoDB repository, so the dedup race is testable in-process.
type InMemoryRepository struct {
	mu      sync.Mutex
	visits  map[string][]Visit          // date -> visits
	markers map[string]map[string]bool  // date -> patientID -> active marker
}

var _ Repository = (*InMemoryRepository)(nil)

// NewInMemoryRepository creates an empty queue.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		visits:  make(map[string][]Visit),
		markers: make(map[string]map[string]bool),
	}
}

func (r *InMemoryRepository) ListByDate(ctx context.Context, date string) ([]Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Visit, len(r.visits[date]))
	copy(out, r.visits[date])
	sort.Slice(out, func(i, j int) bool { return out[i].ArrivedAt.Before(out[j].ArrivedAt) })
	return out, nil
}

func (r *InMemoryRepository) CheckIn(ctx context.Context, v *Visit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markers[v.Date][v.PatientID] {
		return ErrAlreadyCheckedIn
	}
	if r.markers[v.Date] == nil {
		r.markers[v.Date] = make(map[string]bool)
	}
	r.markers[v.Date][v.PatientID] = true
	r.visits[v.Date] = append(r.visits[v.Date], *v)
	return nil
}

func (r *InMemoryRepository) CreateProxy(ctx context.Context, v *Visit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markers[v.Date] == nil {
		r.markers[v.Date] = make(map[string]bool)
	}
	r.markers[v.Date][v.PatientID] = true
	r.visits[v.Date] = append(r.visits[v.Date], *v)
	return nil
}

func (r *InMemoryRepository) UpdateStatus(ctx context.Context, date, visitID string, to Status, at time.Time) (*Visit, error) {
	if !to.Valid() {
		return nil, ErrInvalidStatus
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	day := r.visits[date]
	for i := range day {
		if day[i].ID != visitID {
			continue
		}
		day[i].Status = to
		switch to {
		case StatusPaid:
			completed := at
			day[i].CompletedAt = &completed
			r.clearMarkerIfLastActive(date, day[i].PatientID)
		case StatusCancelled:
			r.clearMarkerIfLastActive(date, day[i].PatientID)
		case StatusActive:
			day[i].CompletedAt = nil
			day[i].ClosedBy = ""
			if r.markers[date] == nil {
				r.markers[date] = make(map[string]bool)
			}
			r.markers[date][day[i].PatientID] = true
		}
		v := day[i]
		return &v, nil
	}
	return nil, ErrVisitNotFound
}

func (r *InMemoryRepository) CloseAllActive(ctx context.Context, date string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	day := r.visits[date]
	closed := 0
	for i := range day {
		if day[i].Status != StatusActive {
			continue
		}
		day[i].Status = StatusCancelled
		day[i].ClosedBy = ClosedByStaff
		r.clearMarker(date, day[i].PatientID)
		closed++
	}
	return closed, nil
}

func (r *InMemoryRepository) ToggleReceipt(ctx context.Context, date, visitID string) (*Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	day := r.visits[date]
	for i := range day {
		if day[i].ID == visitID {
			day[i].ReceiptStatus = !day[i].ReceiptStatus
			v := day[i]
			return &v, nil
		}
	}
	return nil, ErrVisitNotFound
}

func (r *InMemoryRepository) ListActiveVisitKeys(ctx context.Context, date, patientID string) ([]store.Key, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var keys []store.Key
	for _, v := range r.visits[date] {
		if v.PatientID == patientID && v.Status == StatusActive {
			keys = append(keys, store.VisitKey(v.Date, v.ArrivedAt, v.ID))
		}
	}
	return keys, nil
}

func (r *InMemoryRepository) clearMarker(date, patientID string) {
	if m := r.markers[date]; m != nil {
		delete(m, patientID)
	}
}

// clearMarkerIfLastActive drops the dedup marker only once the patient
// has no active visit left for the day; proxy visits can stack several.
func (r *InMemoryRepository) clearMarkerIfLastActive(date, patientID string) {
	for _, v := range r.visits[date] {
		if v.PatientID == patientID && v.Status == StatusActive {
			return
		}
	}
	r.clearMarker(date, patientID)
}

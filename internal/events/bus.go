// Package events carries change notifications between the visit queue's
// writers and its live subscribers (staff dashboards, the status worker,
// the public display).
package events

import (
	"context"
	"encoding/json"
	"time"
)

const (
	// VisitChannel announces that some visit for a day changed.
	VisitChannel = "reception:visits"

	// StatusChannel announces a freshly published public status.
	StatusChannel = "reception:status"
)

// VisitChange says the visit set for Date changed; subscribers re-read the
// day. It deliberately carries no per-visit payload so ordering between
// writers cannot matter.
type VisitChange struct {
	Date string    `json:"date"`
	At   time.Time `json:"at"`
}

// StatusUpdate is the published aggregate, fanned out verbatim.
type StatusUpdate struct {
	ActiveCount          int       `json:"activeCount"`
	EstimatedWaitMinutes int       `json:"estimatedWaitMinutes"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// Subscription is one live stream. Errors arrive on a channel distinct
// from data so a consumer can tell "no update yet" from "stream broken".
// Close releases the stream; after Close both channels are closed.
type Subscription[T any] struct {
	Data  <-chan T
	Errs  <-chan error
	close func()
}

// Close tears the subscription down. Safe to call more than once.
func (s *Subscription[T]) Close() {
	if s.close != nil {
		s.close()
		s.close = nil
	}
}

// Bus is the fan-out contract.
type Bus interface {
	PublishVisitChange(ctx context.Context, change VisitChange) error
	PublishStatus(ctx context.Context, update StatusUpdate) error
	SubscribeVisitChanges(ctx context.Context) *Subscription[VisitChange]
	SubscribeStatus(ctx context.Context) *Subscription[StatusUpdate]
}

func marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

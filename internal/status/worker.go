package status

import (
	"context"
	"time"

	"github.com/nssukenkyu-prog/SCC-reception-system/internal/clinictime"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/events"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/observability/metrics"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/visits"
	"github.com/nssukenkyu-prog/SCC-reception-system/pkg/logging"
)

// resubscribeDelay paces reconnect attempts after a broken change stream.
const resubscribeDelay = time.Second

// VisitLister reads a day's queue for aggregation.
type VisitLister interface {
	ListByDate(ctx context.Context, date string) ([]visits.Visit, error)
}

// Worker is the single aggregator. Exactly one instance per deployment
// listens for visit changes, recomputes the public aggregate, persists
// it and fans it out. Concentrating the recompute here means N staff
// dashboards and M patient displays cost one recompute per change, not
// N+M.
type Worker struct {
	lister    VisitLister
	estimator Estimator
	repo      Repository
	cache     *Cache
	bus       events.Bus
	clock     *clinictime.Clock
	metrics   *metrics.ReceptionMetrics
	logger    *logging.Logger
}

// NewWorker wires the aggregator. cache may be nil when no Redis cache
// is deployed.
func NewWorker(lister VisitLister, estimator Estimator, repo Repository, cache *Cache, bus events.Bus, clock *clinictime.Clock, m *metrics.ReceptionMetrics, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		lister:    lister,
		estimator: estimator,
		repo:      repo,
		cache:     cache,
		bus:       bus,
		clock:     clock,
		metrics:   m,
		logger:    logger,
	}
}

// Run consumes visit changes until ctx is cancelled. A broken stream is
// re-subscribed after a short delay; a failed recompute is logged and the
// worker waits for the next change rather than retrying a day that may
// already have moved on.
func (w *Worker) Run(ctx context.Context) {
	// Publish once at startup so a restart mid-day does not leave the
	// display stale until the next check-in.
	if err := w.Recompute(ctx, w.clock.Today()); err != nil {
		w.logger.Warn("initial status recompute failed", "error", err)
	}

	for {
		sub := w.bus.SubscribeVisitChanges(ctx)
		if !w.consume(ctx, sub) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(resubscribeDelay):
		}
	}
}

// consume drains one subscription. It returns false when ctx ended and
// true when the stream broke and a resubscribe is warranted.
func (w *Worker) consume(ctx context.Context, sub *events.Subscription[events.VisitChange]) bool {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return false
		case change, ok := <-sub.Data:
			if !ok {
				return true
			}
			if err := w.Recompute(ctx, change.Date); err != nil {
				w.logger.Error("status recompute failed", "date", change.Date, "error", err)
			}
		case err, ok := <-sub.Errs:
			if !ok {
				return true
			}
			w.logger.Error("visit change stream failed", "error", err)
			return true
		}
	}
}

// Recompute reads the day, runs the estimator and publishes the result.
func (w *Worker) Recompute(ctx context.Context, date string) error {
	started := w.clock.Now()

	day, err := w.lister.ListByDate(ctx, date)
	if err != nil {
		return err
	}
	active, wait := w.estimator.Estimate(day)
	snap := Snapshot{
		Date:                 date,
		ActiveCount:          active,
		EstimatedWaitMinutes: wait,
		UpdatedAt:            w.clock.Now(),
	}

	if err := w.repo.Put(ctx, snap); err != nil {
		return err
	}
	if w.cache != nil {
		if err := w.cache.Save(ctx, snap); err != nil {
			// The durable copy committed; readers survive a cold cache.
			w.logger.Warn("snapshot cache write failed", "date", date, "error", err)
		}
	}
	if err := w.bus.PublishStatus(ctx, events.StatusUpdate{
		ActiveCount:          snap.ActiveCount,
		EstimatedWaitMinutes: snap.EstimatedWaitMinutes,
		UpdatedAt:            snap.UpdatedAt,
	}); err != nil {
		w.logger.Warn("status publish failed", "date", date, "error", err)
	}

	w.metrics.SetPublished(snap.ActiveCount, snap.EstimatedWaitMinutes)
	w.metrics.ObserveRecompute(w.clock.Now().Sub(started).Seconds())
	w.logger.Info("status published", "date", date, "active", active, "wait_minutes", wait)
	return nil
}

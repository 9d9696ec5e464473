// Package status computes and serves the public waiting-room aggregate:
// how many patients are waiting and a rough wait estimate. It exposes
// only counts, never names.
package status

import (
	"fmt"
	"math"
	"time"

	"github.com/nssukenkyu-prog/SCC-reception-system/internal/visits"
)

// Strategy names accepted by NewEstimator.
const (
	StrategyAverage = "average"
	StrategyBands   = "bands"
)

// Estimator turns a day's visit list into the published aggregate.
type Estimator interface {
	Estimate(day []visits.Visit) (activeCount, waitMinutes int)
}

// NewEstimator selects the estimation strategy by name.
func NewEstimator(strategy string, defaultServiceMinutes int) (Estimator, error) {
	switch strategy {
	case StrategyAverage, "":
		return &averageEstimator{defaultServiceMinutes: defaultServiceMinutes}, nil
	case StrategyBands:
		return &bandEstimator{}, nil
	default:
		return nil, fmt.Errorf("status: unknown estimator strategy %q", strategy)
	}
}

// averageEstimator projects today's observed service time onto the
// remaining queue: the mean arrival-to-completion span of the day's paid
// visits, times the number still waiting. With no completions yet it
// falls back to a configured default.
type averageEstimator struct {
	defaultServiceMinutes int
}

func (e *averageEstimator) Estimate(day []visits.Visit) (int, int) {
	active := 0
	var totalMinutes float64
	var completed int
	for _, v := range day {
		switch v.Status {
		case visits.StatusActive:
			active++
		case visits.StatusPaid:
			if v.CompletedAt == nil {
				continue
			}
			d := v.CompletedAt.Sub(v.ArrivedAt)
			if d <= 0 {
				continue
			}
			totalMinutes += d.Minutes()
			completed++
		}
	}

	avg := float64(e.defaultServiceMinutes)
	if completed > 0 {
		avg = totalMinutes / float64(completed)
	}
	return active, int(math.Round(avg * float64(active)))
}

// bandEstimator maps the queue length onto fixed wait bands. It ignores
// observed service times entirely, which keeps the display stable early
// in the day when one slow visit would skew an average.
type bandEstimator struct{}

func (bandEstimator) Estimate(day []visits.Visit) (int, int) {
	active := 0
	for _, v := range day {
		if v.Status == visits.StatusActive {
			active++
		}
	}
	switch {
	case active <= 3:
		return active, 0
	case active <= 8:
		return active, 10
	case active <= 12:
		return active, 15
	default:
		return active, 20
	}
}

// Snapshot is the published aggregate for one clinic day.
type Snapshot struct {
	Date                 string    `dynamodbav:"date" json:"date"`
	ActiveCount          int       `dynamodbav:"activeCount" json:"activeCount"`
	EstimatedWaitMinutes int       `dynamodbav:"estimatedWaitMinutes" json:"estimatedWaitMinutes"`
	UpdatedAt            time.Time `dynamodbav:"updatedAt" json:"updatedAt"`
}

package status

import (
	"context"
	"encoding/json"
	"net/http"

	"golang.org/x/net/websocket"

	"github.com/nssukenkyu-prog/SCC-reception-system/internal/clinictime"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/events"
	"github.com/nssukenkyu-prog/SCC-reception-system/pkg/logging"
)

// Handler serves the public display endpoints. Nothing here requires a
// session and nothing here leaks who is in the queue.
type Handler struct {
	repo   Repository
	cache  *Cache
	bus    events.Bus
	clock  *clinictime.Clock
	logger *logging.Logger
}

// NewHandler creates the public display handler. cache may be nil.
func NewHandler(repo Repository, cache *Cache, bus events.Bus, clock *clinictime.Clock, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, cache: cache, bus: bus, clock: clock, logger: logger}
}

// Current handles GET /public/status.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	snap, err := h.current(r.Context())
	if err != nil {
		h.logger.Error("status read failed", "error", err)
		http.Error(w, "status unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, snap)
}

type congestionResponse struct {
	Count int `json:"count"`
}

// Congestion handles GET /public/congestion, the waiting-room display's
// poll target. It exposes only the head count.
func (h *Handler) Congestion(w http.ResponseWriter, r *http.Request) {
	snap, err := h.current(r.Context())
	if err != nil {
		h.logger.Error("congestion read failed", "error", err)
		http.Error(w, "status unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, congestionResponse{Count: snap.ActiveCount})
}

// current reads cache first, then the durable copy, and degrades to an
// empty aggregate for a day nothing was published for yet.
func (h *Handler) current(ctx context.Context) (Snapshot, error) {
	date := h.clock.Today()
	if h.cache != nil {
		snap, err := h.cache.Load(ctx, date)
		if err != nil {
			h.logger.Warn("snapshot cache read failed", "date", date, "error", err)
		} else if snap != nil {
			return *snap, nil
		}
	}
	snap, err := h.repo.Get(ctx, date)
	if err != nil {
		return Snapshot{}, err
	}
	if snap == nil {
		return Snapshot{Date: date, UpdatedAt: h.clock.Now()}, nil
	}
	return *snap, nil
}

// Stream serves GET /public/ws: a push feed of status updates for
// displays that prefer not to poll. The current aggregate is sent on
// connect.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(h.serve).ServeHTTP(w, r)
}

func (h *Handler) serve(ws *websocket.Conn) {
	defer ws.Close()
	ctx := ws.Request().Context()

	sub := h.bus.SubscribeStatus(ctx)
	defer sub.Close()

	snap, err := h.current(ctx)
	if err != nil {
		h.logger.Error("status read failed", "error", err)
		return
	}
	if websocket.JSON.Send(ws, events.StatusUpdate{
		ActiveCount:          snap.ActiveCount,
		EstimatedWaitMinutes: snap.EstimatedWaitMinutes,
		UpdatedAt:            snap.UpdatedAt,
	}) != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-sub.Data:
			if !ok {
				return
			}
			if websocket.JSON.Send(ws, update) != nil {
				return
			}
		case err, ok := <-sub.Errs:
			if !ok {
				return
			}
			h.logger.Error("status stream failed", "error", err)
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

package visits

import (
	"net/http"

	"golang.org/x/net/websocket"

	"github.com/nssukenkyu-prog/SCC-reception-system/internal/events"
	"github.com/nssukenkyu-prog/SCC-reception-system/pkg/logging"
)

// streamFrame is one websocket message on the staff live feed. Exactly
// one of Visits and Error is set.
type streamFrame struct {
	Date   string  `json:"date"`
	Visits []Visit `json:"visits,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Stream serves the staff dashboard's live queue over a websocket. The
// client receives the full day list on connect and again after every
// change; pushing the whole ordered list keeps the client stateless.
type Stream struct {
	service *Service
	bus     events.Bus
	logger  *logging.Logger
}

// NewStream creates a live queue feed.
func NewStream(service *Service, bus events.Bus, logger *logging.Logger) *Stream {
	if logger == nil {
		logger = logging.Default()
	}
	return &Stream{service: service, bus: bus, logger: logger}
}

// ServeHTTP upgrades to a websocket and streams queue snapshots until
// the client disconnects.
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(s.serve).ServeHTTP(w, r)
}

func (s *Stream) serve(ws *websocket.Conn) {
	defer ws.Close()

	ctx := ws.Request().Context()
	date := ws.Request().URL.Query().Get("date")
	if date == "" {
		date = s.service.Today()
	}

	sub := s.bus.SubscribeVisitChanges(ctx)
	defer sub.Close()

	if !s.push(ws, date) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-sub.Data:
			if !ok {
				return
			}
			if change.Date != date {
				continue
			}
			if !s.push(ws, date) {
				return
			}
		case err, ok := <-sub.Errs:
			if !ok {
				return
			}
			s.logger.Error("visit change stream failed", "error", err)
			_ = websocket.JSON.Send(ws, streamFrame{Date: date, Error: "stream interrupted"})
			return
		}
	}
}

// push re-queries the day and sends a snapshot. Returns false once the
// connection is unusable.
func (s *Stream) push(ws *websocket.Conn, date string) bool {
	out, err := s.service.ListByDate(ws.Request().Context(), date)
	if err != nil {
		s.logger.Error("queue snapshot failed", "date", date, "error", err)
		return websocket.JSON.Send(ws, streamFrame{Date: date, Error: "queue unavailable"}) == nil
	}
	if out == nil {
		out = []Visit{}
	}
	return websocket.JSON.Send(ws, streamFrame{Date: date, Visits: out}) == nil
}

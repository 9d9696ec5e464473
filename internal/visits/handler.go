package visits

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/http/middleware"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/identity"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/patients"
	"github.com/nssukenkyu-prog/SCC-reception-system/pkg/logging"
)

// ProfileDirectory resolves the caller's linked patient record for
// self-service check-in.
type ProfileDirectory interface {
	LookupByIdentity(ctx context.Context, sess identity.Session) (*patients.Patient, error)
}

// Handler handles HTTP requests for the visit queue.
type Handler struct {
	service   *Service
	directory ProfileDirectory
	logger    *logging.Logger
}

// NewHandler creates a new queue handler.
func NewHandler(service *Service, directory ProfileDirectory, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, directory: directory, logger: logger}
}

// CheckIn handles POST /api/checkin. The visit is built from the
// caller's linked record; the request body carries nothing.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "missing session", http.StatusUnauthorized)
		return
	}
	p, err := h.directory.LookupByIdentity(r.Context(), sess)
	if err != nil {
		h.logger.Error("profile lookup failed", "error", err)
		http.Error(w, "queue unavailable", http.StatusInternalServerError)
		return
	}
	if p == nil {
		http.Error(w, "no linked patient record", http.StatusPreconditionFailed)
		return
	}
	v, err := h.service.CheckInSelf(r.Context(), sess, CheckInInput{
		PatientID:      p.PatientID,
		Name:           p.Name,
		LinkedIdentity: p.LinkedIdentity,
		OwnerSubjectID: p.OwnerSubjectID,
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyCheckedIn) {
			http.Error(w, "already checked in today", http.StatusConflict)
			return
		}
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// List handles GET /staff/visits. An empty date query defaults to the
// clinic-local today.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = h.service.Today()
	}
	out, err := h.service.ListByDate(r.Context(), date)
	if err != nil {
		h.logger.Error("queue list failed", "date", date, "error", err)
		http.Error(w, "queue unavailable", http.StatusInternalServerError)
		return
	}
	if out == nil {
		out = []Visit{}
	}
	writeJSON(w, http.StatusOK, out)
}

type proxyCheckInRequest struct {
	PatientID string `json:"patientId"`
	Name      string `json:"name"`
}

// CheckInProxy handles POST /staff/visits.
func (h *Handler) CheckInProxy(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "missing session", http.StatusUnauthorized)
		return
	}
	var req proxyCheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.PatientID = patients.NormalizeDigits(req.PatientID)
	req.Name = patients.NormalizeName(req.Name)
	if req.PatientID == "" || req.Name == "" {
		http.Error(w, "patientId and name are required", http.StatusBadRequest)
		return
	}
	v, err := h.service.CheckInProxy(r.Context(), sess, req.PatientID, req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

type updateStatusRequest struct {
	Status Status `json:"status"`
	Date   string `json:"date"`
}

// UpdateStatus handles PATCH /staff/visits/{visitID}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "missing session", http.StatusUnauthorized)
		return
	}
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Status.Valid() {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}
	if req.Date == "" {
		req.Date = h.service.Today()
	}
	v, err := h.service.UpdateStatus(r.Context(), sess, req.Date, chi.URLParam(r, "visitID"), req.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type receiptRequest struct {
	Date string `json:"date"`
}

// ToggleReceipt handles POST /staff/visits/{visitID}/receipt.
func (h *Handler) ToggleReceipt(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "missing session", http.StatusUnauthorized)
		return
	}
	var req receiptRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Date == "" {
		req.Date = h.service.Today()
	}
	v, err := h.service.ToggleReceipt(r.Context(), sess, req.Date, chi.URLParam(r, "visitID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type closeAllResponse struct {
	Closed int `json:"closed"`
}

// CloseAll handles POST /staff/visits/close-all.
func (h *Handler) CloseAll(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "missing session", http.StatusUnauthorized)
		return
	}
	var req receiptRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Date == "" {
		req.Date = h.service.Today()
	}
	closed, err := h.service.CloseAllActive(r.Context(), sess, req.Date)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, closeAllResponse{Closed: closed})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrVisitNotFound):
		http.Error(w, "visit not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidStatus):
		http.Error(w, "invalid status", http.StatusBadRequest)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		h.logger.Error("queue operation failed", "error", err)
		http.Error(w, "queue unavailable", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package patients

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/http/middleware"
	"github.com/nssukenkyu-prog/SCC-reception-system/pkg/logging"
)

// Handler handles HTTP requests for the patient directory.
type Handler struct {
	service  *Service
	importer *Importer
	logger   *logging.Logger
}

// NewHandler creates a new directory handler.
func NewHandler(service *Service, importer *Importer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, importer: importer, logger: logger}
}

// Me handles GET /api/me: the auto-login lookup by linked identity.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "missing session", http.StatusUnauthorized)
		return
	}
	p, err := h.service.LookupByIdentity(r.Context(), sess)
	if err != nil {
		h.logger.Error("lookup by identity failed", "error", err)
		http.Error(w, "directory unavailable", http.StatusInternalServerError)
		return
	}
	if p == nil {
		http.Error(w, "not linked", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Verify handles POST /api/patients/verify: the pre-link credential check.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p, err := h.service.Verify(r.Context(), req)
	if err != nil {
		h.writeVerifyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Link handles POST /api/patients/link.
func (h *Handler) Link(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "missing session", http.StatusUnauthorized)
		return
	}
	var req LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p, err := h.service.Link(r.Context(), sess, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrAlreadyLinked):
			http.Error(w, "this patient record is linked to another account", http.StatusConflict)
		default:
			h.writeVerifyError(w, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetByID handles GET /staff/patients/{patientID}: desk-side autofill.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.LookupByID(r.Context(), chi.URLParam(r, "patientID"))
	if err != nil {
		h.logger.Error("lookup by id failed", "error", err)
		http.Error(w, "directory unavailable", http.StatusInternalServerError)
		return
	}
	if p == nil {
		http.Error(w, "patient not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type correctNameRequest struct {
	Name string `json:"name"`
}

// CorrectName handles PATCH /staff/patients/{patientID}/name.
func (h *Handler) CorrectName(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "missing session", http.StatusUnauthorized)
		return
	}
	var req correctNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	err := h.service.CorrectName(r.Context(), sess, chi.URLParam(r, "patientID"), req.Name)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrPatientNotFound):
			http.Error(w, "patient not found", http.StatusNotFound)
		case errors.Is(err, ErrForbidden):
			http.Error(w, "forbidden", http.StatusForbidden)
		default:
			h.logger.Error("name correction failed", "error", err)
			http.Error(w, "directory unavailable", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type importResponse struct {
	Processed int `json:"processed"`
}

// Import handles POST /staff/patients/import with the raw line format as
// the request body.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()
	processed, err := h.importer.Import(r.Context(), r.Body)
	if err != nil {
		h.logger.Error("bulk import failed", "error", err)
		http.Error(w, "import failed", http.StatusInternalServerError)
		return
	}
	h.logger.Info("bulk import finished", "processed", processed)
	writeJSON(w, http.StatusOK, importResponse{Processed: processed})
}

// writeVerifyError keeps credential failures deliberately vague: the
// response never confirms which half of the check was wrong.
func (h *Handler) writeVerifyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrIdentityMismatch):
		http.Error(w, "patient id or credential does not match", http.StatusUnauthorized)
	case errors.Is(err, ErrPatientNotFound):
		http.Error(w, "patient not found", http.StatusNotFound)
	default:
		h.logger.Error("verification failed", "error", err)
		http.Error(w, "directory unavailable", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package identity

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nssukenkyu-prog/SCC-reception-system/pkg/logging"
)

// Handler exposes the two session-minting endpoints.
type Handler struct {
	platform *PlatformClient
	sessions *Sessions
	staff    *StaffAuthenticator
	logger   *logging.Logger
}

// NewHandler creates the auth handler.
func NewHandler(platform *PlatformClient, sessions *Sessions, staff *StaffAuthenticator, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{platform: platform, sessions: sessions, staff: staff, logger: logger}
}

type patientSessionRequest struct {
	AccessToken string `json:"accessToken"`
}

type sessionResponse struct {
	Token       string `json:"token"`
	SubjectID   string `json:"subjectId,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// CreatePatientSession handles POST /auth/session: it exchanges the
// mini-app's platform access token for a session bound to the platform
// subject id.
func (h *Handler) CreatePatientSession(w http.ResponseWriter, r *http.Request) {
	var req patientSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccessToken == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	profile, err := h.platform.Verify(r.Context(), req.AccessToken)
	if err != nil {
		if errors.Is(err, ErrPlatformTokenRejected) {
			http.Error(w, "access token rejected", http.StatusUnauthorized)
			return
		}
		h.logger.Error("platform verification failed", "error", err)
		http.Error(w, "platform unavailable", http.StatusBadGateway)
		return
	}

	token, err := h.sessions.Issue(profile.UserID, RolePatient)
	if err != nil {
		h.logger.Error("failed to issue patient session", "error", err)
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	h.logger.Info("patient session issued", "subject", profile.UserID)
	writeJSON(w, http.StatusOK, sessionResponse{
		Token:       token,
		SubjectID:   profile.UserID,
		DisplayName: profile.DisplayName,
	})
}

type staffLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// StaffLogin handles POST /auth/staff/login.
func (h *Handler) StaffLogin(w http.ResponseWriter, r *http.Request) {
	var req staffLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.staff.Authenticate(req.Email, req.Password); err != nil {
		http.Error(w, "invalid email or password", http.StatusUnauthorized)
		return
	}

	token, err := h.sessions.Issue(req.Email, RoleStaff)
	if err != nil {
		h.logger.Error("failed to issue staff session", "error", err)
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	h.logger.Info("staff session issued", "email", req.Email)
	writeJSON(w, http.StatusOK, sessionResponse{Token: token})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

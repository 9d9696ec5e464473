package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nssukenkyu-prog/SCC-reception-system/internal/identity"
)

func echoSubject(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		if !ok {
			t.Fatal("expected a session in context")
		}
		_, _ = w.Write([]byte(sess.Subject))
	})
}

func TestAuth(t *testing.T) {
	sessions := identity.NewSessions("test-secret", time.Hour)
	patientToken, err := sessions.Issue("U123", identity.RolePatient)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	staffToken, err := sessions.Issue("staff@clinic.example", identity.RoleStaff)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	cases := []struct {
		name     string
		mw       func(http.Handler) http.Handler
		token    string
		wantCode int
		wantBody string
	}{
		{"missing header", PatientAuth(sessions), "", http.StatusUnauthorized, ""},
		{"garbage token", PatientAuth(sessions), "garbage", http.StatusUnauthorized, ""},
		{"patient on patient route", PatientAuth(sessions), patientToken, http.StatusOK, "U123"},
		{"staff on patient route", PatientAuth(sessions), staffToken, http.StatusForbidden, ""},
		{"staff on staff route", StaffAuth(sessions), staffToken, http.StatusOK, "staff@clinic.example"},
		{"patient on staff route", StaffAuth(sessions), patientToken, http.StatusForbidden, ""},
		{"any role passes session auth", SessionAuth(sessions), patientToken, http.StatusOK, "U123"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			tc.mw(echoSubject(t)).ServeHTTP(rec, req)
			if rec.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rec.Code)
			}
			if tc.wantBody != "" && rec.Body.String() != tc.wantBody {
				t.Fatalf("expected body %q, got %q", tc.wantBody, rec.Body.String())
			}
		})
	}
}

func TestAuthAcceptsQueryToken(t *testing.T) {
	// WebSocket handshakes from a browser cannot carry Authorization
	// headers, so the token rides the query string.
	sessions := identity.NewSessions("test-secret", time.Hour)
	staffToken, err := sessions.Issue("staff@clinic.example", identity.RoleStaff)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+staffToken, nil)
	rec := httptest.NewRecorder()
	StaffAuth(sessions)(echoSubject(t)).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "staff@clinic.example" {
		t.Fatalf("unexpected subject: %q", rec.Body.String())
	}
}

func TestAuthRejectsMalformedHeaderDespiteQueryToken(t *testing.T) {
	sessions := identity.NewSessions("test-secret", time.Hour)
	staffToken, err := sessions.Issue("staff@clinic.example", identity.RoleStaff)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+staffToken, nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	StaffAuth(sessions)(echoSubject(t)).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestWithSessionRoundTrip(t *testing.T) {
	sess := identity.Session{Subject: "U1", Role: identity.RolePatient}
	ctx := WithSession(httptest.NewRequest(http.MethodGet, "/", nil).Context(), sess)
	got, ok := SessionFromContext(ctx)
	if !ok || got != sess {
		t.Fatalf("expected injected session back, got %#v (%v)", got, ok)
	}
}

// Package router assembles the HTTP surface: the public display
// endpoints, the patient mini-app API and the staff dashboard API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpmiddleware "github.com/nssukenkyu-prog/SCC-reception-system/internal/http/middleware"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/identity"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/patients"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/status"
	"github.com/nssukenkyu-prog/SCC-reception-system/internal/visits"
	"github.com/nssukenkyu-prog/SCC-reception-system/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger          *logging.Logger
	Sessions        httpmiddleware.TokenParser
	IdentityHandler *identity.Handler
	PatientsHandler *patients.Handler
	VisitsHandler   *visits.Handler
	VisitsStream    *visits.Stream
	StatusHandler   *status.Handler
	MetricsHandler  http.Handler

	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints: health, metrics, session exchange and the
	// anonymized waiting-room display.
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.IdentityHandler != nil {
			public.Post("/auth/session", cfg.IdentityHandler.CreatePatientSession)
			public.Post("/auth/staff/login", cfg.IdentityHandler.StaffLogin)
		}
		if cfg.StatusHandler != nil {
			public.Get("/public/status", cfg.StatusHandler.Current)
			public.Get("/public/congestion", cfg.StatusHandler.Congestion)
			public.Get("/public/ws", cfg.StatusHandler.Stream)
		}
	})

	// Patient mini-app routes.
	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.PatientAuth(cfg.Sessions))
		api.Get("/me", cfg.PatientsHandler.Me)
		api.Post("/patients/verify", cfg.PatientsHandler.Verify)
		api.Post("/patients/link", cfg.PatientsHandler.Link)
		api.Post("/checkin", cfg.VisitsHandler.CheckIn)
	})

	// Staff dashboard routes.
	r.Route("/staff", func(staff chi.Router) {
		staff.Use(httpmiddleware.StaffAuth(cfg.Sessions))
		staff.Get("/visits", cfg.VisitsHandler.List)
		staff.Post("/visits", cfg.VisitsHandler.CheckInProxy)
		staff.Post("/visits/close-all", cfg.VisitsHandler.CloseAll)
		staff.Patch("/visits/{visitID}/status", cfg.VisitsHandler.UpdateStatus)
		staff.Post("/visits/{visitID}/receipt", cfg.VisitsHandler.ToggleReceipt)
		if cfg.VisitsStream != nil {
			staff.Get("/ws", cfg.VisitsStream.ServeHTTP)
		}
		staff.Get("/patients/{patientID}", cfg.PatientsHandler.GetByID)
		staff.Patch("/patients/{patientID}/name", cfg.PatientsHandler.CorrectName)
		staff.Post("/patients/import", cfg.PatientsHandler.Import)
	})

	return r
}

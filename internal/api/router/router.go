// Package router wires the HTTP surface onto a chi router.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/carebridge-health/carebridge-ai-platform/internal/http/middleware"
	"github.com/carebridge-health/carebridge-ai-platform/internal/patients"
	"github.com/carebridge-health/carebridge-ai-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	PatientsHandler    *patients.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a chi router with all routes configured.
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

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	h := cfg.PatientsHandler
	r.Route("/patients/{patientID}", func(r chi.Router) {
		r.Post("/documents", h.AddDocument)
		r.Post("/profile/build", h.BuildProfile)
		r.Get("/profile/latest", h.LatestProfile)
		r.Post("/triage", h.RunTriage)
		r.Get("/doctor-bundle", h.DoctorBundle)
		r.Get("/summary/latest", h.LatestSummary)
		r.Get("/facilities/recommendations", h.FacilityRecommendations)
		r.Post("/prescriptions/structure", h.StructurePrescription)
		r.Post("/medication-plans", h.CreatePlan)
		r.Get("/medication-plans/active", h.ActivePlan)
		r.Get("/doses/today", h.DosesToday)
		r.Post("/doses/{doseID}/log", h.LogDose)
		r.Get("/adherence", h.Adherence)
		r.Post("/questionnaire/next", h.NextQuestions)
		r.Post("/recovery-coach/generate", h.GenerateCoach)
		r.Get("/recovery-coach/latest", h.LatestCoach)
	})

	return r
}

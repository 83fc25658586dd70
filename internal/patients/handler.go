package patients

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/carebridge-health/carebridge-ai-platform/internal/agents"
	"github.com/carebridge-health/carebridge-ai-platform/internal/facilities"
	"github.com/carebridge-health/carebridge-ai-platform/internal/generation"
	"github.com/carebridge-health/carebridge-ai-platform/internal/medplan"
	"github.com/carebridge-health/carebridge-ai-platform/internal/pipeline"
	"github.com/carebridge-health/carebridge-ai-platform/pkg/logging"
)

const docSnippetLimit = 3
const docSnippetChars = 500

// Handler exposes the patient-facing HTTP surface over the pipeline and
// artifact store.
type Handler struct {
	pipeline  *pipeline.Pipeline
	store     *Store
	cache     *Cache
	directory *facilities.Directory
	radiusKm  int
	voice     string
	logger    *logging.Logger
}

func NewHandler(p *pipeline.Pipeline, store *Store, cache *Cache, directory *facilities.Directory, radiusKm int, voice string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		pipeline:  p,
		store:     store,
		cache:     cache,
		directory: directory,
		radiusKm:  radiusKm,
		voice:     voice,
		logger:    logger,
	}
}

// POST /patients/{patientID}/documents
func (h *Handler) AddDocument(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if err := h.store.AddDocument(r.Context(), patientID, payload.Text); err != nil {
		h.serverError(w, "add document", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "stored"})
}

// POST /patients/{patientID}/profile/build
func (h *Handler) BuildProfile(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	var payload struct {
		InputText string `json:"input_text"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}

	inputText := payload.InputText
	if strings.TrimSpace(inputText) == "" {
		texts, err := h.store.RecentDocumentTexts(r.Context(), patientID, 0)
		if err != nil {
			h.serverError(w, "load documents", err)
			return
		}
		inputText = strings.Join(texts, "\n")
	}

	facts, err := h.pipeline.BuildProfile(r.Context(), inputText)
	if err != nil {
		h.pipelineError(w, "profile build", err)
		return
	}

	// Nothing was extracted, so there is nothing worth versioning. Repeated
	// builds against an empty record must not accumulate sentinel rows.
	if isMissingInputProfile(facts.Profile) {
		writeJSON(w, http.StatusOK, map[string]any{
			"patient_id":  patientID,
			"profile":     facts.Profile,
			"medications": facts.Medications,
			"triage":      facts.Triage,
		})
		return
	}

	stored, err := h.store.SaveProfile(r.Context(), patientID, facts.Profile)
	if err != nil {
		h.serverError(w, "save profile", err)
		return
	}
	if err := h.store.SaveTriage(r.Context(), patientID, facts.Triage); err != nil {
		h.serverError(w, "save triage", err)
		return
	}
	h.cache.SetLatestProfile(r.Context(), stored)

	writeJSON(w, http.StatusOK, map[string]any{
		"patient_id":  patientID,
		"profile":     stored.Profile,
		"version":     stored.Version,
		"created_at":  stored.CreatedAt,
		"medications": facts.Medications,
		"triage":      facts.Triage,
	})
}

// GET /patients/{patientID}/profile/latest
func (h *Handler) LatestProfile(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	if cached := h.cache.LatestProfile(r.Context(), patientID); cached != nil {
		writeJSON(w, http.StatusOK, cached)
		return
	}
	stored, err := h.store.LatestProfile(r.Context(), patientID)
	if err != nil {
		h.serverError(w, "load profile", err)
		return
	}
	if stored == nil {
		profile := agents.NewProfile()
		profile.MissingFields = []string{"no_profile"}
		writeJSON(w, http.StatusOK, &StoredProfile{PatientID: patientID, Profile: profile})
		return
	}
	h.cache.SetLatestProfile(r.Context(), stored)
	writeJSON(w, http.StatusOK, stored)
}

// POST /patients/{patientID}/triage
func (h *Handler) RunTriage(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	texts, err := h.store.RecentDocumentTexts(r.Context(), patientID, 0)
	if err != nil {
		h.serverError(w, "load documents", err)
		return
	}

	triage, err := h.pipeline.RunTriage(r.Context(), strings.Join(texts, "\n"))
	if err != nil {
		h.pipelineError(w, "triage", err)
		return
	}
	if err := h.store.SaveTriage(r.Context(), patientID, triage); err != nil {
		h.serverError(w, "save triage", err)
		return
	}
	writeJSON(w, http.StatusOK, triage)
}

// GET /patients/{patientID}/doctor-bundle
func (h *Handler) DoctorBundle(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")

	in, err := h.assembleBundleInput(r, patientID)
	if err != nil {
		h.serverError(w, "assemble bundle input", err)
		return
	}

	bundle, err := h.pipeline.BuildDoctorBundle(r.Context(), *in)
	if err != nil {
		h.pipelineError(w, "doctor bundle", err)
		return
	}
	if err := h.store.SaveSBAR(r.Context(), patientID, bundle.SBAR); err != nil {
		h.serverError(w, "save sbar", err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

// GET /patients/{patientID}/summary/latest
func (h *Handler) LatestSummary(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	stored, err := h.store.LatestSBAR(r.Context(), patientID)
	if err != nil {
		h.serverError(w, "load sbar", err)
		return
	}
	if stored == nil {
		writeJSON(w, http.StatusOK, &StoredSBAR{PatientID: patientID, SBAR: agents.NewSBAR()})
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// GET /patients/{patientID}/facilities/recommendations
func (h *Handler) FacilityRecommendations(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	radiusKm := h.radiusKm
	if v := r.URL.Query().Get("radius_km"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			radiusKm = parsed
		}
	}

	urgency := agents.TriageAmber
	specialty := ""
	if triage, err := h.store.LatestTriage(r.Context(), patientID); err == nil && triage != nil {
		urgency = triage.Triage.Level
		specialty = triage.Triage.SpecialtyNeeded
	}

	candidates := h.directory.Search(r.Context(), facilities.SearchRequest{
		Location:        r.URL.Query().Get("location"),
		RadiusKm:        radiusKm,
		SpecialtyNeeded: specialty,
		Urgency:         urgency,
	})
	writeJSON(w, http.StatusOK, facilities.Rank(candidates, specialty, urgency))
}

// POST /patients/{patientID}/prescriptions/structure
func (h *Handler) StructurePrescription(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RawText string `json:"raw_text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	structured, err := h.pipeline.StructurePrescription(r.Context(), payload.RawText)
	if err != nil {
		h.pipelineError(w, "structure prescription", err)
		return
	}
	writeJSON(w, http.StatusOK, structured)
}

// POST /patients/{patientID}/medication-plans
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	var payload struct {
		Plan medplan.Plan `json:"plan"`
		Days int          `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	schedule := medplan.ExpandSchedule(payload.Plan, payload.Days, time.Now())
	stored, err := h.store.SavePlan(r.Context(), patientID, payload.Plan, schedule)
	if err != nil {
		h.serverError(w, "save plan", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"plan_id":  stored.ID,
		"plan":     stored.Plan,
		"schedule": schedule,
	})
}

// GET /patients/{patientID}/medication-plans/active
func (h *Handler) ActivePlan(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	stored, err := h.store.ActivePlan(r.Context(), patientID)
	if err != nil {
		h.serverError(w, "load plan", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"active": stored})
}

// GET /patients/{patientID}/doses/today
func (h *Handler) DosesToday(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	today := time.Now().UTC().Format("2006-01-02")
	doses, err := h.store.DosesDueOn(r.Context(), patientID, today)
	if err != nil {
		h.serverError(w, "load doses", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doses": doses})
}

// POST /patients/{patientID}/doses/{doseID}/log
func (h *Handler) LogDose(w http.ResponseWriter, r *http.Request) {
	doseID := chi.URLParam(r, "doseID")
	var payload struct {
		Action string `json:"action"`
		Note   string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	switch payload.Action {
	case medplan.StatusTaken, medplan.StatusMissed, medplan.StatusSkipped:
	default:
		http.Error(w, fmt.Sprintf("invalid action %q", payload.Action), http.StatusBadRequest)
		return
	}
	if err := h.store.LogDose(r.Context(), doseID, payload.Action, payload.Note); err != nil {
		h.serverError(w, "log dose", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged"})
}

// GET /patients/{patientID}/adherence
func (h *Handler) Adherence(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			days = parsed
		}
	}
	actions, err := h.store.AdherenceActions(r.Context(), patientID, days)
	if err != nil {
		h.serverError(w, "load adherence", err)
		return
	}
	writeJSON(w, http.StatusOK, medplan.TallyAdherence(actions))
}

// POST /patients/{patientID}/questionnaire/next
func (h *Handler) NextQuestions(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	profile := agents.NewProfile()
	if stored, err := h.store.LatestProfile(r.Context(), patientID); err == nil && stored != nil {
		profile = stored.Profile
	}
	next, err := h.pipeline.NextQuestions(r.Context(), profile)
	if err != nil {
		h.pipelineError(w, "questionnaire", err)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

// POST /patients/{patientID}/recovery-coach/generate
func (h *Handler) GenerateCoach(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")

	profile := agents.NewProfile()
	if stored, err := h.store.LatestProfile(r.Context(), patientID); err == nil && stored != nil {
		profile = stored.Profile
	}
	plan, err := h.store.ActivePlan(r.Context(), patientID)
	if err != nil {
		h.serverError(w, "load plan", err)
		return
	}
	today := time.Now().UTC().Format("2006-01-02")
	doses, err := h.store.DosesDueOn(r.Context(), patientID, today)
	if err != nil {
		h.serverError(w, "load doses", err)
		return
	}
	actions, err := h.store.AdherenceActions(r.Context(), patientID, 1)
	if err != nil {
		h.serverError(w, "load adherence", err)
		return
	}

	in := pipeline.CoachInput{
		Profile:    profile,
		TodayDoses: doses,
		Adherence:  medplan.TallyAdherence(actions),
		Voice:      h.voice,
	}
	if plan != nil {
		in.ActivePlan = plan.Plan
	}

	result, err := h.pipeline.GenerateDailyCoach(r.Context(), in)
	if err != nil {
		h.pipelineError(w, "recovery coach", err)
		return
	}
	if err := h.store.SaveCoachMessage(r.Context(), patientID, result.Script, result.AudioHandle); err != nil {
		h.serverError(w, "save coach message", err)
		return
	}
	h.cache.SetLatestCoachMessage(r.Context(), &StoredCoachMessage{
		PatientID:   patientID,
		Script:      result.Script,
		AudioHandle: result.AudioHandle,
		CreatedAt:   time.Now().UTC(),
	})
	writeJSON(w, http.StatusOK, result)
}

// GET /patients/{patientID}/recovery-coach/latest
func (h *Handler) LatestCoach(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	if cached := h.cache.LatestCoachMessage(r.Context(), patientID); cached != nil {
		writeJSON(w, http.StatusOK, cached)
		return
	}
	stored, err := h.store.LatestCoachMessage(r.Context(), patientID)
	if err != nil {
		h.serverError(w, "load coach message", err)
		return
	}
	if stored == nil {
		writeJSON(w, http.StatusOK, &StoredCoachMessage{PatientID: patientID})
		return
	}
	h.cache.SetLatestCoachMessage(r.Context(), stored)
	writeJSON(w, http.StatusOK, stored)
}

// truncateSnippet caps a snippet at max bytes without splitting a rune.
func truncateSnippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isMissingInputProfile(profile *agents.Profile) bool {
	return profile != nil &&
		len(profile.MissingFields) == 1 &&
		profile.MissingFields[0] == agents.MissingInputSentinel
}

// assembleBundleInput builds the doctor-bundle narrative input from the
// latest profile, latest triage and recent document snippets.
func (h *Handler) assembleBundleInput(r *http.Request, patientID string) (*pipeline.BundleInput, error) {
	ctx := r.Context()

	profile := agents.NewProfile()
	if stored, err := h.store.LatestProfile(ctx, patientID); err != nil {
		return nil, err
	} else if stored != nil {
		profile = stored.Profile
	}

	triage := agents.NewTriage()
	if stored, err := h.store.LatestTriage(ctx, patientID); err != nil {
		return nil, err
	} else if stored != nil {
		triage = stored.Triage
	}

	texts, err := h.store.RecentDocumentTexts(ctx, patientID, docSnippetLimit)
	if err != nil {
		return nil, err
	}
	snippets := make([]string, 0, len(texts))
	for _, t := range texts {
		snippets = append(snippets, truncateSnippet(t, docSnippetChars))
	}

	profileJSON, _ := json.Marshal(profile)
	triageJSON, _ := json.Marshal(triage)
	input := fmt.Sprintf(
		"Patient profile JSON:\n%s\n\nLatest triage:\n%s\n\nRecent document snippets:\n%s",
		profileJSON, triageJSON, strings.Join(snippets, "\n---\n"),
	)

	return &pipeline.BundleInput{
		InputText:       input,
		MedicationNames: profile.MedicationNames(),
		TriageLevel:     triage.Level,
		SpecialtyNeeded: triage.SpecialtyNeeded,
		Location:        r.URL.Query().Get("location"),
		RadiusKm:        h.radiusKm,
	}, nil
}

func (h *Handler) pipelineError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, generation.ErrBackendUnavailable) {
		h.logger.Error(op+" failed: generation backend unavailable", "error", err.Error())
		http.Error(w, "generation backend unavailable", http.StatusServiceUnavailable)
		return
	}
	h.serverError(w, op, err)
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op+" failed", "error", err.Error())
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

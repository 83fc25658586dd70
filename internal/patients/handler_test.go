package patients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge-health/carebridge-ai-platform/internal/agents"
	"github.com/carebridge-health/carebridge-ai-platform/internal/generation"
	"github.com/carebridge-health/carebridge-ai-platform/internal/medplan"
	"github.com/carebridge-health/carebridge-ai-platform/internal/pipeline"
)

// stubGenerator returns contract defaults and records the inputs it saw.
type stubGenerator struct {
	mu     sync.Mutex
	inputs []string
}

func (s *stubGenerator) Generate(_ context.Context, contract generation.Contract, input string) (generation.Outcome, error) {
	s.mu.Lock()
	s.inputs = append(s.inputs, input)
	s.mu.Unlock()
	if contract.Shape == generation.ShapeText {
		return generation.Outcome{Text: "ok"}, nil
	}
	return generation.Outcome{Value: contract.NewDefault()}, nil
}

func (s *stubGenerator) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inputs)
}

func newTestRequest(method, target, body string, params map[string]string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestBuildProfileUsesEveryDocument(t *testing.T) {
	store, mock := newMockStore(t)
	gen := &stubGenerator{}
	p := pipeline.New(gen, nil, nil, nil, nil, nil)
	h := NewHandler(p, store, nil, nil, 20, "alloy", nil)

	mock.ExpectQuery("SELECT extracted_text FROM documents").
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"extracted_text"}).
			AddRow("note one").AddRow("note two").AddRow("note three").AddRow("note four"))
	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1))
	mock.ExpectExec("INSERT INTO patient_profiles").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO triage_results").WillReturnResult(sqlmock.NewResult(1, 1))

	w := httptest.NewRecorder()
	r := newTestRequest(http.MethodPost, "/patients/p1/profile/build", `{}`,
		map[string]string{"patientID": "p1"})
	h.BuildProfile(w, r)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotZero(t, gen.callCount())
	// All stored documents reach the agents, not just the newest three.
	for _, want := range []string{"note one", "note two", "note three", "note four"} {
		assert.Contains(t, gen.inputs[0], want)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildProfileEmptyRecordSkipsPersistence(t *testing.T) {
	store, mock := newMockStore(t)
	gen := &stubGenerator{}
	p := pipeline.New(gen, nil, nil, nil, nil, nil)
	h := NewHandler(p, store, nil, nil, 20, "alloy", nil)

	// No stored documents and no inline input: nothing must be written.
	mock.ExpectQuery("SELECT extracted_text FROM documents").
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"extracted_text"}))

	w := httptest.NewRecorder()
	r := newTestRequest(http.MethodPost, "/patients/p1/profile/build", `{}`,
		map[string]string{"patientID": "p1"})
	h.BuildProfile(w, r)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Zero(t, gen.callCount())

	var got struct {
		Profile agents.Profile `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []string{agents.MissingInputSentinel}, got.Profile.MissingFields)
	assert.NoError(t, mock.ExpectationsWereMet(), "sentinel build must not insert profile or triage rows")
}

func TestTruncateSnippetKeepsRuneBoundary(t *testing.T) {
	if got := truncateSnippet("short", 500); got != "short" {
		t.Fatalf("short snippet should pass through, got %q", got)
	}

	s := strings.Repeat("a", 499) + "é" // 501 bytes, rune straddles the cap
	got := truncateSnippet(s, 500)
	if len(got) > 500 {
		t.Fatalf("truncated snippet too long: %d bytes", len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a rune: %q", got[len(got)-4:])
	}
	if got != strings.Repeat("a", 499) {
		t.Fatal("expected the partial rune to be dropped entirely")
	}
}

func TestLogDoseRejectsUnknownAction(t *testing.T) {
	store, _ := newMockStore(t)
	h := NewHandler(nil, store, nil, nil, 20, "alloy", nil)

	w := httptest.NewRecorder()
	r := newTestRequest(http.MethodPost, "/patients/p1/doses/d1/log",
		`{"action":"swallowed"}`, map[string]string{"patientID": "p1", "doseID": "d1"})
	h.LogDose(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogDoseValidAction(t *testing.T) {
	store, mock := newMockStore(t)
	h := NewHandler(nil, store, nil, nil, 20, "alloy", nil)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO dose_logs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE dose_schedules SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := httptest.NewRecorder()
	r := newTestRequest(http.MethodPost, "/patients/p1/doses/d1/log",
		`{"action":"taken"}`, map[string]string{"patientID": "p1", "doseID": "d1"})
	h.LogDose(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddDocumentRequiresText(t *testing.T) {
	store, _ := newMockStore(t)
	h := NewHandler(nil, store, nil, nil, 20, "alloy", nil)

	w := httptest.NewRecorder()
	r := newTestRequest(http.MethodPost, "/patients/p1/documents",
		`{"text":"   "}`, map[string]string{"patientID": "p1"})
	h.AddDocument(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdherenceTalliesActions(t *testing.T) {
	store, mock := newMockStore(t)
	h := NewHandler(nil, store, nil, nil, 20, "alloy", nil)

	mock.ExpectQuery("SELECT l.action").
		WithArgs("p1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"action"}).
			AddRow("taken").AddRow("missed").AddRow("taken"))

	w := httptest.NewRecorder()
	r := newTestRequest(http.MethodGet, "/patients/p1/adherence?days=7", "",
		map[string]string{"patientID": "p1"})
	h.Adherence(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var got medplan.Adherence
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Taken)
	assert.Equal(t, 1, got.Missed)
}

func TestLatestProfileReturnsPlaceholderWhenEmpty(t *testing.T) {
	store, mock := newMockStore(t)
	h := NewHandler(nil, store, nil, nil, 20, "alloy", nil)

	mock.ExpectQuery("SELECT profile_json, version, created_at FROM patient_profiles").
		WillReturnRows(sqlmock.NewRows([]string{"profile_json", "version", "created_at"}))

	w := httptest.NewRecorder()
	r := newTestRequest(http.MethodGet, "/patients/p1/profile/latest", "",
		map[string]string{"patientID": "p1"})
	h.LatestProfile(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var got StoredProfile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []string{"no_profile"}, got.Profile.MissingFields)
}

package facilities

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/carebridge-health/carebridge-ai-platform/internal/observability/metrics"
	"github.com/carebridge-health/carebridge-ai-platform/pkg/logging"
)

// fallbackCandidates is the bundled static dataset used when the remote
// directory is unreachable. Referral suggestions degrade, never crash.
var fallbackCandidates = []Candidate{
	{ID: "fallback-general-1", Name: "City General Hospital", Specialties: []string{"cardiology", "general medicine", "orthopedics"}, TraumaLevel: 1, ETAMinutes: 18},
	{ID: "fallback-regional-1", Name: "Regional Medical Center", Specialties: []string{"neurology", "general medicine"}, TraumaLevel: 2, ETAMinutes: 27},
	{ID: "fallback-community-1", Name: "Community Care Clinic", Specialties: []string{"general medicine"}, TraumaLevel: 0, ETAMinutes: 9},
	{ID: "fallback-university-1", Name: "University Teaching Hospital", Specialties: []string{"cardiology", "oncology", "neurology", "nephrology"}, TraumaLevel: 1, ETAMinutes: 35},
}

// Directory queries the external facility lookup service.
type Directory struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.GenerationMetrics
	logger     *logging.Logger
}

// NewDirectory creates a facility directory client.
func NewDirectory(baseURL string, timeout time.Duration, m *metrics.GenerationMetrics, logger *logging.Logger) *Directory {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Directory{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		metrics:    m,
		logger:     logger,
	}
}

// Search returns candidate facilities near a location. Any transport or
// decode failure falls back to the bundled static dataset; the caller never
// sees the error.
func (d *Directory) Search(ctx context.Context, req SearchRequest) []Candidate {
	candidates, err := d.search(ctx, req)
	if err != nil {
		d.logger.Warn("facility directory unavailable, using static fallback",
			"error", err.Error(),
			"location", req.Location,
		)
		d.metrics.ObserveFacilityFallback()
		out := make([]Candidate, len(fallbackCandidates))
		copy(out, fallbackCandidates)
		return out
	}
	return candidates
}

func (d *Directory) search(ctx context.Context, req SearchRequest) ([]Candidate, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("facilities: marshal search request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("facilities: build search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("facilities: directory search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("facilities: directory search returned %d", resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("facilities: decode search response: %w", err)
	}
	return decoded.Facilities, nil
}

// Capabilities fetches capability details for one facility. Unlike Search
// this does not fall back; callers treat it as best effort.
func (d *Directory) Capabilities(ctx context.Context, facilityID string) (*Capabilities, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/capabilities/"+facilityID, nil)
	if err != nil {
		return nil, fmt.Errorf("facilities: build capabilities request: %w", err)
	}

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("facilities: capabilities lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("facilities: capabilities lookup returned %d", resp.StatusCode)
	}

	var caps Capabilities
	if err := json.NewDecoder(resp.Body).Decode(&caps); err != nil {
		return nil, fmt.Errorf("facilities: decode capabilities: %w", err)
	}
	return &caps, nil
}

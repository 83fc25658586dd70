package facilities

import (
	"math"
	"testing"

	"github.com/carebridge-health/carebridge-ai-platform/internal/agents"
)

func TestRankScoringExample(t *testing.T) {
	candidates := []Candidate{
		{ID: "a", Name: "A", Specialties: []string{"cardiology"}, TraumaLevel: 1, ETAMinutes: 10},
		{ID: "b", Name: "B", Specialties: []string{}, TraumaLevel: 0, ETAMinutes: 5},
	}

	ranked := Rank(candidates, "cardiology", agents.TriageRed)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked, got %d", len(ranked))
	}
	if ranked[0].FacilityID != "a" || ranked[1].FacilityID != "b" {
		t.Fatalf("unexpected order: %v", ranked)
	}
	// A: 3.0 specialty + 3.0 trauma + (5 - 10/12) = 10.17
	if math.Abs(ranked[0].Score-10.17) > 0.001 {
		t.Errorf("A score = %v, want 10.17", ranked[0].Score)
	}
	// B: 5 - 5/12 = 4.58
	if math.Abs(ranked[1].Score-4.58) > 0.001 {
		t.Errorf("B score = %v, want 4.58", ranked[1].Score)
	}
}

func TestRankTraumaBonusOnlyWhenRed(t *testing.T) {
	candidates := []Candidate{
		{ID: "a", Name: "A", TraumaLevel: 2, ETAMinutes: 60},
	}

	red := Rank(candidates, "", agents.TriageRed)
	amber := Rank(candidates, "", agents.TriageAmber)
	if red[0].Score != 3.0 {
		t.Errorf("RED trauma score = %v, want 3.0", red[0].Score)
	}
	if amber[0].Score != 0.0 {
		t.Errorf("AMBER trauma score = %v, want 0.0", amber[0].Score)
	}
}

func TestRankETADecayFloorsAtZero(t *testing.T) {
	ranked := Rank([]Candidate{{ID: "far", Name: "Far", ETAMinutes: 120}}, "", agents.TriageGreen)
	if ranked[0].Score != 0.0 {
		t.Fatalf("ETA beyond 60 minutes must not go negative, got %v", ranked[0].Score)
	}
}

func TestRankTruncatesToTopFive(t *testing.T) {
	candidates := make([]Candidate, 8)
	for i := range candidates {
		candidates[i] = Candidate{ID: string(rune('a' + i)), ETAMinutes: float64(i)}
	}

	ranked := Rank(candidates, "", agents.TriageGreen)
	if len(ranked) != 5 {
		t.Fatalf("expected top 5, got %d", len(ranked))
	}
	// Lower ETA scores higher.
	if ranked[0].FacilityID != "a" {
		t.Fatalf("expected closest facility first, got %v", ranked[0])
	}
}

func TestRankStableTies(t *testing.T) {
	candidates := []Candidate{
		{ID: "first", ETAMinutes: 12},
		{ID: "second", ETAMinutes: 12},
	}

	ranked := Rank(candidates, "", agents.TriageGreen)
	if ranked[0].FacilityID != "first" || ranked[1].FacilityID != "second" {
		t.Fatalf("equal scores must keep input order, got %v", ranked)
	}
}

func TestRankReasons(t *testing.T) {
	ranked := Rank([]Candidate{
		{ID: "a", Specialties: []string{"neurology"}, TraumaLevel: 1, ETAMinutes: 10},
	}, "neurology", agents.TriageRed)

	why := ranked[0].Why
	if len(why) != 3 || why[0] != "specialty match" || why[1] != "trauma-ready" || why[2] != "ETA considered" {
		t.Fatalf("unexpected reasons: %v", why)
	}
}

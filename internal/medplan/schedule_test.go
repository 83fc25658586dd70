package medplan

import (
	"strings"
	"testing"
	"time"

	"github.com/carebridge-health/carebridge-ai-platform/internal/agents"
)

func TestExpandScheduleTwoTimesOneDay(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	plan := Plan{Medications: []agents.PlannedMedication{
		{Name: "amoxicillin", Dose: "500mg", Times: []string{"08:00", "20:00"}},
	}}

	schedule := ExpandSchedule(plan, 1, now)
	if len(schedule) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(schedule))
	}
	for _, e := range schedule {
		if e.Status != StatusPending {
			t.Errorf("new entries must be pending, got %q", e.Status)
		}
		if !strings.HasPrefix(e.DueAt, "2026-03-10T") {
			t.Errorf("entries should land on the start date, got %q", e.DueAt)
		}
	}
	if schedule[0].DueAt != "2026-03-10T08:00:00Z" || schedule[1].DueAt != "2026-03-10T20:00:00Z" {
		t.Fatalf("unexpected due times: %q, %q", schedule[0].DueAt, schedule[1].DueAt)
	}
}

func TestExpandScheduleDefaultsMorningDose(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	plan := Plan{Medications: []agents.PlannedMedication{{Name: "lisinopril"}}}

	schedule := ExpandSchedule(plan, 1, now)
	if len(schedule) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(schedule))
	}
	if schedule[0].DueAt != "2026-03-10T08:00:00Z" {
		t.Fatalf("untimed medication should default to morning, got %q", schedule[0].DueAt)
	}
}

func TestExpandScheduleMultipleDays(t *testing.T) {
	now := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)
	plan := Plan{Medications: []agents.PlannedMedication{
		{Name: "metformin", Times: []string{"08:00"}},
	}}

	schedule := ExpandSchedule(plan, 3, now)
	if len(schedule) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(schedule))
	}
	// Month rollover.
	if schedule[1].DueAt != "2026-02-01T08:00:00Z" {
		t.Fatalf("unexpected day-2 due time: %q", schedule[1].DueAt)
	}
}

func TestExpandScheduleClampsDays(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	plan := Plan{Medications: []agents.PlannedMedication{{Name: "x"}}}

	if got := len(ExpandSchedule(plan, 0, now)); got != 1 {
		t.Fatalf("days=0 should expand one day, got %d entries", got)
	}
	if got := len(ExpandSchedule(plan, -5, now)); got != 1 {
		t.Fatalf("negative days should expand one day, got %d entries", got)
	}
}

func TestTallyAdherence(t *testing.T) {
	got := TallyAdherence([]string{"taken", "taken", "missed", "skipped", "unknown"})
	if got.Taken != 2 || got.Missed != 1 || got.Skipped != 1 {
		t.Fatalf("unexpected tally: %+v", got)
	}
}

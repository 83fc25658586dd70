// Package medplan expands medication plans into dated dose schedules and
// tallies adherence from dose logs.
package medplan

import (
	"fmt"
	"time"

	"github.com/carebridge-health/carebridge-ai-platform/internal/agents"
)

// Dose statuses.
const (
	StatusPending = "pending"
	StatusTaken   = "taken"
	StatusMissed  = "missed"
	StatusSkipped = "skipped"
)

const defaultDoseTime = "08:00"

// Plan is an activated medication plan.
type Plan struct {
	Medications []agents.PlannedMedication `json:"medications"`
	StartDate   string                     `json:"start_date,omitempty"`
}

// DoseEntry is one scheduled dose. One entry exists per medication,
// scheduled time and day.
type DoseEntry struct {
	MedName string `json:"med_name"`
	Dose    string `json:"dose"`
	DueAt   string `json:"due_at"`
	Status  string `json:"status"`
}

// Adherence tallies dose log actions.
type Adherence struct {
	Taken   int `json:"taken"`
	Missed  int `json:"missed"`
	Skipped int `json:"skipped"`
}

// ExpandSchedule deterministically expands a plan into dated dose entries
// starting at now, one per medication x time x day. Medications without
// scheduled times default to a single morning dose. All entries start
// pending; due timestamps are ISO-8601 UTC.
func ExpandSchedule(plan Plan, days int, now time.Time) []DoseEntry {
	if days <= 0 {
		days = 1
	}
	var schedule []DoseEntry
	for day := 0; day < days; day++ {
		base := now.UTC().AddDate(0, 0, day)
		for _, med := range plan.Medications {
			times := med.Times
			if len(times) == 0 {
				times = []string{defaultDoseTime}
			}
			for _, t := range times {
				schedule = append(schedule, DoseEntry{
					MedName: med.Name,
					Dose:    med.Dose,
					DueAt:   fmt.Sprintf("%sT%s:00Z", base.Format("2006-01-02"), t),
					Status:  StatusPending,
				})
			}
		}
	}
	return schedule
}

// TallyAdherence counts dose log actions into an adherence summary.
func TallyAdherence(actions []string) Adherence {
	var a Adherence
	for _, action := range actions {
		switch action {
		case StatusTaken:
			a.Taken++
		case StatusMissed:
			a.Missed++
		case StatusSkipped:
			a.Skipped++
		}
	}
	return a
}

package patients

import (
	"time"

	"github.com/carebridge-health/carebridge-ai-platform/internal/agents"
	"github.com/carebridge-health/carebridge-ai-platform/internal/medplan"
)

// StoredProfile is a versioned profile snapshot.
type StoredProfile struct {
	PatientID string          `json:"patient_id"`
	Profile   *agents.Profile `json:"profile"`
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
}

// StoredTriage is a persisted triage result.
type StoredTriage struct {
	PatientID string         `json:"patient_id"`
	Triage    *agents.Triage `json:"triage"`
	CreatedAt time.Time      `json:"created_at"`
}

// StoredSBAR is a persisted SBAR summary.
type StoredSBAR struct {
	PatientID string       `json:"patient_id"`
	SBAR      *agents.SBAR `json:"sbar"`
	CreatedAt time.Time    `json:"created_at"`
}

// StoredCoachMessage is a persisted daily coach script.
type StoredCoachMessage struct {
	PatientID   string    `json:"patient_id"`
	Script      string    `json:"script_text"`
	AudioHandle string    `json:"audio_path"`
	CreatedAt   time.Time `json:"created_at"`
}

// StoredPlan is a persisted medication plan.
type StoredPlan struct {
	ID        string       `json:"id"`
	PatientID string       `json:"patient_id"`
	Plan      medplan.Plan `json:"plan"`
	Active    bool         `json:"active"`
	CreatedAt time.Time    `json:"created_at"`
}

// StoredDose is a scheduled dose row.
type StoredDose struct {
	ID      string `json:"id"`
	PlanID  string `json:"plan_id"`
	MedName string `json:"med_name"`
	Dose    string `json:"dose"`
	DueAt   string `json:"due_at"`
	Status  string `json:"status"`
}

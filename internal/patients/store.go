package patients

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/carebridge-health/carebridge-ai-platform/internal/agents"
	"github.com/carebridge-health/carebridge-ai-platform/internal/medplan"
)

// Store persists per-patient artifacts in Postgres with latest-by-created_at
// retrieval semantics.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveProfile stores a new profile version and returns it.
func (s *Store) SaveProfile(ctx context.Context, patientID string, profile *agents.Profile) (*StoredProfile, error) {
	payload, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("patients: marshal profile: %w", err)
	}
	var version int
	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM patient_profiles WHERE patient_id = $1`,
		patientID).Scan(&version)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO patient_profiles (patient_id, profile_json, version, created_at) VALUES ($1, $2, $3, $4)`,
		patientID, payload, version, now)
	if err != nil {
		return nil, err
	}
	return &StoredProfile{PatientID: patientID, Profile: profile, Version: version, CreatedAt: now}, nil
}

// LatestProfile returns the most recent profile, or nil when none exists.
func (s *Store) LatestProfile(ctx context.Context, patientID string) (*StoredProfile, error) {
	var (
		payload   []byte
		version   int
		createdAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT profile_json, version, created_at FROM patient_profiles
		 WHERE patient_id = $1 ORDER BY created_at DESC LIMIT 1`,
		patientID).Scan(&payload, &version, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	profile := agents.NewProfile()
	if err := json.Unmarshal(payload, profile); err != nil {
		return nil, fmt.Errorf("patients: decode profile: %w", err)
	}
	return &StoredProfile{PatientID: patientID, Profile: profile, Version: version, CreatedAt: createdAt}, nil
}

// SaveTriage stores a triage result.
func (s *Store) SaveTriage(ctx context.Context, patientID string, triage *agents.Triage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO triage_results (patient_id, level, red_flags, specialty_needed, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		patientID, triage.Level, pq.Array(triage.RedFlags), triage.SpecialtyNeeded, time.Now().UTC())
	return err
}

// LatestTriage returns the most recent triage result, or nil when none.
func (s *Store) LatestTriage(ctx context.Context, patientID string) (*StoredTriage, error) {
	triage := agents.NewTriage()
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT level, red_flags, specialty_needed, created_at FROM triage_results
		 WHERE patient_id = $1 ORDER BY created_at DESC LIMIT 1`,
		patientID).Scan(&triage.Level, pq.Array(&triage.RedFlags), &triage.SpecialtyNeeded, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if triage.RedFlags == nil {
		triage.RedFlags = []string{}
	}
	return &StoredTriage{PatientID: patientID, Triage: triage, CreatedAt: createdAt}, nil
}

// SaveSBAR stores an SBAR summary.
func (s *Store) SaveSBAR(ctx context.Context, patientID string, sbar *agents.SBAR) error {
	payload, err := json.Marshal(sbar)
	if err != nil {
		return fmt.Errorf("patients: marshal sbar: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sbar_summaries (patient_id, sbar_json, created_at) VALUES ($1, $2, $3)`,
		patientID, payload, time.Now().UTC())
	return err
}

// LatestSBAR returns the most recent SBAR summary, or nil when none.
func (s *Store) LatestSBAR(ctx context.Context, patientID string) (*StoredSBAR, error) {
	var (
		payload   []byte
		createdAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT sbar_json, created_at FROM sbar_summaries
		 WHERE patient_id = $1 ORDER BY created_at DESC LIMIT 1`,
		patientID).Scan(&payload, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sbar := agents.NewSBAR()
	if err := json.Unmarshal(payload, sbar); err != nil {
		return nil, fmt.Errorf("patients: decode sbar: %w", err)
	}
	return &StoredSBAR{PatientID: patientID, SBAR: sbar, CreatedAt: createdAt}, nil
}

// SaveCoachMessage stores a generated coach script.
func (s *Store) SaveCoachMessage(ctx context.Context, patientID, script, audioHandle string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO coach_messages (patient_id, script_text, audio_path, created_at) VALUES ($1, $2, $3, $4)`,
		patientID, script, audioHandle, time.Now().UTC())
	return err
}

// LatestCoachMessage returns the most recent coach message, or nil.
func (s *Store) LatestCoachMessage(ctx context.Context, patientID string) (*StoredCoachMessage, error) {
	msg := &StoredCoachMessage{PatientID: patientID}
	err := s.db.QueryRowContext(ctx,
		`SELECT script_text, audio_path, created_at FROM coach_messages
		 WHERE patient_id = $1 ORDER BY created_at DESC LIMIT 1`,
		patientID).Scan(&msg.Script, &msg.AudioHandle, &msg.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// SavePlan stores a medication plan, deactivating prior active plans, and
// persists its expanded dose schedule.
func (s *Store) SavePlan(ctx context.Context, patientID string, plan medplan.Plan, schedule []medplan.DoseEntry) (*StoredPlan, error) {
	payload, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("patients: marshal plan: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE medication_plans SET active = FALSE WHERE patient_id = $1 AND active`, patientID); err != nil {
		return nil, err
	}

	planID := uuid.NewString()
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO medication_plans (id, patient_id, plan_json, active, created_at) VALUES ($1, $2, $3, TRUE, $4)`,
		planID, patientID, payload, now); err != nil {
		return nil, err
	}

	for _, entry := range schedule {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO dose_schedules (id, plan_id, med_name, dose, due_at, status) VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.NewString(), planID, entry.MedName, entry.Dose, entry.DueAt, entry.Status); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &StoredPlan{ID: planID, PatientID: patientID, Plan: plan, Active: true, CreatedAt: now}, nil
}

// ActivePlan returns the patient's active medication plan, or nil.
func (s *Store) ActivePlan(ctx context.Context, patientID string) (*StoredPlan, error) {
	stored := &StoredPlan{PatientID: patientID, Active: true}
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT id, plan_json, created_at FROM medication_plans
		 WHERE patient_id = $1 AND active ORDER BY created_at DESC LIMIT 1`,
		patientID).Scan(&stored.ID, &payload, &stored.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &stored.Plan); err != nil {
		return nil, fmt.Errorf("patients: decode plan: %w", err)
	}
	return stored, nil
}

// DosesDueOn returns the doses of the patient's active plan due on the given
// date (YYYY-MM-DD).
func (s *Store) DosesDueOn(ctx context.Context, patientID, date string) ([]StoredDose, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id, d.plan_id, d.med_name, d.dose, d.due_at, d.status
		 FROM dose_schedules d
		 JOIN medication_plans p ON p.id = d.plan_id
		 WHERE p.patient_id = $1 AND p.active AND d.due_at LIKE $2
		 ORDER BY d.due_at`,
		patientID, date+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []StoredDose{}
	for rows.Next() {
		var d StoredDose
		if err := rows.Scan(&d.ID, &d.PlanID, &d.MedName, &d.Dose, &d.DueAt, &d.Status); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// LogDose records a dose action and updates the schedule row status.
func (s *Store) LogDose(ctx context.Context, doseID, action, note string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO dose_logs (id, dose_id, action, note, created_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), doseID, action, note, time.Now().UTC()); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE dose_schedules SET status = $1 WHERE id = $2`, action, doseID); err != nil {
		return err
	}
	return tx.Commit()
}

// AdherenceActions returns the dose log actions for the patient over the
// trailing number of days.
func (s *Store) AdherenceActions(ctx context.Context, patientID string, days int) ([]string, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(ctx,
		`SELECT l.action
		 FROM dose_logs l
		 JOIN dose_schedules d ON d.id = l.dose_id
		 JOIN medication_plans p ON p.id = d.plan_id
		 WHERE p.patient_id = $1 AND l.created_at >= $2`,
		patientID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// AddDocument stores extracted document or transcript text for a patient.
func (s *Store) AddDocument(ctx context.Context, patientID, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, patient_id, extracted_text, created_at) VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), patientID, text, time.Now().UTC())
	return err
}

// RecentDocumentTexts returns non-empty document texts, newest first,
// capped at limit. A limit of zero or less returns every document.
func (s *Store) RecentDocumentTexts(ctx context.Context, patientID string, limit int) ([]string, error) {
	query := `SELECT extracted_text FROM documents
		 WHERE patient_id = $1 AND extracted_text <> ''
		 ORDER BY created_at DESC`
	args := []any{patientID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		texts = append(texts, t)
	}
	return texts, rows.Err()
}

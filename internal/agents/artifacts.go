package agents

import "fmt"

// Triage urgency levels. The pipeline never produces any other value.
const (
	TriageRed   = "RED"
	TriageAmber = "AMBER"
	TriageGreen = "GREEN"
)

// MissingInputSentinel marks a profile built from empty input without
// calling the backend.
const MissingInputSentinel = "no_extracted_text"

// Medication is a single reconciled medication entry.
type Medication struct {
	Name      string `json:"name"`
	Dose      string `json:"dose,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Route     string `json:"route,omitempty"`
}

// Profile is the structured patient profile extracted from raw text.
type Profile struct {
	Conditions    []string          `json:"conditions"`
	Allergies     []string          `json:"allergies"`
	Medications   []Medication      `json:"medications"`
	Vitals        map[string]string `json:"vitals"`
	Timeline      []string          `json:"timeline"`
	MissingFields []string          `json:"missing_fields"`
}

// NewProfile returns a profile with all defaultable fields empty.
func NewProfile() *Profile {
	return &Profile{
		Conditions:    []string{},
		Allergies:     []string{},
		Medications:   []Medication{},
		Vitals:        map[string]string{},
		Timeline:      []string{},
		MissingFields: []string{},
	}
}

func (p *Profile) Validate() error {
	if p.Conditions == nil {
		p.Conditions = []string{}
	}
	if p.Allergies == nil {
		p.Allergies = []string{}
	}
	if p.Medications == nil {
		p.Medications = []Medication{}
	}
	if p.Vitals == nil {
		p.Vitals = map[string]string{}
	}
	if p.Timeline == nil {
		p.Timeline = []string{}
	}
	if p.MissingFields == nil {
		p.MissingFields = []string{}
	}
	return nil
}

// MedicationNames returns the plain medication names for rule checks.
func (p *Profile) MedicationNames() []string {
	names := make([]string, 0, len(p.Medications))
	for _, m := range p.Medications {
		names = append(names, m.Name)
	}
	return names
}

// MedicationList is the reconciler output: generic names, deduped, with
// dose/frequency/route where stated.
type MedicationList struct {
	Medications []Medication `json:"medications"`
}

func NewMedicationList() *MedicationList {
	return &MedicationList{Medications: []Medication{}}
}

func (m *MedicationList) Validate() error {
	if m.Medications == nil {
		m.Medications = []Medication{}
	}
	return nil
}

// Names returns the medication names in list order.
func (m *MedicationList) Names() []string {
	names := make([]string, 0, len(m.Medications))
	for _, med := range m.Medications {
		names = append(names, med.Name)
	}
	return names
}

// Triage is the urgency classification with red flags and the specialty a
// referral would need.
type Triage struct {
	Level           string   `json:"level"`
	RedFlags        []string `json:"red_flags"`
	SpecialtyNeeded string   `json:"specialty_needed,omitempty"`
	Safety          []string `json:"safety"`
}

func NewTriage() *Triage {
	return &Triage{Level: TriageGreen, RedFlags: []string{}, Safety: []string{}}
}

func (t *Triage) Validate() error {
	if t.RedFlags == nil {
		t.RedFlags = []string{}
	}
	if t.Safety == nil {
		t.Safety = []string{}
	}
	switch t.Level {
	case TriageRed, TriageAmber, TriageGreen:
		return nil
	case "":
		t.Level = TriageGreen
		return nil
	default:
		return fmt.Errorf("invalid triage level %q", t.Level)
	}
}

// SBAR is a Situation/Background/Assessment/Recommendation clinician
// handoff summary.
type SBAR struct {
	Situation      string   `json:"situation"`
	Background     string   `json:"background"`
	Assessment     string   `json:"assessment"`
	Recommendation string   `json:"recommendation"`
	Safety         []string `json:"safety"`
}

func NewSBAR() *SBAR {
	return &SBAR{Safety: []string{}}
}

func (s *SBAR) Validate() error {
	if s.Safety == nil {
		s.Safety = []string{}
	}
	return nil
}

// PreIntelligence carries possible-concern risks, interactions and
// suggested tests ahead of a doctor visit. Never a final diagnosis.
type PreIntelligence struct {
	Risks             []string `json:"risks"`
	Interactions      []string `json:"interactions"`
	SuggestedTests    []string `json:"suggested_tests"`
	DifferentialHints []string `json:"differential_hints"`
	Safety            []string `json:"safety"`
}

func NewPreIntelligence() *PreIntelligence {
	return &PreIntelligence{
		Risks:             []string{},
		Interactions:      []string{},
		SuggestedTests:    []string{},
		DifferentialHints: []string{},
		Safety:            []string{},
	}
}

func (p *PreIntelligence) Validate() error {
	if p.Risks == nil {
		p.Risks = []string{}
	}
	if p.Interactions == nil {
		p.Interactions = []string{}
	}
	if p.SuggestedTests == nil {
		p.SuggestedTests = []string{}
	}
	if p.DifferentialHints == nil {
		p.DifferentialHints = []string{}
	}
	if p.Safety == nil {
		p.Safety = []string{}
	}
	return nil
}

// PlannedMedication is one medication inside a structured prescription or
// an activated medication plan.
type PlannedMedication struct {
	Name  string   `json:"name"`
	Dose  string   `json:"dose,omitempty"`
	Times []string `json:"times,omitempty"`
}

// StructuredPrescription is the strict-JSON rendering of free-text doctor
// prescription notes plus any clarifications a pharmacist should chase.
type StructuredPrescription struct {
	Medications    []PlannedMedication `json:"medications"`
	Clarifications []string            `json:"clarifications"`
}

func NewStructuredPrescription() *StructuredPrescription {
	return &StructuredPrescription{Medications: []PlannedMedication{}, Clarifications: []string{}}
}

func (s *StructuredPrescription) Validate() error {
	if s.Medications == nil {
		s.Medications = []PlannedMedication{}
	}
	if s.Clarifications == nil {
		s.Clarifications = []string{}
	}
	return nil
}

// QuestionnaireNext is the adaptive follow-up question set for missing
// profile fields.
type QuestionnaireNext struct {
	Questions []string `json:"questions"`
}

func NewQuestionnaireNext() *QuestionnaireNext {
	return &QuestionnaireNext{Questions: []string{}}
}

func (q *QuestionnaireNext) Validate() error {
	if q.Questions == nil {
		q.Questions = []string{}
	}
	return nil
}

// PatientFacts aggregates the artifacts of one profile-build run.
type PatientFacts struct {
	Profile     *Profile     `json:"profile"`
	Medications []Medication `json:"medications"`
	Triage      *Triage      `json:"triage"`
	DocSnippets []string     `json:"doc_snippets,omitempty"`
}

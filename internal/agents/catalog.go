package agents

import (
	"github.com/carebridge-health/carebridge-ai-platform/internal/generation"
)

// The agent catalog is the fixed set of prompt + output-contract pairs the
// pipeline can invoke. Adding an artifact kind means adding one entry here;
// nothing else changes.

var medicationFields = []generation.Field{
	{Name: "name", Type: generation.FieldString, Description: "generic medication name", Required: true},
	{Name: "dose", Type: generation.FieldString},
	{Name: "frequency", Type: generation.FieldString},
	{Name: "route", Type: generation.FieldString},
}

// Profiler extracts a structured patient profile from raw clinical text.
var Profiler = generation.Contract{
	Name:   "profiler",
	Prompt: "You are a clinical data extractor. Return structured profile JSON only.",
	Shape:  generation.ShapeStructured,
	Schema: &generation.Schema{
		Name: "patient_profile",
		Fields: []generation.Field{
			{Name: "conditions", Type: generation.FieldStringArray},
			{Name: "allergies", Type: generation.FieldStringArray},
			{Name: "medications", Type: generation.FieldObjectArray, Fields: medicationFields},
			{Name: "vitals", Type: generation.FieldObject, Fields: []generation.Field{
				{Name: "blood_pressure", Type: generation.FieldString},
				{Name: "heart_rate", Type: generation.FieldString},
				{Name: "temperature", Type: generation.FieldString},
				{Name: "spo2", Type: generation.FieldString},
			}},
			{Name: "timeline", Type: generation.FieldStringArray},
			{Name: "missing_fields", Type: generation.FieldStringArray},
		},
	},
	NewDefault: func() any { return NewProfile() },
}

// MedicationReconciler normalizes a medication list to generic names.
var MedicationReconciler = generation.Contract{
	Name:   "medication_reconciler",
	Prompt: "Normalize medication list to generic names, dedupe, include dose/frequency/route.",
	Shape:  generation.ShapeStructured,
	Schema: &generation.Schema{
		Name: "medication_list",
		Fields: []generation.Field{
			{Name: "medications", Type: generation.FieldObjectArray, Fields: medicationFields, Required: true},
		},
	},
	NewDefault: func() any { return NewMedicationList() },
}

// TriageGate classifies urgency with red flags and specialty needed.
var TriageGate = generation.Contract{
	Name:   "triage_gate",
	Prompt: "Classify urgency RED/AMBER/GREEN with red flags and specialty needed. Use 'possible concern' language, not a final diagnosis. Include safety list.",
	Shape:  generation.ShapeStructured,
	Schema: &generation.Schema{
		Name: "triage",
		Fields: []generation.Field{
			{Name: "level", Type: generation.FieldString, Enum: []string{TriageRed, TriageAmber, TriageGreen}, Required: true},
			{Name: "red_flags", Type: generation.FieldStringArray},
			{Name: "specialty_needed", Type: generation.FieldString},
			{Name: "safety", Type: generation.FieldStringArray},
		},
	},
	NewDefault: func() any { return NewTriage() },
}

// Summarizer produces an SBAR summary for a clinician.
var Summarizer = generation.Contract{
	Name:   "summarizer",
	Prompt: "Produce SBAR summary for clinician. Use 'possible concern' language, not a final diagnosis. Include safety footer items.",
	Shape:  generation.ShapeStructured,
	Schema: &generation.Schema{
		Name: "sbar",
		Fields: []generation.Field{
			{Name: "situation", Type: generation.FieldString, Required: true},
			{Name: "background", Type: generation.FieldString, Required: true},
			{Name: "assessment", Type: generation.FieldString, Required: true},
			{Name: "recommendation", Type: generation.FieldString, Required: true},
			{Name: "safety", Type: generation.FieldStringArray},
		},
	},
	NewDefault: func() any { return NewSBAR() },
}

// PreIntelligenceAgent surfaces risks, interactions and suggested tests.
var PreIntelligenceAgent = generation.Contract{
	Name:   "preintelligence",
	Prompt: "Provide risks, interactions, suggested tests, differential hints. Use 'possible concern' language, not a final diagnosis. Safety required.",
	Shape:  generation.ShapeStructured,
	Schema: &generation.Schema{
		Name: "preintelligence",
		Fields: []generation.Field{
			{Name: "risks", Type: generation.FieldStringArray},
			{Name: "interactions", Type: generation.FieldStringArray},
			{Name: "suggested_tests", Type: generation.FieldStringArray},
			{Name: "differential_hints", Type: generation.FieldStringArray},
			{Name: "safety", Type: generation.FieldStringArray},
		},
	},
	NewDefault: func() any { return NewPreIntelligence() },
}

// PrescriptionStructurer converts doctor prescription text to a strict
// JSON schedule plus clarifications.
var PrescriptionStructurer = generation.Contract{
	Name:   "prescription_structurer",
	Prompt: "Convert doctor prescription text to strict JSON schedule + clarifications needed.",
	Shape:  generation.ShapeStructured,
	Schema: &generation.Schema{
		Name: "structured_prescription",
		Fields: []generation.Field{
			{Name: "medications", Type: generation.FieldObjectArray, Required: true, Fields: []generation.Field{
				{Name: "name", Type: generation.FieldString, Required: true},
				{Name: "dose", Type: generation.FieldString},
				{Name: "times", Type: generation.FieldStringArray, Description: "HH:MM dosing times"},
			}},
			{Name: "clarifications", Type: generation.FieldStringArray},
		},
	},
	NewDefault: func() any { return NewStructuredPrescription() },
}

// Questionnaire generates the next adaptive questions for missing fields.
var Questionnaire = generation.Contract{
	Name:   "questionnaire",
	Prompt: "Generate next missing questions. Return JSON list.",
	Shape:  generation.ShapeStructured,
	Schema: &generation.Schema{
		Name: "questionnaire_next",
		Fields: []generation.Field{
			{Name: "questions", Type: generation.FieldStringArray, Required: true},
		},
	},
	NewDefault: func() any { return NewQuestionnaireNext() },
}

// RecoveryCoach generates a short comforting narrative script. Free text;
// the safety footer is appended by the pipeline.
var RecoveryCoach = generation.Contract{
	Name:   "recovery_coach",
	Prompt: "Generate 30-60s comforting script. No medication changes. Decision support only.",
	Shape:  generation.ShapeText,
}

// Catalog enumerates every agent contract.
func Catalog() []generation.Contract {
	return []generation.Contract{
		Profiler,
		MedicationReconciler,
		TriageGate,
		Summarizer,
		PreIntelligenceAgent,
		PrescriptionStructurer,
		Questionnaire,
		RecoveryCoach,
	}
}

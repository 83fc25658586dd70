// Package pipeline sequences agent calls into the three clinical flows:
// profile-build, doctor-bundle and daily-coach. Independent agent calls fan
// out concurrently; results that feed later steps stay sequential.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/carebridge-health/carebridge-ai-platform/internal/agents"
	"github.com/carebridge-health/carebridge-ai-platform/internal/facilities"
	"github.com/carebridge-health/carebridge-ai-platform/internal/generation"
	"github.com/carebridge-health/carebridge-ai-platform/internal/interactions"
	"github.com/carebridge-health/carebridge-ai-platform/internal/safety"
	"github.com/carebridge-health/carebridge-ai-platform/internal/speech"
	"github.com/carebridge-health/carebridge-ai-platform/pkg/logging"
)

// Generator is the subset of the generation client the pipeline uses.
type Generator interface {
	Generate(ctx context.Context, contract generation.Contract, input string) (generation.Outcome, error)
}

// FacilityDirectory is the subset of the directory client the pipeline uses.
type FacilityDirectory interface {
	Search(ctx context.Context, req facilities.SearchRequest) []facilities.Candidate
}

// Pipeline composes the generation client, rule engine, facility ranker and
// safety policy into the clinical flows.
type Pipeline struct {
	gen       Generator
	rules     *interactions.Engine
	directory FacilityDirectory
	safety    *safety.Policy
	speech    speech.Synthesizer
	logger    *logging.Logger
}

// New wires a pipeline. directory and synth may be nil when the respective
// flow is unused.
func New(gen Generator, rules *interactions.Engine, directory FacilityDirectory, policy *safety.Policy, synth speech.Synthesizer, logger *logging.Logger) *Pipeline {
	if gen == nil {
		panic("pipeline: generator cannot be nil")
	}
	if rules == nil {
		rules = interactions.NewEngine()
	}
	if policy == nil {
		policy = safety.Default()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Pipeline{gen: gen, rules: rules, directory: directory, safety: policy, speech: synth, logger: logger}
}

// BuildProfile runs Profiler, MedicationReconciler and TriageGate
// concurrently against the same input and combines the results. Empty or
// whitespace-only input short-circuits: no backend call is made and the
// profile is flagged with the missing-input sentinel.
func (p *Pipeline) BuildProfile(ctx context.Context, inputText string) (*agents.PatientFacts, error) {
	if strings.TrimSpace(inputText) == "" {
		profile := agents.NewProfile()
		profile.MissingFields = []string{agents.MissingInputSentinel}
		triage := agents.NewTriage()
		triage.Safety = p.safety.Ensure(triage.Safety)
		return &agents.PatientFacts{
			Profile:     profile,
			Medications: []agents.Medication{},
			Triage:      triage,
		}, nil
	}

	var (
		profile *agents.Profile
		meds    *agents.MedicationList
		triage  *agents.Triage
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := p.gen.Generate(gctx, agents.Profiler, inputText)
		if err != nil {
			return err
		}
		profile = out.Value.(*agents.Profile)
		return nil
	})
	g.Go(func() error {
		out, err := p.gen.Generate(gctx, agents.MedicationReconciler, inputText)
		if err != nil {
			return err
		}
		meds = out.Value.(*agents.MedicationList)
		return nil
	})
	g.Go(func() error {
		out, err := p.gen.Generate(gctx, agents.TriageGate, inputText)
		if err != nil {
			return err
		}
		triage = out.Value.(*agents.Triage)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("pipeline: profile build: %w", err)
	}

	triage.Safety = p.safety.Ensure(triage.Safety)
	return &agents.PatientFacts{
		Profile:     profile,
		Medications: meds.Medications,
		Triage:      triage,
	}, nil
}

// BundleInput carries everything the doctor-bundle flow needs.
type BundleInput struct {
	InputText       string
	MedicationNames []string
	TriageLevel     string
	SpecialtyNeeded string
	Location        string
	RadiusKm        int
}

// DoctorBundle is the clinician-facing composite artifact.
type DoctorBundle struct {
	SBAR            *agents.SBAR            `json:"sbar"`
	PreIntelligence *agents.PreIntelligence `json:"preintelligence"`
	Facilities      []facilities.Ranked     `json:"facilities"`
}

// BuildDoctorBundle runs Summarizer and PreIntelligence concurrently,
// augments interactions with rule-engine findings, applies the safety
// policy to both artifacts and ranks referral facilities when urgency is
// elevated. GREEN never triggers a facility search.
func (p *Pipeline) BuildDoctorBundle(ctx context.Context, in BundleInput) (*DoctorBundle, error) {
	var (
		sbar *agents.SBAR
		pre  *agents.PreIntelligence
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := p.gen.Generate(gctx, agents.Summarizer, in.InputText)
		if err != nil {
			return err
		}
		sbar = out.Value.(*agents.SBAR)
		return nil
	})
	g.Go(func() error {
		out, err := p.gen.Generate(gctx, agents.PreIntelligenceAgent, in.InputText)
		if err != nil {
			return err
		}
		pre = out.Value.(*agents.PreIntelligence)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("pipeline: doctor bundle: %w", err)
	}

	pre.Interactions = append(pre.Interactions, p.rules.Check(in.MedicationNames)...)
	sbar.Safety = p.safety.Ensure(sbar.Safety)
	pre.Safety = p.safety.Ensure(pre.Safety)

	ranked := []facilities.Ranked{}
	if p.directory != nil && (in.TriageLevel == agents.TriageRed || in.TriageLevel == agents.TriageAmber) {
		candidates := p.directory.Search(ctx, facilities.SearchRequest{
			Location:        in.Location,
			RadiusKm:        in.RadiusKm,
			SpecialtyNeeded: in.SpecialtyNeeded,
			Urgency:         in.TriageLevel,
		})
		ranked = facilities.Rank(candidates, in.SpecialtyNeeded, in.TriageLevel)
	}

	return &DoctorBundle{SBAR: sbar, PreIntelligence: pre, Facilities: ranked}, nil
}

// CoachInput carries the state the daily-coach narrative is built from.
type CoachInput struct {
	PatientName string
	Profile     *agents.Profile
	ActivePlan  any
	TodayDoses  any
	Adherence   any
	AdvicePack  any
	Voice       string
}

// CoachResult is the generated script plus the audio handle from the
// speech collaborator.
type CoachResult struct {
	Script      string `json:"script_text"`
	AudioHandle string `json:"audio_path"`
}

// GenerateDailyCoach builds the narrative input, invokes the recovery coach
// and appends the safety footer. The script is then handed to the speech
// synthesizer; a missing synthesizer only skips audio rendering.
func (p *Pipeline) GenerateDailyCoach(ctx context.Context, in CoachInput) (*CoachResult, error) {
	name := in.PatientName
	if name == "" {
		name = "Patient"
	}
	input := fmt.Sprintf(
		"Patient name: %s\nPatient profile JSON:\n%s\n\nActive medication plan:\n%s\n\nToday's doses:\n%s\n\nAdherence today:\n%s\n\nDoctor advice pack:\n%s",
		name,
		compactJSON(in.Profile),
		compactJSON(in.ActivePlan),
		compactJSON(in.TodayDoses),
		compactJSON(in.Adherence),
		compactJSON(in.AdvicePack),
	)

	out, err := p.gen.Generate(ctx, agents.RecoveryCoach, input)
	if err != nil {
		return nil, fmt.Errorf("pipeline: daily coach: %w", err)
	}

	script := fmt.Sprintf("%s\n\nSafety: %s", out.Text, p.safety.FooterText())

	result := &CoachResult{Script: script}
	if p.speech != nil {
		handle, err := p.speech.Synthesize(ctx, script, in.Voice)
		if err != nil {
			// Audio is an enhancement; the script is the artifact.
			p.logger.Warn("speech synthesis failed", "error", err.Error())
		} else {
			result.AudioHandle = handle
		}
	}
	return result, nil
}

// NextQuestions asks the questionnaire agent for follow-ups given the
// current profile state.
func (p *Pipeline) NextQuestions(ctx context.Context, profile *agents.Profile) (*agents.QuestionnaireNext, error) {
	out, err := p.gen.Generate(ctx, agents.Questionnaire, compactJSON(profile))
	if err != nil {
		return nil, fmt.Errorf("pipeline: questionnaire: %w", err)
	}
	return out.Value.(*agents.QuestionnaireNext), nil
}

// StructurePrescription converts raw prescription text into a strict
// schedule with clarifications.
func (p *Pipeline) StructurePrescription(ctx context.Context, rawText string) (*agents.StructuredPrescription, error) {
	out, err := p.gen.Generate(ctx, agents.PrescriptionStructurer, rawText)
	if err != nil {
		return nil, fmt.Errorf("pipeline: prescription: %w", err)
	}
	return out.Value.(*agents.StructuredPrescription), nil
}

// RunTriage classifies the input text on its own, outside a full profile
// build.
func (p *Pipeline) RunTriage(ctx context.Context, inputText string) (*agents.Triage, error) {
	out, err := p.gen.Generate(ctx, agents.TriageGate, inputText)
	if err != nil {
		return nil, fmt.Errorf("pipeline: triage: %w", err)
	}
	triage := out.Value.(*agents.Triage)
	triage.Safety = p.safety.Ensure(triage.Safety)
	return triage, nil
}

func compactJSON(v any) string {
	if v == nil {
		return "{}"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Package safety guarantees that clinically-facing outputs always carry the
// required disclaimer set.
package safety

import (
	"errors"
	"strings"
)

// DefaultDisclaimers is the fixed required set applied to triage, summary
// and pre-intelligence artifacts and to narrative coach output.
var DefaultDisclaimers = []string{
	"Decision support only",
	"Doctor verification required",
	"Seek emergency help if red flags",
}

// Policy appends required disclaimers to artifact safety lists and renders
// the footer for narrative outputs. The required set is non-empty by
// construction so the invariant can never be vacuous.
type Policy struct {
	required []string
}

// NewPolicy creates a safety policy with the given required disclaimers.
// An empty set is rejected.
func NewPolicy(required []string) (*Policy, error) {
	cleaned := make([]string, 0, len(required))
	for _, r := range required {
		if trimmed := strings.TrimSpace(r); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return nil, errors.New("safety: required disclaimer set cannot be empty")
	}
	return &Policy{required: cleaned}, nil
}

// Default returns a policy carrying DefaultDisclaimers.
func Default() *Policy {
	p, err := NewPolicy(DefaultDisclaimers)
	if err != nil {
		panic(err)
	}
	return p
}

// Ensure returns items with every missing required disclaimer appended.
// Existing order is preserved and nothing is duplicated, so Ensure is
// idempotent.
func (p *Policy) Ensure(items []string) []string {
	out := make([]string, 0, len(items)+len(p.required))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		out = append(out, item)
		seen[item] = true
	}
	for _, msg := range p.required {
		if !seen[msg] {
			out = append(out, msg)
			seen[msg] = true
		}
	}
	return out
}

// FooterText joins the required set for narrative outputs.
func (p *Policy) FooterText() string {
	return strings.Join(p.required, " | ")
}

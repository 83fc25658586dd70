// Package interactions checks medication lists against a fixed table of
// known risky pairs. Deterministic and pure; the generative pipeline only
// augments its output with these findings, never the other way around.
package interactions

import (
	"fmt"
	"strings"
)

// Rule is an unordered medication pair with its risk description.
type Rule struct {
	A    string
	B    string
	Risk string
}

var defaultRules = []Rule{
	{A: "warfarin", B: "ibuprofen", Risk: "increased bleeding risk"},
	{A: "lisinopril", B: "potassium supplement", Risk: "hyperkalemia risk"},
}

// Engine matches normalized medication names against the rule table.
type Engine struct {
	rules []Rule
}

// NewEngine creates an engine with the default rule table.
func NewEngine() *Engine {
	return &Engine{rules: defaultRules}
}

// NewEngineWithRules creates an engine with a custom rule table.
func NewEngineWithRules(rules []Rule) *Engine {
	return &Engine{rules: rules}
}

// Check returns one finding per matched pair, in table order. Names are
// lowercased before matching; a pair matches regardless of input order and
// never produces duplicates.
func (e *Engine) Check(medications []string) []string {
	if len(medications) == 0 {
		return nil
	}
	present := make(map[string]bool, len(medications))
	for _, m := range medications {
		name := strings.ToLower(strings.TrimSpace(m))
		if name != "" {
			present[name] = true
		}
	}

	var findings []string
	for _, rule := range e.rules {
		if present[rule.A] && present[rule.B] {
			findings = append(findings, fmt.Sprintf("%s + %s: %s", rule.A, rule.B, rule.Risk))
		}
	}
	return findings
}

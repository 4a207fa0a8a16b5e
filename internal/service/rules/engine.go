// Package rules detects red-flag language in advice text using a weighted
// table of case-insensitive patterns.
package rules

import (
	"fmt"
	"regexp"
	"strings"
)

// Severity classifies a single match by the weight of its rule
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// SeverityFor derives severity from a rule weight. Positive weights are LOW.
func SeverityFor(weight int) Severity {
	switch {
	case weight <= -20:
		return SeverityCritical
	case weight <= -10:
		return SeverityHigh
	case weight <= -5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Rule is one row of the rule table
type Rule struct {
	Category    string   `yaml:"category" json:"category"`
	Description string   `yaml:"description" json:"description"`
	Weight      int      `yaml:"weight" json:"weight"`
	Patterns    []string `yaml:"patterns" json:"patterns"`
}

// Match records a single pattern hit
type Match struct {
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Weight      int      `json:"weight"`
	MatchedText string   `json:"matchedText"`
	Severity    Severity `json:"severity"`
}

type compiledRule struct {
	Rule
	patterns []*regexp.Regexp
}

// Engine evaluates text against a validated rule table. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	rules []compiledRule
}

// NewEngine validates and compiles the table
func NewEngine(table []Rule) (*Engine, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("rule table is empty")
	}

	seen := make(map[string]struct{}, len(table))
	compiled := make([]compiledRule, 0, len(table))

	for i, r := range table {
		r.Category = strings.TrimSpace(r.Category)
		if r.Category == "" {
			return nil, fmt.Errorf("rule %d: category is required", i)
		}
		if _, dup := seen[r.Category]; dup {
			return nil, fmt.Errorf("rule %s: duplicate category", r.Category)
		}
		seen[r.Category] = struct{}{}

		if strings.TrimSpace(r.Description) == "" {
			return nil, fmt.Errorf("rule %s: description is required", r.Category)
		}
		if r.Weight == 0 {
			return nil, fmt.Errorf("rule %s: weight must be non-zero", r.Category)
		}
		if len(r.Patterns) == 0 {
			return nil, fmt.Errorf("rule %s: at least one pattern is required", r.Category)
		}

		cr := compiledRule{Rule: r, patterns: make([]*regexp.Regexp, 0, len(r.Patterns))}
		for _, p := range r.Patterns {
			if strings.TrimSpace(p) == "" {
				return nil, fmt.Errorf("rule %s: empty pattern", r.Category)
			}
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("rule %s: pattern %q: %w", r.Category, p, err)
			}
			cr.patterns = append(cr.patterns, re)
		}
		compiled = append(compiled, cr)
	}

	return &Engine{rules: compiled}, nil
}

// Evaluate applies every pattern of every rule independently. Each matching
// pattern adds its rule's full weight and one Match carrying the first
// occurrence, so a rule with several matching patterns counts several times.
// Matches are reported in table order.
func (e *Engine) Evaluate(text string) (int, []Match) {
	score := 0
	matches := []Match{}

	if strings.TrimSpace(text) == "" {
		return score, matches
	}

	for _, r := range e.rules {
		for _, re := range r.patterns {
			found := re.FindString(text)
			if found == "" {
				continue
			}
			score += r.Weight
			matches = append(matches, Match{
				Category:    r.Category,
				Description: r.Description,
				Weight:      r.Weight,
				MatchedText: found,
				Severity:    SeverityFor(r.Weight),
			})
		}
	}

	return score, matches
}

// Rules returns a copy of the loaded table
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.Rule
		out[i].Patterns = append([]string(nil), r.Patterns...)
	}
	return out
}

package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := Load("")
	require.NoError(t, err)
	return engine
}

func categories(matches []Match) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Category)
	}
	return out
}

func TestEngine_Evaluate(t *testing.T) {
	engine := newDefaultEngine(t)

	tests := []struct {
		name           string
		text           string
		wantScore      int
		wantCategories []string
		wantMatched    []string
	}{
		{
			name:           "empty text",
			text:           "",
			wantScore:      0,
			wantCategories: []string{},
		},
		{
			name:           "whitespace text",
			text:           "  \n ",
			wantScore:      0,
			wantCategories: []string{},
		},
		{
			name:           "neutral advice",
			text:           "Consider a diversified index fund held for the long term.",
			wantScore:      0,
			wantCategories: []string{},
		},
		{
			name:           "classic pump pitch",
			text:           "Guaranteed returns of 50% in 2 weeks, act now!!",
			wantScore:      -60,
			wantCategories: []string{"GUARANTEED_RETURNS", "UNREALISTIC_RETURNS", "PRESSURE_TACTICS"},
			wantMatched:    []string{"Guaranteed returns", "50% in 2 week", "act now"},
		},
		{
			name:           "case insensitive",
			text:           "GUARANTEED RETURN on a RISK-FREE plan",
			wantScore:      -50,
			wantCategories: []string{"GUARANTEED_RETURNS", "GUARANTEED_RETURNS"},
			wantMatched:    []string{"GUARANTEED RETURN", "RISK-FREE"},
		},
		{
			name:           "insider tip with pressure",
			text:           "Insider tip: limited time offer, hurry up",
			wantScore:      -50,
			wantCategories: []string{"PRESSURE_TACTICS", "PRESSURE_TACTICS", "INSIDER_INFO"},
		},
		{
			name:           "disclaimers accumulate",
			text:           "Mutual fund investments are subject to market risks. Past performance is not indicative of future results.",
			wantScore:      15,
			wantCategories: []string{"PROPER_DISCLAIMERS", "PROPER_DISCLAIMERS", "PROPER_DISCLAIMERS"},
		},
		{
			name:           "double your money",
			text:           "We double your money every month",
			wantScore:      -20,
			wantCategories: []string{"UNREALISTIC_RETURNS"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, matches := engine.Evaluate(tt.text)
			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, tt.wantCategories, categories(matches))
			if tt.wantMatched != nil {
				got := make([]string, 0, len(matches))
				for _, m := range matches {
					got = append(got, m.MatchedText)
				}
				assert.Equal(t, tt.wantMatched, got)
			}
		})
	}
}

func TestEngine_MatchSeverity(t *testing.T) {
	engine := newDefaultEngine(t)

	_, matches := engine.Evaluate("Guaranteed returns, act now. Subject to market risks.")
	require.NotEmpty(t, matches)

	bySeverity := map[string]Severity{}
	for _, m := range matches {
		bySeverity[m.Category] = m.Severity
		assert.Equal(t, SeverityFor(m.Weight), m.Severity)
	}
	assert.Equal(t, SeverityCritical, bySeverity["GUARANTEED_RETURNS"])
	assert.Equal(t, SeverityHigh, bySeverity["PRESSURE_TACTICS"])
	assert.Equal(t, SeverityLow, bySeverity["PROPER_DISCLAIMERS"])
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		weight int
		want   Severity
	}{
		{-25, SeverityCritical},
		{-20, SeverityCritical},
		{-19, SeverityHigh},
		{-10, SeverityHigh},
		{-9, SeverityMedium},
		{-5, SeverityMedium},
		{-4, SeverityLow},
		{5, SeverityLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SeverityFor(tt.weight), "weight %d", tt.weight)
	}
}

func TestNewEngine_Validation(t *testing.T) {
	valid := Rule{Category: "A", Description: "a", Weight: -5, Patterns: []string{"foo"}}

	tests := []struct {
		name  string
		table []Rule
		err   string
	}{
		{"empty table", nil, "empty"},
		{"missing category", []Rule{{Description: "a", Weight: -5, Patterns: []string{"x"}}}, "category is required"},
		{"missing description", []Rule{{Category: "A", Weight: -5, Patterns: []string{"x"}}}, "description is required"},
		{"zero weight", []Rule{{Category: "A", Description: "a", Patterns: []string{"x"}}}, "non-zero"},
		{"no patterns", []Rule{{Category: "A", Description: "a", Weight: -5}}, "at least one pattern"},
		{"blank pattern", []Rule{{Category: "A", Description: "a", Weight: -5, Patterns: []string{" "}}}, "empty pattern"},
		{"bad regexp", []Rule{{Category: "A", Description: "a", Weight: -5, Patterns: []string{"(unclosed"}}}, "pattern"},
		{"duplicate category", []Rule{valid, valid}, "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(tt.table)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestEngine_RulesReturnsCopy(t *testing.T) {
	engine := newDefaultEngine(t)

	table := engine.Rules()
	require.Len(t, table, 5)
	table[0].Patterns[0] = "mutated"

	assert.NotEqual(t, "mutated", engine.Rules()[0].Patterns[0])
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `rules:
  - category: CRYPTO_HYPE
    description: Unregistered crypto scheme language
    weight: -10
    patterns:
      - 'moon\s*shot'
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	engine, err := Load(path)
	require.NoError(t, err)

	score, matches := engine.Evaluate("This token is a MOONSHOT")
	assert.Equal(t, -10, score)
	require.Len(t, matches, 1)
	assert.Equal(t, "MOONSHOT", matches[0].MatchedText)
	assert.Equal(t, SeverityHigh, matches[0].Severity)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - category: A\n    unknown: 1\n"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

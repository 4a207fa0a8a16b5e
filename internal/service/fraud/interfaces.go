package fraud

import (
	"context"

	"github.com/davidleathers/advice-risk-scorer/internal/domain/submission"
	"github.com/davidleathers/advice-risk-scorer/internal/service/registry"
	"github.com/davidleathers/advice-risk-scorer/internal/service/rules"
)

// Service scores advice submissions for fraud risk
type Service interface {
	// Analyze returns either a result or an error, never both
	Analyze(ctx context.Context, sub submission.Submission) (*Result, error)
}

// AdvisorLookup resolves registration numbers against the registry
type AdvisorLookup interface {
	ByID(ctx context.Context, regNo string) (*registry.LookupResult, error)
}

// RuleEvaluator scores text against the red-flag table
type RuleEvaluator interface {
	Evaluate(text string) (int, []rules.Match)
}

// MLScorer asks the external model for a fraud probability
type MLScorer interface {
	Score(ctx context.Context, text string, returnsPct *float64, timeframe *string) (*MLAnalysis, error)
}

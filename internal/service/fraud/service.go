package fraud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	domainErrors "github.com/davidleathers/advice-risk-scorer/internal/domain/errors"
	"github.com/davidleathers/advice-risk-scorer/internal/domain/submission"
	"github.com/davidleathers/advice-risk-scorer/internal/infrastructure/telemetry"
	"github.com/davidleathers/advice-risk-scorer/internal/metrics"
	"github.com/davidleathers/advice-risk-scorer/internal/service/similarity"
)

// Config holds scoring policy
type Config struct {
	// NoRegIDPenalty is the advisor score when no registration id is given
	NoRegIDPenalty int
}

// DefaultConfig returns the standard scoring policy
func DefaultConfig() Config {
	return Config{NoRegIDPenalty: DefaultNoRegIDPenalty}
}

// service implements the Service interface
type service struct {
	lookup  AdvisorLookup
	rules   RuleEvaluator
	ml      MLScorer
	cfg     Config
	metrics *metrics.Registry
	logger  *zap.Logger
}

type mlOutcome struct {
	analysis *MLAnalysis
	err      error
}

// NewService creates the analysis pipeline. ml and m may be nil; without a
// scorer every analysis uses the two-signal formula.
func NewService(lookup AdvisorLookup, rules RuleEvaluator, ml MLScorer, m *metrics.Registry, cfg Config, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		lookup:  lookup,
		rules:   rules,
		ml:      ml,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
	}
}

// Analyze scores a submission. The model call runs alongside advisor
// verification and is cancelled if verification fails.
func (s *service) Analyze(ctx context.Context, sub submission.Submission) (*Result, error) {
	start := time.Now()

	ctx, span := telemetry.StartServiceSpan(ctx, "fraud", "analyze")
	defer span.End()
	logger := telemetry.WithTrace(ctx, s.logger)

	if err := sub.Validate(); err != nil {
		s.recordFailure(ctx, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	mlCtx, cancelML := context.WithCancel(ctx)
	defer cancelML()

	mlDone := make(chan mlOutcome, 1)
	if s.ml != nil {
		go func() {
			mlDone <- s.scoreML(mlCtx, sub)
		}()
	} else {
		mlDone <- mlOutcome{}
	}

	advisor, err := s.verifyAdvisor(ctx, sub)
	if err != nil {
		cancelML()
		appErr := domainErrors.NewRegistryUnavailableError(MessageVerificationFailed).WithCause(err)
		logger.Error("advisor verification failed",
			zap.String("reg_id", sub.RegID()),
			zap.Error(err))
		s.recordFailure(ctx, appErr)
		telemetry.RecordError(span, appErr)
		return nil, appErr
	}

	ruleScore, matches := s.rules.Evaluate(sub.AdviceText)
	if s.metrics != nil {
		for _, m := range matches {
			s.metrics.RecordRedFlag(ctx, m.Category, string(m.Severity))
		}
	}

	outcome := <-mlDone
	var mlScore *float64
	if outcome.err != nil {
		logger.Warn("ml analysis unavailable, scoring without it", zap.Error(outcome.err))
		outcome.analysis = nil
	} else if outcome.analysis != nil {
		mlScore = &outcome.analysis.Score
	}

	final := CombineScores(advisor.Score, ruleScore, mlScore)
	result := &Result{
		FinalScore:          final,
		RiskLevel:           RiskLevelFor(final),
		AdvisorVerification: advisor,
		DetectedRedFlags:    matches,
		MLAnalysis:          outcome.analysis,
	}

	span.SetAttributes(
		attribute.Int("analysis.final_score", final),
		attribute.String("analysis.risk_level", string(result.RiskLevel)),
		attribute.String("analysis.advisor_status", string(advisor.Status)),
		attribute.Int("analysis.red_flags", len(matches)),
		attribute.Bool("analysis.ml_used", mlScore != nil),
	)
	if s.metrics != nil {
		s.metrics.RecordAnalysis(ctx, time.Since(start), string(result.RiskLevel), final, mlScore != nil)
	}

	logger.Debug("advice analyzed",
		zap.Int("final_score", final),
		zap.String("risk_level", string(result.RiskLevel)),
		zap.String("advisor_status", string(advisor.Status)),
		zap.Int("red_flags", len(matches)),
		zap.Bool("ml_used", mlScore != nil),
		zap.Duration("duration", time.Since(start)))

	return result, nil
}

// scoreML calls the model. A panicking scorer is reported as an ml_service
// failure so the analysis degrades instead of crashing the process.
func (s *service) scoreML(ctx context.Context, sub submission.Submission) (out mlOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("ml scorer panicked",
				zap.Any("panic", rec),
				zap.Stack("stack"))
			out = mlOutcome{err: domainErrors.NewMLServiceError(domainErrors.CodeMLPanic, fmt.Sprintf("scorer panicked: %v", rec))}
		}
	}()

	analysis, err := s.ml.Score(ctx, sub.AdviceText, sub.ReturnPercentage, sub.TimeFrame)
	return mlOutcome{analysis: analysis, err: err}
}

// verifyAdvisor classifies the claimed advisor. Only a failed lookup
// returns an error.
func (s *service) verifyAdvisor(ctx context.Context, sub submission.Submission) (AdvisorVerification, error) {
	regID := sub.RegID()
	if regID == "" {
		return AdvisorVerification{
			Status:  StatusNoRegID,
			Message: MessageNoRegID,
			Score:   s.cfg.NoRegIDPenalty,
		}, nil
	}

	res, err := s.lookup.ByID(ctx, regID)
	if err != nil {
		return AdvisorVerification{}, err
	}

	if !res.Found || res.Entry == nil {
		return AdvisorVerification{
			Status:  StatusInvalidRegID,
			Message: MessageInvalidRegID,
			Score:   ScoreInvalidRegID,
		}, nil
	}

	if similarity.Verified(sub.ClaimedAdvisorName(), res.Entry.EntityName) {
		return AdvisorVerification{
			Status:  StatusVerified,
			Message: MessageVerified,
			Score:   ScoreVerified,
		}, nil
	}

	return AdvisorVerification{
		Status:  StatusNameMismatch,
		Message: MessageNameMismatch,
		Score:   ScoreNameMismatch,
	}, nil
}

func (s *service) recordFailure(ctx context.Context, err error) {
	if s.metrics == nil {
		return
	}
	errType := string(domainErrors.ErrorTypeInternal)
	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		errType = string(appErr.Type)
	}
	s.metrics.RecordAnalysisFailure(ctx, errType)
}

package mlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	domainErrors "github.com/davidleathers/advice-risk-scorer/internal/domain/errors"
	"github.com/davidleathers/advice-risk-scorer/internal/infrastructure/config"
	"github.com/davidleathers/advice-risk-scorer/internal/infrastructure/telemetry"
	"github.com/davidleathers/advice-risk-scorer/internal/metrics"
	"github.com/davidleathers/advice-risk-scorer/internal/service/fraud"
)

const (
	peerName        = "ml-scorer"
	defaultTimeout  = 10 * time.Second
	maxResponseSize = 1 << 20
)

// scoreRequest is the body sent to the model
type scoreRequest struct {
	Text              string   `json:"text"`
	ReturnsPercentage *float64 `json:"returns_percentage,omitempty"`
	Timeframe         *string  `json:"timeframe,omitempty"`
}

// scoreResponse is the body the model answers with
type scoreResponse struct {
	FraudProbability *float64 `json:"fraud_probability" validate:"required,gte=0,lte=1"`
	Prediction       string   `json:"prediction" validate:"required,oneof=FRAUDULENT LEGITIMATE"`
	ConfidenceLevel  string   `json:"confidence_level" validate:"required,oneof=VERY_LOW LOW MEDIUM HIGH"`
	RiskIndicators   []string `json:"risk_indicators"`
}

// Client calls the external fraud model over HTTP
type Client struct {
	scoreURL   string
	healthURL  string
	timeout    time.Duration
	httpClient *http.Client
	validate   *validator.Validate
	metrics    *metrics.Registry
	logger     *zap.Logger
}

// NewClient creates a model client from config. m may be nil.
func NewClient(cfg config.MLConfig, m *metrics.Registry, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid ml service url %q", cfg.URL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		scoreURL:  u.String(),
		healthURL: healthURLFor(u),
		timeout:   timeout,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		validate: validator.New(validator.WithRequiredStructEnabled()),
		metrics:  m,
		logger:   logger,
	}, nil
}

// Score asks the model for a fraud probability. Missing returns or
// timeframe hints are extracted from text first. Every failure is an
// ml_service AppError.
func (c *Client) Score(ctx context.Context, text string, returnsPct *float64, timeframe *string) (*fraud.MLAnalysis, error) {
	start := time.Now()

	ctx, span := telemetry.StartHTTPClientSpan(ctx, peerName, http.MethodPost, c.scoreURL)
	defer span.End()

	analysis, err := c.score(ctx, text, returnsPct, timeframe)

	code := ""
	if err != nil {
		var appErr *domainErrors.AppError
		if errors.As(err, &appErr) {
			code = appErr.Code
		}
		telemetry.RecordError(span, err)
	} else {
		span.SetAttributes(attribute.Float64("ml.fraud_probability", analysis.FraudProbability))
	}
	if c.metrics != nil {
		c.metrics.RecordMLRequest(ctx, time.Since(start), code)
	}

	return analysis, err
}

func (c *Client) score(ctx context.Context, text string, returnsPct *float64, timeframe *string) (*fraud.MLAnalysis, error) {
	if returnsPct == nil {
		returnsPct = ExtractReturns(text)
	}
	if timeframe == nil || strings.TrimSpace(*timeframe) == "" {
		timeframe = ExtractTimeframe(text)
	}

	body, err := json.Marshal(scoreRequest{Text: text, ReturnsPercentage: returnsPct, Timeframe: timeframe})
	if err != nil {
		return nil, domainErrors.NewMLServiceError(domainErrors.CodeMLInvalidResponse, "encode request").WithCause(err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.scoreURL, bytes.NewReader(body))
	if err != nil {
		return nil, domainErrors.NewMLServiceError(domainErrors.CodeMLUnreachable, "build request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, domainErrors.NewMLServiceError(domainErrors.CodeMLTimeout,
				fmt.Sprintf("no response within %s", c.timeout)).WithCause(err)
		}
		return nil, domainErrors.NewMLServiceError(domainErrors.CodeMLUnreachable, "request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, domainErrors.NewMLServiceError(domainErrors.CodeMLBadStatus,
			fmt.Sprintf("returned %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))).
			WithDetails(map[string]interface{}{"service": "ml", "status": resp.StatusCode})
	}

	var out scoreResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&out); err != nil {
		if isTimeout(ctx, err) {
			return nil, domainErrors.NewMLServiceError(domainErrors.CodeMLTimeout, "response body timed out").WithCause(err)
		}
		return nil, domainErrors.NewMLServiceError(domainErrors.CodeMLInvalidResponse, "undecodable response").WithCause(err)
	}
	if err := c.validate.Struct(out); err != nil {
		return nil, domainErrors.NewMLServiceError(domainErrors.CodeMLInvalidResponse, "invalid response").WithCause(err)
	}

	indicators := out.RiskIndicators
	if indicators == nil {
		indicators = []string{}
	}
	p := *out.FraudProbability

	return &fraud.MLAnalysis{
		FraudProbability: p,
		Prediction:       out.Prediction,
		ConfidenceLevel:  out.ConfidenceLevel,
		RiskIndicators:   indicators,
		Score:            ProbabilityToScore(p),
	}, nil
}

// Health reports whether the model answers its health endpoint
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ml health check failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ml health check returned %d", resp.StatusCode)
	}
	return nil
}

// healthURLFor places /health beside the score endpoint. A score URL with
// an empty or root path probes the host root.
func healthURLFor(score *url.URL) string {
	health := *score
	health.RawQuery = ""
	health.Fragment = ""
	health.RawPath = ""

	dir := path.Dir(score.Path)
	if dir == "." || dir == "/" {
		dir = ""
	}
	health.Path = dir + "/health"
	return health.String()
}

// ProbabilityToScore maps p=1 to -50 and p=0 to +50
func ProbabilityToScore(p float64) float64 {
	return (1-p)*100 - 50
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

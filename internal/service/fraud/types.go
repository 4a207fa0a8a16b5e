package fraud

import (
	"github.com/davidleathers/advice-risk-scorer/internal/service/rules"
)

// RiskLevel buckets a final score
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

// VerificationStatus is the outcome of checking the claimed advisor
type VerificationStatus string

const (
	StatusVerified     VerificationStatus = "VERIFIED"
	StatusNameMismatch VerificationStatus = "NAME_MISMATCH"
	StatusInvalidRegID VerificationStatus = "INVALID_REG_ID"
	StatusNoRegID      VerificationStatus = "NO_REG_ID"
)

// AdvisorVerification is the advisor signal and its contribution to the score
type AdvisorVerification struct {
	Status  VerificationStatus `json:"status"`
	Message string             `json:"message"`
	Score   int                `json:"score"`
}

// MLAnalysis is the model signal. Score is the model's probability mapped
// onto [-50, 50].
type MLAnalysis struct {
	FraudProbability float64  `json:"fraudProbability"`
	Prediction       string   `json:"prediction"`
	ConfidenceLevel  string   `json:"confidenceLevel"`
	RiskIndicators   []string `json:"riskIndicators"`
	Score            float64  `json:"score"`
}

// Result is a completed analysis. MLAnalysis is nil when the model could
// not be used.
type Result struct {
	FinalScore          int                 `json:"finalScore"`
	RiskLevel           RiskLevel           `json:"riskLevel"`
	AdvisorVerification AdvisorVerification `json:"advisorVerification"`
	DetectedRedFlags    []rules.Match       `json:"detectedRedFlags"`
	MLAnalysis          *MLAnalysis         `json:"mlAnalysis,omitempty"`
}

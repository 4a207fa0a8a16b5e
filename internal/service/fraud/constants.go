package fraud

// Advisor verification contributions
const (
	ScoreVerified         = 10
	ScoreNameMismatch     = -20
	ScoreInvalidRegID     = -20
	DefaultNoRegIDPenalty = -10
)

// Advisor verification messages
const (
	MessageVerified     = "Advisor verified"
	MessageNameMismatch = "Name doesn't match registration"
	MessageInvalidRegID = "Registration ID not found"
	MessageNoRegID      = "Advisor registration ID isn't available"

	// MessageVerificationFailed is returned when the registry cannot be read
	MessageVerificationFailed = "Error verifying advisor with the given ID."
)

// Score combination
const (
	BaseScore = 50.0

	// with the model
	WeightAdvisor = 0.2
	WeightRules   = 0.3
	WeightML      = 0.5

	// without the model
	DegradedWeightAdvisor = 1.0
	DegradedWeightRules   = 0.5

	MinScore = 0
	MaxScore = 100
)

// Lower bounds of each risk band
const (
	ThresholdLow    = 70
	ThresholdMedium = 40
	ThresholdHigh   = 20
)

package submission

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	domainErrors "github.com/davidleathers/advice-risk-scorer/internal/domain/errors"
)

// UnknownAdvisorName stands in for a missing advisor name when a registration
// id is supplied without one.
const UnknownAdvisorName = "<Unknown Advisor>"

// Submission is a piece of financial advice submitted for assessment.
// It is treated as immutable once received.
type Submission struct {
	AdviceText       string   `json:"adviceText" validate:"required,max=20000"`
	AdvisorName      *string  `json:"advisorName,omitempty" validate:"omitempty,max=200"`
	AdvisorRegID     *string  `json:"advisorRegId,omitempty" validate:"omitempty,max=64"`
	ReturnPercentage *float64 `json:"returnPercentage,omitempty" validate:"omitempty,gte=0,lte=10000"`
	TimeFrame        *string  `json:"timeFrame,omitempty" validate:"omitempty,max=100"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the submission. Blank advice text is rejected before any
// other field so callers get the most actionable message first.
func (s Submission) Validate() error {
	if strings.TrimSpace(s.AdviceText) == "" {
		return domainErrors.ErrAdviceTextRequired
	}

	if err := getValidator().Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return domainErrors.NewValidationError("INVALID_INPUT",
				fmt.Sprintf("invalid %s: failed %s", fe.Field(), fe.Tag())).
				WithDetails(map[string]interface{}{"field": fe.Field(), "rule": fe.Tag()})
		}
		return domainErrors.NewValidationError("INVALID_INPUT", "Invalid input data").WithCause(err)
	}

	return nil
}

// RegID returns the trimmed registration id, or "" when none was supplied.
func (s Submission) RegID() string {
	if s.AdvisorRegID == nil {
		return ""
	}
	return strings.TrimSpace(*s.AdvisorRegID)
}

// ClaimedAdvisorName returns the advisor name, falling back to
// UnknownAdvisorName when blank.
func (s Submission) ClaimedAdvisorName() string {
	if s.AdvisorName == nil || strings.TrimSpace(*s.AdvisorName) == "" {
		return UnknownAdvisorName
	}
	return *s.AdvisorName
}

package submission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/davidleathers/advice-risk-scorer/internal/domain/errors"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestSubmission_Validate(t *testing.T) {
	tests := []struct {
		name    string
		sub     Submission
		wantErr bool
		code    string
	}{
		{
			name: "minimal valid",
			sub:  Submission{AdviceText: "Invest in index funds"},
		},
		{
			name: "full valid",
			sub: Submission{
				AdviceText:       "Guaranteed returns of 50% in 2 weeks",
				AdvisorName:      strPtr("Jane Doe"),
				AdvisorRegID:     strPtr("INA000000123"),
				ReturnPercentage: floatPtr(50),
				TimeFrame:        strPtr("2 weeks"),
			},
		},
		{
			name:    "empty text",
			sub:     Submission{AdviceText: ""},
			wantErr: true,
			code:    "ADVICE_TEXT_REQUIRED",
		},
		{
			name:    "whitespace text",
			sub:     Submission{AdviceText: "   \n\t"},
			wantErr: true,
			code:    "ADVICE_TEXT_REQUIRED",
		},
		{
			name:    "negative return",
			sub:     Submission{AdviceText: "text", ReturnPercentage: floatPtr(-1)},
			wantErr: true,
			code:    "INVALID_INPUT",
		},
		{
			name:    "absurd return",
			sub:     Submission{AdviceText: "text", ReturnPercentage: floatPtr(10001)},
			wantErr: true,
			code:    "INVALID_INPUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sub.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, domainErrors.IsType(err, domainErrors.ErrorTypeValidation))
			var appErr *domainErrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
}

func TestSubmission_Accessors(t *testing.T) {
	s := Submission{AdviceText: "x"}
	assert.Equal(t, "", s.RegID())
	assert.Equal(t, UnknownAdvisorName, s.ClaimedAdvisorName())

	s.AdvisorRegID = strPtr("  INA000000123 ")
	s.AdvisorName = strPtr("   ")
	assert.Equal(t, "INA000000123", s.RegID())
	assert.Equal(t, UnknownAdvisorName, s.ClaimedAdvisorName())

	s.AdvisorName = strPtr("Jane Doe")
	assert.Equal(t, "Jane Doe", s.ClaimedAdvisorName())
}

package service

import (
	"strconv"
	"strings"

	"github.com/triage_inbox/backend/internal/models"
)

const (
	profileLastInteraction = "2017-01-30"
	phoneDigits            = 8
)

var riskCycle = []models.RiskTier{
	models.RiskLow,
	models.RiskLow,
	models.RiskMedium,
	models.RiskMedium,
	models.RiskHigh,
}

// SynthesizeProfile builds a stand-in customer profile. Every field is a pure
// function of the identifier. PhoneNumber is always 10 characters: "07"
// followed by the first 8 digits of id*1234, right-padded with zeros.
func SynthesizeProfile(userID string) models.UserProfile {
	n := NumericID(userID)
	return models.UserProfile{
		UserID:          userID,
		Name:            "Customer " + userID,
		PhoneNumber:     "07" + phoneSuffix(n*1234),
		LoanBalance:     (n * 13) % 50000,
		CreditScore:     300 + n%550,
		RiskTier:        riskCycle[n%int64(len(riskCycle))],
		LastInteraction: profileLastInteraction,
	}
}

// NumericID reads the leading decimal digits of the identifier. Identifiers
// without a digit prefix, or too large for int64 arithmetic, map to 0.
func NumericID(userID string) int64 {
	s := strings.TrimSpace(userID)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil || n > maxSafeID {
		return 0
	}
	return n
}

// keeps n*1234 inside int64
const maxSafeID = (1<<63 - 1) / 1234

func phoneSuffix(v int64) string {
	digits := strconv.FormatInt(v, 10)
	if len(digits) >= phoneDigits {
		return digits[:phoneDigits]
	}
	return digits + strings.Repeat("0", phoneDigits-len(digits))
}

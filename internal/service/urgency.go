package service

import "strings"

const (
	baseUrgency = 10
	maxUrgency  = 100
)

// UrgencyRule adds Weight once when any of Triggers appears in the text.
type UrgencyRule struct {
	Triggers []string
	Weight   int
}

// UrgencyRules is the scoring table. Triggers are lowercase substrings, so
// "clear" also matches "clearly".
var UrgencyRules = []UrgencyRule{
	{Triggers: []string{"reject"}, Weight: 50},
	{Triggers: []string{"disburs"}, Weight: 40},
	{Triggers: []string{"money"}, Weight: 30},
	{Triggers: []string{"urgent"}, Weight: 30},
	{Triggers: []string{"wait"}, Weight: 20},
	{Triggers: []string{"clear"}, Weight: 20},
	{Triggers: []string{"crb"}, Weight: 40},
	{Triggers: []string{"fraud", "used my i.d"}, Weight: 80},
}

type UrgencyLevel string

const (
	UrgencyCritical UrgencyLevel = "critical"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyNormal   UrgencyLevel = "normal"
)

// ScoreUrgency returns a score in [10,100].
func ScoreUrgency(text string) int {
	lower := strings.ToLower(text)
	score := baseUrgency
	for _, rule := range UrgencyRules {
		if containsAny(lower, rule.Triggers) {
			score += rule.Weight
		}
	}
	if score > maxUrgency {
		return maxUrgency
	}
	return score
}

func LevelForScore(score int) UrgencyLevel {
	switch {
	case score >= 70:
		return UrgencyCritical
	case score >= 40:
		return UrgencyHigh
	default:
		return UrgencyNormal
	}
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

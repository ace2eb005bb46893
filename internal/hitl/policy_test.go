package hitl

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ledgerline/finsight/internal/model"
)

func testThresholds() Thresholds {
	return Thresholds{
		RequireValidationBelow: 0.6,
		AutoValidateAbove:      0.9,
		MissingFieldThreshold:  3,
		CriticalFields:         []string{"finSales", "finProfit", "finYear"},
	}
}

func result(confidence float64, missing ...string) *model.ExtractionResult {
	if missing == nil {
		missing = []string{}
	}
	return &model.ExtractionResult{
		ConfidenceScore: confidence,
		MissingFields:   missing,
	}
}

func TestDecideLowConfidence(t *testing.T) {
	d := Decide(result(0.45), testThresholds())
	assert.True(t, d.NeedsValidation)
	assert.Equal(t, model.RuleLowConfidence, d.Rule)
}

func TestDecideFloorBoundary(t *testing.T) {
	// Exactly at the floor is not "below": falls through to the band.
	d := Decide(result(0.6), testThresholds())
	assert.True(t, d.NeedsValidation)
	assert.Equal(t, model.RuleConfidenceBand, d.Rule)

	d = Decide(result(0.5999), testThresholds())
	assert.Equal(t, model.RuleLowConfidence, d.Rule)
}

func TestDecideTooManyMissing(t *testing.T) {
	d := Decide(result(0.95, "a", "b", "c", "d"), testThresholds())
	assert.True(t, d.NeedsValidation)
	assert.Equal(t, model.RuleTooManyMissing, d.Rule)

	// Exactly at the threshold does not trigger.
	d = Decide(result(0.95, "a", "b", "c"), testThresholds())
	assert.NotEqual(t, model.RuleTooManyMissing, d.Rule)
}

func TestDecideCriticalMissingBeatsAutoValidate(t *testing.T) {
	// High confidence cannot auto-validate past a missing critical field.
	d := Decide(result(0.95, "finSales"), testThresholds())
	assert.True(t, d.NeedsValidation)
	assert.Equal(t, model.RuleCriticalMissing, d.Rule)
}

func TestDecideAutoValidated(t *testing.T) {
	d := Decide(result(0.9), testThresholds())
	assert.False(t, d.NeedsValidation)
	assert.Equal(t, model.RuleAutoValidated, d.Rule)

	d = Decide(result(1.0), testThresholds())
	assert.False(t, d.NeedsValidation)
}

func TestDecideConfidenceBand(t *testing.T) {
	d := Decide(result(0.75), testThresholds())
	assert.True(t, d.NeedsValidation)
	assert.Equal(t, model.RuleConfidenceBand, d.Rule)

	d = Decide(result(0.8999), testThresholds())
	assert.Equal(t, model.RuleConfidenceBand, d.Rule)
}

func TestDecideNonCriticalMissingUnderThreshold(t *testing.T) {
	// One non-critical missing field with a high score still auto-validates.
	d := Decide(result(0.92, "finSecurities"), testThresholds())
	assert.False(t, d.NeedsValidation)
	assert.Equal(t, model.RuleAutoValidated, d.Rule)
}

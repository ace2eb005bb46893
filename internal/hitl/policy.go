// Package hitl holds the human-in-the-loop decision policy, the correction
// applier, and the pending-review registry. The core never performs
// interactive I/O; it emits decisions and waits for structured corrections.
package hitl

import (
	"github.com/ledgerline/finsight/internal/model"
)

// Thresholds are the validation trigger settings.
type Thresholds struct {
	RequireValidationBelow float64
	AutoValidateAbove      float64
	MissingFieldThreshold  int
	CriticalFields         []string
}

// Decide evaluates whether an extraction result requires human review. It is
// a pure function over the result and thresholds.
//
// Rules are evaluated in order and the first match wins. The completeness
// checks beat the confidence band: a missing critical field forces review
// even when the score clears the auto-validate ceiling.
func Decide(result *model.ExtractionResult, t Thresholds) model.ValidationDecision {
	confidence := result.ConfidenceScore
	missing := result.MissingFields

	// Score strictly below the hard floor.
	if confidence < t.RequireValidationBelow {
		return model.ValidationDecision{NeedsValidation: true, Rule: model.RuleLowConfidence}
	}

	// Too many missing fields.
	if len(missing) > t.MissingFieldThreshold {
		return model.ValidationDecision{NeedsValidation: true, Rule: model.RuleTooManyMissing}
	}

	// A critical field is missing.
	for _, critical := range t.CriticalFields {
		for _, m := range missing {
			if m == critical {
				return model.ValidationDecision{NeedsValidation: true, Rule: model.RuleCriticalMissing}
			}
		}
	}

	// Auto-validate at or above the ceiling.
	if confidence >= t.AutoValidateAbove {
		return model.ValidationDecision{NeedsValidation: false, Rule: model.RuleAutoValidated}
	}

	// Between the two thresholds, review by default.
	if confidence >= t.RequireValidationBelow && confidence < t.AutoValidateAbove {
		return model.ValidationDecision{NeedsValidation: true, Rule: model.RuleConfidenceBand}
	}

	return model.ValidationDecision{NeedsValidation: false, Rule: model.RuleDefault}
}

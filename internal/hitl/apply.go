package hitl

import (
	"github.com/ledgerline/finsight/internal/model"
)

// Apply produces a validated copy of the result with the given corrections
// applied. The input result is never mutated.
//
// add inserts into the sheet and clears the field from missing_fields;
// correct overwrites the existing value; remove deletes the field from the
// sheet without putting it back on the missing list. Human validation is
// ground truth, so the returned confidence is 1.0 unconditionally; the
// pre-correction score is kept for audit.
func Apply(result *model.ExtractionResult, actions []model.CorrectionAction) *model.ExtractionResult {
	validated := result.Clone()

	for _, action := range actions {
		switch action.Action {
		case model.CorrectionAdd:
			validated.Sheet[action.Field] = action.Value
			validated.MissingFields = removeField(validated.MissingFields, action.Field)

		case model.CorrectionCorrect:
			validated.Sheet[action.Field] = action.Value

		case model.CorrectionRemove:
			delete(validated.Sheet, action.Field)
		}
	}

	original := result.ConfidenceScore
	validated.OriginalConfidence = &original
	validated.ConfidenceScore = 1.0
	validated.ValidatedByHuman = true
	validated.Corrections = append([]model.CorrectionAction(nil), actions...)

	return validated
}

func removeField(fields []string, field string) []string {
	out := fields[:0:0]
	for _, f := range fields {
		if f != field {
			out = append(out, f)
		}
	}
	return out
}

package extract

import (
	"fmt"
	"math"
	"sort"

	"github.com/ledgerline/finsight/internal/model"
)

// Cross-field check constants.
const (
	mediumConfidenceLow  = 0.5
	mediumConfidenceHigh = 0.8
	profitTolerance      = 1000 // absolute currency units
	fiscalYearMin        = 2000
	fiscalYearMax        = 2030
)

// DetectAnomalies runs the advisory cross-field and range checks. Notes never
// change the sheet or the confidence score.
func DetectAnomalies(sheet map[string]any, confidences map[string]float64, monetaryFields []string) []model.AnomalyNote {
	notes := []model.AnomalyNote{}

	// Medium-confidence fields, in stable order.
	fields := make([]string, 0, len(confidences))
	for field := range confidences {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		confidence := confidences[field]
		if confidence >= mediumConfidenceLow && confidence < mediumConfidenceHigh {
			c := confidence
			notes = append(notes, model.AnomalyNote{
				Field:      field,
				Kind:       model.AnomalyMediumConfidence,
				Value:      sheet[field],
				Confidence: &c,
				Reason: fmt.Sprintf("Value extracted with medium confidence (%.0f%%). Verification recommended.",
					confidence*100),
				Suggestion: "Manually check this value against the source documents.",
			})
		}
	}

	// Net profit vs operating + financial income.
	operating, okOp := asFloat(sheet["finOperationInc"])
	financial, okFin := asFloat(sheet["finFinancialInc"])
	profit, okProfit := asFloat(sheet["finProfit"])
	if okOp && okFin && okProfit {
		calculated := operating + financial
		diff := math.Abs(calculated - profit)
		if diff > profitTolerance {
			c := calculated
			d := diff
			notes = append(notes, model.AnomalyNote{
				Field:           "finProfit",
				Kind:            model.AnomalyCalculationVerification,
				Value:           sheet["finProfit"],
				CalculatedValue: &c,
				Difference:      &d,
				Reason: fmt.Sprintf("Net profit (finProfit: %.0f) differs significantly from the computed sum (finOperationInc + finFinancialInc = %.0f). Non-recurring items (finNonRecurring) may be unaccounted for.",
					profit, calculated),
				Suggestion: "Check for exceptional items (finNonRecurring) or taxes not taken into account.",
			})
		}
	}

	// Fiscal year plausibility.
	if year, ok := asFloat(sheet["finYear"]); ok {
		if year < fiscalYearMin || year > fiscalYearMax {
			notes = append(notes, model.AnomalyNote{
				Field: "finYear",
				Kind:  model.AnomalyDataValidation,
				Value: sheet["finYear"],
				Reason: fmt.Sprintf("The fiscal year (finYear: %.0f) looks unusual. Verification recommended.",
					year),
				Suggestion: "Check that the year matches the documents.",
			})
		}
	}

	// Negative monetary values. Informational: negative is not itself an error.
	for _, field := range monetaryFields {
		v, ok := asFloat(sheet[field])
		if ok && v < 0 {
			notes = append(notes, model.AnomalyNote{
				Field: field,
				Kind:  model.AnomalyNegativeValue,
				Value: sheet[field],
				Reason: fmt.Sprintf("Negative value detected for %s. This can be normal (losses, debt) but deserves verification.",
					field),
				Suggestion: "Check that a negative value is expected in this financial context.",
			})
		}
	}

	return notes
}

package extract

import (
	"math"

	"github.com/ledgerline/finsight/internal/model"
)

// Aggregation is the combined view over all field outcomes of one run.
type Aggregation struct {
	Sheet         map[string]any
	Confidences   map[string]float64
	Score         float64
	MissingFields []string
}

// Aggregate folds per-field outcomes into a sheet, a confidence pool, and the
// missing-field list. The global score is the arithmetic mean of the pool and
// exactly 0.0 when no field was extracted. Missing fields keep schema order.
func Aggregate(fields []model.Field, outcomes []model.FieldOutcome) Aggregation {
	agg := Aggregation{
		Sheet:         make(map[string]any, len(fields)),
		Confidences:   make(map[string]float64, len(fields)),
		MissingFields: []string{},
	}

	byID := make(map[string]model.FieldOutcome, len(outcomes))
	for _, o := range outcomes {
		byID[o.FieldID] = o
	}

	var sum float64
	for _, f := range fields {
		o := byID[f.ID]
		if o.Value == nil {
			agg.MissingFields = append(agg.MissingFields, f.ID)
			continue
		}
		agg.Sheet[f.ID] = o.Value
		agg.Confidences[f.ID] = o.Confidence
		sum += o.Confidence
	}

	if len(agg.Confidences) > 0 {
		agg.Score = round4(sum / float64(len(agg.Confidences)))
	}

	return agg
}

// Rescore recomputes the global score from the confidence pool, after
// recall biasing has adjusted individual confidences.
func (a *Aggregation) Rescore() {
	if len(a.Confidences) == 0 {
		a.Score = 0
		return
	}
	var sum float64
	for _, c := range a.Confidences {
		sum += c
	}
	a.Score = round4(sum / float64(len(a.Confidences)))
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}

package memory

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ledgerline/finsight/internal/model"
)

// Recall-biasing constants.
const (
	confirmationBoost = 0.2 // added when a fresh value matches a stored correction
	overrideThreshold = 0.8 // historical confidence needed to override a differing fresh value
)

// Memory wraps a Store with the domain logic of the learning loop: diffing,
// recall, and biasing.
type Memory struct {
	store Store
}

// New creates a Memory over the given store.
func New(store Store) *Memory {
	return &Memory{store: store}
}

// StoreCorrection diffs the original and validated results and appends one
// correction record. The append is all-or-nothing; a persistence failure is
// returned to the caller because silently losing an accepted correction
// breaks the learning loop.
func (m *Memory) StoreCorrection(ctx context.Context, original, validated *model.ExtractionResult) (model.CorrectionRecord, error) {
	rec := model.CorrectionRecord{
		ID:              uuid.New().String(),
		Timestamp:       time.Now().UTC(),
		DocumentSources: validated.DocumentSources,
		DocumentTypes:   validated.DocumentTypes,
		Original: model.SheetSnapshot{
			Sheet:         original.Sheet,
			Confidence:    original.ConfidenceScore,
			MissingFields: original.MissingFields,
		},
		Validated: model.SheetSnapshot{
			Sheet:         validated.Sheet,
			Confidence:    validated.ConfidenceScore,
			MissingFields: validated.MissingFields,
		},
		Diffs: DiffSheets(original.Sheet, validated.Sheet),
	}

	if err := m.store.AppendCorrection(ctx, rec); err != nil {
		return rec, err
	}

	zap.L().Info("correction record stored",
		zap.String("record_id", rec.ID),
		zap.Int("field_corrections", len(rec.Diffs)),
		zap.Strings("document_types", rec.DocumentTypes),
	)
	return rec, nil
}

// RecallForExtraction returns field-level suggestions from records whose
// document-type set intersects the current one, in chronological order.
func (m *Memory) RecallForExtraction(ctx context.Context, docTypes []string) ([]model.Suggestion, error) {
	records, err := m.store.LoadCorrections(ctx)
	if err != nil {
		return nil, err
	}

	current := make(map[string]bool, len(docTypes))
	for _, t := range docTypes {
		current[t] = true
	}

	var suggestions []model.Suggestion
	for _, rec := range records {
		if !intersects(current, rec.DocumentTypes) {
			continue
		}
		for _, diff := range rec.Diffs {
			suggestions = append(suggestions, model.Suggestion{
				Field:          diff.Field,
				CorrectedValue: diff.NewValue,
				Confidence:     rec.Validated.Confidence,
				Timestamp:      rec.Timestamp,
			})
		}
	}

	return suggestions, nil
}

// Bias adjusts fresh field confidences against historical suggestions and
// returns how many suggestions touched the sheet. A matching value gains
// confidence; a differing value is overridden when the historical confidence
// is high enough. Fields absent from the sheet are left alone.
func Bias(sheet map[string]any, confidences map[string]float64, suggestions []model.Suggestion) int {
	applied := 0
	for _, s := range suggestions {
		fresh, ok := sheet[s.Field]
		if !ok {
			continue
		}

		if valuesEqual(fresh, s.CorrectedValue) {
			confidences[s.Field] = min(1.0, confidences[s.Field]+confirmationBoost)
			applied++
		} else if s.Confidence > overrideThreshold {
			sheet[s.Field] = s.CorrectedValue
			confidences[s.Field] = s.Confidence
			applied++
		}
	}
	return applied
}

// StoreQACorrection appends one QA correction record verbatim.
func (m *Memory) StoreQACorrection(ctx context.Context, question string, original, corrected model.Answer) error {
	rec := model.QACorrectionRecord{
		ID:                  uuid.New().String(),
		Timestamp:           time.Now().UTC(),
		Question:            question,
		OriginalAnswer:      original.Text,
		OriginalConfidence:  original.Confidence,
		CorrectedAnswer:     corrected.Text,
		CorrectedConfidence: corrected.Confidence,
		Sources:             corrected.Sources,
	}

	if err := m.store.AppendQACorrection(ctx, rec); err != nil {
		return err
	}

	zap.L().Info("qa correction stored", zap.String("record_id", rec.ID))
	return nil
}

// RecallForQuestion scans stored questions most-recent-first and returns the
// first whose similarity to the new question clears the threshold. The
// recalled answer is authoritative: it short-circuits generation entirely.
func (m *Memory) RecallForQuestion(ctx context.Context, question string) (*model.Answer, error) {
	records, err := m.store.LoadQACorrections(ctx)
	if err != nil {
		return nil, err
	}

	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		if Similarity(question, rec.Question) > questionSimilarityThreshold {
			return &model.Answer{
				Question:   question,
				Text:       rec.CorrectedAnswer,
				Confidence: rec.CorrectedConfidence,
				Sources:    rec.Sources,
				FromMemory: true,
			}, nil
		}
	}
	return nil, nil
}

// Stats summarizes the store: record counts and the top-5 most corrected
// fields.
func (m *Memory) Stats(ctx context.Context) (model.MemoryStats, error) {
	records, err := m.store.LoadCorrections(ctx)
	if err != nil {
		return model.MemoryStats{}, err
	}
	qaRecords, err := m.store.LoadQACorrections(ctx)
	if err != nil {
		return model.MemoryStats{}, err
	}

	stats := model.MemoryStats{
		ExtractionCorrections: len(records),
		QACorrections:         len(qaRecords),
		MostCorrectedFields:   map[string]int{},
	}

	counts := map[string]int{}
	for _, rec := range records {
		stats.FieldCorrections += len(rec.Diffs)
		for _, d := range rec.Diffs {
			counts[d.Field]++
		}
	}

	type fc struct {
		field string
		n     int
	}
	ordered := make([]fc, 0, len(counts))
	for f, n := range counts {
		ordered = append(ordered, fc{f, n})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].n != ordered[j].n {
			return ordered[i].n > ordered[j].n
		}
		return ordered[i].field < ordered[j].field
	})
	for i, e := range ordered {
		if i == 5 {
			break
		}
		stats.MostCorrectedFields[e.field] = e.n
	}

	return stats, nil
}

// Export writes both record collections plus stats to a single JSON file.
func (m *Memory) Export(ctx context.Context, path string) error {
	records, err := m.store.LoadCorrections(ctx)
	if err != nil {
		return err
	}
	qaRecords, err := m.store.LoadQACorrections(ctx)
	if err != nil {
		return err
	}
	stats, err := m.Stats(ctx)
	if err != nil {
		return err
	}

	export := struct {
		Timestamp             time.Time                  `json:"timestamp"`
		ExtractionCorrections []model.CorrectionRecord   `json:"extraction_corrections"`
		QACorrections         []model.QACorrectionRecord `json:"qa_corrections"`
		Stats                 model.MemoryStats          `json:"stats"`
	}{time.Now().UTC(), records, qaRecords, stats}

	raw, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return eris.Wrap(err, "memory: marshal export")
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return eris.Wrapf(err, "memory: write export %s", path)
	}
	return nil
}

// Reset wipes both record collections.
func (m *Memory) Reset(ctx context.Context) error {
	return m.store.Reset(ctx)
}

func intersects(set map[string]bool, values []string) bool {
	for _, v := range values {
		if set[v] {
			return true
		}
	}
	return false
}

package memory

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/finsight/internal/model"
)

func newTestMemory(t *testing.T) *Memory {
	t.Helper()

	store, err := NewSQLite(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return New(store)
}

func extractionPair() (original, validated *model.ExtractionResult) {
	original = &model.ExtractionResult{
		ID:              "run-1",
		Sheet:           map[string]any{"finSales": 90000.0},
		ConfidenceScore: 0.6,
		MissingFields:   []string{"finYear"},
		DocumentTypes:   []string{"financial_statement"},
		DocumentSources: []string{"report-2024"},
	}
	validated = &model.ExtractionResult{
		ID:              "run-1",
		Sheet:           map[string]any{"finSales": 120000.0, "finYear": int64(2024)},
		ConfidenceScore: 1.0,
		MissingFields:   []string{},
		DocumentTypes:   []string{"financial_statement"},
		DocumentSources: []string{"report-2024"},
	}
	return original, validated
}

func TestStoreCorrectionAndRecall(t *testing.T) {
	ctx := context.Background()
	mem := newTestMemory(t)

	original, validated := extractionPair()
	rec, err := mem.StoreCorrection(ctx, original, validated)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Len(t, rec.Diffs, 2)

	suggestions, err := mem.RecallForExtraction(ctx, []string{"financial_statement", "summary_report"})
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	assert.Equal(t, 1.0, suggestions[0].Confidence)
}

func TestRecallForExtractionDocTypeFilter(t *testing.T) {
	ctx := context.Background()
	mem := newTestMemory(t)

	original, validated := extractionPair()
	_, err := mem.StoreCorrection(ctx, original, validated)
	require.NoError(t, err)

	suggestions, err := mem.RecallForExtraction(ctx, []string{"tax_declaration"})
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestBiasConfirmationBoost(t *testing.T) {
	sheet := map[string]any{"finSales": 120000.0}
	confidences := map[string]float64{"finSales": 0.7}

	applied := Bias(sheet, confidences, []model.Suggestion{
		{Field: "finSales", CorrectedValue: 120000.0, Confidence: 1.0},
	})

	assert.Equal(t, 1, applied)
	assert.Equal(t, 120000.0, sheet["finSales"])
	assert.InDelta(t, 0.9, confidences["finSales"], 1e-9)
}

func TestBiasBoostCappedAtOne(t *testing.T) {
	confidences := map[string]float64{"finSales": 0.95}

	Bias(map[string]any{"finSales": 1.0}, confidences, []model.Suggestion{
		{Field: "finSales", CorrectedValue: 1.0, Confidence: 1.0},
	})

	assert.Equal(t, 1.0, confidences["finSales"])
}

func TestBiasOverride(t *testing.T) {
	sheet := map[string]any{"finSales": 90000.0}
	confidences := map[string]float64{"finSales": 0.6}

	applied := Bias(sheet, confidences, []model.Suggestion{
		{Field: "finSales", CorrectedValue: 120000.0, Confidence: 0.85},
	})

	assert.Equal(t, 1, applied)
	assert.Equal(t, 120000.0, sheet["finSales"])
	assert.Equal(t, 0.85, confidences["finSales"])
}

func TestBiasNoOverrideBelowThreshold(t *testing.T) {
	sheet := map[string]any{"finSales": 90000.0}
	confidences := map[string]float64{"finSales": 0.6}

	applied := Bias(sheet, confidences, []model.Suggestion{
		{Field: "finSales", CorrectedValue: 120000.0, Confidence: 0.8},
	})

	assert.Equal(t, 0, applied)
	assert.Equal(t, 90000.0, sheet["finSales"])
	assert.Equal(t, 0.6, confidences["finSales"])
}

func TestBiasSkipsAbsentFields(t *testing.T) {
	sheet := map[string]any{}
	confidences := map[string]float64{}

	applied := Bias(sheet, confidences, []model.Suggestion{
		{Field: "finYear", CorrectedValue: int64(2024), Confidence: 1.0},
	})

	assert.Equal(t, 0, applied)
	assert.Empty(t, sheet)
}

func TestQARecall(t *testing.T) {
	ctx := context.Background()
	mem := newTestMemory(t)

	err := mem.StoreQACorrection(ctx, "quel est le chiffre d'affaires en 2024",
		model.Answer{Text: "environ 100 000 EUR", Confidence: 0.5},
		model.Answer{Text: "120 000 EUR", Confidence: 1.0, Sources: []string{"report-2024"}},
	)
	require.NoError(t, err)

	ans, err := mem.RecallForQuestion(ctx, "quel est le chiffre d'affaires pour 2024")
	require.NoError(t, err)
	require.NotNil(t, ans)
	assert.Equal(t, "120 000 EUR", ans.Text)
	assert.Equal(t, 1.0, ans.Confidence)
	assert.True(t, ans.FromMemory)
	assert.Equal(t, []string{"report-2024"}, ans.Sources)
}

func TestQARecallMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	mem := newTestMemory(t)

	q := "quel est le chiffre d'affaires en 2024"
	require.NoError(t, mem.StoreQACorrection(ctx, q,
		model.Answer{}, model.Answer{Text: "old", Confidence: 1.0}))
	require.NoError(t, mem.StoreQACorrection(ctx, q,
		model.Answer{}, model.Answer{Text: "new", Confidence: 1.0}))

	ans, err := mem.RecallForQuestion(ctx, q)
	require.NoError(t, err)
	require.NotNil(t, ans)
	assert.Equal(t, "new", ans.Text)
}

func TestQARecallMiss(t *testing.T) {
	ctx := context.Background()
	mem := newTestMemory(t)

	require.NoError(t, mem.StoreQACorrection(ctx, "quel est le chiffre d'affaires",
		model.Answer{}, model.Answer{Text: "x", Confidence: 1.0}))

	ans, err := mem.RecallForQuestion(ctx, "combien de salariés emploie la société")
	require.NoError(t, err)
	assert.Nil(t, ans)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	mem := newTestMemory(t)

	original, validated := extractionPair()
	_, err := mem.StoreCorrection(ctx, original, validated)
	require.NoError(t, err)
	_, err = mem.StoreCorrection(ctx, original, validated)
	require.NoError(t, err)
	require.NoError(t, mem.StoreQACorrection(ctx, "q", model.Answer{}, model.Answer{Text: "a"}))

	stats, err := mem.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ExtractionCorrections)
	assert.Equal(t, 4, stats.FieldCorrections)
	assert.Equal(t, 1, stats.QACorrections)
	assert.Equal(t, 2, stats.MostCorrectedFields["finSales"])
	assert.Equal(t, 2, stats.MostCorrectedFields["finYear"])
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	mem := newTestMemory(t)

	original, validated := extractionPair()
	_, err := mem.StoreCorrection(ctx, original, validated)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, mem.Export(ctx, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var export struct {
		ExtractionCorrections []model.CorrectionRecord `json:"extraction_corrections"`
		Stats                 model.MemoryStats        `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(raw, &export))
	assert.Len(t, export.ExtractionCorrections, 1)
	assert.Equal(t, 1, export.Stats.ExtractionCorrections)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	mem := newTestMemory(t)

	original, validated := extractionPair()
	_, err := mem.StoreCorrection(ctx, original, validated)
	require.NoError(t, err)
	require.NoError(t, mem.StoreQACorrection(ctx, "q", model.Answer{}, model.Answer{Text: "a"}))

	require.NoError(t, mem.Reset(ctx))

	stats, err := mem.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.ExtractionCorrections)
	assert.Zero(t, stats.QACorrections)
}

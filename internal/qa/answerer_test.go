package qa

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/finsight/internal/memory"
	"github.com/ledgerline/finsight/internal/model"
)

type fakeRetriever struct {
	passages []model.Passage
	err      error
}

func (f *fakeRetriever) Search(ctx context.Context, query string, k int) ([]model.Passage, error) {
	return f.passages, f.err
}

type fakeGenerator struct {
	response string
	err      error
	calls    int
}

func (f *fakeGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.response, f.err
}

func passages(n int) []model.Passage {
	out := make([]model.Passage, n)
	for i := range out {
		out[i] = model.Passage{Text: "chunk", SourceID: "doc1", DocType: "financial_statement", Score: 0.8}
	}
	return out
}

func TestAssessConfidence(t *testing.T) {
	tests := []struct {
		name        string
		answer      string
		contextDocs int
		want        float64
	}{
		{"baseline short answer", "120 000 EUR", 1, 0.5},
		{"hedging penalty", "il semble que le chiffre soit 120 000", 1, 0.3},
		{"single hedging penalty", "il semble que, probablement, ce soit 120 000", 1, 0.3},
		{"substantive bonus", strings.Repeat("Le chiffre d'affaires 2024 est de 120 000 EUR. ", 3), 1, 0.8},
		{"rich context bonus", "120 000 EUR", 3, 0.7},
		{"substantive and rich", strings.Repeat("Le chiffre d'affaires 2024 est de 120 000 EUR. ", 3), 5, 1.0},
		{"no-information marker blocks bonus", "Le contexte fourni ne contient pas cette donnée: information non disponible dans les documents fournis pour cette question précise.", 1, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AssessConfidence(tt.answer, tt.contextDocs))
		})
	}
}

func TestAssessConfidenceClamped(t *testing.T) {
	long := strings.Repeat("Les résultats financiers sont détaillés ci-dessous. ", 4)
	c := AssessConfidence(long, 5)
	assert.LessOrEqual(t, c, 1.0)

	c = AssessConfidence("je ne suis pas sûr", 0)
	assert.GreaterOrEqual(t, c, 0.0)
}

func TestAnswerNoPassages(t *testing.T) {
	a := New(&fakeRetriever{}, &fakeGenerator{}, nil, 5, 0.7)

	ans, err := a.Answer(context.Background(), "quel est le chiffre d'affaires")
	require.NoError(t, err)
	assert.Equal(t, NoInformationAnswer, ans.Text)
	assert.Equal(t, 0.0, ans.Confidence)
	assert.True(t, ans.NeedsValidation)
	assert.Empty(t, ans.Sources)
}

func TestAnswerGenerated(t *testing.T) {
	gen := &fakeGenerator{response: "Le chiffre d'affaires de la société pour l'exercice 2024 s'élève à 120 000 EUR selon le compte de résultat."}
	a := New(&fakeRetriever{passages: passages(3)}, gen, nil, 5, 0.7)

	ans, err := a.Answer(context.Background(), "quel est le chiffre d'affaires en 2024")
	require.NoError(t, err)
	assert.Equal(t, gen.response, ans.Text)
	// 0.5 + 0.3 substantive + 0.2 rich context, clamped to 1.0.
	assert.Equal(t, 1.0, ans.Confidence)
	assert.False(t, ans.NeedsValidation)
	assert.Equal(t, []string{"doc1"}, ans.Sources)
	assert.Equal(t, 3, ans.ContextChunks)
}

func TestAnswerLowConfidenceNeedsValidation(t *testing.T) {
	gen := &fakeGenerator{response: "il semble que ce soit 120 000"}
	a := New(&fakeRetriever{passages: passages(1)}, gen, nil, 5, 0.7)

	ans, err := a.Answer(context.Background(), "quel est le chiffre d'affaires")
	require.NoError(t, err)
	assert.Equal(t, 0.3, ans.Confidence)
	assert.True(t, ans.NeedsValidation)
}

func TestAnswerFromMemoryShortCircuitsGeneration(t *testing.T) {
	ctx := context.Background()

	store, err := memory.NewSQLite(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Migrate(ctx))
	mem := memory.New(store)

	require.NoError(t, mem.StoreQACorrection(ctx, "quel est le chiffre d'affaires en 2024",
		model.Answer{Text: "environ 100 000", Confidence: 0.5},
		model.Answer{Text: "120 000 EUR", Confidence: 1.0, Sources: []string{"report-2024"}},
	))

	gen := &fakeGenerator{response: "should not be used"}
	a := New(&fakeRetriever{passages: passages(3)}, gen, mem, 5, 0.7)

	ans, err := a.Answer(ctx, "quel est le chiffre d'affaires pour 2024")
	require.NoError(t, err)
	assert.True(t, ans.FromMemory)
	assert.Equal(t, "120 000 EUR", ans.Text)
	assert.False(t, ans.NeedsValidation)
	assert.Zero(t, gen.calls)
}

func TestAnswerLowConfidenceMemoryIgnored(t *testing.T) {
	ctx := context.Background()

	store, err := memory.NewSQLite(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Migrate(ctx))
	mem := memory.New(store)

	// A stored correction without high confidence is not authoritative.
	require.NoError(t, mem.StoreQACorrection(ctx, "quel est le chiffre d'affaires en 2024",
		model.Answer{}, model.Answer{Text: "120 000 EUR", Confidence: 0.6},
	))

	gen := &fakeGenerator{response: "Le chiffre d'affaires est de 120 000 EUR."}
	a := New(&fakeRetriever{passages: passages(1)}, gen, mem, 5, 0.7)

	ans, err := a.Answer(ctx, "quel est le chiffre d'affaires en 2024")
	require.NoError(t, err)
	assert.False(t, ans.FromMemory)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, gen.response, ans.Text)
}

func TestAnswerBatch(t *testing.T) {
	gen := &fakeGenerator{response: "réponse"}
	a := New(&fakeRetriever{passages: passages(1)}, gen, nil, 5, 0.7)

	answers, err := a.AnswerBatch(context.Background(), []string{"q1", "q2", "q3"})
	require.NoError(t, err)
	require.Len(t, answers, 3)
	assert.Equal(t, "q1", answers[0].Question)
	assert.Equal(t, "q3", answers[2].Question)
	assert.Equal(t, 3, gen.calls)
}

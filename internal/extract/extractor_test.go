package extract

import (
	"context"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

	mu      sync.Mutex
	prompts []string
}

func (f *fakeGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.response, f.err
}

func salesField() model.Field {
	return model.Field{ID: "finSales", Type: model.FieldTypeDecimal, Aliases: []string{"chiffre d'affaires", "revenue"}}
}

func financialPassage(text string) model.Passage {
	return model.Passage{Text: text, SourceID: "doc1", DocType: "financial_statement", Score: 0.9}
}

func TestExtractFieldSuccess(t *testing.T) {
	retriever := &fakeRetriever{passages: []model.Passage{financialPassage("Revenue: 120 000 EUR")}}
	generator := &fakeGenerator{response: `{"value": "120000", "confidence": 0.95, "source": "Revenue: 120 000 EUR"}`}

	e := New(retriever, generator, Opts{})
	outcome, err := e.ExtractField(context.Background(), salesField())

	require.NoError(t, err)
	assert.Equal(t, "finSales", outcome.FieldID)
	assert.Equal(t, 120000.0, outcome.Value)
	assert.Equal(t, 0.95, outcome.Confidence)
	assert.Equal(t, "Revenue: 120 000 EUR", outcome.Source)
}

func TestExtractFieldNoPassages(t *testing.T) {
	retriever := &fakeRetriever{}
	generator := &fakeGenerator{response: `{"value": 1, "confidence": 1}`}

	e := New(retriever, generator, Opts{})
	outcome, err := e.ExtractField(context.Background(), salesField())

	require.NoError(t, err)
	assert.Nil(t, outcome.Value)
	assert.Equal(t, 0.0, outcome.Confidence)
	// Generation is never invoked without context.
	assert.Empty(t, generator.prompts)
}

func TestExtractFieldRetrieverErrorPropagates(t *testing.T) {
	retriever := &fakeRetriever{err: eris.New("index unavailable")}
	e := New(retriever, &fakeGenerator{}, Opts{})

	_, err := e.ExtractField(context.Background(), salesField())
	assert.Error(t, err)
}

func TestExtractFieldGenerationErrorDegrades(t *testing.T) {
	retriever := &fakeRetriever{passages: []model.Passage{financialPassage("x")}}
	generator := &fakeGenerator{err: eris.New("api overloaded")}

	e := New(retriever, generator, Opts{})
	outcome, err := e.ExtractField(context.Background(), salesField())

	require.NoError(t, err)
	assert.Nil(t, outcome.Value)
	assert.Equal(t, 0.0, outcome.Confidence)
}

func TestExtractFieldMalformedJSONDegrades(t *testing.T) {
	retriever := &fakeRetriever{passages: []model.Passage{financialPassage("x")}}
	generator := &fakeGenerator{response: "the revenue is about 120000"}

	e := New(retriever, generator, Opts{})
	outcome, err := e.ExtractField(context.Background(), salesField())

	require.NoError(t, err)
	assert.Nil(t, outcome.Value)
	assert.Equal(t, 0.0, outcome.Confidence)
}

func TestExtractFieldFencedJSON(t *testing.T) {
	retriever := &fakeRetriever{passages: []model.Passage{financialPassage("x")}}
	generator := &fakeGenerator{response: "```json\n{\"value\": 2024, \"confidence\": 1.0, \"source\": \"exercice 2024\"}\n```"}

	e := New(retriever, generator, Opts{})
	outcome, err := e.ExtractField(context.Background(), model.Field{ID: "finYear", Type: model.FieldTypeInteger})

	require.NoError(t, err)
	assert.Equal(t, int64(2024), outcome.Value)
	assert.Equal(t, 1.0, outcome.Confidence)
}

func TestExtractFieldNullValue(t *testing.T) {
	retriever := &fakeRetriever{passages: []model.Passage{financialPassage("x")}}
	generator := &fakeGenerator{response: `{"value": null, "confidence": 0.0, "source": null}`}

	e := New(retriever, generator, Opts{})
	outcome, err := e.ExtractField(context.Background(), salesField())

	require.NoError(t, err)
	assert.Nil(t, outcome.Value)
}

func TestExtractAllKeepsFieldOrder(t *testing.T) {
	retriever := &fakeRetriever{passages: []model.Passage{financialPassage("x")}}
	generator := &fakeGenerator{response: `{"value": 1, "confidence": 0.9, "source": "s"}`}

	fields := []model.Field{
		{ID: "finYear", Type: model.FieldTypeInteger},
		{ID: "finSales", Type: model.FieldTypeDecimal},
		{ID: "finProfit", Type: model.FieldTypeDecimal},
	}

	e := New(retriever, generator, Opts{Concurrency: 3})
	outcomes, err := e.ExtractAll(context.Background(), fields)

	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	assert.Equal(t, "finYear", outcomes[0].FieldID)
	assert.Equal(t, "finSales", outcomes[1].FieldID)
	assert.Equal(t, "finProfit", outcomes[2].FieldID)
}

func TestFilterPassagesPrefersFinancialTypes(t *testing.T) {
	e := New(nil, nil, Opts{})
	passages := []model.Passage{
		{Text: "memo", DocType: "internal_memo", Score: 0.9},
		{Text: "balance", DocType: "financial_statement", Score: 0.5},
	}

	kept := e.filterPassages(passages)
	require.Len(t, kept, 1)
	assert.Equal(t, "financial_statement", kept[0].DocType)
}

func TestFilterPassagesFallsBackWhenNoPreferredType(t *testing.T) {
	e := New(nil, nil, Opts{})
	passages := []model.Passage{
		{Text: "memo", DocType: "internal_memo", Score: 0.9},
	}

	kept := e.filterPassages(passages)
	require.Len(t, kept, 1)
	assert.Equal(t, "internal_memo", kept[0].DocType)
}

func TestFilterPassagesScoreCutoff(t *testing.T) {
	e := New(nil, nil, Opts{ScoreCutoff: 0.5})
	passages := []model.Passage{
		{Text: "good", DocType: "financial_statement", Score: 0.8},
		{Text: "weak", DocType: "financial_statement", Score: 0.2},
	}

	kept := e.filterPassages(passages)
	require.Len(t, kept, 1)
	assert.Equal(t, "good", kept[0].Text)
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"value": 1}`, `{"value": 1}`},
		{"json fence", "```json\n{\"value\": 1}\n```", `{"value": 1}`},
		{"plain fence", "```\n{\"value\": 1}\n```", `{"value": 1}`},
		{"prose around object", `Here you go: {"value": 1} hope it helps`, `{"value": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSON(tt.in))
		})
	}
}

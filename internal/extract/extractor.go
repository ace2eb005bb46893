// Package extract turns schema fields into typed values with confidence
// scores by querying the retrieval and generation ports.
package extract

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ledgerline/finsight/internal/model"
	"github.com/ledgerline/finsight/internal/rag"
)

// Opts configures the extractor.
type Opts struct {
	TopK              int
	ScoreCutoff       float64
	Concurrency       int
	PreferredDocTypes []string
}

// Extractor extracts schema fields from indexed documents.
type Extractor struct {
	retriever rag.Retriever
	generator rag.Generator
	opts      Opts
}

// relevantDocTypes are preferred for field extraction when present. Passages
// of other types are used only when none of these match.
var relevantDocTypes = []string{"financial_statement", "tax_declaration", "summary_report"}

// New creates an extractor over the given ports.
func New(retriever rag.Retriever, generator rag.Generator, opts Opts) *Extractor {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if len(opts.PreferredDocTypes) == 0 {
		opts.PreferredDocTypes = relevantDocTypes
	}
	return &Extractor{retriever: retriever, generator: generator, opts: opts}
}

// ExtractField extracts one field. Parse and cast failures degrade to a null,
// zero-confidence outcome; they are logged, never returned as errors. Only
// port-level retrieval errors propagate.
func (e *Extractor) ExtractField(ctx context.Context, field model.Field) (model.FieldOutcome, error) {
	empty := model.FieldOutcome{FieldID: field.ID, Value: nil, Confidence: 0}

	passages, err := e.retriever.Search(ctx, buildQuery(field), e.opts.TopK)
	if err != nil {
		return empty, err
	}

	passages = e.filterPassages(passages)
	if len(passages) == 0 {
		return empty, nil
	}

	prompt := buildPrompt(field, buildContext(passages))
	response, err := e.generator.Complete(ctx, prompt)
	if err != nil {
		zap.L().Warn("field generation failed",
			zap.String("field", field.ID),
			zap.Error(err))
		return empty, nil
	}

	return e.parseResponse(response, field), nil
}

// ExtractAll fans field extraction out over a bounded worker pool. Per-field
// outcomes are independent, so order of execution does not change results.
func (e *Extractor) ExtractAll(ctx context.Context, fields []model.Field) ([]model.FieldOutcome, error) {
	outcomes := make([]model.FieldOutcome, len(fields))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)

	for i, field := range fields {
		g.Go(func() error {
			outcome, err := e.ExtractField(ctx, field)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// filterPassages applies the relevance cutoff, then prefers financial doc
// types, falling back to everything retrieved when none match.
func (e *Extractor) filterPassages(passages []model.Passage) []model.Passage {
	kept := passages[:0:0]
	for _, p := range passages {
		if p.Score >= e.opts.ScoreCutoff {
			kept = append(kept, p)
		}
	}

	preferred := make([]model.Passage, 0, len(kept))
	for _, p := range kept {
		for _, t := range e.opts.PreferredDocTypes {
			if p.DocType == t {
				preferred = append(preferred, p)
				break
			}
		}
	}
	if len(preferred) > 0 {
		return preferred
	}
	return kept
}

// parseResponse decodes the constrained JSON completion into an outcome.
func (e *Extractor) parseResponse(response string, field model.Field) model.FieldOutcome {
	var raw struct {
		Value      any     `json:"value"`
		Confidence float64 `json:"confidence"`
		Source     *string `json:"source"`
	}

	if err := json.Unmarshal([]byte(cleanJSON(response)), &raw); err != nil {
		zap.L().Warn("failed to parse extraction JSON",
			zap.String("field", field.ID),
			zap.Error(err))
		return model.FieldOutcome{FieldID: field.ID, Value: nil, Confidence: 0}
	}

	outcome := model.FieldOutcome{
		FieldID:    field.ID,
		Confidence: raw.Confidence,
	}
	if raw.Value != nil {
		outcome.Value = castValue(raw.Value, field.Type)
	}
	if raw.Source != nil {
		outcome.Source = *raw.Source
	}
	return outcome
}

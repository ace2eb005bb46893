// Package pipeline wires retrieval, extraction, correction memory, anomaly
// detection, and the validation policy into one extraction run.
package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgerline/finsight/internal/extract"
	"github.com/ledgerline/finsight/internal/hitl"
	"github.com/ledgerline/finsight/internal/memory"
	"github.com/ledgerline/finsight/internal/model"
	"github.com/ledgerline/finsight/internal/rag"
)

// Pipeline runs full extraction passes and routes results through the
// human-validation policy.
type Pipeline struct {
	retriever  rag.Retriever
	generator  rag.Generator
	mem        *memory.Memory
	registry   *hitl.Registry
	fields     []model.Field
	monetary   []string
	thresholds hitl.Thresholds
	opts       extract.Opts
}

// Deps are the collaborators a Pipeline needs. Mem and Registry may be nil;
// recall biasing and pending tracking are skipped when absent.
type Deps struct {
	Retriever  rag.Retriever
	Generator  rag.Generator
	Mem        *memory.Memory
	Registry   *hitl.Registry
	Fields     []model.Field
	Monetary   []string
	Thresholds hitl.Thresholds
	Opts       extract.Opts
}

// New assembles a pipeline from its dependencies.
func New(deps Deps) *Pipeline {
	return &Pipeline{
		retriever:  deps.Retriever,
		generator:  deps.Generator,
		mem:        deps.Mem,
		registry:   deps.Registry,
		fields:     deps.Fields,
		monetary:   deps.Monetary,
		thresholds: deps.Thresholds,
		opts:       deps.Opts,
	}
}

// Run executes one extraction pass: extract every schema field, aggregate,
// bias with recalled corrections, annotate anomalies, and decide whether the
// result needs human review. Results that do are parked in the pending
// registry until a reviewer responds.
func (p *Pipeline) Run(ctx context.Context) (*model.ExtractionResult, model.ValidationDecision, error) {
	recorder := newRecordingRetriever(p.retriever)
	extractor := extract.New(recorder, p.generator, p.opts)

	outcomes, err := extractor.ExtractAll(ctx, p.fields)
	if err != nil {
		return nil, model.ValidationDecision{}, err
	}

	agg := extract.Aggregate(p.fields, outcomes)
	sources, docTypes := recorder.Seen()

	recalled := 0
	if p.mem != nil {
		suggestions, err := p.mem.RecallForExtraction(ctx, docTypes)
		if err != nil {
			zap.L().Warn("correction recall failed", zap.Error(err))
		} else if len(suggestions) > 0 {
			recalled = memory.Bias(agg.Sheet, agg.Confidences, suggestions)
			if recalled > 0 {
				agg.Rescore()
			}
		}
	}

	result := &model.ExtractionResult{
		ID:                    uuid.NewString(),
		Sheet:                 agg.Sheet,
		ConfidenceScore:       agg.Score,
		MissingFields:         agg.MissingFields,
		AdditionalInformation: extract.DetectAnomalies(agg.Sheet, agg.Confidences, p.monetary),
		DocumentSources:       sources,
		DocumentTypes:         docTypes,
		CorrectionsRecalled:   recalled,
		CreatedAt:             time.Now().UTC(),
	}

	decision := hitl.Decide(result, p.thresholds)
	if decision.NeedsValidation && p.registry != nil {
		p.registry.Put(result, decision)
	}

	zap.L().Info("extraction run completed",
		zap.String("id", result.ID),
		zap.Float64("confidence", result.ConfidenceScore),
		zap.Int("missing_fields", len(result.MissingFields)),
		zap.Int("corrections_recalled", recalled),
		zap.Bool("needs_validation", decision.NeedsValidation),
		zap.String("rule", string(decision.Rule)))

	return result, decision, nil
}

// Validate applies reviewer corrections to a pending result, records the
// correction in memory, and resolves the pending entry. The pending entry
// stays in place if persisting the correction fails, so the reviewer can
// retry.
func (p *Pipeline) Validate(ctx context.Context, id string, actions []model.CorrectionAction) (*model.ExtractionResult, error) {
	pending, err := p.registry.Get(id)
	if err != nil {
		return nil, err
	}

	validated, err := p.Confirm(ctx, pending.Result, actions)
	if err != nil {
		return nil, err
	}

	if _, err := p.registry.Resolve(id); err != nil {
		return nil, err
	}
	return validated, nil
}

// Confirm applies corrections to a result and persists the before/after pair
// in correction memory. It is the registry-free validation path used by the
// CLI.
func (p *Pipeline) Confirm(ctx context.Context, original *model.ExtractionResult, actions []model.CorrectionAction) (*model.ExtractionResult, error) {
	validated := hitl.Apply(original, actions)

	if p.mem != nil {
		if _, err := p.mem.StoreCorrection(ctx, original, validated); err != nil {
			return nil, err
		}
	}
	return validated, nil
}

// Registry exposes the pending-review registry for the API server.
func (p *Pipeline) Registry() *hitl.Registry {
	return p.registry
}

// recordingRetriever wraps a Retriever and remembers the source IDs and
// document types of every passage it returned. Extraction fans out across
// goroutines, so recording is locked and the final sets are sorted.
type recordingRetriever struct {
	inner rag.Retriever

	mu       sync.Mutex
	sources  map[string]bool
	docTypes map[string]bool
}

func newRecordingRetriever(inner rag.Retriever) *recordingRetriever {
	return &recordingRetriever{
		inner:    inner,
		sources:  map[string]bool{},
		docTypes: map[string]bool{},
	}
}

func (r *recordingRetriever) Search(ctx context.Context, query string, k int) ([]model.Passage, error) {
	passages, err := r.inner.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	for _, p := range passages {
		if p.SourceID != "" {
			r.sources[p.SourceID] = true
		}
		if p.DocType != "" {
			r.docTypes[p.DocType] = true
		}
	}
	r.mu.Unlock()

	return passages, nil
}

// Seen returns the sorted source IDs and document types observed so far.
func (r *recordingRetriever) Seen() (sources, docTypes []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for s := range r.sources {
		sources = append(sources, s)
	}
	for t := range r.docTypes {
		docTypes = append(docTypes, t)
	}
	sort.Strings(sources)
	sort.Strings(docTypes)
	return sources, docTypes
}

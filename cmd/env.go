package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/ledgerline/finsight/internal/extract"
	"github.com/ledgerline/finsight/internal/hitl"
	"github.com/ledgerline/finsight/internal/memory"
	"github.com/ledgerline/finsight/internal/pipeline"
	"github.com/ledgerline/finsight/internal/qa"
	"github.com/ledgerline/finsight/internal/retrieval"
	"github.com/ledgerline/finsight/pkg/llm"
)

// appEnv holds the initialized store, index, and pipeline shared by the
// extract/ask/serve commands.
type appEnv struct {
	store    memory.Store
	Mem      *memory.Memory
	Index    *retrieval.Index
	Registry *hitl.Registry
	Pipeline *pipeline.Pipeline
	Answerer *qa.Answerer
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.store != nil {
		_ = e.store.Close()
	}
}

// initApp opens the correction store and vector index and wires the
// extraction pipeline. Callers should defer env.Close().
func initApp(ctx context.Context) (*appEnv, error) {
	st, err := memory.Open(ctx, cfg.Memory.Driver, cfg.Memory.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "cmd: migrate store")
	}
	mem := memory.New(st)

	index, err := retrieval.Open(cfg.Index.Path, cfg.Index.Collection, nil)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	client := llm.NewClient(cfg.Anthropic.Key, cfg.Anthropic.RPS)
	generator := llm.NewGenerator(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens)

	registry := hitl.NewRegistry(cfg.Validation.PendingTTL)

	pipe := pipeline.New(pipeline.Deps{
		Retriever: index,
		Generator: generator,
		Mem:       mem,
		Registry:  registry,
		Fields:    cfg.Extraction.Fields,
		Monetary:  cfg.Extraction.MonetaryFields,
		Thresholds: hitl.Thresholds{
			RequireValidationBelow: cfg.Validation.RequireValidationBelow,
			AutoValidateAbove:      cfg.Validation.AutoValidateAbove,
			MissingFieldThreshold:  cfg.Validation.MissingFieldThreshold,
			CriticalFields:         cfg.Validation.CriticalFields,
		},
		Opts: extract.Opts{
			TopK:        cfg.Extraction.TopKRetrieval,
			ScoreCutoff: cfg.Extraction.ScoreCutoff,
			Concurrency: cfg.Extraction.Concurrency,
		},
	})

	answerer := qa.New(index, generator, mem, cfg.QA.TopKRetrieval, cfg.QA.ConfidenceThreshold)

	return &appEnv{
		store:    st,
		Mem:      mem,
		Index:    index,
		Registry: registry,
		Pipeline: pipe,
		Answerer: answerer,
	}, nil
}

// Package rag defines the external ports the extraction and QA pipelines
// depend on: semantic search over indexed passages and prompt completion.
package rag

import (
	"context"

	"github.com/ledgerline/finsight/internal/model"
)

// Retriever performs semantic search over indexed document passages.
// Results are ordered best-first; callers filter by a relevance cutoff.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]model.Passage, error)
}

// Generator completes a prompt into free text.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

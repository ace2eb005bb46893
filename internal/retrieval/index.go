// Package retrieval implements the semantic-search port with chromem-go, an
// embedded pure-Go vector database persisted to disk.
package retrieval

import (
	"context"
	"os"

	chromem "github.com/philippgille/chromem-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ledgerline/finsight/internal/model"
)

// Document is one passage to index.
type Document struct {
	ID       string
	Text     string
	SourceID string
	DocType  string
}

// Index is a persistent chromem-go collection of document passages.
type Index struct {
	db         *chromem.DB
	collection string
	embed      chromem.EmbeddingFunc
}

// Open creates or loads a persistent index at path. The embedding function is
// the external embedding hook; pass nil to use chromem's default (OpenAI,
// keyed by OPENAI_API_KEY).
func Open(path, collection string, embed chromem.EmbeddingFunc) (*Index, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, eris.Wrapf(err, "retrieval: create index dir %s", path)
	}

	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, eris.Wrap(err, "retrieval: open chromem db")
	}

	if embed == nil {
		embed = chromem.NewEmbeddingFuncDefault()
	}

	return &Index{db: db, collection: collection, embed: embed}, nil
}

// Add indexes a batch of passages.
func (ix *Index) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	col, err := ix.db.GetOrCreateCollection(ix.collection, nil, ix.embed)
	if err != nil {
		return eris.Wrapf(err, "retrieval: collection %s", ix.collection)
	}

	chromemDocs := make([]chromem.Document, len(docs))
	for i, d := range docs {
		chromemDocs[i] = chromem.Document{
			ID:      d.ID,
			Content: d.Text,
			Metadata: map[string]string{
				"source":   d.SourceID,
				"doc_type": d.DocType,
			},
		}
	}

	if err := col.AddDocuments(ctx, chromemDocs, 2); err != nil {
		return eris.Wrap(err, "retrieval: add documents")
	}

	zap.L().Info("indexed passages",
		zap.String("collection", ix.collection),
		zap.Int("count", len(docs)),
	)
	return nil
}

// Count returns the number of indexed passages.
func (ix *Index) Count() int {
	col := ix.db.GetCollection(ix.collection, ix.embed)
	if col == nil {
		return 0
	}
	return col.Count()
}

// Search returns up to k passages ranked best-first. An empty index yields an
// empty slice, not an error.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]model.Passage, error) {
	col := ix.db.GetCollection(ix.collection, ix.embed)
	if col == nil {
		return nil, nil
	}

	// chromem requires nResults <= document count.
	if n := col.Count(); n == 0 {
		return nil, nil
	} else if k > n {
		k = n
	}

	results, err := col.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, eris.Wrap(err, "retrieval: query")
	}

	passages := make([]model.Passage, len(results))
	for i, r := range results {
		passages[i] = model.Passage{
			Text:     r.Content,
			SourceID: r.Metadata["source"],
			DocType:  r.Metadata["doc_type"],
			Score:    float64(r.Similarity),
		}
	}
	return passages, nil
}

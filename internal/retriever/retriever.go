package retriever

import (
	"context"
	"encoding/json"

	"github.com/tablescout/tablescout/internal/errors"
	"github.com/tablescout/tablescout/internal/logging"
	"github.com/tablescout/tablescout/internal/schema"
	"github.com/tablescout/tablescout/internal/vectorstore"
)

// DefaultTopK is the number of tables retrieved when the caller does not ask
// for a specific k
const DefaultTopK = 5

// Embedder is the embedding gateway surface the retriever needs. It must be
// backed by the same model used at index time; a different embedding space
// breaks retrieval without any visible error.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Result is one retrieved table with its similarity score. Cosine scores are
// conceptually in [-1, 1]; results come back ranked descending.
type Result struct {
	TableName string
	Score     float64
	Schema    schema.TableSchema
}

// Retriever finds the tables most semantically similar to a question.
type Retriever struct {
	embedder Embedder
	store    vectorstore.Store
	defaultK int
}

// New wires the retriever to its collaborators. defaultK falls back to
// DefaultTopK when not positive.
func New(embedder Embedder, store vectorstore.Store, defaultK int) *Retriever {
	if defaultK < 1 {
		defaultK = DefaultTopK
	}

	return &Retriever{
		embedder: embedder,
		store:    store,
		defaultK: defaultK,
	}
}

// Retrieve embeds the question and returns the k nearest tables. k <= 0 uses
// the configured default; k is clamped to the index size. An empty index
// yields an empty result, not an error — the caller decides what "no
// relevant tables" means.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]Result, error) {
	if k < 1 {
		k = r.defaultK
	}

	stats, err := r.store.DescribeIndexStats(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeVectorStore, "failed to inspect index")
	}

	if stats.TotalVectorCount == 0 {
		return nil, nil
	}

	if k > stats.TotalVectorCount {
		k = stats.TotalVectorCount
	}

	vector, err := r.embedder.GenerateEmbedding(ctx, question)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbeddingGateway, "failed to embed question")
	}

	matches, err := r.store.Query(ctx, vector, k)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeVectorStore, "similarity query failed")
	}

	results := make([]Result, 0, len(matches))

	for _, match := range matches {
		result := Result{
			TableName: match.ID,
			Score:     match.Score,
		}

		if raw, ok := match.Metadata["schema"]; ok {
			if err := json.Unmarshal([]byte(raw), &result.Schema); err != nil {
				logging.Warnf("record %s carries unreadable schema metadata: %v", match.ID, err)
			}
		}

		if result.Schema.TableName == "" {
			result.Schema.TableName = match.ID
		}

		results = append(results, result)
	}

	return results, nil
}

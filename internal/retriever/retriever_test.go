package retriever

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "errors"

	"github.com/tablescout/tablescout/internal/errors"
	"github.com/tablescout/tablescout/internal/schema"
	"github.com/tablescout/tablescout/internal/testutil"
	"github.com/tablescout/tablescout/internal/vectorstore"
)

func seedStore(t *testing.T, store *testutil.MockVectorStore, tables map[string][]float32) {
	t.Helper()

	records := make([]vectorstore.Record, 0, len(tables))

	for name, vector := range tables {
		full, err := json.Marshal(schema.TableSchema{
			TableName: name,
			Columns:   []schema.Column{{Name: "id", Type: "TEXT"}},
		})
		require.NoError(t, err)

		records = append(records, vectorstore.Record{
			ID:     name,
			Values: vector,
			Metadata: map[string]string{
				"table_name": name,
				"schema":     string(full),
			},
		})
	}

	require.NoError(t, store.Upsert(context.Background(), records))
}

func TestRetrieve_RanksByDescendingSimilarity(t *testing.T) {
	store := testutil.NewMockVectorStore(testutil.WithExistingIndex())
	seedStore(t, store, map[string][]float32{
		"core__patient":   {1, 0, 0},
		"core__condition": {0, 1, 0},
		"core__document":  {0.9, 0.1, 0},
	})

	embedder := testutil.NewMockEmbedder(3,
		testutil.WithVector("patients question", []float32{1, 0, 0}))

	r := New(embedder, store, 5)

	results, err := r.Retrieve(context.Background(), "patients question", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "core__patient", results[0].TableName)
	assert.Equal(t, "core__document", results[1].TableName)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)

	// Full schema is rebuilt from record metadata
	assert.Equal(t, "core__patient", results[0].Schema.TableName)
	assert.NotEmpty(t, results[0].Schema.Columns)
}

func TestRetrieve_EmptyIndexReturnsEmptyResult(t *testing.T) {
	store := testutil.NewMockVectorStore(testutil.WithExistingIndex())
	embedder := testutil.NewMockEmbedder(3)

	r := New(embedder, store, 5)

	results, err := r.Retrieve(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	// The question must not be embedded when there is nothing to match
	assert.Zero(t, embedder.CallCount())
}

func TestRetrieve_ClampsKToIndexSize(t *testing.T) {
	store := testutil.NewMockVectorStore(testutil.WithExistingIndex())
	seedStore(t, store, map[string][]float32{
		"core__patient":   {1, 0, 0},
		"core__condition": {0, 1, 0},
	})

	r := New(testutil.NewMockEmbedder(3), store, 5)

	results, err := r.Retrieve(context.Background(), "question", 50)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRetrieve_DefaultK(t *testing.T) {
	store := testutil.NewMockVectorStore(testutil.WithExistingIndex())
	seedStore(t, store, map[string][]float32{
		"a": {1, 0, 0}, "b": {0, 1, 0}, "c": {0, 0, 1},
	})

	r := New(testutil.NewMockEmbedder(3), store, 2)

	results, err := r.Retrieve(context.Background(), "question", 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRetrieve_EmbeddingFailurePropagates(t *testing.T) {
	store := testutil.NewMockVectorStore(testutil.WithExistingIndex())
	seedStore(t, store, map[string][]float32{"core__patient": {1, 0, 0}})

	embedder := testutil.NewMockEmbedder(3,
		testutil.WithEmbedderError(stderrors.New("gateway down")))

	r := New(embedder, store, 5)

	_, err := r.Retrieve(context.Background(), "question", 1)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeEmbeddingGateway))
}

func TestRetrieve_QueryFailurePropagates(t *testing.T) {
	store := testutil.NewMockVectorStore(
		testutil.WithExistingIndex(),
		testutil.WithQueryError(stderrors.New("unavailable")))
	seedStore(t, store, map[string][]float32{"core__patient": {1, 0, 0}})

	r := New(testutil.NewMockEmbedder(3), store, 5)

	_, err := r.Retrieve(context.Background(), "question", 1)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeVectorStore))
}

package indexer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tablescout/tablescout/internal/errors"
	"github.com/tablescout/tablescout/internal/logging"
	"github.com/tablescout/tablescout/internal/observability"
	"github.com/tablescout/tablescout/internal/schema"
	"github.com/tablescout/tablescout/internal/vectorstore"
)

// DefaultBatchSize is the documented batch size for index builds
const DefaultBatchSize = 100

// DefaultInterBatchDelay is the documented pause between batches, in place
// to respect the embedding service's rate limits
const DefaultInterBatchDelay = time.Second

// Embedder is the embedding gateway surface the builder needs.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GetDimensions() int
}

// Options tune the builder. Zero values fall back to the documented
// defaults.
type Options struct {
	BatchSize       int
	InterBatchDelay time.Duration
	Workers         int
}

// Builder embeds every table in the catalog and upserts the records into the
// vector store. Re-running on an unchanged catalog fully overwrites the same
// record ids, so a build is safe to repeat after a partial failure.
type Builder struct {
	embedder Embedder
	store    vectorstore.Store
	metric   string
	opts     Options
	pool     *WorkerPool
}

// NewBuilder wires the builder to its collaborators
func NewBuilder(embedder Embedder, store vectorstore.Store, metric string, opts Options) *Builder {
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}

	if opts.InterBatchDelay <= 0 {
		opts.InterBatchDelay = DefaultInterBatchDelay
	}

	if opts.Workers < 1 {
		opts.Workers = 8
	}

	if metric == "" {
		metric = "cosine"
	}

	return &Builder{
		embedder: embedder,
		store:    store,
		metric:   metric,
		opts:     opts,
		pool:     NewWorkerPool(opts.Workers),
	}
}

// EnsureIndex provisions the vector index when missing and waits for it to
// become queryable. Provisioning failures are fatal to the setup run.
func (b *Builder) EnsureIndex(ctx context.Context) error {
	exists, err := b.store.IndexExists(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeIndexProvisioning, "failed to check index existence")
	}

	if exists {
		return nil
	}

	logging.Infof("creating vector index (dimension=%d, metric=%s)", b.embedder.GetDimensions(), b.metric)

	if err := b.store.CreateIndex(ctx, b.embedder.GetDimensions(), b.metric); err != nil {
		return errors.Wrap(err, errors.ErrTypeIndexProvisioning, "failed to create index")
	}

	return nil
}

// Build indexes the whole catalog and returns the number of records written.
// Embeddings within a batch are requested concurrently; batches run strictly
// sequentially with the configured delay between them. Any embedding failure
// aborts the run: a silently incomplete index would degrade retrieval with no
// visible signal.
func (b *Builder) Build(ctx context.Context, schemas []schema.TableSchema) (int, error) {
	runID := uuid.NewString()
	logger := logging.WithFields(map[string]interface{}{
		"run_id": runID,
		"tables": len(schemas),
	})

	if logger != nil {
		logger.Info("starting index build")
	}

	written := 0

	for start := 0; start < len(schemas); start += b.opts.BatchSize {
		end := min(start+b.opts.BatchSize, len(schemas))
		batch := schemas[start:end]

		records, err := b.embedBatch(ctx, batch)
		if err != nil {
			return written, err
		}

		if err := b.store.Upsert(ctx, records); err != nil {
			return written, errors.Wrap(err, errors.ErrTypeVectorStore, "failed to upsert batch")
		}

		written += len(records)
		observability.AddIndexedSchemas(len(records))

		if logger != nil {
			logger.Debugf("upserted batch of %d records (%d/%d)", len(records), written, len(schemas))
		}

		if end < len(schemas) {
			select {
			case <-ctx.Done():
				return written, ctx.Err()
			case <-time.After(b.opts.InterBatchDelay):
			}
		}
	}

	if logger != nil {
		logger.Infof("index build complete: %d records written", written)
	}

	return written, nil
}

// embedBatch fans out embedding requests for one batch and assembles the
// records in catalog order.
func (b *Builder) embedBatch(ctx context.Context, batch []schema.TableSchema) ([]vectorstore.Record, error) {
	tasks := make([]Task, 0, len(batch))

	for _, table := range batch {
		tasks = append(tasks, Task{
			ID: table.TableName,
			Func: func(ctx context.Context) (interface{}, error) {
				return b.embedder.GenerateEmbedding(ctx, schema.Encode(table))
			},
		})
	}

	results := b.pool.Execute(ctx, tasks)

	vectorsByID := make(map[string][]float32, len(results))

	for _, result := range results {
		if result.Error != nil {
			return nil, errors.Wrapf(result.Error, errors.ErrTypeEmbeddingGateway,
				"failed to embed table %s", result.ID)
		}

		vectorsByID[result.ID] = result.Data.([]float32)
	}

	records := make([]vectorstore.Record, 0, len(batch))

	for _, table := range batch {
		metadata, err := recordMetadata(table)
		if err != nil {
			return nil, err
		}

		records = append(records, vectorstore.Record{
			ID:       table.TableName,
			Values:   vectorsByID[table.TableName],
			Metadata: metadata,
		})
	}

	return records, nil
}

// recordMetadata serializes the table into the record's metadata so the
// retriever can rebuild full schemas without rereading the catalog.
func recordMetadata(table schema.TableSchema) (map[string]string, error) {
	columns, err := json.Marshal(table.Columns)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeInternal, "failed to serialize columns")
	}

	full, err := json.Marshal(table)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeInternal, "failed to serialize schema")
	}

	return map[string]string{
		"table_name":  table.TableName,
		"description": table.Description,
		"columns":     string(columns),
		"schema":      string(full),
	}, nil
}

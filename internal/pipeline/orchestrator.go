// Package pipeline chains retrieval, SQL authoring, validation, and execution
// into a single question-to-answer flow.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/tablescout/tablescout/internal/errors"
	"github.com/tablescout/tablescout/internal/executor"
	"github.com/tablescout/tablescout/internal/llm"
	"github.com/tablescout/tablescout/internal/logging"
	"github.com/tablescout/tablescout/internal/observability"
	"github.com/tablescout/tablescout/internal/retriever"
	"github.com/tablescout/tablescout/internal/schema"
	"github.com/tablescout/tablescout/internal/sqlguard"
)

// Retriever finds the schemas most relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string, k int) ([]retriever.Result, error)
}

// QueryResponse is the assembled answer for one question.
// SimilarityScores is parallel to TablesUsed, in retrieval rank order.
type QueryResponse struct {
	SQL              string                   `json:"sql"`
	Result           []map[string]interface{} `json:"result"`
	TablesUsed       []string                 `json:"tables_used"`
	SimilarityScores []float64                `json:"similarity_scores"`
	RowCount         int                      `json:"rowCount"`
}

// Pipeline orchestrates the stages of answering a question.
type Pipeline struct {
	retriever Retriever
	authoring llm.Service
	executor  executor.Executor
	topK      int
}

// New assembles a pipeline from its collaborators. topK <= 0 falls back to
// the retriever's default.
func New(r Retriever, authoring llm.Service, exec executor.Executor, topK int) *Pipeline {
	return &Pipeline{
		retriever: r,
		authoring: authoring,
		executor:  exec,
		topK:      topK,
	}
}

// Answer runs the full flow for one question. Stages fail fast: an empty
// retrieval result, a rejected statement, or any collaborator error stops the
// pipeline before the next stage runs.
func (p *Pipeline) Answer(ctx context.Context, question string) (*QueryResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New(errors.ErrTypeValidation, "question must not be empty")
	}

	matches, err := p.stageRetrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		return nil, errors.New(errors.ErrTypeEmptyRetrieval, "no relevant schema found").
			WithSuggestion("Run 'tablescout index' to populate the schema index")
	}

	schemas := make([]schema.TableSchema, 0, len(matches))
	tables := make([]string, 0, len(matches))
	scores := make([]float64, 0, len(matches))

	for _, match := range matches {
		schemas = append(schemas, match.Schema)
		tables = append(tables, match.TableName)
		scores = append(scores, match.Score)
	}

	statement, err := p.stageAuthor(ctx, question, schemas)
	if err != nil {
		return nil, err
	}

	if err := p.stageValidate(statement); err != nil {
		return nil, err
	}

	rows, rowCount, err := p.stageExecute(ctx, statement)
	if err != nil {
		return nil, err
	}

	logging.WithFields(map[string]interface{}{
		"tables":    len(tables),
		"row_count": rowCount,
	}).Info("Question answered")

	return &QueryResponse{
		SQL:              statement,
		Result:           rows,
		TablesUsed:       tables,
		SimilarityScores: scores,
		RowCount:         rowCount,
	}, nil
}

func (p *Pipeline) stageRetrieve(ctx context.Context, question string) ([]retriever.Result, error) {
	start := time.Now()
	matches, err := p.retriever.Retrieve(ctx, question, p.topK)
	observability.ObservePipelineStage("retrieve", time.Since(start), err)

	return matches, err
}

func (p *Pipeline) stageAuthor(ctx context.Context, question string, schemas []schema.TableSchema) (string, error) {
	start := time.Now()
	statement, err := p.authoring.GenerateSQL(ctx, question, schemas)
	observability.ObservePipelineStage("author", time.Since(start), err)

	return statement, err
}

func (p *Pipeline) stageValidate(statement string) error {
	err := sqlguard.Validate(statement)
	observability.ObservePipelineStage("validate", 0, err)

	return err
}

func (p *Pipeline) stageExecute(ctx context.Context, statement string) ([]map[string]interface{}, int, error) {
	start := time.Now()
	rows, rowCount, err := p.executor.Execute(ctx, statement)
	observability.ObservePipelineStage("execute", time.Since(start), err)

	return rows, rowCount, err
}

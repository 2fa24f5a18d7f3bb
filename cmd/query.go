package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/tablescout/tablescout/internal/config"
	"github.com/tablescout/tablescout/internal/embedding"
	"github.com/tablescout/tablescout/internal/executor"
	"github.com/tablescout/tablescout/internal/llm"
	"github.com/tablescout/tablescout/internal/pipeline"
	"github.com/tablescout/tablescout/internal/retriever"
	"github.com/tablescout/tablescout/internal/vectorstore"
)

func QueryCommand() *cli.Command {
	return &cli.Command{
		Name:        "query",
		Usage:       "Answer one natural-language question",
		ArgsUsage:   "<question>",
		Description: `Retrieve the schemas most relevant to the question, author a SELECT statement, validate it, execute it, and print the result.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "top-k",
				Usage: "number of schemas to retrieve",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the full response as JSON",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			question := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
			if question == "" {
				return fmt.Errorf("usage: tablescout query <question>")
			}

			cfg, err := resolveConfig(ctx, cmd)
			if err != nil {
				return err
			}

			return runQuery(ctx, cfg, question, int(cmd.Int("top-k")), cmd.Bool("json"))
		},
	}
}

func runQuery(ctx context.Context, cfg *config.Config, question string, topK int, asJSON bool) error {
	p, closer, err := buildPipeline(cfg, topK)
	if err != nil {
		return err
	}
	defer closer()

	progress := newProgress("Answering...")
	progress.Start()

	resp, err := p.Answer(ctx, question)

	progress.Stop()

	if err != nil {
		return err
	}

	if asJSON {
		encoded, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}

		fmt.Println(string(encoded))

		return nil
	}

	printResponse(resp)

	return nil
}

// buildPipeline assembles the live collaborators. The returned closer
// releases the database pool.
func buildPipeline(cfg *config.Config, topK int) (*pipeline.Pipeline, func(), error) {
	embedder, err := embedding.NewManager(cfg.Embedding)
	if err != nil {
		return nil, nil, err
	}

	store, err := vectorstore.NewClient(cfg.VectorStore)
	if err != nil {
		return nil, nil, err
	}

	authoring, err := llm.NewClient(cfg.Authoring)
	if err != nil {
		return nil, nil, err
	}

	exec, err := executor.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	if topK <= 0 {
		topK = cfg.Retrieval.TopK
	}

	r := retriever.New(embedder, store, cfg.Retrieval.TopK)
	p := pipeline.New(r, authoring, exec, topK)

	return p, func() { _ = exec.Close() }, nil
}

func printResponse(resp *pipeline.QueryResponse) {
	fmt.Println("SQL:")
	fmt.Printf("  %s\n\n", resp.SQL)

	fmt.Println("Tables used:")

	for i, table := range resp.TablesUsed {
		score := 0.0
		if i < len(resp.SimilarityScores) {
			score = resp.SimilarityScores[i]
		}

		fmt.Printf("  %-30s (similarity %.3f)\n", table, score)
	}

	fmt.Printf("\nRows: %d\n", resp.RowCount)

	if resp.RowCount == 0 {
		return
	}

	columns := make([]string, 0, len(resp.Result[0]))
	for column := range resp.Result[0] {
		columns = append(columns, column)
	}

	sort.Strings(columns)

	fmt.Println()
	fmt.Println(strings.Join(columns, " | "))
	fmt.Println(strings.Repeat("-", len(strings.Join(columns, " | "))))

	for _, row := range resp.Result {
		values := make([]string, 0, len(columns))
		for _, column := range columns {
			values = append(values, fmt.Sprintf("%v", row[column]))
		}

		fmt.Println(strings.Join(values, " | "))
	}
}

package llm

import (
	"context"

	"github.com/tablescout/tablescout/internal/schema"
)

// Provider identifiers supported by the authoring client
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Service is the SQL authoring gateway contract: a natural-language question
// plus the candidate table schemas in, a single SQL statement out.
type Service interface {
	GenerateSQL(ctx context.Context, question string, schemas []schema.TableSchema) (string, error)
}

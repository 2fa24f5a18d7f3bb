package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tablescout/tablescout/internal/config"
	"github.com/tablescout/tablescout/internal/errors"
)

const ollamaDefaultBaseURL = "http://localhost:11434"

// OllamaProvider generates embeddings via a local Ollama instance
type OllamaProvider struct {
	config     config.EmbeddingConfig
	httpClient *http.Client
}

// NewOllamaProvider validates the configuration and builds the provider
func NewOllamaProvider(cfg config.EmbeddingConfig) (*OllamaProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = ollamaDefaultBaseURL
	}

	return &OllamaProvider{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// GenerateEmbedding requests a vector for the given text
func (p *OllamaProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	reqBody := ollamaEmbeddingRequest{
		Model:  p.config.Model,
		Prompt: text,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbeddingGateway, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/api/embeddings", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbeddingGateway, "failed to create request")
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbeddingGateway, "failed to make request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbeddingGateway, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrTypeEmbeddingGateway,
			"API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var response ollamaEmbeddingResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbeddingGateway, "failed to parse Ollama response")
	}

	if response.Error != "" {
		return nil, errors.Newf(errors.ErrTypeEmbeddingGateway, "Ollama API error: %s", response.Error)
	}

	return response.Embedding, nil
}

// GetDimensions returns the configured embedding dimensions
func (p *OllamaProvider) GetDimensions() int {
	return p.config.Dimensions
}

// GetName returns the provider name
func (p *OllamaProvider) GetName() string {
	return "ollama:" + p.config.Model
}

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

const openAIDefaultBaseURL = "https://api.openai.com/v1"

// OpenAIProvider generates embeddings via an OpenAI-compatible embeddings API
type OpenAIProvider struct {
	config     config.EmbeddingConfig
	httpClient *http.Client
}

// NewOpenAIProvider validates the configuration and builds the provider
func NewOpenAIProvider(cfg config.EmbeddingConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for OpenAI embedding provider")
	}

	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = openAIDefaultBaseURL
	}

	return &OpenAIProvider{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

type openAIEmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// GenerateEmbedding requests a vector for the given text
func (p *OpenAIProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	reqBody := openAIEmbeddingRequest{
		Model: p.config.Model,
		Input: text,
	}

	respBody, err := p.makeRequest(ctx, "/embeddings", reqBody)
	if err != nil {
		return nil, err
	}

	var response openAIEmbeddingResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbeddingGateway, "failed to parse OpenAI response")
	}

	if response.Error != nil {
		return nil, errors.Newf(errors.ErrTypeEmbeddingGateway, "OpenAI API error: %s", response.Error.Message)
	}

	if len(response.Data) == 0 {
		return nil, errors.New(errors.ErrTypeEmbeddingGateway, "no embedding returned from OpenAI")
	}

	return response.Data[0].Embedding, nil
}

// makeRequest makes an HTTP request to the embeddings endpoint
func (p *OpenAIProvider) makeRequest(ctx context.Context, endpoint string, reqBody interface{}) ([]byte, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbeddingGateway, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbeddingGateway, "failed to create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

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

	return body, nil
}

// GetDimensions returns the configured embedding dimensions
func (p *OpenAIProvider) GetDimensions() int {
	return p.config.Dimensions
}

// GetName returns the provider name
func (p *OpenAIProvider) GetName() string {
	return "openai:" + p.config.Model
}

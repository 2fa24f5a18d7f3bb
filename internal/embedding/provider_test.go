package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tablescout/tablescout/internal/config"
	"github.com/tablescout/tablescout/internal/errors"
)

func embeddingConfig(baseURL string, dims int) config.EmbeddingConfig {
	return config.EmbeddingConfig{
		Provider:   "openai",
		Model:      "text-embedding-3-small",
		APIKey:     "test-key",
		BaseURL:    baseURL,
		Dimensions: dims,
	}
}

func TestOpenAIProvider_GenerateEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header: %s", got)
		}

		var req openAIEmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		if req.Input == "" {
			t.Error("expected non-empty input")
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"embedding": []float32{0.1, 0.2, 0.3}},
			},
		})
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(embeddingConfig(server.URL, 3))
	if err != nil {
		t.Fatalf("NewOpenAIProvider failed: %v", err)
	}

	vector, err := provider.GenerateEmbedding(context.Background(), "core__patient schema text")
	if err != nil {
		t.Fatalf("GenerateEmbedding failed: %v", err)
	}

	if len(vector) != 3 {
		t.Errorf("expected 3 values, got %d", len(vector))
	}
}

func TestOpenAIProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(embeddingConfig(server.URL, 3))
	if err != nil {
		t.Fatalf("NewOpenAIProvider failed: %v", err)
	}

	_, err = provider.GenerateEmbedding(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error for non-200 status")
	}

	if !errors.IsType(err, errors.ErrTypeEmbeddingGateway) {
		t.Errorf("expected embedding_gateway error, got %v", errors.GetType(err))
	}
}

func TestNewOpenAIProvider_RequiresAPIKey(t *testing.T) {
	cfg := embeddingConfig("http://localhost", 3)
	cfg.APIKey = ""

	if _, err := NewOpenAIProvider(cfg); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestManager_DimensionValidation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"embedding": []float32{0.1, 0.2}},
			},
		})
	}))
	defer server.Close()

	manager, err := NewManager(embeddingConfig(server.URL, 3))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	_, err = manager.GenerateEmbedding(context.Background(), "text")
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}

	if !errors.IsType(err, errors.ErrTypeEmbeddingGateway) {
		t.Errorf("expected embedding_gateway error, got %v", errors.GetType(err))
	}
}

func TestNewManager_UnsupportedProvider(t *testing.T) {
	cfg := embeddingConfig("http://localhost", 3)
	cfg.Provider = "cohere"

	if _, err := NewManager(cfg); err == nil {
		t.Error("expected error for unsupported provider")
	}
}

func TestDisabledProvider(t *testing.T) {
	provider := &DisabledProvider{}

	if _, err := provider.GenerateEmbedding(context.Background(), "text"); err == nil {
		t.Error("disabled provider must refuse to embed")
	}

	if provider.GetName() != "disabled" {
		t.Errorf("unexpected name: %s", provider.GetName())
	}
}

func TestOllamaProvider_GenerateEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		_ = json.NewEncoder(w).Encode(ollamaEmbeddingResponse{Embedding: []float32{1, 2, 3, 4}})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(config.EmbeddingConfig{
		Provider:   "ollama",
		Model:      "nomic-embed-text",
		BaseURL:    server.URL,
		Dimensions: 4,
	})
	if err != nil {
		t.Fatalf("NewOllamaProvider failed: %v", err)
	}

	vector, err := provider.GenerateEmbedding(context.Background(), "text")
	if err != nil {
		t.Fatalf("GenerateEmbedding failed: %v", err)
	}

	if len(vector) != 4 {
		t.Errorf("expected 4 values, got %d", len(vector))
	}
}

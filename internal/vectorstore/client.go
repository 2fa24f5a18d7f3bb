package vectorstore

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

// Record is one embedded table written to the index. An upsert fully
// replaces any prior record with the same ID.
type Record struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Match is one ranked neighbor returned by a similarity query.
type Match struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IndexStats reports readiness and record count for the index.
type IndexStats struct {
	TotalVectorCount int `json:"totalVectorCount"`
	Dimension        int `json:"dimension"`
}

// Store is the vector index contract consumed by the indexer and retriever.
type Store interface {
	Upsert(ctx context.Context, records []Record) error
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
	IndexExists(ctx context.Context) (bool, error)
	CreateIndex(ctx context.Context, dimension int, metric string) error
	DescribeIndexStats(ctx context.Context) (IndexStats, error)
}

// Client is a REST client for a Pinecone-style vector index service. The
// control plane manages indexes; the data plane serves upserts and queries.
type Client struct {
	config     config.VectorStoreConfig
	httpClient *http.Client
}

// NewClient validates the configuration and builds the client
func NewClient(cfg config.VectorStoreConfig) (*Client, error) {
	if cfg.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}

	if cfg.ControlBaseURL == "" {
		return nil, fmt.Errorf("control base URL is required")
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

type describeIndexResponse struct {
	Name   string `json:"name"`
	Status struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
	Host string `json:"host"`
}

// IndexExists reports whether the configured index is provisioned
func (c *Client) IndexExists(ctx context.Context) (bool, error) {
	url := c.config.ControlBaseURL + "/indexes/" + c.config.IndexName

	body, status, err := c.doRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	if status == http.StatusNotFound {
		return false, nil
	}

	if status != http.StatusOK {
		return false, errors.Newf(errors.ErrTypeVectorStore,
			"describe index failed with status %d: %s", status, string(body))
	}

	return true, nil
}

type createIndexRequest struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
}

// CreateIndex provisions the index and blocks until it reports ready. The
// poll is bounded by the caller's context.
func (c *Client) CreateIndex(ctx context.Context, dimension int, metric string) error {
	reqBody := createIndexRequest{
		Name:      c.config.IndexName,
		Dimension: dimension,
		Metric:    metric,
	}

	url := c.config.ControlBaseURL + "/indexes"

	body, status, err := c.doRequest(ctx, http.MethodPost, url, reqBody)
	if err != nil {
		return err
	}

	if status != http.StatusOK && status != http.StatusCreated {
		return errors.Newf(errors.ErrTypeIndexProvisioning,
			"create index failed with status %d: %s", status, string(body))
	}

	return c.waitUntilReady(ctx)
}

// waitUntilReady polls the control plane until the index is queryable
func (c *Client) waitUntilReady(ctx context.Context) error {
	url := c.config.ControlBaseURL + "/indexes/" + c.config.IndexName

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		body, status, err := c.doRequest(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}

		if status == http.StatusOK {
			var desc describeIndexResponse
			if err := json.Unmarshal(body, &desc); err != nil {
				return errors.Wrap(err, errors.ErrTypeIndexProvisioning, "failed to parse describe index response")
			}

			if desc.Status.Ready {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), errors.ErrTypeIndexProvisioning,
				"index did not become ready before the deadline")
		case <-ticker.C:
		}
	}
}

type upsertRequest struct {
	Vectors []Record `json:"vectors"`
}

type upsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

// Upsert writes a batch of records to the index
func (c *Client) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	url := c.config.IndexBaseURL + "/vectors/upsert"

	body, status, err := c.doRequest(ctx, http.MethodPost, url, upsertRequest{Vectors: records})
	if err != nil {
		return err
	}

	if status != http.StatusOK {
		return errors.Newf(errors.ErrTypeVectorStore,
			"upsert failed with status %d: %s", status, string(body))
	}

	var resp upsertResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return errors.Wrap(err, errors.ErrTypeVectorStore, "failed to parse upsert response")
	}

	if resp.UpsertedCount != len(records) {
		return errors.Newf(errors.ErrTypeVectorStore,
			"upsert wrote %d of %d records", resp.UpsertedCount, len(records))
	}

	return nil
}

type queryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []Match `json:"matches"`
}

// Query returns the topK nearest neighbors, ranked by descending similarity
func (c *Client) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	url := c.config.IndexBaseURL + "/query"

	reqBody := queryRequest{
		Vector:          vector,
		TopK:            topK,
		IncludeMetadata: true,
	}

	body, status, err := c.doRequest(ctx, http.MethodPost, url, reqBody)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		return nil, errors.Newf(errors.ErrTypeVectorStore,
			"query failed with status %d: %s", status, string(body))
	}

	var resp queryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeVectorStore, "failed to parse query response")
	}

	return resp.Matches, nil
}

// DescribeIndexStats reports the record count from the data plane
func (c *Client) DescribeIndexStats(ctx context.Context) (IndexStats, error) {
	url := c.config.IndexBaseURL + "/describe_index_stats"

	body, status, err := c.doRequest(ctx, http.MethodPost, url, struct{}{})
	if err != nil {
		return IndexStats{}, err
	}

	if status != http.StatusOK {
		return IndexStats{}, errors.Newf(errors.ErrTypeVectorStore,
			"describe index stats failed with status %d: %s", status, string(body))
	}

	var stats IndexStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return IndexStats{}, errors.Wrap(err, errors.ErrTypeVectorStore, "failed to parse index stats")
	}

	return stats, nil
}

// doRequest issues one request with the API key header and reads the body
func (c *Client) doRequest(ctx context.Context, method, url string, reqBody interface{}) ([]byte, int, error) {
	var bodyReader io.Reader

	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrTypeVectorStore, "failed to marshal request")
		}

		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrTypeVectorStore, "failed to create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrTypeVectorStore, "failed to make request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrTypeVectorStore, "failed to read response")
	}

	return body, resp.StatusCode, nil
}

package testutil

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/tablescout/tablescout/internal/schema"
	"github.com/tablescout/tablescout/internal/vectorstore"
)

// MockEmbedder implements the embedding gateway for testing with
// deterministic vectors and error injection
type MockEmbedder struct {
	mu sync.Mutex

	dimensions int
	vectors    map[string][]float32
	err        error
	callCount  int
}

// EmbedderOption is a functional option for configuring MockEmbedder
type EmbedderOption func(*MockEmbedder)

// WithVector pins the vector returned for a specific text
func WithVector(text string, vector []float32) EmbedderOption {
	return func(m *MockEmbedder) {
		m.vectors[text] = vector
	}
}

// WithEmbedderError makes every embedding call fail
func WithEmbedderError(err error) EmbedderOption {
	return func(m *MockEmbedder) {
		m.err = err
	}
}

// NewMockEmbedder creates a mock embedder producing deterministic vectors
func NewMockEmbedder(dimensions int, opts ...EmbedderOption) *MockEmbedder {
	mock := &MockEmbedder{
		dimensions: dimensions,
		vectors:    make(map[string][]float32),
	}

	for _, opt := range opts {
		opt(mock)
	}

	return mock
}

// GenerateEmbedding returns the pinned vector for the text, or a
// deterministic vector derived from its bytes
func (m *MockEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++

	if m.err != nil {
		return nil, m.err
	}

	if vector, ok := m.vectors[text]; ok {
		return vector, nil
	}

	// Deterministic pseudo-vector so identical text maps to an identical
	// point in the space.
	vector := make([]float32, m.dimensions)
	for i := range vector {
		var sum float32
		for j, ch := range text {
			sum += float32(int(ch)*(i+j+1)) / 1000
		}

		vector[i] = float32(math.Mod(float64(sum), 1.0))
	}

	return vector, nil
}

// GetDimensions returns the configured dimensions
func (m *MockEmbedder) GetDimensions() int {
	return m.dimensions
}

// GetName returns a fixed provider name
func (m *MockEmbedder) GetName() string {
	return "mock"
}

// CallCount returns how many embedding calls were made
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.callCount
}

// MockVectorStore is an in-memory vector store with real cosine ranking
type MockVectorStore struct {
	mu sync.Mutex

	records     map[string]vectorstore.Record
	exists      bool
	upsertErr   error
	queryErr    error
	upsertCalls int
}

// StoreOption is a functional option for configuring MockVectorStore
type StoreOption func(*MockVectorStore)

// WithExistingIndex marks the index as already provisioned
func WithExistingIndex() StoreOption {
	return func(m *MockVectorStore) {
		m.exists = true
	}
}

// WithUpsertError makes every upsert fail
func WithUpsertError(err error) StoreOption {
	return func(m *MockVectorStore) {
		m.upsertErr = err
	}
}

// WithQueryError makes every query fail
func WithQueryError(err error) StoreOption {
	return func(m *MockVectorStore) {
		m.queryErr = err
	}
}

// NewMockVectorStore creates an empty in-memory store
func NewMockVectorStore(opts ...StoreOption) *MockVectorStore {
	mock := &MockVectorStore{
		records: make(map[string]vectorstore.Record),
	}

	for _, opt := range opts {
		opt(mock)
	}

	return mock
}

// Upsert replaces records wholesale by id
func (m *MockVectorStore) Upsert(_ context.Context, records []vectorstore.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.upsertCalls++

	if m.upsertErr != nil {
		return m.upsertErr
	}

	for _, record := range records {
		m.records[record.ID] = record
	}

	return nil
}

// Query ranks stored records by cosine similarity to the query vector
func (m *MockVectorStore) Query(_ context.Context, vector []float32, topK int) ([]vectorstore.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.queryErr != nil {
		return nil, m.queryErr
	}

	matches := make([]vectorstore.Match, 0, len(m.records))

	for _, record := range m.records {
		matches = append(matches, vectorstore.Match{
			ID:       record.ID,
			Score:    cosineSimilarity(vector, record.Values),
			Metadata: record.Metadata,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}

	return matches, nil
}

// IndexExists reports the configured provisioning state
func (m *MockVectorStore) IndexExists(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.exists, nil
}

// CreateIndex marks the index as provisioned
func (m *MockVectorStore) CreateIndex(_ context.Context, _ int, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.exists = true

	return nil
}

// DescribeIndexStats returns the record count
func (m *MockVectorStore) DescribeIndexStats(_ context.Context) (vectorstore.IndexStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return vectorstore.IndexStats{TotalVectorCount: len(m.records)}, nil
}

// Records returns a snapshot of the stored records
func (m *MockVectorStore) Records() map[string]vectorstore.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[string]vectorstore.Record, len(m.records))
	for id, record := range m.records {
		snapshot[id] = record
	}

	return snapshot
}

// UpsertCalls returns how many bulk writes were issued
func (m *MockVectorStore) UpsertCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.upsertCalls
}

// cosineSimilarity computes the cosine of the angle between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64

	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// MockAuthoring implements the SQL authoring gateway for testing
type MockAuthoring struct {
	mu sync.Mutex

	sql       string
	err       error
	callCount int
	lastQ     string
	lastSch   []schema.TableSchema
}

// NewMockAuthoring returns a gateway that always produces the given SQL
func NewMockAuthoring(sql string, err error) *MockAuthoring {
	return &MockAuthoring{sql: sql, err: err}
}

// GenerateSQL records the call and returns the configured result
func (m *MockAuthoring) GenerateSQL(_ context.Context, question string, schemas []schema.TableSchema) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++
	m.lastQ = question
	m.lastSch = schemas

	if m.err != nil {
		return "", m.err
	}

	return m.sql, nil
}

// CallCount returns how many authoring calls were made
func (m *MockAuthoring) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.callCount
}

// LastSchemas returns the candidate schemas from the most recent call
func (m *MockAuthoring) LastSchemas() []schema.TableSchema {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastSch
}

// MockExecutor implements the relational execution collaborator for testing
type MockExecutor struct {
	mu sync.Mutex

	rows      []map[string]interface{}
	err       error
	callCount int
	lastSQL   string
}

// NewMockExecutor returns an executor producing the given rows
func NewMockExecutor(rows []map[string]interface{}, err error) *MockExecutor {
	return &MockExecutor{rows: rows, err: err}
}

// Execute records the call and returns the configured rows
func (m *MockExecutor) Execute(_ context.Context, sql string) ([]map[string]interface{}, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++
	m.lastSQL = sql

	if m.err != nil {
		return nil, 0, m.err
	}

	return m.rows, len(m.rows), nil
}

// CallCount returns how many execution calls were made
func (m *MockExecutor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.callCount
}

// LastSQL returns the statement from the most recent call
func (m *MockExecutor) LastSQL() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastSQL
}

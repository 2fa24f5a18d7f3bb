package catalogstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "errors"
)

type fakeClient struct {
	objects map[string][]byte
	buckets map[string]bool

	putErr error
	getErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		objects: make(map[string][]byte),
		buckets: make(map[string]bool),
	}
}

func (f *fakeClient) Put(_ context.Context, bucket, key string, reader io.Reader, _ int64, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	f.objects[bucket+"/"+key] = data

	return nil
}

func (f *fakeClient) Get(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}

	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, ErrObjectNotFound
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeClient) BucketExists(_ context.Context, bucket string) (bool, error) {
	return f.buckets[bucket], nil
}

func (f *fakeClient) CreateBucket(_ context.Context, bucket, _ string) error {
	f.buckets[bucket] = true

	return nil
}

func TestPutAndGetCatalog(t *testing.T) {
	client := newFakeClient()

	store, err := NewWithClient("tablescout", "", client)
	require.NoError(t, err)

	payload := []byte(`{"total_tables":2}`)
	require.NoError(t, store.PutCatalog(context.Background(), payload))

	fetched, err := store.GetCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, payload, fetched)
}

func TestGetCatalog_Missing(t *testing.T) {
	store, err := NewWithClient("tablescout", "", newFakeClient())
	require.NoError(t, err)

	_, err = store.GetCatalog(context.Background())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrObjectNotFound))
}

func TestPrefixedObjectKey(t *testing.T) {
	client := newFakeClient()

	store, err := NewWithClient("tablescout", "/snapshots/", client)
	require.NoError(t, err)

	require.NoError(t, store.PutCatalog(context.Background(), []byte("{}")))

	_, ok := client.objects["tablescout/snapshots/catalog.json"]
	assert.True(t, ok)
}

func TestPutCatalog_TransportError(t *testing.T) {
	client := newFakeClient()
	client.putErr = fmt.Errorf("connection refused")

	store, err := NewWithClient("tablescout", "", client)
	require.NoError(t, err)

	err = store.PutCatalog(context.Background(), []byte("{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upload catalog")
}

func TestNewWithClient_Validation(t *testing.T) {
	_, err := NewWithClient("", "", newFakeClient())
	assert.Error(t, err)

	_, err = NewWithClient("tablescout", "", nil)
	assert.Error(t, err)
}

func TestParseEndpoint(t *testing.T) {
	host, secure, err := parseEndpoint("https://minio.internal:9000", false)
	require.NoError(t, err)
	assert.Equal(t, "minio.internal:9000", host)
	assert.True(t, secure)

	host, secure, err = parseEndpoint("http://localhost:9000", true)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", host)
	assert.False(t, secure)

	host, secure, err = parseEndpoint("minio.internal:9000", true)
	require.NoError(t, err)
	assert.Equal(t, "minio.internal:9000", host)
	assert.True(t, secure)
}

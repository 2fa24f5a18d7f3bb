// Package catalogstore mirrors the schema catalog to an S3-compatible object
// store so other hosts can index without re-fetching the schema source.
package catalogstore

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tablescout/tablescout/internal/config"
	"github.com/tablescout/tablescout/internal/errors"
)

// CatalogObjectKey is where the catalog lives inside the bucket.
const CatalogObjectKey = "catalog.json"

// ErrObjectNotFound reports a missing object, distinct from transport errors.
var ErrObjectNotFound = errors.New(errors.ErrTypeStorage, "object not found")

type client interface {
	Put(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
	CreateBucket(ctx context.Context, bucket, region string) error
}

// Store reads and writes catalog snapshots in one bucket.
type Store struct {
	client client
	bucket string
	prefix string
	region string
}

// New connects to the configured endpoint and ensures the bucket exists.
func New(ctx context.Context, cfg config.ObjectStoreConfig) (*Store, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New(errors.ErrTypeConfiguration, "object store endpoint is required")
	}

	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New(errors.ErrTypeConfiguration, "object store bucket is required")
	}

	mc, err := newMinioClient(cfg)
	if err != nil {
		return nil, err
	}

	store := &Store{
		client: mc,
		bucket: strings.TrimSpace(cfg.Bucket),
		prefix: cleanPrefix(cfg.Prefix),
		region: strings.TrimSpace(cfg.Region),
	}

	if err := store.ensureBucket(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// NewWithClient injects a client, primarily for tests
func NewWithClient(bucket, prefix string, c client) (*Store, error) {
	if c == nil {
		return nil, errors.New(errors.ErrTypeConfiguration, "object store client is required")
	}

	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New(errors.ErrTypeConfiguration, "object store bucket is required")
	}

	return &Store{client: c, bucket: strings.TrimSpace(bucket), prefix: cleanPrefix(prefix)}, nil
}

// PutCatalog uploads a catalog snapshot.
func (s *Store) PutCatalog(ctx context.Context, data []byte) error {
	key := s.objectKey()

	err := s.client.Put(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), "application/json")
	if err != nil {
		return errors.Wrapf(err, errors.ErrTypeStorage, "failed to upload catalog to %s", key)
	}

	return nil
}

// GetCatalog downloads the latest catalog snapshot. A missing object returns
// ErrObjectNotFound.
func (s *Store) GetCatalog(ctx context.Context) ([]byte, error) {
	key := s.objectKey()

	reader, err := s.client.Get(ctx, s.bucket, key)
	if err != nil {
		if errors.IsType(err, errors.ErrTypeStorage) {
			return nil, err
		}

		return nil, errors.Wrapf(err, errors.ErrTypeStorage, "failed to download catalog from %s", key)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeStorage, "failed to read catalog object")
	}

	return data, nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrapf(err, errors.ErrTypeStorage, "failed to check bucket %s", s.bucket)
	}

	if exists {
		return nil
	}

	if err := s.client.CreateBucket(ctx, s.bucket, s.region); err != nil {
		return errors.Wrapf(err, errors.ErrTypeStorage, "failed to create bucket %s", s.bucket)
	}

	return nil
}

func (s *Store) objectKey() string {
	if s.prefix == "" {
		return CatalogObjectKey
	}

	return path.Join(s.prefix, CatalogObjectKey)
}

func cleanPrefix(prefix string) string {
	prefix = strings.TrimSpace(strings.TrimPrefix(prefix, "/"))
	if prefix == "" {
		return ""
	}

	prefix = path.Clean(prefix)
	if prefix == "." {
		return ""
	}

	return prefix
}

type minioClient struct {
	client *minio.Client
}

func newMinioClient(cfg config.ObjectStoreConfig) (*minioClient, error) {
	endpoint, secure, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	impl, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeStorage, "failed to create object store client")
	}

	return &minioClient{client: impl}, nil
}

func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return "", false, errors.Wrap(err, errors.ErrTypeConfiguration, "invalid object store endpoint")
		}

		if parsed.Host == "" {
			return "", false, errors.New(errors.ErrTypeConfiguration, "object store endpoint host is required")
		}

		return parsed.Host, parsed.Scheme == "https" || useSSL && parsed.Scheme != "http", nil
	}

	return raw, useSSL, nil
}

func (m *minioClient) Put(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, bucket, key, reader, size, minio.PutObjectOptions{ContentType: contentType})

	return mapMinioErr(err)
}

func (m *minioClient) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioErr(err)
	}

	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, mapMinioErr(err)
	}

	return obj, nil
}

func (m *minioClient) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return m.client.BucketExists(ctx, bucket)
}

func (m *minioClient) CreateBucket(ctx context.Context, bucket, region string) error {
	return m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
}

func mapMinioErr(err error) error {
	if err == nil {
		return nil
	}

	if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" || resp.StatusCode == 404 {
		return ErrObjectNotFound
	}

	return err
}

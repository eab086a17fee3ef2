package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"socialcrawler/pkg/config"
	errs "socialcrawler/pkg/errors"
	"socialcrawler/pkg/logger"
)

const gcsEndpoint = "storage.googleapis.com"

// blobClient is the slice of the object storage API the store needs
type blobClient interface {
	Put(ctx context.Context, bucket, name string, data []byte, contentType string) error
	Exists(ctx context.Context, bucket, name string) (bool, error)
	Get(ctx context.Context, bucket, name string) ([]byte, error)
}

// ObjectStore keeps artifacts as objects in an S3-compatible bucket. GCS
// buckets are reached through their S3 interoperability endpoint.
type ObjectStore struct {
	client blobClient
	bucket string
	prefix string
	logger logger.Logger
}

// NewObjectStore connects to the bucket described by cfg. It fails with a
// ConfigError when no bucket is configured.
func NewObjectStore(ctx context.Context, cfg config.StorageConfig, log logger.Logger) (*ObjectStore, error) {
	if cfg.Bucket == "" {
		return nil, errs.NewConfigError("bucket is required for " + cfg.Backend + " storage")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" && strings.EqualFold(cfg.Backend, config.BackendGCS) {
		endpoint = gcsEndpoint
	}
	if endpoint == "" {
		return nil, errs.NewConfigError("endpoint is required for " + cfg.Backend + " storage")
	}

	client, err := newMinioBlobs(endpoint, cfg)
	if err != nil {
		return nil, errs.NewStorageError("failed to create object storage client", err)
	}

	return newObjectStore(client, cfg.Bucket, cfg.Prefix, log), nil
}

func newObjectStore(client blobClient, bucket, prefix string, log logger.Logger) *ObjectStore {
	return &ObjectStore{
		client: client,
		bucket: bucket,
		prefix: strings.TrimRight(prefix, "/"),
		logger: logger.OrGlobal(log).WithFields(map[string]interface{}{
			"component": "storage.object",
			"bucket":    bucket,
		}),
	}
}

// objectName places key under the prefix with exactly one separator
func (s *ObjectStore) objectName(key string) string {
	key = strings.TrimLeft(key, "/")
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

// SaveJSON uploads v as compact JSON
func (s *ObjectStore) SaveJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errs.NewStorageError("failed to encode "+key, err)
	}
	return s.put(ctx, key, data, "application/json")
}

// SaveBytes uploads data with a content type guessed from the key
func (s *ObjectStore) SaveBytes(ctx context.Context, key string, data []byte) error {
	return s.put(ctx, key, data, contentTypeFor(key))
}

func (s *ObjectStore) put(ctx context.Context, key string, data []byte, contentType string) error {
	name := s.objectName(key)
	if err := s.client.Put(ctx, s.bucket, name, data, contentType); err != nil {
		return errs.NewStorageError("failed to upload "+name, err)
	}

	s.logger.DebugWithFields("object written", map[string]interface{}{
		"object":       name,
		"bytes":        len(data),
		"content_type": contentType,
	})
	return nil
}

func (s *ObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	name := s.objectName(key)
	ok, err := s.client.Exists(ctx, s.bucket, name)
	if err != nil {
		return false, errs.NewStorageError("failed to stat "+name, err)
	}
	return ok, nil
}

func (s *ObjectStore) Read(ctx context.Context, key string) ([]byte, error) {
	name := s.objectName(key)
	data, err := s.client.Get(ctx, s.bucket, name)
	if err != nil {
		return nil, errs.NewStorageError("failed to read "+name, err)
	}
	return data, nil
}

// minioBlobs adapts a minio client to blobClient
type minioBlobs struct {
	client *minio.Client
}

func newMinioBlobs(endpoint string, cfg config.StorageConfig) (*minioBlobs, error) {
	secure := cfg.UseSSL
	switch {
	case strings.HasPrefix(endpoint, "http://"):
		endpoint, secure = strings.TrimPrefix(endpoint, "http://"), false
	case strings.HasPrefix(endpoint, "https://"):
		endpoint, secure = strings.TrimPrefix(endpoint, "https://"), true
	}

	cl, err := minio.New(strings.TrimRight(endpoint, "/"), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}
	return &minioBlobs{client: cl}, nil
}

func (m *minioBlobs) Put(ctx context.Context, bucket, name string, data []byte, contentType string) error {
	_, err := m.client.PutObject(ctx, bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (m *minioBlobs) Exists(ctx context.Context, bucket, name string) (bool, error) {
	_, err := m.client.StatObject(ctx, bucket, name, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, err
}

func (m *minioBlobs) Get(ctx context.Context, bucket, name string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

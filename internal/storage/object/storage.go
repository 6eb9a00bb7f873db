package object

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Storage provides an S3-compatible object store backend using MinIO.
// A single Storage is created at startup and reused for every batch;
// it holds no mutable state beyond the underlying client.
type Storage struct {
	client *minio.Client
}

// NewStorage creates a new Storage instance connected to the specified
// S3-compatible endpoint. Buckets are expected to exist already; the
// worker only reacts to notifications about them.
func NewStorage(endpoint, accessKey, secretKey string, useSSL bool) (*Storage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	return &Storage{client: client}, nil
}

// Get retrieves the object and returns its full contents. Reading to
// the end here makes retrieval errors surface at the fetch stage
// instead of later inside the codec.
func (s *Storage) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}

	return data, nil
}

// Put writes the data to the given key with the given content type.
// An existing object under the same key is overwritten.
func (s *Storage) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}

	return nil
}

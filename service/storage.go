package service

import (
	"context"

	"github.com/minio/minio-go/v7"
)

// ObjectStore is the narrow slice of object storage the pipeline needs:
// download an uploaded original and remove it at terminal state.
type ObjectStore interface {
	Download(ctx context.Context, bucket, objectPath, localPath string) error
	Remove(ctx context.Context, bucket, objectPath string) error
}

type minioStore struct {
	client *minio.Client
}

func NewMinIOStore(client *minio.Client) ObjectStore {
	return &minioStore{client: client}
}

func (s *minioStore) Download(ctx context.Context, bucket, objectPath, localPath string) error {
	return s.client.FGetObject(ctx, bucket, objectPath, localPath, minio.GetObjectOptions{})
}

func (s *minioStore) Remove(ctx context.Context, bucket, objectPath string) error {
	return s.client.RemoveObject(ctx, bucket, objectPath, minio.RemoveObjectOptions{})
}

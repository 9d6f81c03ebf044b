package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"

	"github.com/oksasatya/profile-sync/internal/domain/repository"
	"github.com/oksasatya/profile-sync/pkg/helpers"
)

// BlobStore keeps avatar objects in a single GCS bucket.
type BlobStore struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewBlobStore(client *storage.Client, bucket, publicBaseURL string) *BlobStore {
	return &BlobStore{client: client, bucket: bucket, baseURL: publicBaseURL}
}

func (s *BlobStore) Upload(ctx context.Context, path string, body []byte, opts repository.UploadOptions) error {
	if s.client == nil {
		return errors.New("gcs client not configured")
	}
	err := helpers.UploadObject(ctx, s.client, s.bucket, path, opts.ContentType, bytes.NewReader(body), !opts.Overwrite)
	if err != nil {
		return fmt.Errorf("upload gs://%s/%s: %w", s.bucket, path, err)
	}
	return nil
}

// PublicURL is stable for a path and never carries a query string.
func (s *BlobStore) PublicURL(path string) string {
	return helpers.PublicURL(s.baseURL, s.bucket, path)
}

var _ repository.BlobStore = (*BlobStore)(nil)

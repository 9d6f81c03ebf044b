package helpers

import (
	"context"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const gcsPublicHost = "https://storage.googleapis.com"

// NewGCSClient creates a Google Cloud Storage client. If credsPath is empty, ADC is used.
func NewGCSClient(ctx context.Context, credsPath string) (*storage.Client, error) {
	if credsPath == "" {
		return storage.NewClient(ctx)
	}
	return storage.NewClient(ctx, option.WithCredentialsFile(credsPath))
}

// UploadObject writes r to bucket/objectPath. With onlyIfAbsent the write fails
// when the object already exists instead of replacing it.
func UploadObject(ctx context.Context, client *storage.Client, bucket, objectPath, contentType string, r io.Reader, onlyIfAbsent bool) error {
	obj := client.Bucket(bucket).Object(objectPath)
	if onlyIfAbsent {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	}
	wc := obj.NewWriter(ctx)
	wc.ContentType = contentType
	wc.ChunkSize = 0 // disable chunking for small files
	if _, err := io.Copy(wc, r); err != nil {
		_ = wc.Close()
		return err
	}
	return wc.Close()
}

// PublicURL builds the public URL for an object. baseURL overrides the default
// https://storage.googleapis.com/<bucket> prefix, e.g. for a CDN in front of the bucket.
func PublicURL(baseURL, bucket, objectPath string) string {
	objectPath = strings.TrimLeft(objectPath, "/")
	if baseURL != "" {
		return strings.TrimRight(baseURL, "/") + "/" + objectPath
	}
	return gcsPublicHost + "/" + bucket + "/" + objectPath
}

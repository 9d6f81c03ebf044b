package gcs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oksasatya/profile-sync/internal/domain/repository"
)

func TestPublicURL(t *testing.T) {
	s := NewBlobStore(nil, "avatars", "")
	assert.Equal(t, "https://storage.googleapis.com/avatars/u1/avatar.jpg", s.PublicURL("u1/avatar.jpg"))

	cdn := NewBlobStore(nil, "avatars", "https://cdn.example.com/avatars/")
	assert.Equal(t, "https://cdn.example.com/avatars/u1/avatar.png", cdn.PublicURL("/u1/avatar.png"))
	assert.Equal(t, cdn.PublicURL("u1/avatar.png"), cdn.PublicURL("u1/avatar.png"))
}

func TestUploadWithoutClient(t *testing.T) {
	s := NewBlobStore(nil, "avatars", "")
	err := s.Upload(context.Background(), "u1/avatar.jpg", []byte("x"), repository.UploadOptions{ContentType: "image/jpg", Overwrite: true})
	assert.Error(t, err)
}

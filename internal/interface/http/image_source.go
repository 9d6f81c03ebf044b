package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/profile-sync/internal/domain/repository"
)

var errAvatarTooLarge = errors.New("avatar exceeds size limit")

// formImage serves the avatar pipeline from a multipart upload. The client has
// already taken or picked the photo, so camera and library read the same field.
// A request without the file counts as a cancelled picker.
type formImage struct {
	c        *gin.Context
	field    string
	maxBytes int64
}

func (f formImage) CaptureFromCamera(ctx context.Context) (*repository.PickedImage, error) {
	return f.read()
}

func (f formImage) PickFromLibrary(ctx context.Context) (*repository.PickedImage, error) {
	return f.read()
}

func (f formImage) read() (*repository.PickedImage, error) {
	fh, err := f.c.FormFile(f.field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, repository.ErrPickerCancelled
	}
	if err != nil {
		return nil, err
	}
	if f.maxBytes > 0 && fh.Size > f.maxBytes {
		return nil, errAvatarTooLarge
	}
	file, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	r := io.Reader(file)
	if f.maxBytes > 0 {
		r = io.LimitReader(file, f.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, errAvatarTooLarge
	}
	return &repository.PickedImage{URI: fh.Filename, Data: data}, nil
}

package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/profile-sync/internal/domain/entity"
)

var (
	// ErrNoRows is returned by RelationalStore.SelectOne when no row matches.
	ErrNoRows = errors.New("no matching row")
	// ErrPickerCancelled is returned by an ImageSource when the user aborts the picker.
	ErrPickerCancelled = errors.New("picker cancelled")
)

// Row is a single record keyed by column name. A nil value is SQL NULL.
type Row map[string]any

// Filter is an equality match on every listed column.
type Filter map[string]any

// SessionProvider exposes the current session, if any.
type SessionProvider interface {
	Current(ctx context.Context) (*entity.Session, bool)
}

// RelationalStore is the remote record store.
type RelationalStore interface {
	// SelectOne returns exactly one row or ErrNoRows.
	SelectOne(ctx context.Context, table string, filter Filter) (Row, error)
	// Upsert inserts row or, on primary-key conflict, updates only the columns present in row.
	Upsert(ctx context.Context, table string, row Row) error
}

type UploadOptions struct {
	ContentType string
	Overwrite   bool
}

// BlobStore holds uploaded objects.
type BlobStore interface {
	Upload(ctx context.Context, path string, body []byte, opts UploadOptions) error
	// PublicURL returns the canonical, query-free URL for path.
	PublicURL(path string) string
}

// PermissionBroker grants access to the camera or photo library.
type PermissionBroker interface {
	RequestCameraPermission(ctx context.Context) (bool, error)
	RequestLibraryPermission(ctx context.Context) (bool, error)
}

// PickedImage is an image returned by an ImageSource.
type PickedImage struct {
	URI  string
	Data []byte
}

// ImageSource captures or selects an image. Both methods return
// ErrPickerCancelled when the user backs out.
type ImageSource interface {
	CaptureFromCamera(ctx context.Context) (*PickedImage, error)
	PickFromLibrary(ctx context.Context) (*PickedImage, error)
}

// ProfileEventPublisher receives a copy of every profile write that the store accepted.
type ProfileEventPublisher interface {
	PublishProfileUpdated(ctx context.Context, ev ProfileUpdated) error
}

// ProfileUpdated describes one accepted merge-upsert.
type ProfileUpdated struct {
	ProfileID string   `json:"profile_id"`
	Email     string   `json:"email,omitempty"`
	Fields    []string `json:"fields"`
	Row       Row      `json:"row"`
	Source    string   `json:"source"`
}

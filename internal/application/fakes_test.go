package application

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/profile-sync/internal/domain/entity"
	"github.com/oksasatya/profile-sync/internal/domain/repository"
)

// memoryDB is an in-memory RelationalStore with merge-upsert on "id".
type memoryDB struct {
	mu        sync.Mutex
	rows      map[string]repository.Row
	upserts   []repository.Row
	selectErr error
	upsertErr error
	// gate, when set, blocks every Upsert until it receives a value.
	gate chan struct{}
}

func newMemoryDB() *memoryDB {
	return &memoryDB{rows: make(map[string]repository.Row)}
}

func (m *memoryDB) SelectOne(_ context.Context, _ string, filter repository.Filter) (repository.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selectErr != nil {
		return nil, m.selectErr
	}
	id, _ := filter[entity.ColID].(string)
	row, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNoRows
	}
	out := repository.Row{}
	for k, v := range row {
		out[k] = v
	}
	return out, nil
}

func (m *memoryDB) Upsert(ctx context.Context, _ string, row repository.Row) error {
	if m.gate != nil {
		<-m.gate
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	id, _ := row[entity.ColID].(string)
	cur, ok := m.rows[id]
	if !ok {
		cur = repository.Row{}
		m.rows[id] = cur
	}
	copied := repository.Row{}
	for k, v := range row {
		cur[k] = v
		copied[k] = v
	}
	m.upserts = append(m.upserts, copied)
	return nil
}

func (m *memoryDB) seed(row repository.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[row[entity.ColID].(string)] = row
}

func (m *memoryDB) row(id string) repository.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id]
}

func (m *memoryDB) upsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.upserts)
}

// memoryBlobs keeps uploaded objects by path.
type memoryBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (b *memoryBlobs) Upload(_ context.Context, path string, body []byte, opts repository.UploadOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.objects[path] = body
	b.types[path] = opts.ContentType
	return nil
}

func (b *memoryBlobs) PublicURL(path string) string {
	return "https://store/" + strings.TrimPrefix(path, "/")
}

type mockPermissions struct{ mock.Mock }

func (m *mockPermissions) RequestCameraPermission(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockPermissions) RequestLibraryPermission(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

type mockImages struct{ mock.Mock }

func (m *mockImages) CaptureFromCamera(ctx context.Context) (*repository.PickedImage, error) {
	args := m.Called(ctx)
	img, _ := args.Get(0).(*repository.PickedImage)
	return img, args.Error(1)
}

func (m *mockImages) PickFromLibrary(ctx context.Context) (*repository.PickedImage, error) {
	args := m.Called(ctx)
	img, _ := args.Get(0).(*repository.PickedImage)
	return img, args.Error(1)
}

type mockBlobs struct{ mock.Mock }

func (m *mockBlobs) Upload(ctx context.Context, path string, body []byte, opts repository.UploadOptions) error {
	return m.Called(ctx, path, body, opts).Error(0)
}

func (m *mockBlobs) PublicURL(path string) string {
	return m.Called(path).String(0)
}

type staticSessions struct{ sess *entity.Session }

func (s staticSessions) Current(context.Context) (*entity.Session, bool) {
	return s.sess, s.sess != nil
}

type recordingEvents struct {
	mu     sync.Mutex
	events []repository.ProfileUpdated
	err    error
}

func (r *recordingEvents) PublishProfileUpdated(_ context.Context, ev repository.ProfileUpdated) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(w, h), nil))
	return buf.Bytes()
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/profile-sync/internal/application"
	"github.com/oksasatya/profile-sync/internal/domain/apperror"
	"github.com/oksasatya/profile-sync/internal/domain/entity"
	"github.com/oksasatya/profile-sync/internal/domain/repository"
	"github.com/oksasatya/profile-sync/internal/interface/middleware"
	"github.com/oksasatya/profile-sync/pkg/validation"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type memoryDB struct {
	mu        sync.Mutex
	rows      map[string]repository.Row
	upsertErr error
}

func (m *memoryDB) SelectOne(_ context.Context, _ string, filter repository.Filter) (repository.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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

func (m *memoryDB) Upsert(_ context.Context, _ string, row repository.Row) error {
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
	for k, v := range row {
		cur[k] = v
	}
	return nil
}

type memoryBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (b *memoryBlobs) Upload(_ context.Context, path string, body []byte, _ repository.UploadOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[path] = body
	return nil
}

func (b *memoryBlobs) PublicURL(path string) string { return "https://store/" + path }

type fixedPermissions struct{ camera, library bool }

func (p fixedPermissions) RequestCameraPermission(context.Context) (bool, error) {
	return p.camera, nil
}

func (p fixedPermissions) RequestLibraryPermission(context.Context) (bool, error) {
	return p.library, nil
}

type testEnv struct {
	router *gin.Engine
	db     *memoryDB
	blobs  *memoryBlobs
	h      *ProfileHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	db := &memoryDB{rows: map[string]repository.Row{}}
	blobs := &memoryBlobs{objects: map[string][]byte{}}
	store := application.NewProfileStore(db, "", nil, nil)
	h := NewProfileHandler(store, blobs, nil, nil, nil, nil, 1<<20)
	h.Now = func() time.Time { return fixedNow }
	h.PermissionsFor = func(string) repository.PermissionBroker {
		return fixedPermissions{camera: true, library: true}
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if uid := c.GetHeader("X-Test-User"); uid != "" {
			sess := &entity.Session{UserID: uid, Email: uid + "@x.io"}
			c.Set(middleware.CtxUserIDKey, uid)
			c.Request = c.Request.WithContext(middleware.WithSession(c.Request.Context(), sess))
		}
		c.Next()
	})
	r.GET("/profile", h.GetProfile)
	r.PUT("/profile", h.UpdateProfile)
	r.POST("/profile/avatar", h.UploadAvatar)
	r.DELETE("/profile/consent", h.RevokeConsent)
	r.GET("/profiles/search", h.Search)
	return &testEnv{router: r, db: db, blobs: blobs, h: h}
}

func (e *testEnv) do(req *http.Request, user string) (*httptest.ResponseRecorder, map[string]any) {
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func avatarRequest(t *testing.T, source, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("source", source))
	if data != nil {
		fw, err := mw.CreateFormFile(avatarField, filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/profile/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", body)
	return d
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "No session", err: apperror.Precondition("save", application.ErrNoSession), want: http.StatusUnauthorized},
		{name: "Not found", err: apperror.New(apperror.KindNotFound, "get", nil), want: http.StatusNotFound},
		{name: "Denied", err: apperror.New(apperror.KindPermissionDenied, "avatar", nil), want: http.StatusForbidden},
		{name: "Cancelled", err: apperror.New(apperror.KindUserCancelled, "avatar", nil), want: http.StatusNoContent},
		{name: "Store", err: apperror.Store("save", errors.New("down")), want: http.StatusServiceUnavailable},
		{name: "Busy", err: apperror.Precondition("avatar", application.ErrAvatarBusy), want: http.StatusConflict},
		{name: "Invalid image", err: apperror.New(apperror.KindInvalidImage, "avatar", nil), want: http.StatusUnprocessableEntity},
		{name: "Unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestGetProfileStub(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(httptest.NewRequest(http.MethodGet, "/profile", nil), "u1")

	require.Equal(t, http.StatusOK, w.Code)
	d := data(t, body)
	assert.Equal(t, "u1", d["id"])
	assert.Equal(t, "u1@x.io", d["email"])
	assert.Equal(t, "?", d["initials"])
	assert.Equal(t, "u1", d["display_name"])
	assert.NotContains(t, d, "full_name")
	assert.NotContains(t, d, "display_avatar_url")
	assert.Empty(t, env.db.rows, "reading must not create a row")
}

func TestGetProfileWithoutSession(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(httptest.NewRequest(http.MethodGet, "/profile", nil), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	env.db.rows["u1"] = repository.Row{entity.ColID: "u1", entity.ColUsername: "ann"}

	w, body := env.do(jsonRequest(http.MethodPut, "/profile", `{"full_name":" Ann Lee "}`), "u1")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Profile updated successfully!", body["message"])
	d := data(t, body)
	assert.Equal(t, "Ann Lee", d["full_name"])
	assert.Equal(t, "ann", d["username"])
	assert.Equal(t, "AL", d["initials"])
	assert.Equal(t, "Ann Lee", d["display_name"])

	row := env.db.rows["u1"]
	assert.Equal(t, "Ann Lee", row[entity.ColFullName])
	assert.Equal(t, "ann", row[entity.ColUsername])
	assert.NotContains(t, row, entity.ColInstagramHandle)
	assert.Equal(t, fixedNow, row[entity.ColUpdatedAt])
}

func TestUpdateProfileRejectsBadHandle(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(jsonRequest(http.MethodPut, "/profile", `{"username":"not a handle!"}`), "u1")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "username")
	assert.Empty(t, env.db.rows)
}

func TestUpdateProfileStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.db.upsertErr = errors.New("connection refused")

	w, body := env.do(jsonRequest(http.MethodPut, "/profile", `{"full_name":"Ann"}`), "u1")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Failed to update profile. Please try again.", body["message"])
}

func TestUploadAvatar(t *testing.T) {
	env := newTestEnv(t)
	env.db.rows["u1"] = repository.Row{entity.ColID: "u1", entity.ColFullName: "Ann Lee"}

	w, body := env.do(avatarRequest(t, "library", "photo.PNG", pngBytes(t, 30, 20)), "u1")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Profile picture updated successfully!", body["message"])
	d := data(t, body)
	assert.Equal(t, "https://store/u1/avatar.png", d["avatar_url"])
	assert.Equal(t, "image/png", d["content_type"])
	assert.Equal(t, "https://store/u1/avatar.png?t="+strconv.FormatInt(fixedNow.UnixMilli(), 10), d["display_avatar_url"])

	stored, ok := env.blobs.objects["u1/avatar.png"]
	require.True(t, ok)
	img, _, err := image.Decode(bytes.NewReader(stored))
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 20, img.Bounds().Dy())

	row := env.db.rows["u1"]
	assert.Equal(t, "https://store/u1/avatar.png", row[entity.ColAvatarURL])
	assert.Equal(t, "Ann Lee", row[entity.ColFullName])
}

func TestUploadAvatarDenied(t *testing.T) {
	env := newTestEnv(t)
	env.h.PermissionsFor = func(string) repository.PermissionBroker {
		return fixedPermissions{camera: true, library: false}
	}

	w, body := env.do(avatarRequest(t, "library", "photo.png", pngBytes(t, 4, 4)), "u1")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "We need camera roll permissions to change your profile picture.", body["message"])
	assert.Empty(t, env.blobs.objects)
	assert.Empty(t, env.db.rows)
}

func TestUploadAvatarWithoutFileIsCancelled(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(avatarRequest(t, "camera", "", nil), "u1")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, env.blobs.objects)
}

func TestUploadAvatarTooLarge(t *testing.T) {
	env := newTestEnv(t)
	env.h.MaxAvatarBytes = 16

	w, _ := env.do(avatarRequest(t, "library", "photo.png", pngBytes(t, 8, 8)), "u1")

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, env.blobs.objects)
}

func TestUploadAvatarUndecodable(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(avatarRequest(t, "library", "photo.jpg", []byte("not an image")), "u1")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "Failed to upload image. Please try again.", body["message"])
	assert.Empty(t, env.blobs.objects)
}

func TestUploadAvatarRejectsUnknownSource(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(avatarRequest(t, "scanner", "photo.png", pngBytes(t, 4, 4)), "u1")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.blobs.objects)
}

func TestSearchWithoutIndexOrCache(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(httptest.NewRequest(http.MethodGet, "/profiles/search?q=ann", nil), "u1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "search results", body["message"])
	assert.Nil(t, body["meta"])

	w, _ = env.do(httptest.NewRequest(http.MethodGet, "/profiles/search?q=%20", nil), "u1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRevokeConsentWithoutStore(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(httptest.NewRequest(http.MethodDelete, "/profile/consent", nil), "u1")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

package application

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/profile-sync/internal/domain/apperror"
	"github.com/oksasatya/profile-sync/internal/domain/entity"
	"github.com/oksasatya/profile-sync/internal/domain/repository"
)

type stubAvatars struct {
	res  *AvatarResult
	err  error
	reqs []AvatarRequest
}

func (s *stubAvatars) Request(_ context.Context, req AvatarRequest) (*AvatarResult, error) {
	s.reqs = append(s.reqs, req)
	return s.res, s.err
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestEditor(db *memoryDB, avatars AvatarRequester, sess *entity.Session) *ProfileEditor {
	store := NewProfileStore(db, "", nil, nil)
	e := NewProfileEditor(staticSessions{sess: sess}, store, avatars, nil)
	e.Now = func() time.Time { return fixedNow }
	return e
}

func TestProfileEditor_BeginEditPopulatesDraft(t *testing.T) {
	db := newMemoryDB()
	db.seed(repository.Row{entity.ColID: "u1", entity.ColFullName: "Ann", entity.ColAvatarURL: "https://store/u1/avatar.jpg"})
	e := newTestEditor(db, &stubAvatars{}, &ann)

	require.NoError(t, e.BeginEdit(context.Background()))
	assert.True(t, e.Editing())
	assert.Equal(t, Draft{FullName: "Ann", AvatarURL: "https://store/u1/avatar.jpg"}, e.Draft())
	assert.Equal(t, "A", e.Initials())
}

func TestProfileEditor_SaveRefreshesAndLeavesEditMode(t *testing.T) {
	db := newMemoryDB()
	db.seed(repository.Row{entity.ColID: "u1", entity.ColFullName: "Ann"})
	e := newTestEditor(db, &stubAvatars{}, &ann)
	ctx := context.Background()

	require.NoError(t, e.BeginEdit(ctx))
	e.SetFullName("Ann B")
	require.NoError(t, e.Save(ctx))

	assert.False(t, e.Editing())
	assert.Equal(t, "Ann B", *e.Profile().FullName)

	store := NewProfileStore(db, "", nil, nil)
	p, err := store.GetOrCreateProfile(ctx, ann)
	require.NoError(t, err)
	assert.Equal(t, "Ann B", *p.FullName)
	assert.True(t, fixedNow.Equal(*p.UpdatedAt))
}

func TestProfileEditor_FailedSaveKeepsDraftAndEditMode(t *testing.T) {
	db := newMemoryDB()
	db.seed(repository.Row{entity.ColID: "u1", entity.ColFullName: "Ann"})
	e := newTestEditor(db, &stubAvatars{}, &ann)
	ctx := context.Background()

	require.NoError(t, e.BeginEdit(ctx))
	e.SetFullName("Ann C")
	e.SetUsername("annc")
	before := e.Draft()

	db.upsertErr = errors.New("simulated outage")
	err := e.Save(ctx)

	assert.ErrorIs(t, err, apperror.ErrStore)
	assert.True(t, e.Editing())
	assert.Equal(t, before, e.Draft())
	assert.Equal(t, "Ann C", e.Draft().FullName)
	assert.Equal(t, "Ann", *e.Profile().FullName)
	assert.Equal(t, "Failed to update profile. Please try again.", SaveNotice(err).Message)

	// The same draft goes through once the store recovers.
	db.upsertErr = nil
	require.NoError(t, e.Save(ctx))
	assert.Equal(t, "Ann C", *e.Profile().FullName)
}

func TestProfileEditor_UntouchedAbsentFieldsAreNotWritten(t *testing.T) {
	db := newMemoryDB()
	db.seed(repository.Row{entity.ColID: "u1", entity.ColFullName: "Ann"})
	e := newTestEditor(db, &stubAvatars{}, &ann)
	ctx := context.Background()

	require.NoError(t, e.BeginEdit(ctx))
	e.SetInstagramHandle("")
	require.NoError(t, e.Save(ctx))

	written := db.upserts[len(db.upserts)-1]
	assert.Equal(t, "Ann", written[entity.ColFullName])
	assert.Equal(t, "", written[entity.ColInstagramHandle])
	assert.NotContains(t, written, entity.ColUsername)
	assert.NotContains(t, written, entity.ColAvatarURL)
}

func TestProfileEditor_SaveWithoutSession(t *testing.T) {
	db := newMemoryDB()
	e := newTestEditor(db, &stubAvatars{}, nil)

	err := e.Save(context.Background())
	assert.ErrorIs(t, err, apperror.ErrPrecondition)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Zero(t, db.upsertCount())
	assert.Equal(t, "You need to sign in to update your profile.", SaveNotice(err).Message)
}

func TestProfileEditor_SaveOutsideEditMode(t *testing.T) {
	e := newTestEditor(newMemoryDB(), &stubAvatars{}, &ann)
	err := e.Save(context.Background())
	assert.ErrorIs(t, err, ErrNotEditing)
}

func TestProfileEditor_NoSessionIsNoOp(t *testing.T) {
	avatars := &stubAvatars{}
	e := newTestEditor(newMemoryDB(), avatars, nil)
	ctx := context.Background()

	_, err := e.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, e.BeginEdit(ctx), ErrNoSession)
	_, err = e.ChangeAvatar(ctx, entity.SourceLibrary)
	assert.ErrorIs(t, err, ErrNoSession)

	assert.False(t, e.Editing())
	assert.Empty(t, avatars.reqs)
}

func TestProfileEditor_ChangeAvatarAutoSaves(t *testing.T) {
	db := newMemoryDB()
	db.seed(repository.Row{entity.ColID: "u1", entity.ColFullName: "Ann", entity.ColUsername: "ann"})
	avatars := &stubAvatars{res: &AvatarResult{URL: "https://store/u1/avatar.jpg", Path: "u1/avatar.jpg"}}
	e := newTestEditor(db, avatars, &ann)
	ctx := context.Background()

	require.NoError(t, e.BeginEdit(ctx))
	e.SetFullName("Ann Draft")
	change, err := e.ChangeAvatar(ctx, entity.SourceLibrary)
	require.NoError(t, err)
	require.NoError(t, change.AutoSave.Wait(ctx))

	row := db.row("u1")
	assert.Equal(t, "https://store/u1/avatar.jpg", row[entity.ColAvatarURL])
	assert.Equal(t, fixedNow, row[entity.ColUpdatedAt])
	// Draft edits are not part of the auto-save.
	assert.Equal(t, "Ann", row[entity.ColFullName])
	assert.Equal(t, "ann", row[entity.ColUsername])

	assert.Equal(t, "https://store/u1/avatar.jpg", e.Draft().AvatarURL)
	assert.Equal(t, "https://store/u1/avatar.jpg?t="+strconv.FormatInt(fixedNow.UnixMilli(), 10), e.DisplayAvatarURL(fixedNow))
	assert.True(t, e.Editing())
}

func TestProfileEditor_AutoSaveOutlivesCallerContext(t *testing.T) {
	db := newMemoryDB()
	db.gate = make(chan struct{})
	avatars := &stubAvatars{res: &AvatarResult{URL: "https://store/u1/avatar.png"}}
	e := newTestEditor(db, avatars, &ann)

	ctx, cancel := context.WithCancel(context.Background())
	change, err := e.ChangeAvatar(ctx, entity.SourceCamera)
	require.NoError(t, err)
	cancel()
	e.Close()

	db.gate <- struct{}{}
	require.NoError(t, change.AutoSave.Wait(context.Background()))
	assert.Equal(t, "https://store/u1/avatar.png", db.row("u1")[entity.ColAvatarURL])
}

func TestProfileEditor_ExplicitSaveAfterAutoSaveObservesIt(t *testing.T) {
	db := newMemoryDB()
	avatars := &stubAvatars{res: &AvatarResult{URL: "https://store/u1/avatar.jpg"}}
	e := newTestEditor(db, avatars, &ann)
	ctx := context.Background()

	require.NoError(t, e.BeginEdit(ctx))
	_, err := e.ChangeAvatar(ctx, entity.SourceLibrary)
	require.NoError(t, err)
	e.SetFullName("Ann")
	require.NoError(t, e.Save(ctx))

	require.Equal(t, 2, db.upsertCount())
	assert.Equal(t, "https://store/u1/avatar.jpg", db.row("u1")[entity.ColAvatarURL])
	assert.Equal(t, "https://store/u1/avatar.jpg", *e.Profile().AvatarURL)
}

func TestProfileEditor_SaveKeepsAvatarFromConcurrentAutoSave(t *testing.T) {
	db := newMemoryDB()
	db.seed(repository.Row{entity.ColID: "u1", entity.ColFullName: "Ann", entity.ColAvatarURL: "https://store/u1/avatar.jpg"})
	store := NewProfileStore(db, "", nil, nil)
	ctx := context.Background()

	names := NewProfileEditor(staticSessions{sess: &ann}, store, &stubAvatars{}, nil)
	names.Now = func() time.Time { return fixedNow }
	require.NoError(t, names.BeginEdit(ctx))
	assert.Equal(t, "https://store/u1/avatar.jpg", names.Draft().AvatarURL)

	avatars := NewProfileEditor(staticSessions{sess: &ann}, store,
		&stubAvatars{res: &AvatarResult{URL: "https://store/u1/avatar.png"}}, nil)
	avatars.Now = func() time.Time { return fixedNow.Add(time.Second) }
	change, err := avatars.ChangeAvatar(ctx, entity.SourceLibrary)
	require.NoError(t, err)
	require.NoError(t, change.AutoSave.Wait(ctx))
	require.Equal(t, "https://store/u1/avatar.png", db.row("u1")[entity.ColAvatarURL])

	names.SetFullName("Ann B")
	require.NoError(t, names.Save(ctx))

	row := db.row("u1")
	assert.Equal(t, "Ann B", row[entity.ColFullName])
	assert.Equal(t, "https://store/u1/avatar.png", row[entity.ColAvatarURL])
	assert.NotContains(t, db.upserts[len(db.upserts)-1], entity.ColAvatarURL)
	assert.Equal(t, "https://store/u1/avatar.png", *names.Profile().AvatarURL)
}

func TestProfileEditor_FailedAvatarKeepsPriorAvatar(t *testing.T) {
	db := newMemoryDB()
	db.seed(repository.Row{entity.ColID: "u1", entity.ColAvatarURL: "https://store/u1/avatar.png"})
	avatars := &stubAvatars{err: apperror.Store("request avatar", errors.New("upload failed"))}
	e := newTestEditor(db, avatars, &ann)
	ctx := context.Background()

	require.NoError(t, e.BeginEdit(ctx))
	_, err := e.ChangeAvatar(ctx, entity.SourceLibrary)
	assert.ErrorIs(t, err, apperror.ErrStore)

	assert.Equal(t, "https://store/u1/avatar.png", e.Draft().AvatarURL)
	assert.Equal(t, "https://store/u1/avatar.png", *e.Profile().AvatarURL)
	assert.Zero(t, db.upsertCount())
	require.Len(t, avatars.reqs, 1)
	assert.Equal(t, "https://store/u1/avatar.png", avatars.reqs[0].CurrentURL)
}

func TestProfileEditor_LoadFallsBackToStub(t *testing.T) {
	db := newMemoryDB()
	db.selectErr = errors.New("timeout")
	e := newTestEditor(db, &stubAvatars{}, &ann)

	p, err := e.Load(context.Background())
	assert.ErrorIs(t, err, apperror.ErrStore)
	assert.Equal(t, &entity.Profile{ID: "u1", Email: "ann@x.com"}, p)
	assert.Equal(t, "?", e.Initials())
	assert.Empty(t, e.DisplayAvatarURL(fixedNow))
}

func TestProfileEditor_CloseDiscardsDraft(t *testing.T) {
	db := newMemoryDB()
	e := newTestEditor(db, &stubAvatars{}, &ann)
	ctx := context.Background()

	require.NoError(t, e.BeginEdit(ctx))
	e.SetFullName("Unsaved")
	e.Close()

	assert.Equal(t, ModeViewing, e.Mode())
	assert.Equal(t, Draft{}, e.Draft())
	assert.Zero(t, db.upsertCount())
	e.SetFullName("ignored")
	assert.Equal(t, Draft{}, e.Draft())
}

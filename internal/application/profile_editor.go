package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/profile-sync/internal/domain/apperror"
	"github.com/oksasatya/profile-sync/internal/domain/entity"
	"github.com/oksasatya/profile-sync/internal/domain/repository"
)

var (
	ErrNoSession  = errors.New("no active session")
	ErrNotEditing = errors.New("editor is not in edit mode")
)

// ProfileStorage is the part of ProfileStore the editor depends on.
type ProfileStorage interface {
	GetOrCreateProfile(ctx context.Context, sess entity.Session) (*entity.Profile, error)
	SaveProfile(ctx context.Context, p *entity.Profile) error
	SaveProfileAsync(ctx context.Context, p *entity.Profile, origin string) *PendingWrite
}

// AvatarRequester runs one avatar attempt.
type AvatarRequester interface {
	Request(ctx context.Context, req AvatarRequest) (*AvatarResult, error)
}

type EditorMode string

const (
	ModeViewing EditorMode = "viewing"
	ModeEditing EditorMode = "editing"
)

// Draft holds the editable fields as plain strings. Absent values show as "".
type Draft struct {
	FullName        string `json:"full_name"`
	Username        string `json:"username"`
	InstagramHandle string `json:"instagram_handle"`
	AvatarURL       string `json:"avatar_url"`
}

// AvatarChange is the outcome of a successful ChangeAvatar. AutoSave resolves
// when the independent avatar write has landed; callers may ignore it.
type AvatarChange struct {
	Result   *AvatarResult
	AutoSave *PendingWrite
}

// ProfileEditor drives one editing session for the current user. It is owned
// by a single goroutine and does no locking of its own.
type ProfileEditor struct {
	Sessions repository.SessionProvider
	Store    ProfileStorage
	Avatars  AvatarRequester
	Logger   *logrus.Logger
	Now      func() time.Time

	profile *entity.Profile
	mode    EditorMode
	draft   Draft
	touched map[string]bool
}

func NewProfileEditor(sessions repository.SessionProvider, store ProfileStorage, avatars AvatarRequester, logger *logrus.Logger) *ProfileEditor {
	return &ProfileEditor{
		Sessions: sessions,
		Store:    store,
		Avatars:  avatars,
		Logger:   logger,
		Now:      time.Now,
		mode:     ModeViewing,
	}
}

// Load reads the current profile. A store failure still leaves the stub in
// place and is returned for reporting.
func (e *ProfileEditor) Load(ctx context.Context) (*entity.Profile, error) {
	sess, ok := e.session(ctx)
	if !ok {
		return nil, apperror.Precondition("load profile", ErrNoSession)
	}
	p, err := e.Store.GetOrCreateProfile(ctx, sess)
	if p != nil {
		e.profile = p
	}
	if err != nil {
		e.logWarn(err, sess.UserID, "profile load degraded to stub")
	}
	return e.Profile(), err
}

// BeginEdit enters edit mode with a fresh draft taken from the loaded profile.
func (e *ProfileEditor) BeginEdit(ctx context.Context) error {
	if _, ok := e.session(ctx); !ok {
		return apperror.Precondition("begin edit", ErrNoSession)
	}
	if e.profile == nil {
		if _, err := e.Load(ctx); err != nil && e.profile == nil {
			return err
		}
	}
	e.draft = Draft{
		FullName:        entity.Deref(e.profile.FullName),
		Username:        entity.Deref(e.profile.Username),
		InstagramHandle: entity.Deref(e.profile.InstagramHandle),
		AvatarURL:       entity.Deref(e.profile.AvatarURL),
	}
	e.touched = make(map[string]bool)
	e.mode = ModeEditing
	return nil
}

func (e *ProfileEditor) SetFullName(v string) { e.set(entity.ColFullName, &e.draft.FullName, v) }

func (e *ProfileEditor) SetUsername(v string) { e.set(entity.ColUsername, &e.draft.Username, v) }

func (e *ProfileEditor) SetInstagramHandle(v string) {
	e.set(entity.ColInstagramHandle, &e.draft.InstagramHandle, v)
}

func (e *ProfileEditor) set(col string, field *string, v string) {
	if e.mode != ModeEditing {
		return
	}
	*field = v
	e.touched[col] = true
}

// ChangeAvatar runs the avatar pipeline and, once the image is published,
// persists avatar_url and updated_at straight away, independent of Save. The
// auto-save is not tied to ctx and can land after the editor is closed.
func (e *ProfileEditor) ChangeAvatar(ctx context.Context, source entity.ImageSourceKind) (*AvatarChange, error) {
	sess, ok := e.session(ctx)
	if !ok {
		return nil, apperror.Precondition("change avatar", ErrNoSession)
	}
	if e.profile == nil {
		e.profile = entity.StubProfile(sess)
	}

	res, err := e.Avatars.Request(ctx, AvatarRequest{
		UserID:     sess.UserID,
		Source:     source,
		CurrentURL: entity.Deref(e.profile.AvatarURL),
	})
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	rec := &entity.Profile{
		ID:        sess.UserID,
		Email:     sess.Email,
		AvatarURL: entity.StringPtr(res.URL),
		UpdatedAt: &now,
	}
	pending := e.Store.SaveProfileAsync(context.WithoutCancel(ctx), rec, OriginAvatarAutoSave)

	e.profile.AvatarURL = entity.StringPtr(res.URL)
	e.profile.UpdatedAt = &now
	if e.mode == ModeEditing {
		e.draft.AvatarURL = res.URL
		e.touched[entity.ColAvatarURL] = true
	}
	return &AvatarChange{Result: res, AutoSave: pending}, nil
}

// Save writes the draft, refreshes from the store and leaves edit mode. On
// failure the draft and edit mode are left exactly as they were.
func (e *ProfileEditor) Save(ctx context.Context) error {
	const op = "save profile"
	sess, ok := e.session(ctx)
	if !ok {
		return apperror.Precondition(op, ErrNoSession)
	}
	if e.mode != ModeEditing {
		return apperror.Precondition(op, ErrNotEditing)
	}

	payload := e.payload(sess)
	if err := e.Store.SaveProfile(ctx, payload); err != nil {
		e.logWarn(err, sess.UserID, "profile save failed, draft kept")
		return err
	}

	fresh, err := e.Store.GetOrCreateProfile(ctx, sess)
	if err != nil || fresh == nil {
		e.logWarn(err, sess.UserID, "refresh after save failed, using saved fields")
		fresh = merge(e.profile, payload)
	}
	e.profile = fresh
	e.mode = ModeViewing
	e.touched = nil
	return nil
}

// Close leaves edit mode and discards the draft.
func (e *ProfileEditor) Close() {
	e.mode = ModeViewing
	e.draft = Draft{}
	e.touched = nil
}

// payload includes every text field that was present on the profile or that
// the user touched. Untouched absent fields stay absent. avatar_url goes out
// only when this editor changed it, so an auto-save from another editor is
// never overwritten with the URL seen at load time.
func (e *ProfileEditor) payload(sess entity.Session) *entity.Profile {
	now := e.now().UTC()
	p := &entity.Profile{ID: sess.UserID, Email: sess.Email, UpdatedAt: &now}
	base := e.profile
	if base == nil {
		base = entity.StubProfile(sess)
	}
	pick := func(col string, had *string, v string) *string {
		if had != nil || e.touched[col] {
			return entity.StringPtr(v)
		}
		return nil
	}
	p.FullName = pick(entity.ColFullName, base.FullName, e.draft.FullName)
	p.Username = pick(entity.ColUsername, base.Username, e.draft.Username)
	p.InstagramHandle = pick(entity.ColInstagramHandle, base.InstagramHandle, e.draft.InstagramHandle)
	if e.touched[entity.ColAvatarURL] {
		p.AvatarURL = entity.StringPtr(e.draft.AvatarURL)
	}
	return p
}

func merge(base, patch *entity.Profile) *entity.Profile {
	out := base.Clone()
	if out == nil {
		return patch.Clone()
	}
	if patch.FullName != nil {
		out.FullName = entity.StringPtr(*patch.FullName)
	}
	if patch.Username != nil {
		out.Username = entity.StringPtr(*patch.Username)
	}
	if patch.InstagramHandle != nil {
		out.InstagramHandle = entity.StringPtr(*patch.InstagramHandle)
	}
	if patch.AvatarURL != nil {
		out.AvatarURL = entity.StringPtr(*patch.AvatarURL)
	}
	if patch.UpdatedAt != nil {
		t := *patch.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

func (e *ProfileEditor) Mode() EditorMode { return e.mode }

func (e *ProfileEditor) Editing() bool { return e.mode == ModeEditing }

func (e *ProfileEditor) Draft() Draft { return e.draft }

// Profile returns a copy of the last loaded or saved profile.
func (e *ProfileEditor) Profile() *entity.Profile { return e.profile.Clone() }

// Initials is the placeholder shown when there is no avatar.
func (e *ProfileEditor) Initials() string {
	if e.profile == nil {
		return entity.Initials("")
	}
	return entity.Initials(entity.Deref(e.profile.FullName))
}

func (e *ProfileEditor) DisplayName() string {
	if e.profile == nil {
		return entity.DisplayName("", "")
	}
	return entity.DisplayName(entity.Deref(e.profile.FullName), e.profile.Email)
}

// DisplayAvatarURL is the avatar URL with a fresh cache-busting token, or ""
// when the profile has no avatar.
func (e *ProfileEditor) DisplayAvatarURL(now time.Time) string {
	if e.profile == nil {
		return ""
	}
	return DisplayURL(entity.Deref(e.profile.AvatarURL), now)
}

func (e *ProfileEditor) session(ctx context.Context) (entity.Session, bool) {
	if e.Sessions == nil {
		return entity.Session{}, false
	}
	s, ok := e.Sessions.Current(ctx)
	if !ok || s == nil || s.UserID == "" {
		return entity.Session{}, false
	}
	return *s, true
}

func (e *ProfileEditor) logWarn(err error, userID, msg string) {
	if e.Logger == nil {
		return
	}
	e.Logger.WithError(err).WithField("user_id", userID).Warn(msg)
}

func (e *ProfileEditor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

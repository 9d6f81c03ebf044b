package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/profile-sync/internal/domain/apperror"
	"github.com/oksasatya/profile-sync/internal/domain/entity"
	"github.com/oksasatya/profile-sync/internal/domain/repository"
)

const DefaultProfilesTable = "profiles"

// Write origins, carried on published events and metrics.
const (
	OriginExplicitSave   = "explicit_save"
	OriginAvatarAutoSave = "avatar_autosave"
)

// ProfileStore fetches-or-creates profile records and persists edits with
// merge-upsert semantics. Writes to the same profile id are serialized in the
// order they were issued.
type ProfileStore struct {
	DB     repository.RelationalStore
	Table  string
	Events repository.ProfileEventPublisher
	Logger *logrus.Logger

	writes *writeQueue
}

func NewProfileStore(db repository.RelationalStore, table string, events repository.ProfileEventPublisher, logger *logrus.Logger) *ProfileStore {
	if table == "" {
		table = DefaultProfilesTable
	}
	return &ProfileStore{
		DB:     db,
		Table:  table,
		Events: events,
		Logger: logger,
		writes: newWriteQueue(),
	}
}

// GetOrCreateProfile looks up the row for s.UserID. A missing row yields a stub
// and no error. Any other failure yields the same stub together with a store
// error, so callers can keep going with the stub.
func (s *ProfileStore) GetOrCreateProfile(ctx context.Context, sess entity.Session) (*entity.Profile, error) {
	stub := entity.StubProfile(sess)
	if sess.UserID == "" {
		return stub, apperror.Precondition("get profile", errors.New("session has no user id"))
	}

	row, err := s.DB.SelectOne(ctx, s.Table, repository.Filter{entity.ColID: sess.UserID})
	if errors.Is(err, repository.ErrNoRows) {
		profileReadsTotal.WithLabelValues("stub").Inc()
		return stub, nil
	}
	if err != nil {
		profileReadsTotal.WithLabelValues("error").Inc()
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", sess.UserID).Warn("profile lookup failed, using stub")
		}
		return stub, apperror.Store("get profile", err)
	}

	p, err := profileFromRow(row, sess)
	if err != nil {
		profileReadsTotal.WithLabelValues("error").Inc()
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", sess.UserID).Warn("profile row malformed, using stub")
		}
		return stub, apperror.Store("get profile", err)
	}
	profileReadsTotal.WithLabelValues("found").Inc()
	return p, nil
}

// SaveProfile merge-upserts p and waits for the result. Only fields present on
// p are written; absent fields keep their stored values. The caller sets UpdatedAt.
func (s *ProfileStore) SaveProfile(ctx context.Context, p *entity.Profile) error {
	w := s.SaveProfileAsync(ctx, p, OriginExplicitSave)
	if err := w.Wait(ctx); err != nil {
		if apperror.KindOf(err) == apperror.KindUnknown {
			return apperror.Store("save profile", err)
		}
		return err
	}
	return nil
}

// SaveProfileAsync queues the write behind any earlier write for the same id
// and returns immediately. The write runs with ctx, so callers that want it to
// outlive their own cancellation should pass a detached context.
func (s *ProfileStore) SaveProfileAsync(ctx context.Context, p *entity.Profile, origin string) *PendingWrite {
	if p == nil || p.ID == "" {
		return resolvedWrite(apperror.Precondition("save profile", errors.New("profile id is required")))
	}
	row := rowFromProfile(p)
	email := p.Email
	w := newPendingWrite()
	s.writes.submit(p.ID, func() {
		w.resolve(s.upsert(ctx, row, email, origin))
	})
	return w
}

func (s *ProfileStore) upsert(ctx context.Context, row repository.Row, email, origin string) error {
	id, _ := row[entity.ColID].(string)
	fields := rowFields(row)
	log := s.logEntry(id, origin)

	if err := s.DB.Upsert(ctx, s.Table, row); err != nil {
		profileWritesTotal.WithLabelValues(origin, "error").Inc()
		if log != nil {
			log.WithError(err).WithField("fields", fields).Error("profile upsert failed")
		}
		return apperror.Store("save profile", err)
	}
	profileWritesTotal.WithLabelValues(origin, "ok").Inc()
	if log != nil {
		log.WithField("fields", fields).Debug("profile upserted")
	}

	if s.Events != nil {
		ev := repository.ProfileUpdated{ProfileID: id, Email: email, Fields: fields, Row: row, Source: origin}
		if err := s.Events.PublishProfileUpdated(ctx, ev); err != nil && log != nil {
			log.WithError(err).Warn("publish profile.updated failed")
		}
	}
	return nil
}

func (s *ProfileStore) logEntry(id, origin string) *logrus.Entry {
	if s.Logger == nil {
		return nil
	}
	return s.Logger.WithFields(logrus.Fields{"user_id": id, "origin": origin})
}

func rowFromProfile(p *entity.Profile) repository.Row {
	row := repository.Row{entity.ColID: p.ID}
	setIfPresent := func(col string, v *string) {
		if v != nil {
			row[col] = *v
		}
	}
	setIfPresent(entity.ColFullName, p.FullName)
	setIfPresent(entity.ColUsername, p.Username)
	setIfPresent(entity.ColInstagramHandle, p.InstagramHandle)
	setIfPresent(entity.ColAvatarURL, p.AvatarURL)
	if p.UpdatedAt != nil {
		row[entity.ColUpdatedAt] = p.UpdatedAt.UTC()
	}
	return row
}

// rowFields lists the non-key columns of row in stable order.
func rowFields(row repository.Row) []string {
	out := make([]string, 0, len(row))
	for k := range row {
		if k != entity.ColID {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// profileFromRow maps a stored row onto a Profile. ID and Email always come
// from the session.
func profileFromRow(row repository.Row, sess entity.Session) (*entity.Profile, error) {
	p := entity.StubProfile(sess)
	var err error
	if p.FullName, err = optionalString(row, entity.ColFullName); err != nil {
		return nil, err
	}
	if p.Username, err = optionalString(row, entity.ColUsername); err != nil {
		return nil, err
	}
	if p.InstagramHandle, err = optionalString(row, entity.ColInstagramHandle); err != nil {
		return nil, err
	}
	if p.AvatarURL, err = optionalString(row, entity.ColAvatarURL); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = optionalTime(row, entity.ColUpdatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

func optionalString(row repository.Row, col string) (*string, error) {
	v, ok := row[col]
	if !ok || v == nil {
		return nil, nil
	}
	switch x := v.(type) {
	case string:
		return entity.StringPtr(x), nil
	case *string:
		if x == nil {
			return nil, nil
		}
		return entity.StringPtr(*x), nil
	case []byte:
		return entity.StringPtr(string(x)), nil
	default:
		return nil, fmt.Errorf("column %s: unexpected type %T", col, v)
	}
}

func optionalTime(row repository.Row, col string) (*time.Time, error) {
	v, ok := row[col]
	if !ok || v == nil {
		return nil, nil
	}
	switch x := v.(type) {
	case time.Time:
		t := x.UTC()
		return &t, nil
	case *time.Time:
		if x == nil {
			return nil, nil
		}
		t := x.UTC()
		return &t, nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, x)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
		t = t.UTC()
		return &t, nil
	default:
		return nil, fmt.Errorf("column %s: unexpected type %T", col, v)
	}
}

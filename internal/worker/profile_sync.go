// Package worker consumes profile.updated events published by the profile store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/profile-sync/config"
	"github.com/oksasatya/profile-sync/internal/domain/entity"
	"github.com/oksasatya/profile-sync/internal/domain/repository"
	"github.com/oksasatya/profile-sync/internal/infrastructure/rabbitmq"
	"github.com/oksasatya/profile-sync/internal/infrastructure/search"
	"github.com/oksasatya/profile-sync/pkg/mailer"
	mailtpl "github.com/oksasatya/profile-sync/pkg/mailer/templates"
)

const sendTimeout = 15 * time.Second

// Indexer mirrors a profile write into the search index.
type Indexer interface {
	Apply(ctx context.Context, ev repository.ProfileUpdated) error
}

// Outcome tells the consumer what to do with a delivery.
type Outcome int

const (
	Ack Outcome = iota
	// Requeue is used for transient failures.
	Requeue
	// Drop discards a message that can never succeed.
	Drop
)

// ProfileSync indexes every profile write and, when Mail is set, tells the
// owner which fields changed.
type ProfileSync struct {
	Index  Indexer
	Mail   mailer.Sender
	Config *config.Config
	Logger *logrus.Logger
	Now    func() time.Time
}

// Handle processes one message body.
func (w *ProfileSync) Handle(ctx context.Context, body []byte) Outcome {
	ev, err := rabbitmq.DecodeProfileUpdated(body)
	if err != nil {
		w.log().WithError(err).Warn("bad profile.updated message")
		return Drop
	}
	log := w.log().WithFields(logrus.Fields{"user_id": ev.ProfileID, "origin": ev.Source})

	if w.Index != nil {
		if err := w.Index.Apply(ctx, ev); err != nil {
			if errors.Is(err, search.ErrRejected) {
				log.WithError(err).Error("profile index rejected update, dropping")
				return Drop
			}
			log.WithError(err).Warn("profile index update failed")
			return Requeue
		}
	}

	job, ok := w.notification(ev)
	if !ok {
		return Ack
	}
	c, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := w.Mail.SendJob(c, job); err != nil {
		// The index is already updated; a resend would only repeat the mail.
		log.WithError(err).Warn("profile updated mail failed")
		return Ack
	}
	log.Debug("profile updated mail sent")
	return Ack
}

// notification builds the profile_updated mail for ev, if one should be sent.
func (w *ProfileSync) notification(ev repository.ProfileUpdated) (mailer.EmailJob, bool) {
	if w.Mail == nil || w.Config == nil || ev.Email == "" {
		return mailer.EmailJob{}, false
	}
	changes := Changes(ev)
	if len(changes) == 0 {
		return mailer.EmailJob{}, false
	}
	name, _ := ev.Row[entity.ColFullName].(string)
	opts := []mailtpl.Option{mailtpl.WithTime(w.now())}
	if url, ok := changes[entity.ColAvatarURL]; ok {
		opts = append(opts, mailtpl.WithAvatarURL(url))
	}
	return mailer.EmailJob{
		To:       ev.Email,
		Template: mailtpl.ProfileUpdated,
		Data:     mailtpl.NewProfileUpdatedData(w.Config, name, ev.Email, changes, opts...),
	}, true
}

// Changes lists the user-visible columns written by ev with their new values.
func Changes(ev repository.ProfileUpdated) map[string]string {
	out := make(map[string]string, len(ev.Fields))
	for _, f := range ev.Fields {
		if f == entity.ColUpdatedAt || f == entity.ColID {
			continue
		}
		v, ok := ev.Row[f]
		if !ok {
			continue
		}
		if v == nil {
			out[f] = ""
			continue
		}
		out[f] = fmt.Sprint(v)
	}
	return out
}

func (w *ProfileSync) log() *logrus.Logger {
	if w.Logger == nil {
		return logrus.StandardLogger()
	}
	return w.Logger
}

func (w *ProfileSync) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

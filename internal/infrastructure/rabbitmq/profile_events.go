package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oksasatya/profile-sync/internal/domain/repository"
	"github.com/oksasatya/profile-sync/pkg/helpers"
)

const publishTimeout = 3 * time.Second

// ProfileEvents publishes profile.updated messages on a durable queue.
type ProfileEvents struct {
	pub *helpers.RabbitPublisher
}

func NewProfileEvents(pub *helpers.RabbitPublisher) *ProfileEvents {
	return &ProfileEvents{pub: pub}
}

func (p *ProfileEvents) PublishProfileUpdated(ctx context.Context, ev repository.ProfileUpdated) error {
	if p == nil || p.pub == nil {
		return nil
	}
	c, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return p.pub.PublishJSON(c, ev)
}

// DecodeProfileUpdated parses a message body produced by PublishProfileUpdated.
func DecodeProfileUpdated(body []byte) (repository.ProfileUpdated, error) {
	var ev repository.ProfileUpdated
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("decode profile.updated: %w", err)
	}
	if ev.ProfileID == "" {
		return ev, errors.New("decode profile.updated: missing profile_id")
	}
	return ev, nil
}

var _ repository.ProfileEventPublisher = (*ProfileEvents)(nil)

package rabbitmq

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/profile-sync/internal/domain/repository"
)

func TestDecodeProfileUpdated(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	body, err := json.Marshal(repository.ProfileUpdated{
		ProfileID: "u1",
		Email:     "ann@x.com",
		Fields:    []string{"avatar_url", "updated_at"},
		Row:       repository.Row{"id": "u1", "avatar_url": "https://store/u1/avatar.jpg", "updated_at": at},
		Source:    "avatar_autosave",
	})
	require.NoError(t, err)

	ev, err := DecodeProfileUpdated(body)
	require.NoError(t, err)
	assert.Equal(t, "u1", ev.ProfileID)
	assert.Equal(t, []string{"avatar_url", "updated_at"}, ev.Fields)
	assert.Equal(t, "https://store/u1/avatar.jpg", ev.Row["avatar_url"])
	assert.Equal(t, "2024-06-01T12:00:00Z", ev.Row["updated_at"])
}

func TestDecodeProfileUpdatedRejectsGarbage(t *testing.T) {
	_, err := DecodeProfileUpdated([]byte("{"))
	assert.Error(t, err)
	_, err = DecodeProfileUpdated([]byte(`{"fields":["full_name"]}`))
	assert.Error(t, err)
}

func TestNilPublisherIsNoop(t *testing.T) {
	var p *ProfileEvents
	assert.NoError(t, p.PublishProfileUpdated(context.Background(), repository.ProfileUpdated{ProfileID: "u1"}))
	assert.NoError(t, NewProfileEvents(nil).PublishProfileUpdated(context.Background(), repository.ProfileUpdated{ProfileID: "u1"}))
}

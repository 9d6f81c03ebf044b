package redisstore

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/profile-sync/internal/domain/repository"
	"github.com/oksasatya/profile-sync/pkg/helpers"
)

const (
	consentCamera  = "camera"
	consentLibrary = "library"
)

// ConsentKey is the redis hash holding a user's media permissions.
func ConsentKey(userID string) string { return "user:consent:" + userID }

// Consent mirrors the hash fields. A missing field means not granted.
type Consent struct {
	Camera  bool `json:"camera"`
	Library bool `json:"library"`
}

type ConsentStore struct {
	rdb *redis.Client
}

func NewConsentStore(rdb *redis.Client) *ConsentStore {
	return &ConsentStore{rdb: rdb}
}

// Set updates only the grants that are non-nil.
func (s *ConsentStore) Set(ctx context.Context, userID string, camera, library *bool) error {
	fields := map[string]any{}
	if camera != nil {
		fields[consentCamera] = strconv.FormatBool(*camera)
	}
	if library != nil {
		fields[consentLibrary] = strconv.FormatBool(*library)
	}
	if len(fields) == 0 {
		return nil
	}
	return s.rdb.HSet(ctx, ConsentKey(userID), fields).Err()
}

// Clear revokes every grant for userID.
func (s *ConsentStore) Clear(ctx context.Context, userID string) error {
	return helpers.RedisDel(ctx, s.rdb, ConsentKey(userID))
}

func (s *ConsentStore) Get(ctx context.Context, userID string) (Consent, error) {
	data, err := s.rdb.HGetAll(ctx, ConsentKey(userID)).Result()
	if err != nil {
		return Consent{}, err
	}
	return consentFromHash(data), nil
}

func consentFromHash(data map[string]string) Consent {
	granted := func(k string) bool {
		b, err := strconv.ParseBool(data[k])
		return err == nil && b
	}
	return Consent{Camera: granted(consentCamera), Library: granted(consentLibrary)}
}

// ConsentBroker answers permission requests from stored consent. Each request
// reads redis again; nothing is cached between invocations.
type ConsentBroker struct {
	Store  *ConsentStore
	UserID string
}

func (b ConsentBroker) RequestCameraPermission(ctx context.Context) (bool, error) {
	c, err := b.Store.Get(ctx, b.UserID)
	return c.Camera, err
}

func (b ConsentBroker) RequestLibraryPermission(ctx context.Context) (bool, error) {
	c, err := b.Store.Get(ctx, b.UserID)
	return c.Library, err
}

var _ repository.PermissionBroker = ConsentBroker{}

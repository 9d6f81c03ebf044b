package router

import (
	"github.com/oksasatya/profile-sync/internal/application"
	"github.com/oksasatya/profile-sync/internal/container"
	"github.com/oksasatya/profile-sync/internal/infrastructure/gcs"
	pginfra "github.com/oksasatya/profile-sync/internal/infrastructure/postgres"
	"github.com/oksasatya/profile-sync/internal/infrastructure/rabbitmq"
	"github.com/oksasatya/profile-sync/internal/infrastructure/redisstore"
	"github.com/oksasatya/profile-sync/internal/infrastructure/search"
	handlers "github.com/oksasatya/profile-sync/internal/interface/http"
	"github.com/oksasatya/profile-sync/internal/router/modules"
)

type ProfileModuleDeps struct {
	Store   *application.ProfileStore
	Handler *handlers.ProfileHandler
}

func buildProfileDeps() ProfileModuleDeps {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	store := application.NewProfileStore(
		pginfra.NewRelationalStore(container.GetPGPool()),
		cfg.ProfilesTable,
		rabbitmq.NewProfileEvents(container.GetRabbitPub()),
		logger,
	)

	handler := handlers.NewProfileHandler(
		store,
		gcs.NewBlobStore(container.GetGCS(), cfg.GCSBucket, cfg.GCSPublicBaseURL),
		redisstore.NewConsentStore(container.GetRedis()),
		search.NewProfileIndex(container.GetES(), cfg.ESProfilesIndex),
		container.GetRedis(),
		logger,
		cfg.AvatarMaxBytes,
	)

	return ProfileModuleDeps{Store: store, Handler: handler}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	deps := buildProfileDeps()
	r.Add(modules.NewProfileModule(deps.Handler, container.GetSessions(), container.GetJWT()))
	if cfg := container.GetConfig(); cfg != nil && cfg.MetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}

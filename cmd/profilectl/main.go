package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/profile-sync/config"
	"github.com/oksasatya/profile-sync/internal/application"
	"github.com/oksasatya/profile-sync/internal/infrastructure/gcs"
	pginfra "github.com/oksasatya/profile-sync/internal/infrastructure/postgres"
	"github.com/oksasatya/profile-sync/internal/infrastructure/rabbitmq"
	"github.com/oksasatya/profile-sync/internal/infrastructure/redisstore"
	"github.com/oksasatya/profile-sync/internal/interface/terminal"
	"github.com/oksasatya/profile-sync/pkg/helpers"
)

// profilectl edits a profile from the terminal using a session that already
// exists in Redis (see cmd/seed).
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	userID := flag.String("user", os.Getenv("PROFILECTL_USER_ID"), "user id of an active session")
	flag.Parse()
	if *userID == "" {
		log.Fatal("profilectl: -user is required")
	}

	// Logs go to stderr at warn level so they do not mix with the console.
	logger := helpers.NewLogger(cfg.AppName+"-cli", "production", helpers.WithOutput(os.Stderr), helpers.WithLevel(logrus.WarnLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pginfra.NewPool(ctx, pginfra.PoolConfig{
		DSN:         cfg.PostgresDSN(),
		AppName:     cfg.AppName + "-cli",
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
		MaxConnLife: cfg.DBMaxConnLife,
	})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()

	gcsClient, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
	if err != nil {
		log.Fatalf("failed to init GCS client: %v", err)
	}
	defer func() { _ = gcsClient.Close() }()

	rabbitPub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQProfileQueue)
	if err != nil {
		logger.WithError(err).Warn("rabbitmq unavailable, profile events disabled")
	}
	defer rabbitPub.Close()

	store := application.NewProfileStore(
		pginfra.NewRelationalStore(pool),
		cfg.ProfilesTable,
		rabbitmq.NewProfileEvents(rabbitPub),
		logger,
	)

	prompt := terminal.NewPrompter(os.Stdin, os.Stdout)
	pipeline := application.NewAvatarPipeline(
		terminal.PromptPermissions{Prompt: prompt},
		terminal.LocalImages{Prompt: prompt, CameraCmd: cfg.AvatarCameraCmd, MaxBytes: cfg.AvatarMaxBytes},
		gcs.NewBlobStore(gcsClient, cfg.GCSBucket, cfg.GCSPublicBaseURL),
		logger,
	)
	sessions := redisstore.UserSession{Store: redisstore.NewSessionStore(rdb, cfg.SessionTTL), UserID: *userID}
	editor := application.NewProfileEditor(sessions, store, pipeline, logger)

	console := terminal.NewConsole(editor, pipeline, prompt, os.Stdout)
	if err := console.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("profilectl: %v", err)
	}
}

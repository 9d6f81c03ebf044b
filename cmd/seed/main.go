package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/oksasatya/profile-sync/config"
	"github.com/oksasatya/profile-sync/internal/application"
	"github.com/oksasatya/profile-sync/internal/domain/entity"
	pginfra "github.com/oksasatya/profile-sync/internal/infrastructure/postgres"
	"github.com/oksasatya/profile-sync/internal/infrastructure/redisstore"
	"github.com/oksasatya/profile-sync/pkg/helpers"
)

// seed opens a session for a demo user, prints an access token for it and
// writes an initial profile row.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx := context.Background()

	userID := os.Getenv("SEED_USER_ID")
	if userID == "" {
		userID = uuid.NewString()
	}
	email := getenv("SEED_EMAIL", "demo@example.com")
	name := getenv("SEED_FULL_NAME", "Demo User")

	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()

	sessions := redisstore.NewSessionStore(rdb, cfg.SessionTTL)
	// Drop any earlier session so no stale hash fields survive.
	if err := sessions.Delete(ctx, userID); err != nil {
		log.Fatalf("failed to reset session: %v", err)
	}
	sess := entity.Session{UserID: userID, Email: email}
	if err := sessions.Save(ctx, sess); err != nil {
		log.Fatalf("failed to save session: %v", err)
	}
	yes := true
	if err := redisstore.NewConsentStore(rdb).Set(ctx, userID, &yes, &yes); err != nil {
		log.Fatalf("failed to grant consent: %v", err)
	}

	token, exp, err := helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.AccessTTL).GenerateAccessToken(userID)
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}

	pool, err := pginfra.NewPool(ctx, pginfra.PoolConfig{
		DSN:         cfg.PostgresDSN(),
		AppName:     cfg.AppName + "-seed",
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
		MaxConnLife: cfg.DBMaxConnLife,
	})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	store := application.NewProfileStore(pginfra.NewRelationalStore(pool), cfg.ProfilesTable, nil, logger)
	now := time.Now().UTC()
	if err := store.SaveProfile(ctx, &entity.Profile{
		ID:        userID,
		Email:     email,
		FullName:  entity.StringPtr(name),
		UpdatedAt: &now,
	}); err != nil {
		log.Fatalf("failed to seed profile: %v", err)
	}

	fmt.Printf("seeded profile: id=%s email=%s name=%q\n", userID, email, name)
	fmt.Printf("access token (expires %s):\n%s\n", exp.Format(time.RFC3339), token)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

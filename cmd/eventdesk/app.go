package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eventdesk/dashboard/pkg/auth"
	"github.com/eventdesk/dashboard/pkg/config"
	"github.com/eventdesk/dashboard/pkg/content"
	"github.com/eventdesk/dashboard/pkg/database"
	"github.com/eventdesk/dashboard/pkg/media"
	"github.com/eventdesk/dashboard/pkg/ordering"
	"github.com/eventdesk/dashboard/pkg/store"
	"github.com/eventdesk/dashboard/pkg/validate"
)

// app holds the collaborators shared by the subcommands.
type app struct {
	cfg      *config.Config
	db       *database.DB
	redis    *redis.Client
	objects  media.Store
	content  *content.Services
	auth     *auth.Service
	accounts *store.AccountStore
	logger   *slog.Logger
}

func setupLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// openApp loads configuration, connects the database and Redis (when configured),
// migrates the schema and builds the services.
func openApp(ctx context.Context, stderr io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger := setupLogger(cfg, stderr)

	db, err := database.Open(ctx, database.Options{URL: cfg.DatabaseURL, DataDir: cfg.DataDir})
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, db: db, logger: logger}
	if err := store.Migrate(ctx, db.DB); err != nil {
		a.close()
		return nil, err
	}

	var locker ordering.Locker = ordering.NewLocalLocker()
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := a.redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			a.close()
			return nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
		}
		locker = ordering.NewRedisLocker(a.redis, 10*time.Second, 5*time.Second)
		logger.Info("redis connected", "addr", cfg.Redis.Addr)
	}

	publicURL := cfg.Media.PublicBaseURL
	if publicURL == "" && (cfg.Media.StorageType == "" || cfg.Media.StorageType == string(media.StoreTypeFS)) {
		publicURL = "/media"
	}
	a.objects, err = media.NewStore(ctx, media.Config{
		Type:          media.StoreType(cfg.Media.StorageType),
		DataDir:       cfg.DataDir,
		PublicBaseURL: publicURL,
		S3Bucket:      cfg.Media.S3Bucket,
		S3Region:      cfg.Media.S3Region,
		S3Endpoint:    cfg.Media.S3Endpoint,
		S3Prefix:      cfg.Media.S3Prefix,
		GCSBucket:     cfg.Media.GCSBucket,
		GCSPrefix:     cfg.Media.GCSPrefix,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("media: %w", err)
	}

	keys, err := auth.NewKeySet(cfg.Auth.SigningKey)
	if err != nil {
		a.close()
		return nil, err
	}
	if cfg.Auth.SigningKey == "" {
		logger.Warn("AUTH_SIGNING_KEY not set, tokens will not survive a restart")
	}

	v := validate.New()
	a.content = content.NewServices(db.DB, a.objects, v, content.Options{
		Mode:       ordering.ParseMode(cfg.OrderingMode),
		Locker:     locker,
		AboutSlots: cfg.AboutSlots,
		Logger:     logger,
	})
	a.accounts = store.NewAccountStore(db.DB)
	a.auth = auth.NewService(a.accounts, keys, v, auth.Options{
		AllowSignup: cfg.Auth.AllowSignup,
		TokenTTL:    cfg.Auth.TokenTTL,
	})
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

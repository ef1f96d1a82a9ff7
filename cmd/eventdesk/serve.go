package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/eventdesk/dashboard/pkg/api"
	"github.com/eventdesk/dashboard/pkg/i18n"
	"github.com/eventdesk/dashboard/pkg/observability"
	"github.com/eventdesk/dashboard/pkg/ratelimit"
)

func runServer(stdout, stderr io.Writer) int {
	fmt.Fprintf(stdout, "%sEventDesk starting...%s\n", ColorBold+ColorBlue, ColorReset)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%sstartup failed:%s %v\n", ColorRed, ColorReset, err)
		return 1
	}
	defer a.close()
	cfg := a.cfg

	otelCfg := observability.DefaultConfig()
	otelCfg.Enabled = cfg.OTel.Enabled
	otelCfg.OTLPEndpoint = cfg.OTel.Endpoint
	otelCfg.ServiceVersion = version
	telemetry, err := observability.New(ctx, otelCfg)
	if err != nil {
		fmt.Fprintf(stderr, "%sobservability:%s %v\n", ColorRed, ColorReset, err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	var (
		shared, logins ratelimit.Store
		idem           api.IdempotencyStore
	)
	if a.redis != nil {
		rs := ratelimit.NewRedisStore(a.redis)
		shared, logins = rs, rs
		idem = api.NewRedisIdempotencyStore(a.redis, 24*time.Hour, time.Minute)
	} else {
		logins = ratelimit.NewMemoryStore()
		idem = api.NewMemoryIdempotencyStore(24 * time.Hour)
	}

	go purgeRevoked(ctx, a)

	srv := api.NewServer(api.Deps{
		DB:          a.db,
		Content:     a.content,
		Auth:        a.auth,
		Catalog:     i18n.New(cfg.DefaultLocale),
		Media:       a.objects,
		Telemetry:   telemetry,
		RateLimit:   ratelimit.Policy{RPS: cfg.RateLimit.RPS, Burst: cfg.RateLimit.Burst},
		Shared:      shared,
		Logins:      logins,
		Idempotency: idem,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      a.logger,
	})

	log.Printf("[eventdesk] api: listening on :%s (ordering=%s, db=%s)", cfg.Port, cfg.OrderingMode, a.db.Driver)
	if err := srv.ListenAndServe(ctx, ":"+cfg.Port); err != nil {
		fmt.Fprintf(stderr, "%sserver:%s %v\n", ColorRed, ColorReset, err)
		return 1
	}
	log.Println("[eventdesk] api: stopped")
	return 0
}

// purgeRevoked drops expired token revocations every hour.
func purgeRevoked(ctx context.Context, a *app) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := a.accounts.PurgeRevoked(ctx, now)
			if err != nil {
				a.logger.WarnContext(ctx, "purge revoked tokens failed", "error", err)
				continue
			}
			if n > 0 {
				a.logger.InfoContext(ctx, "purged revoked tokens", "count", n)
			}
		}
	}
}

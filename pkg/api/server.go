package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/eventdesk/dashboard/pkg/auth"
	"github.com/eventdesk/dashboard/pkg/content"
	"github.com/eventdesk/dashboard/pkg/i18n"
	"github.com/eventdesk/dashboard/pkg/media"
	"github.com/eventdesk/dashboard/pkg/observability"
	"github.com/eventdesk/dashboard/pkg/ratelimit"
)

// Pinger reports database reachability. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators of the Server.
type Deps struct {
	DB        Pinger
	Content   *content.Services
	Auth      *auth.Service
	Catalog   *i18n.Catalog
	Media     media.Store
	Telemetry *observability.Provider

	// RateLimit is the per-IP budget. Shared, when set, enforces it across instances.
	RateLimit ratelimit.Policy
	Shared    ratelimit.Store
	// Logins throttles login attempts per email. Nil disables the throttle.
	Logins      ratelimit.Store
	Idempotency IdempotencyStore
	CORSOrigins []string
	Logger      *slog.Logger
}

// LoginPolicy allows five attempts per email, refilling one every twelve seconds.
var LoginPolicy = ratelimit.Policy{RPS: 1.0 / 12, Burst: 5}

// Server is the dashboard HTTP API.
type Server struct {
	deps    Deps
	errs    *errorWriter
	limiter *GlobalRateLimiter
	logger  *slog.Logger
}

func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "api")
	if deps.Catalog == nil {
		deps.Catalog = i18n.New("")
	}
	if deps.Telemetry == nil {
		deps.Telemetry, _ = observability.New(context.Background(), nil)
	}

	errs := &errorWriter{catalog: deps.Catalog, logger: logger}
	s := &Server{deps: deps, errs: errs, logger: logger}
	if deps.RateLimit.RPS > 0 && deps.RateLimit.Burst > 0 {
		s.limiter = NewGlobalRateLimiter(deps.RateLimit, deps.Shared)
		s.limiter.deny = errs.TooManyRequests
	}
	return s
}

// Handler returns the routed API wrapped in its middleware chain:
// request ID, CORS, rate limit, authentication, idempotency, telemetry.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = s.deps.Telemetry.Middleware(mux)
	h = s.contentLanguage(h)
	h = IdempotencyMiddleware(s.deps.Idempotency, s.errs.InProgress)(h)
	var authn auth.Authenticator
	if s.deps.Auth != nil {
		authn = s.deps.Auth
	}
	h = auth.NewMiddleware(authn, s.errs.Deny)(h)
	if s.limiter != nil {
		h = s.limiter.Middleware(h)
	}
	h = auth.CORSMiddleware(s.deps.CORSOrigins)(h)
	return auth.RequestIDMiddleware(h)
}

// contentLanguage announces the language messages are rendered in.
func (s *Server) contentLanguage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Language", s.deps.Catalog.Match(r.Header.Get("Accept-Language")).String())
		next.ServeHTTP(w, r)
	})
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /readiness", s.handleReadiness)

	mux.HandleFunc("POST /api/auth/signup", s.handleSignup)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)

	mux.HandleFunc("GET /api/speakers", s.listSpeakers)
	mux.HandleFunc("POST /api/speakers", s.createSpeaker)
	mux.HandleFunc("POST /api/speakers/photo", s.uploadSpeakerPhoto)
	mux.HandleFunc("GET /api/speakers/{id}", s.getSpeaker)
	mux.HandleFunc("PUT /api/speakers/{id}", s.updateSpeaker)
	mux.HandleFunc("DELETE /api/speakers/{id}", s.deleteSpeaker)
	mux.HandleFunc("PUT /api/speakers/{id}/order", s.reorderSpeaker)

	mux.HandleFunc("GET /api/partners", s.listPartners)
	mux.HandleFunc("POST /api/partners", s.createPartner)
	mux.HandleFunc("POST /api/partners/logo", s.uploadPartnerLogo)
	mux.HandleFunc("GET /api/partners/{id}", s.getPartner)
	mux.HandleFunc("PUT /api/partners/{id}", s.updatePartner)
	mux.HandleFunc("DELETE /api/partners/{id}", s.deletePartner)
	mux.HandleFunc("PUT /api/partners/{id}/order", s.reorderPartner)

	mux.HandleFunc("GET /api/teams", s.listTeam)
	mux.HandleFunc("POST /api/teams", s.createTeamMember)
	mux.HandleFunc("POST /api/teams/photo", s.uploadTeamPhoto)
	mux.HandleFunc("GET /api/teams/{id}", s.getTeamMember)
	mux.HandleFunc("PUT /api/teams/{id}", s.updateTeamMember)
	mux.HandleFunc("DELETE /api/teams/{id}", s.deleteTeamMember)
	mux.HandleFunc("PUT /api/teams/{id}/order", s.reorderTeamMember)

	mux.HandleFunc("GET /api/faq", s.listFAQ)
	mux.HandleFunc("POST /api/faq", s.createFAQ)
	mux.HandleFunc("PUT /api/faq/{id}", s.updateFAQ)
	mux.HandleFunc("DELETE /api/faq/{id}", s.deleteFAQ)

	mux.HandleFunc("GET /api/about", s.listAbout)
	mux.HandleFunc("POST /api/about/{slot}", s.uploadAbout)
	mux.HandleFunc("DELETE /api/about/images/{id}", s.deleteAbout)

	mux.HandleFunc("POST /api/admin/ordering/{collection}/repair", s.repairOrdering)
	mux.HandleFunc("GET /api/admin/ordering/{collection}/verify", s.verifyOrdering)

	if fs, ok := s.deps.Media.(*media.FileStore); ok {
		mux.Handle("GET /media/", http.StripPrefix("/media/", http.FileServer(http.Dir(fs.Dir()))))
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then drains in-flight
// requests for up to ten seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	bg, stop := context.WithCancel(ctx)
	defer stop()
	if s.limiter != nil && s.deps.Shared == nil {
		go s.limiter.RunCleanup(bg)
	}
	if m, ok := s.deps.Idempotency.(*MemoryIdempotencyStore); ok {
		go m.RunCleanup(bg, 5*time.Minute)
	}
	if m, ok := s.deps.Logins.(*ratelimit.MemoryStore); ok {
		go m.RunSweeper(bg, time.Minute, 10*time.Minute)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("api shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.deps.DB == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.deps.DB.PingContext(ctx); err != nil {
		s.logger.WarnContext(ctx, "readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// ABOUTME: HTTP server and route wiring for hamco
// ABOUTME: Applies the auth chain to every route and role gates to mutating ones

package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hamco/hamco/internal/accounts"
	"github.com/hamco/hamco/internal/apikeys"
	"github.com/hamco/hamco/internal/auth"
	"github.com/hamco/hamco/internal/config"
	"github.com/hamco/hamco/internal/metrics"
	"github.com/hamco/hamco/internal/notes"
	"github.com/hamco/hamco/internal/store"
)

// Server hosts the hamco HTTP surface.
type Server struct {
	cfg      *config.Config
	chain    *auth.Chain
	accounts *accounts.Service
	notes    *notes.Service
	keys     *apikeys.Service
	store    store.Store
	metrics  *metrics.AuthMetrics
	logger   *slog.Logger
}

// New creates a server. metrics may be nil when disabled.
func New(cfg *config.Config, chain *auth.Chain, accountSvc *accounts.Service, noteSvc *notes.Service, keySvc *apikeys.Service, st store.Store, m *metrics.AuthMetrics) *Server {
	return &Server{
		cfg:      cfg,
		chain:    chain,
		accounts: accountSvc,
		notes:    noteSvc,
		keys:     keySvc,
		store:    st,
		metrics:  m,
		logger:   slog.Default().With("component", "web"),
	}
}

// Routes builds the full handler tree. Every route passes through the
// authentication chain; role requirements are declared per route.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /notes/{slug}", s.handleNotePage)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("GET /api/verify", s.handleVerifyEmail)
	mux.HandleFunc("POST /api/password-reset", s.handlePasswordResetRequest)
	mux.HandleFunc("POST /api/password-reset/confirm", s.handlePasswordResetConfirm)

	// Authenticated: note authoring needs the User role
	requireUser := auth.RequireRole(auth.RoleUser)
	mux.Handle("POST /api/notes", requireUser(http.HandlerFunc(s.handleNoteCreate)))
	mux.Handle("PUT /api/notes/{id}", requireUser(http.HandlerFunc(s.handleNoteUpdate)))
	mux.Handle("DELETE /api/notes/{id}", requireUser(http.HandlerFunc(s.handleNoteDelete)))

	// Administrative: key and user management need the Admin role
	requireAdmin := auth.RequireRole(auth.RoleAdmin)
	mux.Handle("POST /api/keys", requireAdmin(http.HandlerFunc(s.handleKeyGenerate)))
	mux.Handle("GET /api/keys", requireAdmin(http.HandlerFunc(s.handleKeyList)))
	mux.Handle("DELETE /api/keys/{id}", requireAdmin(http.HandlerFunc(s.handleKeyRevoke)))
	mux.Handle("POST /api/users/{id}/promote", requireAdmin(http.HandlerFunc(s.handleUserPromote)))

	if s.metrics != nil && s.cfg.Metrics.Enabled {
		mux.Handle("GET "+s.cfg.Metrics.Path, s.metrics.Handler())
	}

	return s.chain.Middleware(mux)
}

// Run serves HTTP until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.HTTPAddr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}

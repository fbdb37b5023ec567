package web

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/movli/internal/models"
	"github.com/desertthunder/movli/internal/repositories"
	"github.com/desertthunder/movli/internal/server"
	"github.com/desertthunder/movli/internal/shared"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const chatHistoryLimit = 50

var validate = validator.New()

// errUserStore marks a token that was valid but whose user could not be recorded.
var errUserStore = errors.New("failed to record user")

// Server is the watchlist service.
type Server struct {
	cfg       shared.ServerConfig
	db        *sql.DB
	users     *repositories.UserRepository
	movies    *repositories.MovieRepository
	chats     *repositories.ChatRepository
	auth      *Authenticator
	logger    *log.Logger
	imageBase string
	router    *server.ChiRouter
}

// New creates a [Server] over a migrated database. A nil logger discards output.
func New(cfg shared.ServerConfig, db *sql.DB, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	imageBase := cfg.ImageBaseURL
	if imageBase == "" {
		imageBase = models.DefaultImageBase
	}

	s := &Server{
		cfg:       cfg,
		db:        db,
		users:     repositories.NewUserRepository(db),
		movies:    repositories.NewMovieRepository(db),
		chats:     repositories.NewChatRepository(db),
		auth:      NewAuthenticator(cfg.JWTSecret),
		logger:    logger,
		imageBase: imageBase,
	}
	s.router = s.routes()
	return s
}

// Authenticator returns the token verifier used by the server.
func (s *Server) Authenticator() *Authenticator { return s.auth }

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() *server.ChiRouter {
	router := server.NewChiRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		server.Recoverer(s.logger),
		server.RequestLogger(s.logger),
		instrument,
		cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:         86400,
		}),
	)
	if s.cfg.RateLimitRequests > 0 {
		router.Use(httprate.LimitByIP(s.cfg.RateLimitRequests, s.cfg.RateLimitWindow()))
	}

	router.Handle(http.MethodGet, "/health", http.HandlerFunc(s.health))
	router.Handle(http.MethodGet, "/metrics", promhttp.Handler())

	authed := router.With(s.requireUser)
	authed.Handle(http.MethodGet, "/api/movies", http.HandlerFunc(s.listMovies))
	authed.Handle(http.MethodPost, "/api/movies", http.HandlerFunc(s.saveMovie))
	authed.Handle(http.MethodPut, "/api/movies/{id}", http.HandlerFunc(s.updateMovie))
	authed.Handle(http.MethodDelete, "/api/movies/{id}", http.HandlerFunc(s.deleteMovie))

	authed.Handle(http.MethodGet, "/api/chat/history", http.HandlerFunc(s.chatHistory))
	router.With(s.optionalUser).Handle(http.MethodPost, "/api/chat", http.HandlerFunc(s.chat))
	return router
}

// ListenAndServe serves on the configured address until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("watchlist service listening", "addr", httpServer.Addr, "verified_tokens", s.auth.Verified())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("shutting down watchlist service")
	return httpServer.Shutdown(shutdownCtx)
}

// requireUser rejects requests without a valid bearer token and upserts the caller.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.authenticate(r)
		if err != nil {
			s.rejectUser(w, r, err, "Authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), identity)))
	})
}

// optionalUser attaches the caller when a valid token is present and passes anonymous requests through.
func (s *Server) optionalUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		identity, err := s.authenticate(r)
		if err != nil {
			s.rejectUser(w, r, err, "Invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), identity)))
	})
}

func (s *Server) authenticate(r *http.Request) (*models.Identity, error) {
	claims, err := s.auth.FromRequest(r)
	if err != nil {
		return nil, err
	}

	user := models.NewUser(claims.UID(), claims.Email, claims.Name)
	if err := s.users.Upsert(r.Context(), user); err != nil {
		return nil, fmt.Errorf("%w: %w", errUserStore, err)
	}
	return claims.Identity(""), nil
}

// rejectUser answers a failed authentication: 500 when the user could not be stored, 401 otherwise.
func (s *Server) rejectUser(w http.ResponseWriter, r *http.Request, err error, message string) {
	if errors.Is(err, errUserStore) {
		s.logger.Error("failed to authenticate request", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
		return
	}
	AuthFailures.Inc()
	s.logger.Warn("rejected request", "path", r.URL.Path, "error", err)
	respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

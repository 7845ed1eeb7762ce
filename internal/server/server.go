package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mernauth/authserver/config"
	"github.com/mernauth/authserver/internal/db"
	"github.com/mernauth/authserver/internal/handlers"
	"github.com/mernauth/authserver/internal/mailer"
	"github.com/mernauth/authserver/internal/mq"
	"github.com/mernauth/authserver/internal/password"
	"github.com/mernauth/authserver/internal/services"
	"github.com/mernauth/authserver/internal/storage"
	"github.com/mernauth/authserver/internal/store"
	"github.com/mernauth/authserver/internal/token"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	queue      *mq.MQ
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if strings.TrimSpace(cfg.Token.AccessSecret) == "" {
		return nil, errors.New("ACCESS_TOKEN_SECRET is required")
	}
	if strings.TrimSpace(cfg.Token.RefreshSecret) == "" {
		return nil, errors.New("REFRESH_TOKEN_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	otpRepo := store.NewOtpRepository(dbConn)
	sessionRepo := store.NewResetSessionRepository(dbConn)

	userService := services.NewUserService(userRepo)
	hasher := password.NewHasher(cfg.Password)
	policy := password.NewPolicy(cfg.Password)
	issuer := token.NewIssuer(cfg.Token)

	mail, queue, err := newMailer(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	avatars, err := newAvatarStore(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	authService := services.NewAuthService(userService, otpRepo, sessionRepo, hasher, policy, issuer, mail)

	authMiddleware := handlers.RequireAuth(issuer)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Group(func(r chi.Router) {
		handlers.AuthRouter(r, handlers.NewAuthHandler(authService, issuer))
		handlers.ResetRouter(r, handlers.NewResetHandler(authService))
	})
	router.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		handlers.UserRouter(r, handlers.NewUserHandler(userService, avatars))
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		queue:      queue,
	}, nil
}

// newMailer builds the OTP mail transport. The queue is returned separately
// so the server can close it on shutdown; it is nil for direct SMTP.
func newMailer(ctx context.Context, cfg config.Config) (mailer.Mailer, *mq.MQ, error) {
	switch cfg.Mail.Transport {
	case "", "smtp":
		return mailer.NewSMTPSender(cfg.Mail), nil, nil
	case "rabbitmq":
		backend, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, nil, err
		}
		queue := mq.New(backend)
		return mailer.NewQueueSender(queue, cfg.Mail.Queue), queue, nil
	case "pubsub":
		backend, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, nil, err
		}
		queue := mq.New(backend)
		return mailer.NewQueueSender(queue, cfg.Mail.Queue), queue, nil
	default:
		return nil, nil, fmt.Errorf("unknown mail transport %q", cfg.Mail.Transport)
	}
}

// newAvatarStore builds the avatar object store. Avatar routes are skipped
// entirely when no backend is configured.
func newAvatarStore(ctx context.Context, cfg config.Config) (*storage.AvatarStore, error) {
	switch cfg.Storage.Backend {
	case "minio":
		if strings.TrimSpace(cfg.Minio.Endpoint) == "" {
			return nil, nil
		}
		backend, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		avatars := storage.NewAvatarStore(backend)
		if err := avatars.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return avatars, nil
	case "gcs":
		if strings.TrimSpace(cfg.GCS.Bucket) == "" {
			return nil, nil
		}
		backend, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		avatars := storage.NewAvatarStore(backend)
		if err := avatars.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return avatars, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.queue != nil {
		_ = s.queue.Close()
	}
	return s.httpServer.Close()
}

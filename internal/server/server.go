package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/acadhub/leave-be/internal/auth"
	"github.com/acadhub/leave-be/internal/config"
	"github.com/acadhub/leave-be/internal/http/handlers"
	"github.com/acadhub/leave-be/internal/leave"
	"github.com/acadhub/leave-be/internal/middleware"
	"github.com/acadhub/leave-be/internal/models"
	"github.com/acadhub/leave-be/internal/policy"
	"github.com/acadhub/leave-be/internal/storage"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires the policy engine, accounting service, middleware, and routes,
// and returns a ready server.
func New(cfg config.Config, store storage.Store, logger *zap.Logger) *Server {
	engine := policy.NewEngine(cfg.AutoApproveDays)
	classifier := policy.NewEmailRoleClassifier(cfg.StudentEmailPattern)
	svc := leave.NewService(store, engine, classifier, leave.Config{
		Quotas: map[models.Role]int{
			models.RoleStudent: cfg.StudentQuota,
			models.RoleFaculty: cfg.FacultyQuota,
		},
		LeaveTypes:   cfg.LeaveTypes,
		StoreTimeout: cfg.StoreTimeout,
	}, logger)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	apiMux := http.NewServeMux()
	handlers.NewLeaveHandler(svc).Register(apiMux)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(time.Now()).Register(mux)
	handlers.NewMentorHandler(svc, cfg.AdminTokenHash).Register(mux)
	mux.Handle("/api/", middleware.Identity(tokens, svc, logger, apiMux))

	handler := middleware.CORS(cfg.CORSOrigins, middleware.Logging(logger, mux))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}

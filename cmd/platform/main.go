package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/perito-digital/platform/internal/ai"
	"github.com/perito-digital/platform/internal/audit"
	"github.com/perito-digital/platform/internal/blobstore"
	caseapi "github.com/perito-digital/platform/internal/case/api"
	caseinfra "github.com/perito-digital/platform/internal/case/infrastructure"
	"github.com/perito-digital/platform/internal/dentalreport"
	"github.com/perito-digital/platform/internal/evidence"
	"github.com/perito-digital/platform/internal/marking"
	"github.com/perito-digital/platform/internal/report"
	"github.com/perito-digital/platform/internal/shared/auth"
	"github.com/perito-digital/platform/internal/shared/config"
	"github.com/perito-digital/platform/internal/shared/database"
	"github.com/perito-digital/platform/internal/shared/logging"
	"github.com/perito-digital/platform/internal/shared/metrics"
	secmiddleware "github.com/perito-digital/platform/internal/shared/middleware"
	victimapi "github.com/perito-digital/platform/internal/victim/api"
	victiminfra "github.com/perito-digital/platform/internal/victim/infrastructure"
	"github.com/rs/zerolog"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log)

	// Database
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := database.Migrate(ctx, db.Pool, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Audit backend: postgres by default, kurrentdb for an external
	// append-only store
	auditRepo, err := openAuditRepository(ctx, cfg, db, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open audit backend")
	}
	recorder := audit.NewRecorder(auditRepo, logger)

	// Blob store for evidence files and report PDFs
	blobs, err := blobstore.Open(ctx, cfg.Blob)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open blob store")
	}

	// Repositories
	caseRepo := caseinfra.NewPostgresRepository(db.Pool)
	victimRepo := victiminfra.NewPostgresRepository(db.Pool)
	markingRepo := marking.NewRepository(db.Pool)
	evidenceRepo := evidence.NewRepository(db.Pool)
	dentalRepo := dentalreport.NewRepository(db.Pool)
	reportRepo := report.NewRepository(db.Pool)

	// Handlers
	caseHandler := caseapi.NewHandler(caseRepo, recorder)
	dentalHandler := dentalreport.NewHandler(dentalRepo, victimRepo, caseRepo, blobs, recorder)
	victimHandler := victimapi.NewHandler(victimRepo, caseRepo, recorder).
		WithDentalRoutes(dentalHandler.VictimRoutes())
	markingHandler := marking.NewHandler(markingRepo, victimRepo, caseRepo, recorder)
	evidenceHandler := evidence.NewHandler(evidenceRepo, caseRepo, blobs, recorder)
	reportHandler := report.NewHandler(reportRepo, caseRepo, recorder)
	auditHandler := audit.NewHandler(auditRepo)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(secmiddleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(90 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(secmiddleware.CORS(secmiddleware.DefaultCORSConfig()))
	r.Use(metrics.Middleware)

	ipLimiter := secmiddleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	r.Use(ipLimiter.Middleware)

	// Unauthenticated endpoints
	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(db))
	r.Handle("/metrics", metrics.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Auth))

		r.Mount("/cases", caseHandler.Routes())
		r.Mount("/victims", victimHandler.Routes())
		r.Mount("/markings", markingHandler.Routes())
		r.Mount("/evidence", evidenceHandler.Routes())
		r.Mount("/dental-reports", dentalHandler.Routes())
		r.Mount("/reports", reportHandler.Routes())
		r.Mount("/audit", auditHandler.Routes())

		if cfg.AI.Enabled {
			aiClient := ai.NewClient(cfg.AI)
			aiHandler := ai.NewHandler(aiClient, caseRepo, victimRepo, evidenceRepo, dentalRepo, recorder)
			r.Mount("/ai", aiHandler.Routes())
			logger.Info().Str("model", cfg.AI.Model).Msg("AI module enabled")
		}
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info().Msg("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("server shutdown error")
		}
		close(done)
	}()

	logger.Info().
		Str("env", cfg.Server.Env).
		Int("port", cfg.Server.Port).
		Str("audit_backend", cfg.Audit.Backend).
		Str("blob_driver", cfg.Blob.Driver).
		Msg("server starting")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server error")
	}

	<-done
	logger.Info().Msg("server stopped")
}

// openAuditRepository builds the configured audit backend and loads the
// chain head so the first append links correctly
func openAuditRepository(ctx context.Context, cfg *config.Config, db *database.DB, logger zerolog.Logger) (audit.Repository, error) {
	var repo audit.Repository

	switch cfg.Audit.Backend {
	case "kurrentdb":
		client, err := audit.ConnectKurrentDB(cfg.KurrentDB)
		if err != nil {
			return nil, err
		}
		repo = audit.NewKurrentDBRepository(client)
		logger.Info().
			Str("host", cfg.KurrentDB.Host).
			Int("port", cfg.KurrentDB.Port).
			Msg("audit trail backed by kurrentdb")
	default:
		repo = audit.NewPostgresRepository(db.Pool)
	}

	if err := repo.Initialize(ctx); err != nil {
		return nil, err
	}

	return repo, nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

func readyHandler(db *database.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{"server": "ready"}

		if err := db.Health(r.Context()); err != nil {
			checks["database"] = "not ready: " + err.Error()
		} else {
			checks["database"] = "ready"
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/maxviazov/contacts-service/internal/config"
	"github.com/maxviazov/contacts-service/internal/handler"
	"github.com/maxviazov/contacts-service/internal/logger"
	"github.com/maxviazov/contacts-service/internal/metrics"
	"github.com/maxviazov/contacts-service/internal/repository"
	"github.com/maxviazov/contacts-service/internal/repository/graph"
	"github.com/maxviazov/contacts-service/internal/repository/postgres"
	"github.com/maxviazov/contacts-service/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("❌ .env loading failed: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Config loading failed: %v", err)
	}

	if cfg.Logger.ServiceName == "" {
		cfg.Logger.ServiceName = cfg.App.Name
	}
	if cfg.Logger.ServiceVersion == "" {
		cfg.Logger.ServiceVersion = cfg.App.Version
	}
	if cfg.Logger.Env == "" {
		cfg.Logger.Env = cfg.App.Env
	}
	appLogger, err := logger.New(&cfg.Logger)
	if err != nil {
		log.Fatalf("❌ Logger initialization failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Fatal().Err(err).Msg("service stopped with error")
	}
	appLogger.Info().Msg("service stopped")
}

func run(ctx context.Context, cfg *config.Config, appLogger zerolog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	contacts, backend, closeBackend, err := openBackend(ctx, cfg, appLogger, m)
	if err != nil {
		return err
	}
	defer closeBackend()

	contactSvc := service.NewContactService(contacts, cfg.Contacts.PageSize, appLogger)

	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	handler.Register(engine, backend, contactSvc, handler.Options{
		Logger:         appLogger,
		Metrics:        m,
		Gatherer:       reg,
		SignInURL:      cfg.Auth.SignInURL,
		SecureHeaders:  cfg.App.SecureHeaders,
		IsDevelopment:  cfg.App.Env == "dev",
		RequestTimeout: cfg.Contacts.RequestTimeout,
	})

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.App.Port),
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info().
			Str("addr", srv.Addr).
			Str("backend", cfg.Contacts.Backend).
			Msg("🚀 Service started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	appLogger.Info().Dur("timeout", cfg.App.ShutdownTimeout).Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// openBackend builds the configured contacts backend, the pinger used for readiness and its cleanup.
func openBackend(ctx context.Context, cfg *config.Config, appLogger zerolog.Logger, m *metrics.Metrics) (repository.ContactRepository, handler.Pinger, func(), error) {
	switch cfg.Contacts.Backend {
	case config.BackendPostgres:
		db, err := repository.New(ctx, cfg, &appLogger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("postgres connection failed: %w", err)
		}
		if cfg.Postgres.Migrate {
			if err := postgres.Migrate(ctx, db.Pool()); err != nil {
				db.Close()
				return nil, nil, nil, fmt.Errorf("postgres migration failed: %w", err)
			}
			appLogger.Info().Msg("✅ Migrations applied")
		}
		return postgres.NewContactRepository(db.Pool()), postgres.NewPinger(db.Pool()), db.Close, nil
	default:
		client, err := graph.New(cfg.Graph, appLogger, m)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("graph client setup failed: %w", err)
		}
		appLogger.Info().Str("base_url", cfg.Graph.BaseURL).Str("user", cfg.Graph.User).Msg("✅ Graph client ready")
		return client, client, func() {}, nil
	}
}

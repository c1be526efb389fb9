// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/auth"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/config"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/database"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/handler"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/metrics"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/repository"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/service"
)

func main() {
	log := logrus.New()
	if err := run(log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func run(log *logrus.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := configureLogger(log, cfg.Log); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Database
	if cfg.MigrateOnStart {
		version, err := database.Migrate(cfg.DB.URL(database.MigrationScheme))
		if err != nil {
			return err
		}
		log.WithField("version", version).Info("schema migrated")
	}
	pool, err := database.NewPool(ctx, cfg.DB, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	// 2. Layers
	issuer, err := auth.NewIssuer(cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.Issuer)
	if err != nil {
		return err
	}
	m := metrics.New()

	workshopRepo := repository.NewWorkshopRepository(pool)
	enrollmentRepo := repository.NewEnrollmentRepository(pool)
	accountRepo := repository.NewAccountRepository(pool)

	h := handler.New(
		service.NewWorkshopService(workshopRepo, accountRepo),
		service.NewEnrollmentService(workshopRepo, enrollmentRepo, m, log),
		service.NewAccountService(accountRepo, issuer),
		log,
	)

	// 3. Router
	router := handler.NewRouter(h, handler.RouterConfig{
		Tokens:      issuer,
		DB:          pool,
		Metrics:     m,
		MetricsPage: m.Handler(),
		AuthLimiter: handler.NewRateLimiter(cfg.HTTP.AuthRateLimit, cfg.HTTP.AuthRateBurst, log),
		Log:         log,
	})
	c := cors.New(cors.Options{
		AllowedOrigins: cfg.HTTP.Origins(),
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	})

	// 4. Serve with graceful shutdown
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      c.Handler(router),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func configureLogger(log *logrus.Logger, cfg config.Log) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)
	if cfg.Format == "text" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/billing-server/internal/api"
	"github.com/rongwang/billing-server/internal/config"
	"github.com/rongwang/billing-server/internal/export"
	"github.com/rongwang/billing-server/internal/repository"
	"github.com/rongwang/billing-server/internal/service"
	"github.com/rongwang/billing-server/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatalw("server stopped", "error", err)
	}
}

func run(cfg *config.Config, logger *utils.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set up the store
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	repo, err := repository.Open(connectCtx, cfg)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Storage.Driver, err)
	}
	defer repo.Close()

	loc, err := cfg.Reporting.Location()
	if err != nil {
		return err
	}

	// Create service
	svc := service.NewDefaultService(repo, cfg.Auth.JWTSecret,
		service.WithLocation(loc),
		service.WithLogger(logger),
	)

	// Create API handler
	handler := api.NewHandler(svc,
		export.NewCSVRenderer(cfg.Export.TempDir),
		export.NewPDFRenderer(export.Issuer{
			Name:    cfg.Invoice.IssuerName,
			Tagline: cfg.Invoice.IssuerTagline,
			Phone:   cfg.Invoice.IssuerPhone,
			GST:     cfg.Invoice.IssuerGST,
		}, loc, cfg.Export.TempDir),
		logger,
	)

	// Set up Gin router
	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		BodyLimit:      cfg.Server.BodyLimit,
		RateLimit:      cfg.Server.RateLimit,
	}, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("starting server",
			"addr", srv.Addr,
			"storage", cfg.Storage.Driver,
			"timezone", loc.String(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Infow("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

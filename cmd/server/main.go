// Package main initializes and starts the catalog admin console server,
// setting up configuration, logging, workspace storage, the external API
// client, services, handlers and optional TLS.
package main

import (
	"cmp"
	"context"
	"crypto/rand"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/common-nighthawk/go-figure"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atinyakov/CatalogAdmin/internal/client/api"
	"github.com/atinyakov/CatalogAdmin/internal/config"
	"github.com/atinyakov/CatalogAdmin/internal/db"
	"github.com/atinyakov/CatalogAdmin/internal/logger"
	"github.com/atinyakov/CatalogAdmin/internal/middleware"
	"github.com/atinyakov/CatalogAdmin/internal/repository"
	"github.com/atinyakov/CatalogAdmin/internal/server/handler/http"
	"github.com/atinyakov/CatalogAdmin/internal/server/view"
	"github.com/atinyakov/CatalogAdmin/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

// shutdownTimeout bounds how long in-flight requests may finish after a signal.
const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Parse command-line, config file and environment configuration.
	options, err := config.Parse()
	if err != nil {
		return err
	}
	if err := options.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	figure.NewFigure("Catalog Admin", "cybermedium", true).Print()
	fmt.Println()
	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// External API client.
	httpClient, err := api.NewHTTPClient(api.TLSFiles{
		CA:   options.APICA,
		Cert: options.APICert,
		Key:  options.APIKey,
	}, options.APITimeout.Std())
	if err != nil {
		return fmt.Errorf("cannot init API client: %w", err)
	}
	apiClient := api.New(api.Config{
		BaseURL:    options.BaseURL,
		BasePath:   options.BasePath,
		AuthScheme: options.AuthScheme,
		HTTPClient: httpClient,
	})

	// Workspace storage: PostgreSQL when configured, memory otherwise.
	var workspaceRepo repository.WorkspaceRepository
	if options.DatabaseDSN != "" {
		postgresDB, err := db.InitPostgres(options.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("cannot init database: %w", err)
		}
		defer postgresDB.Close()
		workspaceRepo = repository.NewPostgresWorkspaceRepository(postgresDB)
	} else {
		zapLogger.Warn("DATABASE_DSN is empty, workspaces are kept in memory")
		workspaceRepo = repository.NewMemoryWorkspaceRepository()
	}

	workspaceService := service.NewWorkspaceService(workspaceRepo, apiClient, zapLogger)

	// Drop workspaces nobody has touched for a TTL.
	ttl := options.WorkspaceTTL.Std()
	db.StartWorkspaceCleaner(ctx, workspaceRepo,
		cleanInterval(ttl), // interval
		ttl,                // retention
		zapLogger,
		workspaceService.Evict,
	)

	secret := []byte(options.SessionSecret)
	if len(secret) == 0 {
		zapLogger.Warn("SESSION_SECRET is empty, using a random secret; pages open before a restart will need a reload")
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generate session secret: %w", err)
		}
	}

	renderer, err := view.New()
	if err != nil {
		return fmt.Errorf("cannot parse templates: %w", err)
	}

	consoleHandler := &http.ConsoleHandler{
		Workspaces: workspaceService,
		Sessions:   http.NewCookieSessionStore(options.TLSEnabled()),
		CSRF:       middleware.NewCSRF(secret),
		View:       renderer,
		Log:        zapLogger,
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(consoleHandler, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if options.TLSEnabled() {
		server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if options.TLSEnabled() {
			zapLogger.Info("starting HTTPS server", zap.String("addr", options.Address))
			err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
		} else {
			zapLogger.Info("starting HTTP server", zap.String("addr", options.Address))
			err = server.ListenAndServe()
		}
		if errors.Is(err, nethttp.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		zapLogger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zapLogger.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}

// cleanInterval checks for stale workspaces a few times per TTL.
func cleanInterval(ttl time.Duration) time.Duration {
	return min(max(ttl/4, time.Minute), time.Hour)
}

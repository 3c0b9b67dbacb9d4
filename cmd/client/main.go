// Package main is the terminal shell of the catalog admin console. It talks
// to the external API directly and keeps its sign-in in an encrypted file.
package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/atinyakov/CatalogAdmin/internal/client/api"
	"github.com/atinyakov/CatalogAdmin/internal/client/storage"
	"github.com/atinyakov/CatalogAdmin/internal/config"
	"github.com/atinyakov/CatalogAdmin/internal/console"
	"github.com/atinyakov/CatalogAdmin/internal/logger"
)

var (
	version   string
	buildDate string
)

// main loads the configuration and runs the shell until exit.
func main() {
	for _, a := range os.Args[1:] {
		if a == "-version" || a == "--version" {
			fmt.Printf("Catalog Admin shell\nVersion: %s\nBuild Date: %s\n", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
			return
		}
	}

	if err := run(); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		failure.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	options, err := config.Parse()
	if err != nil {
		return err
	}
	if err := options.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// The shell owns the terminal; only warnings and errors are logged.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	level := options.LogLevel
	if level == "info" {
		level = "warn"
	}
	if err := log.Init(level); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}

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

	if options.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required to encrypt the session file")
	}
	aead, err := storage.NewAEADFromSecret([]byte(options.SessionSecret))
	if err != nil {
		return err
	}

	ctx := context.Background()
	sh := &shell{
		c:      console.New(apiClient, log.Log.With(zap.String("component", "shell"))),
		store:  storage.NewSessionFile(sessionPath(options.SessionFile), aead),
		prompt: storage.NewPrompter(os.Stdin, os.Stdout),
		out:    os.Stdout,
	}
	sh.resume(ctx)
	sh.loop(ctx)
	return nil
}

// sessionPath defaults to a file in the user's config directory.
func sessionPath(configured string) string {
	if configured != "" {
		return configured
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".catalogadmin-session.json"
	}
	return filepath.Join(dir, "catalogadmin", "session.json")
}

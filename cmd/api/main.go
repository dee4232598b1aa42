package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/client"

	"dev/bravebird/signup-automation-go/pkg/api"
	"dev/bravebird/signup-automation-go/pkg/app"
	"dev/bravebird/signup-automation-go/pkg/config"
	"dev/bravebird/signup-automation-go/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(os.Stderr, "error", "text").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(os.Stdout, cfg.App.LogLevel, cfg.App.LogFormat)
	log.Info("Starting sign-up automation API server", "env", cfg.App.Env)

	ctx := context.Background()

	deps, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error("failed to build services", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	opts := api.Options{
		Store:         deps.Store,
		Generator:     deps.Generator,
		TaskQueue:     cfg.Temporal.TaskQueue,
		ScreenshotDir: cfg.Output.ScreenshotsDir,
		Logger:        log,
	}

	// Runs need Temporal; script generation works without it
	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logger.Temporal(log),
	})
	if err != nil {
		log.Warn("Temporal unavailable, sign-up runs are disabled", "host", cfg.Temporal.HostPort, "error", err)
	} else {
		defer temporalClient.Close()
		opts.Temporal = temporalClient
	}

	handlers := api.NewHandlers(opts)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewHandler(handlers, nil),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("API server listening", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("Server stopped")
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/origenstudio/filepipe/pkg/filepipe/config"
)

type Config struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`
	DataDir     string `env:"DATA_DIR" env-default:"./data/uploads"`

	// File checks
	MaxUploadSize int64  `env:"MAX_UPLOAD_SIZE" env-default:"33554432"`
	FileTypes     string `env:"FILE_TYPES" env-default:"(?i)^(jpe?g|png|gif|webp)$"`

	Versions VersionsConfig
}

// VersionsConfig declares the derived versions produced for every upload.
type VersionsConfig struct {
	ThumbSize  int `env:"THUMB_SIZE" env-default:"100"`
	MediumSize int `env:"MEDIUM_SIZE" env-default:"600"`
	Quality    int `env:"QUALITY" env-default:"80"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		logger.Error("failed to read configuration", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("failed to create data directory", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	runtime, err := buildRuntime(logger)
	if err != nil {
		logger.Error("failed to build pipeline runtime", "error", err)
		os.Exit(1)
	}

	server, err := NewServer(cfg, runtime, logger)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: server.Routes(),
	}

	go func() {
		logger.Info("file pipeline server starting",
			"port", cfg.Port, "env", cfg.Environment, "data_dir", cfg.DataDir)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server exiting")
}

func buildRuntime(logger *slog.Logger) (*config.Runtime, error) {
	cfg, err := config.Load(
		func(c *config.Config) error {
			c.Logger = logger
			return nil
		},
		config.WithEnv(""),
	)
	if err != nil {
		return nil, err
	}
	return cfg.Build()
}

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatsync/internal/config"
	"chatsync/internal/constants"
	"chatsync/internal/database"
	"chatsync/internal/models"
	"chatsync/internal/retry"
	"chatsync/internal/service"
	"chatsync/internal/tracing"
	"chatsync/pkg/chatapi"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (includes sensitive information)")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("chatsync %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting chatsync")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	configureLogLevel(logger, cfg)

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultTracingConfig()
	tracingConfig.ServiceVersion = Version
	tracingConfig.Enabled = os.Getenv("CHATSYNC_ENABLE_TRACING") == "true"
	if endpoint := os.Getenv("CHATSYNC_OTLP_ENDPOINT"); endpoint != "" {
		tracingConfig.OTLPEndpoint = endpoint
		tracingConfig.UseStdout = false
	}
	tracingManager := tracing.NewTracingManager(tracingConfig, logger)

	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	// Initialize database with exponential backoff retry
	var db *database.Database
	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  constants.DefaultDatabaseRetryAttempts,
		Jitter:       true,
	})

	err = backoff.Retry(ctx, func() error {
		var initErr error
		db, initErr = database.New(cfg.Database.Path)
		if initErr != nil {
			logger.Warnf("Failed to initialize database: %v", initErr)
		}
		return initErr
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database after retries: %w", err)
	}
	defer func() { _ = db.Close() }()

	directory := buildUserDirectory(cfg, logger)
	manager := service.NewConversationManager(db, db, directory, logger)

	ctxWithVerbose := context.WithValue(ctx, service.VerboseContextKey, *verbose)

	server := NewServer(cfg, manager, logger)
	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Client-side sync components: the engine polls open conversations
	// against the messaging API, the composer sends through it.
	client := newMessagingClient(cfg, logger)
	engine := service.NewSyncEngine(client, cfg.Sync, logger)
	composer := service.NewComposer(client, engine, cfg.Sync.SendTimeoutSec, logger)

	monitor := service.NewPendingMonitor(engine, cfg.Sync.MonitorIntervalSec, cfg.Sync.StalePendingSec, logger)
	monitor.Start(ctxWithVerbose)

	// Reload sync tuning when the config file changes on disk.
	watcher := config.NewWatcher(*configPath, logger)
	watcher.OnReload(func(next *models.Config) {
		engine.ApplyConfig(next.Sync)
	})
	go func() {
		if err := watcher.Start(ctx); err != nil {
			logger.Warnf("Config watcher unavailable: %v", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	monitor.Stop()
	composer.Wait()
	engine.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	logger.Info("Server shutdown completed")
	return nil
}

func configureLogLevel(logger *logrus.Logger, cfg *models.Config) {
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled - sensitive information will be logged")
		return
	}
	if cfg.LogLevel == "" {
		logger.SetLevel(logrus.InfoLevel)
		return
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	if level > logrus.InfoLevel && !*verbose {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

func newMessagingClient(cfg *models.Config, logger *logrus.Logger) *chatapi.HTTPClient {
	httpClient := &http.Client{
		Timeout: time.Duration(cfg.API.TimeoutSec) * time.Second,
	}
	return chatapi.NewClientWithLogger(cfg.API.BaseURL, cfg.API.AuthToken, cfg.API.UserID, httpClient, logger)
}

func buildUserDirectory(cfg *models.Config, logger *logrus.Logger) service.UserDirectory {
	if cfg.UserService.BaseURL == "" {
		logger.Info("No user service configured, accepting all participant IDs")
		return service.NewAllowAllDirectory()
	}
	timeout := time.Duration(cfg.UserService.TimeoutSec) * time.Second
	return service.NewHTTPUserDirectory(cfg.UserService.BaseURL, timeout, logger)
}

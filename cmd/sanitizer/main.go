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

	"go.uber.org/zap"

	"github.com/raaihank/packlist-sanitizer/internal/artifact"
	"github.com/raaihank/packlist-sanitizer/internal/audit"
	"github.com/raaihank/packlist-sanitizer/internal/config"
	"github.com/raaihank/packlist-sanitizer/internal/logger"
	"github.com/raaihank/packlist-sanitizer/internal/sanitizer"
	"github.com/raaihank/packlist-sanitizer/internal/server"
	"github.com/raaihank/packlist-sanitizer/internal/textextract"
	"github.com/raaihank/packlist-sanitizer/internal/websocket"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("packlist-sanitizer %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *healthCheck {
		performHealthCheck(cfg.Server.Port)
		return
	}

	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting packlist-sanitizer",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.Int("port", cfg.Server.Port),
	)

	// Only the log level is applied live; everything else needs a restart.
	if err := config.Watch(func(newCfg *config.Config) {
		if err := log.SetLevel(newCfg.Logging.Level); err != nil {
			log.Warn("Failed to apply log level", zap.Error(err))
			return
		}
		log.Info("Configuration reloaded", zap.String("log_level", newCfg.Logging.Level))
	}, func(err error) {
		log.Warn("Ignoring configuration change", zap.Error(err))
	}); err != nil {
		log.Debug("Configuration hot reload disabled", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := newArtifactStore(ctx, cfg, log)
	if err != nil {
		cancel()
		log.Fatal("Failed to create artifact store", zap.Error(err))
	}
	defer store.Close()

	recorder, err := newRecorder(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("Failed to create audit store", zap.Error(err))
	}
	defer recorder.Close()

	ws := cfg.WebSocket
	hub := websocket.NewHub(&websocket.HubConfig{
		BroadcastJobs:        ws.Events.BroadcastJobs,
		BroadcastRedactions:  ws.Events.BroadcastRedactions,
		BroadcastSystem:      ws.Events.BroadcastSystem,
		BroadcastConnections: ws.Events.BroadcastConnections,
		Username:             ws.Username,
		Password:             ws.Password,
		AllowedOrigins:       ws.AllowedOrigins,
		MaxConnections:       ws.MaxConnections,
		ReadBufferSize:       ws.ReadBufferSize,
		WriteBufferSize:      ws.WriteBufferSize,
		PingInterval:         ws.PingInterval,
		PongTimeout:          ws.PongTimeout,
		WriteTimeout:         ws.WriteTimeout,
		MaxMessageSize:       ws.MaxMessageSize,
	}, log)

	srv, err := server.New(cfg, server.Deps{
		Sanitizer: sanitizer.New(nil, log.WithComponent("sanitizer")),
		Extractor: textextract.New(textextract.Config{
			Pdftotext: cfg.Extraction.PDFToTextPath,
			Timeout:   cfg.Extraction.Timeout,
			TempDir:   cfg.Server.UploadDir,
		}, log.WithComponent("textextract")),
		Artifacts: store,
		Audit:     recorder,
		Hub:       hub,
	}, log)
	if err != nil {
		log.Fatal("Failed to create server", zap.Error(err))
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil {
			log.Error("Server error", zap.Error(err))
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			return
		}

		log.Info("Server shutdown complete")
	}
}

func newArtifactStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (artifact.Store, error) {
	if cfg.Artifacts.Backend == "redis" {
		store, err := artifact.NewRedisStore(ctx, artifact.RedisConfig{
			RedisURL:  cfg.Artifacts.RedisURL,
			KeyPrefix: cfg.Artifacts.KeyPrefix,
			PoolSize:  cfg.Artifacts.PoolSize,
			TTL:       cfg.Artifacts.TTL,
		}, log.WithComponent("artifact"))
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return artifact.NewMemoryStore(cfg.Artifacts.TTL), nil
}

func newRecorder(ctx context.Context, cfg *config.Config, log *logger.Logger) (audit.Recorder, error) {
	if !cfg.Audit.Enabled {
		return audit.Noop{}, nil
	}
	store, err := audit.NewStore(ctx, audit.Config{
		DatabaseURL:     cfg.Audit.DatabaseURL,
		MaxOpenConns:    cfg.Audit.MaxConnections,
		MaxIdleConns:    cfg.Audit.MaxIdle,
		ConnMaxLifetime: cfg.Audit.ConnMaxLifetime,
	}, log.WithComponent("audit"))
	if err != nil {
		return nil, err
	}
	return store, nil
}

// performHealthCheck performs a health check against the running server
func performHealthCheck(port int) {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/health", port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}

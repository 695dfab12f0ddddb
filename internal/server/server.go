package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/raaihank/packlist-sanitizer/internal/artifact"
	"github.com/raaihank/packlist-sanitizer/internal/audit"
	"github.com/raaihank/packlist-sanitizer/internal/config"
	"github.com/raaihank/packlist-sanitizer/internal/logger"
	"github.com/raaihank/packlist-sanitizer/internal/ratelimit"
	"github.com/raaihank/packlist-sanitizer/internal/sanitizer"
	"github.com/raaihank/packlist-sanitizer/internal/textextract"
	"github.com/raaihank/packlist-sanitizer/internal/web"
	"github.com/raaihank/packlist-sanitizer/internal/websocket"
)

// Version is reported by /info
const Version = "0.1.0"

// statusInterval is how often a system status event is pushed
const statusInterval = 30 * time.Second

// Extractor turns an uploaded file into text
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) (textextract.Result, error)
}

// Deps are the collaborators a Server needs
type Deps struct {
	Sanitizer *sanitizer.Sanitizer
	Extractor Extractor
	Artifacts artifact.Store
	Audit     audit.Recorder // nil -> audit.Noop
	Hub       *websocket.Hub
}

// Server represents the HTTP service
type Server struct {
	config    *config.Config
	logger    *logger.Logger
	sanitizer *sanitizer.Sanitizer
	extractor Extractor
	artifacts artifact.Store
	audit     audit.Recorder
	wsHub     *websocket.Hub
	limiter   *ratelimit.Limiter
	router    *mux.Router
	server    *http.Server

	startedAt   time.Time
	totalJobs   atomic.Int64
	blockedJobs atomic.Int64

	cancel context.CancelFunc
}

// New creates a new server instance
func New(cfg *config.Config, deps Deps, log *logger.Logger) (*Server, error) {
	if deps.Sanitizer == nil || deps.Extractor == nil || deps.Artifacts == nil || deps.Hub == nil {
		return nil, errors.New("server: sanitizer, extractor, artifacts and hub are required")
	}
	if deps.Audit == nil {
		deps.Audit = audit.Noop{}
	}

	server := &Server{
		config:    cfg,
		logger:    log.WithComponent("server"),
		sanitizer: deps.Sanitizer,
		extractor: deps.Extractor,
		artifacts: deps.Artifacts,
		audit:     deps.Audit,
		wsHub:     deps.Hub,
		limiter: ratelimit.New(ratelimit.Config{
			Enabled:        cfg.RateLimit.Enabled,
			RequestsPerMin: cfg.RateLimit.RequestsPerMin,
			Burst:          cfg.RateLimit.Burst,
		}),
		router:    mux.NewRouter(),
		startedAt: time.Now(),
	}

	server.setupRoutes()

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// The socket is registered outside the middleware chain, which wraps
	// the ResponseWriter and would break the upgrade.
	if s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.config.WebSocket.Path, s.wsHub.HandleWebSocket).Methods("GET")
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	app := s.router.NewRoute().Subrouter()
	app.Use(s.loggingMiddleware)
	app.Use(s.rateLimitMiddleware)

	app.HandleFunc("/", web.ServeUploadPage).Methods("GET")
	app.HandleFunc("/upload", s.handleUpload).Methods("POST")
	app.HandleFunc("/download/{name}", s.handleDownload).Methods("GET")

	api := app.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/sanitize", s.handleSanitize).Methods("POST")
	api.HandleFunc("/jobs", s.handleJobs).Methods("GET")
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the background loops and serves until Stop is called
func (s *Server) Start() error {
	s.logger.Info("Starting packing list sanitizer",
		zap.Int("port", s.config.Server.Port),
		zap.String("artifact_backend", s.config.Artifacts.Backend),
		zap.Bool("audit_enabled", s.config.Audit.Enabled),
		zap.Bool("websocket_enabled", s.config.WebSocket.Enabled),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.wsHub.Run(ctx)
	go s.limiter.StartCleanupRoutine(10*time.Minute, ctx.Done())
	go s.statusLoop(ctx)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server and the background loops
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping packing list sanitizer")
	err := s.server.Shutdown(ctx)
	if s.cancel != nil {
		s.cancel()
	}
	return err
}

func (s *Server) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.wsHub.BroadcastEvent(websocket.Event{
				Type: websocket.EventTypeSystemStatus,
				Data: s.systemStatus(),
			})
		}
	}
}

func (s *Server) systemStatus() websocket.SystemStatusEvent {
	return websocket.SystemStatusEvent{
		Status:           "healthy",
		Uptime:           time.Since(s.startedAt).Round(time.Second).String(),
		TotalJobs:        s.totalJobs.Load(),
		BlockedJobs:      s.blockedJobs.Load(),
		ConnectedClients: s.wsHub.GetStats().ActiveConnections,
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	reg := s.sanitizer.Registry()

	info := map[string]any{
		"name":                "packlist-sanitizer",
		"version":             Version,
		"company":             s.config.Company.Name,
		"confidential_fields": len(reg.Confidential()),
		"keep_fields":         len(reg.Keep()),
		"artifact_backend":    s.config.Artifacts.Backend,
		"audit_enabled":       s.config.Audit.Enabled,
		"status":              s.systemStatus(),
		"websocket":           s.wsHub.GetStats(),
	}
	if stats, err := s.artifacts.Stats(r.Context()); err == nil {
		info["artifacts"] = stats
	} else {
		s.logger.Warn("Failed to read artifact stats", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, info)
}

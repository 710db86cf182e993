package application

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/shoptools/internal/api"
	"github.com/eugenenazirov/shoptools/internal/config"
	"github.com/eugenenazirov/shoptools/internal/stamps"
	"github.com/eugenenazirov/shoptools/internal/storage"
)

// endpoints lists the API surface advertised on the root path.
var endpoints = []string{
	"GET /api/health",
	"POST /api/stamps/solve",
	"GET /api/stamps/inventory",
	"PUT /api/stamps/inventory",
	"POST /api/unit-price/compare",
	"GET /api/settings",
	"PUT /api/settings",
}

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage storage.Storage
	solver  stamps.Solver
	handler *api.Handler
	router  http.Handler
	logger  *zap.Logger
	server  *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	store, err := newStorage(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	solver := stamps.New()
	handler := api.NewHandler(solver, store,
		api.WithLogger(logger),
		api.WithLimits(cfg.MaxTarget, cfg.MaxStock, cfg.MaxEntries),
	)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithSolveRateLimit(cfg.SolveRPS, cfg.SolveBurst),
	)

	return &App{
		storage: store,
		solver:  solver,
		handler: handler,
		router:  apiRouter,
		logger:  logger,
		server:  NewServer(cfg, BuildRootHandler(apiRouter)),
	}, nil
}

// newStorage opens the YAML state file when one is configured and falls back
// to in-memory storage otherwise.
func newStorage(cfg config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.DataFile == "" {
		logger.Info("using in-memory storage")
		return storage.NewMemoryStorage(), nil
	}

	store, err := storage.OpenFileStorage(cfg.DataFile)
	if err != nil {
		return nil, err
	}
	logger.Info("using file storage", zap.String("path", store.Path()))
	return store, nil
}

// BuildRootHandler mounts the API under /api/ and answers the bare root path
// with the list of available endpoints.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"service":   "shoptools",
			"endpoints": endpoints,
		})
	}))
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

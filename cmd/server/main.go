package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/shoptools/internal/application"
	"github.com/eugenenazirov/shoptools/internal/config"
	"github.com/eugenenazirov/shoptools/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("shoptools", "Shop Tools - stamp change solver and unit price comparison service")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	port := kingpinApp.Flag("port", "HTTP port exposed by the service").String()
	logLevel := kingpinApp.Flag("log-level", "Log level (debug, info, warn, error)").String()
	dataFile := kingpinApp.Flag("data-file", "YAML file persisting inventory and settings (in-memory when empty)").String()
	maxTarget := kingpinApp.Flag("max-target", "Largest accepted target amount and denomination (0 keeps config)").Default("0").Int()
	maxStock := kingpinApp.Flag("max-stock", "Largest accepted stock per denomination (0 keeps config)").Default("0").Int()
	maxEntries := kingpinApp.Flag("max-entries", "Largest accepted number of stock rows per solve (0 keeps config)").Default("0").Int()
	rateLimitRPSFlag := kingpinApp.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := kingpinApp.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()
	solveRPSFlag := kingpinApp.Flag("solve-rate-limit-rps", "Solve requests per second allowed on top of the shared limit (set 0 to disable)").Default("-1").Float64()
	solveBurstFlag := kingpinApp.Flag("solve-rate-limit-burst", "Burst capacity for the solve limiter (set 0 to disable)").Default("-1").Int()

	kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
	}

	if *port != "" {
		overrides.Port = port
	}

	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}

	if *dataFile != "" {
		overrides.DataFile = dataFile
	}

	if *maxTarget > 0 {
		overrides.MaxTarget = maxTarget
	}

	if *maxStock > 0 {
		overrides.MaxStock = maxStock
	}

	if *maxEntries > 0 {
		overrides.MaxEntries = maxEntries
	}

	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}

	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

	if *solveRPSFlag >= 0 {
		overrides.SolveRPS = solveRPSFlag
	}

	if *solveBurstFlag >= 0 {
		overrides.SolveBurst = solveBurstFlag
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("configuration loaded",
		zap.String("port", cfg.Port),
		zap.String("data_file", cfg.DataFile),
		zap.Int("max_target", cfg.MaxTarget),
		zap.Int("max_stock", cfg.MaxStock),
		zap.Int("max_entries", cfg.MaxEntries),
		zap.Float64("rate_limit_rps", cfg.RateLimitRPS),
		zap.Float64("solve_rate_limit_rps", cfg.SolveRPS),
	)

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server", zap.Duration("grace_period", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/avoronin/runway/internal/api"
	"github.com/avoronin/runway/internal/config"
	"github.com/avoronin/runway/internal/launcher"
	"github.com/avoronin/runway/internal/logging"
	"github.com/avoronin/runway/internal/report"
	"github.com/avoronin/runway/internal/supervisor"
)

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("runway", "Service bootstrap - resolves configuration from the environment, reports it, and launches the HTTP listener")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	portFlag := kingpinApp.Flag("port", "Port to bind the listener on").Default("0").Int()
	logLevelFlag := kingpinApp.Flag("log-level", "Log level (error, info, debug)").String()
	watchFlag := kingpinApp.Flag("watch", "Watch filesystem roots and restart the listener on change").Bool()
	watchPathsFlag := kingpinApp.Flag("watch-path", "Filesystem root to watch (repeatable)").Strings()

	kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	// Optional .env for development; silently absent in containers, where
	// the orchestrator injects the environment directly.
	_ = godotenv.Load()

	snap := config.Environ()
	cfg, err := config.Resolve(snap, buildOverrides(*configFile, *portFlag, *logLevelFlag, *watchFlag, *watchPathsFlag))
	if err != nil {
		panic(fmt.Sprintf("failed to resolve configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	for _, warning := range cfg.Warnings {
		logger.Warn("configuration warning", zap.String("detail", warning))
	}

	report.Build(cfg, snap).Render(os.Stdout)

	handler := api.NewHandler(cfg.HasDatabaseURL)
	handler.MarkStartup()

	launch := func() (*launcher.Handle, error) {
		return launcher.Start(cfg, func() (http.Handler, error) {
			return api.NewRouter(handler, logger,
				api.WithLogging(cfg.EnableRequestLogging),
				api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
			), nil
		}, logger)
	}

	handle, err := launch()
	if err != nil {
		logStartupFailure(logger, err)
		_ = logger.Sync()
		os.Exit(1)
	}
	handler.SetReady(true)

	var sup *supervisor.Supervisor
	if cfg.ReloadEnabled {
		sup = supervisor.New(cfg, handle, launch, logger)
		sup.Run()
	}

	waitForShutdown(handle, sup, cfg.ShutdownGracePeriod, logger)
}

// buildOverrides maps parsed flags onto config overrides, treating zero
// values as "flag not set".
func buildOverrides(configFile string, port int, logLevel string, watch bool, watchPaths []string) *config.CLIOverrides {
	overrides := &config.CLIOverrides{
		ConfigFile: configFile,
		WatchPaths: watchPaths,
	}
	if port > 0 {
		overrides.Port = &port
	}
	if logLevel != "" {
		overrides.LogLevel = &logLevel
	}
	if watch {
		overrides.Watch = &watch
	}
	return overrides
}

// logStartupFailure emits a specific diagnostic for each fatal startup
// error class before the non-zero exit.
func logStartupFailure(logger *zap.Logger, err error) {
	var bindErr *launcher.BindError
	var initErr *launcher.HandlerInitError

	switch {
	case errors.As(err, &bindErr):
		logger.Error("cannot bind listener",
			zap.String("addr", bindErr.Addr),
			zap.String("reason", string(bindErr.Reason)),
			zap.Error(bindErr.Err),
		)
	case errors.As(err, &initErr):
		logger.Error("application handler failed to initialize", zap.Error(initErr.Err))
	default:
		logger.Error("startup failed", zap.Error(err))
	}
}

// waitForShutdown blocks until a termination signal, then tears the service
// down cooperatively within the grace period.
func waitForShutdown(handle *launcher.Handle, sup *supervisor.Supervisor, grace time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if sup != nil {
		if err := sup.Stop(ctx); err != nil {
			logger.Warn("supervisor stop incomplete", zap.Error(err))
		}
		return
	}

	if err := handle.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := handle.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}

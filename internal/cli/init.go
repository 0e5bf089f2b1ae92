// Package cli wires configuration, logging, storage and the tracker together
// and dispatches a single command per process run.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"expenses/internal/backend"
	"expenses/internal/config"
	applog "expenses/internal/log"
	"expenses/internal/services"
)

// SetupLogger initializes structured logging on w at the given level name.
// Returns the configured logger and sets it as the default logger.
func SetupLogger(w io.Writer, level string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Output = w
	cfg.Level = applog.ParseLevel(level)
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file from the working directory, if any.
// A missing file is not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenBackend builds the store and optional event publisher for cfg.
func OpenBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend at %s: %w", cfg.DataBackend, cfg.StorePath(), err)
	}
	return result, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openBackend is replaced in tests.
var openBackend = OpenBackend

// Main runs one command line against the configured store and returns the
// process exit code. A panic anywhere in the run becomes a single
// "Unexpected error" line.
func Main(ctx context.Context, args []string, stdout, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stdout, "Unexpected error: %v\n", r)
			slog.ErrorContext(ctx, "Run panicked", applog.FieldComponent, applog.ComponentCLI,
				"panic", r, applog.FieldErrorType, applog.ErrorTypeInternal)
			code = ExitError
		}
	}()

	if wantsHelp(args) {
		printUsage(stdout)
		return ExitOK
	}

	cfg, err := LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return ExitError
	}

	logger := SetupLogger(stderr, cfg.LogLevel).
		With(applog.FieldRunID, uuid.NewString()).
		WithComponent(applog.ComponentCLI)

	logger.DebugContext(ctx, "Starting command",
		applog.FieldOperation, applog.OpStartup, applog.FieldCommand, args[0], applog.FieldBackend, cfg.DataBackend)

	result, err := openBackend(ctx, logger, cfg)
	if err != nil {
		logger.ErrorContext(ctx, "Backend initialization failed",
			applog.FieldOperation, applog.OpStartup, applog.FieldBackend, cfg.DataBackend,
			applog.FieldError, err, applog.FieldErrorType, applog.ErrorTypeStorage)
		fmt.Fprintf(stdout, "Unexpected error: %v\n", err)
		return ExitError
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.WarnContext(ctx, "Backend cleanup failed", applog.FieldError, err)
			}
		}()
	}

	tracker := services.NewTracker(ctx, result.Store, services.Options{
		Out:       stdout,
		Err:       stderr,
		Publisher: result.Publisher,
		Logger:    logger,
	})

	app := NewApp(tracker, AppOptions{
		Out:        stdout,
		Err:        stderr,
		ExportFile: cfg.ExportFile,
		Logger:     logger,
	})
	return app.Run(ctx, args)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/riskibarqy/livescore-sync/internal/app"
	"github.com/riskibarqy/livescore-sync/internal/config"
	"github.com/riskibarqy/livescore-sync/internal/observability"
	"github.com/riskibarqy/livescore-sync/internal/platform/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "livesync",
		Short:         "Live score polling and push notification worker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCommand(), runCommand(), lockCommand())
	return rootCmd
}

// runtime is one initialized process: config, logger, telemetry and app.
type runtime struct {
	cfg      config.Config
	logger   *logging.Logger
	app      *app.App
	shutdown []func(context.Context) error
}

func bootstrap(ctx context.Context, withTelemetry bool) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.NewJSON(cfg.LogLevel).With(
		"service", cfg.ServiceName,
		"version", cfg.ServiceVersion,
		"env", cfg.AppEnv,
	)
	logging.SetDefault(logger)
	rt := &runtime{cfg: cfg, logger: logger}

	if withTelemetry {
		shutdownTracing, err := observability.InitUptrace(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("init uptrace: %w", err)
		}
		rt.shutdown = append(rt.shutdown, shutdownTracing)

		stopProfiler, err := observability.InitPyroscope(cfg, logger)
		if err != nil {
			logger.Warn("pyroscope disabled after start failure", "error", err)
		} else {
			rt.shutdown = append(rt.shutdown, func(context.Context) error { return stopProfiler() })
		}
	}

	rt.app, err = app.New(ctx, cfg, logger)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("build app: %w", err)
	}
	return rt, nil
}

func (rt *runtime) close() {
	if rt.app != nil {
		rt.app.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for i := len(rt.shutdown) - 1; i >= 0; i-- {
		if err := rt.shutdown[i](ctx); err != nil {
			rt.logger.Warn("telemetry shutdown failed", "error", err)
		}
	}
	_ = rt.logger.Sync()
}

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/riskibarqy/livescore-sync/internal/observability"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the live score trigger, health and metrics endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := bootstrap(ctx, true)
			if err != nil {
				return err
			}
			defer rt.close()

			pprofSrv, err := observability.StartPprofServer(rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := observability.StopPprofServer(pprofSrv, rt.logger, 5*time.Second); err != nil {
					rt.logger.Warn("pprof shutdown failed", "error", err)
				}
			}()

			srv, err := rt.app.NewHTTPServer()
			if err != nil {
				return err
			}

			serveErr := make(chan error, 1)
			go func() {
				rt.logger.Info("http server starting", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case err := <-serveErr:
				if err != nil {
					rt.logger.Error("http server failed", "error", err)
					return err
				}
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				rt.logger.Error("graceful shutdown failed", "error", err)
				return err
			}
			rt.logger.Info("http server stopped")
			return nil
		},
	}
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	qhttp "heartpredict/http"
	"heartpredict/predictor"
)

func newServeCmd(a *app) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the prediction form and JSON API",
		Long: `Serve the prediction form and JSON API.

When the model artifact cannot be loaded the server still starts, but every
page reports the error and no prediction is made.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.HTTP.Port = port
			}
			logger, closeLogger, err := a.logger(cfg)
			if err != nil {
				return err
			}
			defer closeLogger()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var webApp *qhttp.App
			adapter, err := openPredictor(cfg, logger)
			switch {
			case err == nil:
				webApp = qhttp.NewApp(adapter, logger)
			case errors.Is(err, predictor.ErrMissingArtifact):
				logger.Error("model artifact missing; serving halted page", zap.Error(err))
				webApp = qhttp.NewHaltedApp(err, logger)
			default:
				logger.Error("model artifact unusable; serving halted page", zap.Error(err))
				webApp = qhttp.NewHaltedApp(err, logger)
			}

			if adapter != nil && cfg.Model.Watch {
				watcher, err := predictor.NewWatcher(adapter, logger)
				if err != nil {
					return err
				}
				defer watcher.Close()
				go watcher.Run(ctx)
			}

			srv, err := qhttp.NewServer(cfg.HTTP, webApp, logger)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			if err := srv.Stop(context.Background()); err != nil {
				logger.Error("server forced to shutdown", zap.Error(err))
				return err
			}
			logger.Info("exiting")
			return nil
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides http.port)")
	return cmd
}

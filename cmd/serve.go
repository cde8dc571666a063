package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/itakello/projectsync/internal/api"
	"github.com/itakello/projectsync/internal/curated"
	"github.com/itakello/projectsync/internal/webhook"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the showcase HTTP server",
		Long: `Serves the reconciled project listing, the diff report and the GitHub
webhook endpoint. Shuts down gracefully on SIGINT/SIGTERM.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	records, err := curated.Load(rt.cfg.Curated.Path)
	if err != nil {
		return fmt.Errorf("load curated list: %w", err)
	}

	hook := webhook.NewRouter(
		rt.cfg.Webhook.Secret,
		rt.source,
		rt.store,
		rt.enricher,
		rt.logger.Named("webhook"),
	)
	server := api.NewServer(
		rt.cfg.GitHub.Owner,
		records,
		rt.source,
		rt.store,
		hook,
		rt.logger.Named("api"),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", rt.cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		rt.logger.Info("http server started", zap.Int("port", rt.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	rt.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	rt.logger.Info("shutdown complete")
	return nil
}

package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/plotsearch/internal/api/handlers"
	"github.com/cloo-solutions/plotsearch/internal/authclient"
	"github.com/cloo-solutions/plotsearch/internal/jobs"
	"github.com/cloo-solutions/plotsearch/internal/server"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the plotsearch API server and, when configured, the saved-search sweep worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides PLOTSEARCH_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		a.cfg.Port = port
	}

	if noMigrate, _ := cmd.Flags().GetBool("no-migrate"); !noMigrate {
		if err := runMigrations(a.cfg.DatabaseURL, a.logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	a.wire()

	routerCfg := server.RouterConfig{
		Logger:             a.logger,
		Metrics:            a.metrics,
		Database:           a.pool,
		SearchHandler:      handlers.NewSearchHandler(a.search),
		GeoHandler:         handlers.NewGeoHandler(a.geo),
		SavedSearchHandler: handlers.NewSavedSearchHandler(a.saved),
	}
	if a.cfg.HasAuth() {
		routerCfg.TokenValidator = authclient.NewClient(a.cfg.AuthServiceURL)
	} else {
		a.logger.Warn("PLOTSEARCH_AUTH_SERVICE_URL not set, authenticated routes will answer 503")
	}

	var worker *jobs.Worker
	if a.cfg.SweepEnabled() {
		processor, err := a.sweepProcessor(a.cfg.SweepExact)
		if err != nil {
			return err
		}
		worker = jobs.NewWorker(processor, a.cfg.SweepInterval, a.logger)
		go worker.Start(ctx)
		a.logger.Info("sweep worker started", "interval", a.cfg.SweepInterval, "exact", a.cfg.SweepExact)
	}

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           server.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting server", "port", a.cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	a.logger.Info("shutting down")

	if worker != nil {
		worker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	a.logger.Info("server exited")
	return nil
}

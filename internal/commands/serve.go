package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cardcycle/backend/docs"
	"github.com/cardcycle/backend/internal/handlers"
	"github.com/cardcycle/backend/internal/services"
	"github.com/spf13/cobra"
)

func newServeCommand(opts func() appOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, recompute workers and scheduled sweeps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts())
			if err != nil {
				return err
			}
			defer a.Close()
			return runServe(a)
		},
	}
}

func runServe(a *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue := services.NewRecomputeQueue(a.cfg.Engine.QueueSize, a.sync, a.repair, a.log)
	queue.Start(ctx, a.cfg.Engine.Workers)

	scheduler := services.NewScheduler(a.store, a.sync, a.cfg.Engine.Workers, a.log)
	go scheduler.Run(ctx, a.cfg.Engine.ScheduleInterval)

	docs.SwaggerInfo.Host = "localhost:" + a.cfg.Server.Port

	router := handlers.NewRouter(
		handlers.NewCycleHandler(a.store, queue, a.repair, a.reports, a.log),
		handlers.NewWebhookHandler(queue, a.log),
		a.log,
	)

	server := &http.Server{
		Addr:         ":" + a.cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	a.log.Info().Msg("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := queue.Stop(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("Recompute workers did not finish in time")
	}

	a.log.Info().Msg("Server stopped")
	return nil
}

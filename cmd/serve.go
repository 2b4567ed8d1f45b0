package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/textaudit/collector/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP API until interrupted.
//
// On startup, tasks left pending or running by a previous process are marked
// failed before the listener accepts submissions.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	db, store, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	orchestrator := r.newOrchestrator(store)

	if err := orchestrator.RecoverInterrupted(ctx); err != nil {
		return fmt.Errorf("startup recovery failed: %w", err)
	}

	router := server.NewBasicRouter()
	router.Use(server.RequestID(), server.Logging(r.logger))
	router.Handler(server.NewCollectHandler(orchestrator, r.logger))
	router.Handler(server.NewHealthHandler(store))

	host := r.config.Server.Host
	if cmd.String("host") != "" {
		host = cmd.String("host")
	}
	port := r.config.Server.Port
	if cmd.Int("port") != 0 {
		port = cmd.Int("port")
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		r.logger.Info("server listening", "addr", addr)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		r.logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("http shutdown incomplete", "error", err)
	}
	if err := orchestrator.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("task shutdown incomplete", "error", err)
	}

	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/cardgest/internal/api"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the cardgest HTTP server",
	Long: `Start the HTTP server.

Endpoints:
  GET  /health              liveness
  POST /api/runs            run now (?date=YYYY-MM-DD&dry_run=true)
  GET  /api/runs/{id}       a recent run
  GET  /api/sections        headings of the day's note (?date=)
  POST /api/cards/parse     parse a model reply sent as the body
  GET  /api/stats/llm       model latency

Everything under /api needs "Authorization: Bearer <server.api_key>".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(os.Stdout, true)

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.ValidateServer(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		port := cfg.Server.Port
		if servePort != "" {
			port = servePort
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, log, false)
		if err != nil {
			return err
		}
		defer a.Close()

		a.runner.Start(ctx)
		defer a.runner.Stop()

		httpServer := &http.Server{
			Addr:         ":" + port,
			Handler:      api.NewServer(a.runner, a.model, log, cfg.Server.APIKey),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: cfg.LLM.Timeout + cfg.Anki.Timeout*10 + 30*time.Second,
			IdleTimeout:  60 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info("starting cardgest", "port", port, "config", cfg.File)
			errCh <- httpServer.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		log.Info("shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (default: server.port)")
}

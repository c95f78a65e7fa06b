package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/cardgest/internal/anki"
	"github.com/dgallion1/cardgest/internal/config"
	"github.com/dgallion1/cardgest/internal/llm"
	"github.com/dgallion1/cardgest/internal/pipeline"
)

var (
	cfgFile string
	verbose bool
	logJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "cardgest",
	Short: "Turn today's Trilium notes into Anki cards",
	Long: `cardgest reads the day's entry from a Trilium journal, asks a language
model to write question/answer cards about it, and adds them to Anki through
AnkiConnect.

A journal can be one note per day (calendar or search mode) or one long note
with a heading per day (fixed_note mode), in which case only the section under
today's date heading is used.`,
	Version:      buildVersion(),
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.cardgest/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON")

	rootCmd.AddCommand(runCmd, sectionsCmd, parseCmd, serveCmd, configCmd, versionCmd)
}

func newLogger(w io.Writer, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// app holds the clients one command needs.
type app struct {
	runner  *pipeline.Runner
	model   llm.Client
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp wires a Runner from cfg. With notesOnly set, no model or Anki client
// is created, which is enough for Runner.Sections.
func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger, notesOnly bool) (*app, error) {
	notes, closeNotes := pipeline.NewNoteSource(cfg.Trilium)
	a := &app{closers: []func(){closeNotes}}

	if notesOnly {
		a.runner = pipeline.NewRunner(cfg, notes, nil, nil, log)
		return a, nil
	}

	model, err := llm.New(ctx, cfg.LLMConfig(), nil)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	a.model = model
	a.closers = append(a.closers, model.Close)

	ankiClient := anki.NewClient(cfg.Anki.AnkiConnectURL, cfg.Anki.Timeout)
	a.closers = append(a.closers, ankiClient.Close)

	a.runner = pipeline.NewRunner(cfg, notes, model, ankiClient, log)
	return a, nil
}

func stderrLogger() *slog.Logger {
	return newLogger(os.Stderr, logJSON)
}

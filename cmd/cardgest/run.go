package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/dgallion1/cardgest/internal/anki"
	"github.com/dgallion1/cardgest/internal/pipeline"
)

var (
	runDate   string
	runDryRun bool
)

const answerPreviewRunes = 100

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate today's cards and add them to Anki",
	Long: `Fetch the day's note, generate question/answer cards with the configured
model and add them to the configured Anki deck.

Examples:
  cardgest run                       # today
  cardgest run --date 2024-03-05     # a past day
  cardgest run --dry-run             # preview cards without touching Anki`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := parseDay(runDate)
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		log := stderrLogger()
		a, err := newApp(cmd.Context(), cfg, log, false)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		report, err := a.runner.Run(cmd.Context(), pipeline.RunOptions{
			Date:        day,
			DryRun:      runDryRun,
			OnGenerated: func(r *pipeline.Report) { printPreview(out, r) },
			OnCard:      func(res anki.CardResult) { printCardResult(out, res) },
		})
		if errors.Is(err, pipeline.ErrContentTooShort) {
			fmt.Fprintf(out, "warning: %s\n", err)
			return nil
		}
		if err != nil {
			return err
		}

		printSummary(out, report, cfg.Anki.DeckName)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runDate, "date", "", "day to process as YYYY-MM-DD (default: today)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "generate and preview cards without adding them to Anki")
}

func parseDay(v string) (time.Time, error) {
	if v == "" {
		return time.Now(), nil
	}
	day, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: want YYYY-MM-DD", v)
	}
	return day, nil
}

func previewAnswer(answer string) string {
	if utf8.RuneCountInString(answer) <= answerPreviewRunes {
		return answer
	}
	return string([]rune(answer)[:answerPreviewRunes]) + "..."
}

func printCardResult(w io.Writer, res anki.CardResult) {
	switch res.Outcome {
	case anki.OutcomeAdded:
		fmt.Fprintf(w, "  [%d] added (id %d)\n", res.Index, res.NoteID)
	case anki.OutcomeSkipped:
		fmt.Fprintf(w, "  [%d] skipped, duplicate\n", res.Index)
	default:
		fmt.Fprintf(w, "  [%d] failed: %s\n", res.Index, res.Error)
	}
}

func printPreview(w io.Writer, report *pipeline.Report) {
	rule := strings.Repeat("-", 50)
	fmt.Fprintf(w, "\n%s (%s)\n", report.NoteTitle, report.Date)
	if report.Section != "" {
		fmt.Fprintf(w, "section: %s\n", report.Section)
	}
	fmt.Fprintln(w, rule)
	for i, c := range report.Cards {
		fmt.Fprintf(w, "\ncard %d:\nQ: %s\nA: %s\n", i+1, c.Question, previewAnswer(c.Answer))
	}
	fmt.Fprintln(w, rule)
	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}

func printSummary(w io.Writer, report *pipeline.Report, deck string) {
	if report.Export == nil {
		if report.DryRun {
			fmt.Fprintf(w, "dry run: %d cards generated, nothing added\n", len(report.Cards))
		}
		return
	}
	s := report.Export
	fmt.Fprintf(w, "total %d, added %d, skipped %d, failed %d\n", s.Total, s.Added, s.Skipped, s.Failed)
	if report.DeckCards != nil {
		fmt.Fprintf(w, "deck %q now has %d cards\n", deck, *report.DeckCards)
	}
}

// Package pipeline runs the daily note → cards → Anki flow.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dgallion1/cardgest/internal/anki"
	"github.com/dgallion1/cardgest/internal/cards"
	"github.com/dgallion1/cardgest/internal/config"
	"github.com/dgallion1/cardgest/internal/daysection"
	"github.com/dgallion1/cardgest/internal/doctree"
	"github.com/dgallion1/cardgest/internal/llm"
	"github.com/dgallion1/cardgest/internal/parser"
)

var (
	ErrNoteNotFound    = errors.New("no note found for the day")
	ErrSectionNotFound = errors.New("no heading for the day in the document")
	ErrContentTooShort = errors.New("note content too short")
	ErrRunInProgress   = errors.New("a run is already in progress")
)

const totalSteps = 6

// RunOptions selects the day and whether cards go to Anki.
type RunOptions struct {
	Date   time.Time
	DryRun bool

	// OnGenerated, if set, is called once cards are parsed, before export.
	OnGenerated func(*Report)
	// OnCard, if set, is called after each card is exported.
	OnCard func(anki.CardResult)
}

// Report is the outcome of one run.
type Report struct {
	RunID         string            `json:"run_id"`
	Date          string            `json:"date"`
	DryRun        bool              `json:"dry_run"`
	SourceVersion string            `json:"source_version,omitempty"`
	NoteTitle     string            `json:"note_title,omitempty"`
	Section       string            `json:"section,omitempty"`
	ContentChars  int               `json:"content_chars"`
	PromptTokens  int               `json:"prompt_tokens_estimate,omitempty"`
	Model         string            `json:"model,omitempty"`
	Cards         []cards.QAPair    `json:"cards"`
	Export        *anki.ExportStats `json:"export,omitempty"`
	DeckCards     *int              `json:"deck_cards,omitempty"`
	Warnings      []string          `json:"warnings,omitempty"`
	DurationMs    int64             `json:"duration_ms"`
}

// SectionsReport lists the headings of a day's note.
type SectionsReport struct {
	NoteTitle string             `json:"note_title"`
	IsFullDoc bool               `json:"is_full_doc"`
	Headings  []string           `json:"headings"`
	Match     *doctree.DateMatch `json:"match,omitempty"`
}

// Runner executes runs one at a time.
type Runner struct {
	notes NoteSource
	llm   Completer
	sink  CardSink
	runs  *RunStore
	log   *slog.Logger

	gen      config.Generation
	exporter anki.Exporter

	busy   sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRunner(cfg *config.Config, notes NoteSource, model Completer, sink CardSink, log *slog.Logger) *Runner {
	return &Runner{
		notes: notes,
		llm:   model,
		sink:  sink,
		runs:  NewRunStore(cfg.Server.RunTTL),
		log:   log,
		gen:   cfg.Generation,
		exporter: anki.Exporter{
			Sink:       sink,
			Deck:       cfg.Anki.DeckName,
			Model:      cfg.Anki.ModelName,
			FrontField: cfg.Anki.FrontField,
			BackField:  cfg.Anki.BackField,
			Tags:       cfg.Anki.Tags,
		},
	}
}

// Start launches run store cleanup.
func (r *Runner) Start(ctx context.Context) {
	cleanupCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				r.runs.Cleanup()
			}
		}
	}()
}

// Stop ends background cleanup.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// GetRun returns a run by ID.
func (r *Runner) GetRun(id string) *Run {
	return r.runs.Get(id)
}

// Run fetches the note for opts.Date, writes cards for it and, unless
// opts.DryRun, adds them to Anki. The returned report is non-nil whenever a
// run was started, including failed ones. Only one run executes at a time;
// a concurrent call gets ErrRunInProgress.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	if !r.busy.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.busy.Unlock()

	if opts.Date.IsZero() {
		opts.Date = time.Now()
	}
	start := time.Now()
	report := &Report{
		RunID:  uuid.NewString(),
		Date:   opts.Date.Format("2006-01-02"),
		DryRun: opts.DryRun,
		Cards:  []cards.QAPair{},
	}
	run := newRun(report.RunID, report.Date, opts.DryRun)
	r.runs.Put(run)
	log := r.log.With("run_id", report.RunID, "date", report.Date)

	err := r.execute(ctx, log, run, opts, report)
	report.DurationMs = time.Since(start).Milliseconds()

	switch {
	case err == nil:
		run.Finish(StatusCompleted, report, nil)
		log.Info("run completed", "cards", len(report.Cards), "duration_ms", report.DurationMs)
	case errors.Is(err, ErrContentTooShort):
		report.Warnings = append(report.Warnings, err.Error())
		run.Finish(StatusSkipped, report, err)
		log.Warn("run skipped", "reason", err)
	default:
		run.Finish(StatusFailed, report, err)
		log.Error("run failed", "error", err)
	}
	return report, err
}

func (r *Runner) execute(ctx context.Context, log *slog.Logger, run *Run, opts RunOptions, report *Report) error {
	// Step 1: reach the note source.
	run.SetStatus(StatusFetching)
	version, err := r.notes.Ping(ctx)
	if err != nil {
		return fmt.Errorf("connect to notes: %w", err)
	}
	report.SourceVersion = version
	log.Info("connected to notes", "step", step(1), "version", version)

	// Step 2: fetch the day's note.
	note, err := r.notes.FetchDay(ctx, opts.Date)
	if err != nil {
		return fmt.Errorf("fetch note: %w", err)
	}
	if note == nil {
		return ErrNoteNotFound
	}
	report.NoteTitle = note.Title
	log.Info("found note", "step", step(2), "title", note.Title, "full_doc", note.IsFullDoc)

	// Step 3: cut the day out of a running document.
	run.SetStatus(StatusExtracting)
	content := note.Content
	if note.IsFullDoc {
		match, ok := daysection.Extract(content, opts.Date)
		if !ok {
			return fmt.Errorf("%w: %s", ErrSectionNotFound, note.Title)
		}
		report.Section = match.Date
		content = match.Content
		log.Info("extracted section", "step", step(3), "heading", match.Date)
	}

	// Step 4: reduce to plain text.
	if parser.LooksLikeHTML(content) {
		content = parser.PlainText(content)
	}
	if r.gen.StripMarkdown {
		content = parser.MarkdownText(content)
	}
	report.ContentChars = utf8.RuneCountInString(content)
	log.Info("prepared content", "step", step(4), "chars", report.ContentChars)

	// Step 5: refuse notes too short to be worth a model call.
	if report.ContentChars < r.gen.MinContentChars {
		return fmt.Errorf("%w: %d characters, need %d", ErrContentTooShort, report.ContentChars, r.gen.MinContentChars)
	}

	// Step 6: write the cards and hand them to Anki.
	run.SetStatus(StatusGenerating)
	report.Model = r.llm.Model()
	gen := cards.Generator{LLM: r.llm, Count: r.gen.CardsPerDay, Difficulty: r.gen.Difficulty}
	report.PromptTokens = llm.EstimateTokens(cards.BuildPrompt(content, gen.Count, gen.Difficulty))
	log.Info("generating cards", "step", step(5), "model", report.Model, "prompt_tokens", report.PromptTokens)

	result, err := gen.Generate(ctx, content)
	if err != nil {
		return err
	}
	report.Cards = result.Pairs
	log.Info("generated cards", "count", len(result.Pairs))
	if len(result.Pairs) == 0 {
		report.Warnings = append(report.Warnings, "model reply contained no Q:/A: pairs")
		log.Warn("no cards parsed from reply", "reply_chars", utf8.RuneCountInString(result.Raw))
	}
	if opts.OnGenerated != nil {
		opts.OnGenerated(report)
	}
	if len(result.Pairs) == 0 {
		return nil
	}

	if opts.DryRun {
		log.Info("dry run, not exporting", "step", step(6))
		return nil
	}

	run.SetStatus(StatusExporting)
	log.Info("exporting to anki", "step", step(6), "deck", r.exporter.Deck)
	stats, err := r.exporter.Export(ctx, result.Pairs, func(res anki.CardResult) {
		if res.Outcome == anki.OutcomeFailed {
			log.Warn("card not added", "index", res.Index, "error", res.Error)
		} else {
			log.Debug("card exported", "index", res.Index, "outcome", res.Outcome, "note_id", res.NoteID)
		}
		if opts.OnCard != nil {
			opts.OnCard(res)
		}
	})
	if err != nil {
		return fmt.Errorf("export to anki: %w", err)
	}
	report.Export = &stats

	count, err := r.sink.DeckCardCount(ctx, r.exporter.Deck)
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("deck card count unavailable: %s", err))
		log.Warn("deck card count failed", "error", err)
		return nil
	}
	report.DeckCards = &count
	return nil
}

// Sections fetches the note for day and lists its headings, along with the
// heading that would be used for day.
func (r *Runner) Sections(ctx context.Context, day time.Time) (*SectionsReport, error) {
	note, err := r.notes.FetchDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("fetch note: %w", err)
	}
	if note == nil {
		return nil, ErrNoteNotFound
	}

	out := &SectionsReport{
		NoteTitle: note.Title,
		IsFullDoc: note.IsFullDoc,
		Headings:  doctree.Headings(parser.Split(note.Content)),
	}
	if note.IsFullDoc {
		if match, ok := daysection.Extract(note.Content, day); ok {
			out.Match = &match
		}
	}
	return out, nil
}

func step(n int) string {
	return fmt.Sprintf("%d/%d", n, totalSteps)
}

package anki

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/cardgest/internal/cards"
)

// Sink is the part of AnkiConnect an Exporter needs.
type Sink interface {
	Version(ctx context.Context) (int, error)
	EnsureDeck(ctx context.Context, deck string) (bool, error)
	AddNote(ctx context.Context, note Note) (int64, error)
}

// Outcome of adding one card.
type Outcome string

const (
	OutcomeAdded   Outcome = "added"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// CardResult reports what happened to one card.
type CardResult struct {
	Index   int     `json:"index"` // 1-based
	Outcome Outcome `json:"outcome"`
	NoteID  int64   `json:"note_id,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// ExportStats counts card outcomes for one export.
type ExportStats struct {
	Total   int `json:"total"`
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// IsDuplicate reports whether err is Anki refusing a duplicate note.
func IsDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "duplicate")
}

// Exporter writes question/answer pairs into one deck as notes of one model.
type Exporter struct {
	Sink       Sink
	Deck       string
	Model      string
	FrontField string
	BackField  string
	Tags       []string
}

// Export adds pairs in order. Per-card failures are counted, not returned;
// only a failed connectivity or deck check aborts. onCard, if non-nil, is
// called after each card.
func (e *Exporter) Export(ctx context.Context, pairs []cards.QAPair, onCard func(CardResult)) (ExportStats, error) {
	stats := ExportStats{Total: len(pairs)}

	if _, err := e.Sink.Version(ctx); err != nil {
		return stats, fmt.Errorf("check ankiconnect: %w", err)
	}
	if e.Deck == "" {
		return stats, errors.New("deck name is required")
	}
	if _, err := e.Sink.EnsureDeck(ctx, e.Deck); err != nil {
		return stats, fmt.Errorf("ensure deck %q: %w", e.Deck, err)
	}

	for i, p := range pairs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		res := CardResult{Index: i + 1}
		id, err := e.Sink.AddNote(ctx, e.note(p))
		switch {
		case err == nil && id != 0:
			res.Outcome, res.NoteID = OutcomeAdded, id
			stats.Added++
		case err == nil || IsDuplicate(err):
			res.Outcome = OutcomeSkipped
			stats.Skipped++
		default:
			res.Outcome, res.Error = OutcomeFailed, err.Error()
			stats.Failed++
		}
		if onCard != nil {
			onCard(res)
		}
	}
	return stats, nil
}

func (e *Exporter) note(p cards.QAPair) Note {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	return Note{
		DeckName:  e.Deck,
		ModelName: e.Model,
		Fields: map[string]string{
			e.FrontField: p.Question,
			e.BackField:  p.Answer,
		},
		Tags: tags,
	}
}

package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/cardgest/internal/anki"
	"github.com/dgallion1/cardgest/internal/config"
	"github.com/dgallion1/cardgest/internal/doctree"
	"github.com/dgallion1/cardgest/internal/parser"
	"github.com/dgallion1/cardgest/internal/trilium"
)

// NoteSource supplies the note for a day. FetchDay returns nil, nil when no
// note exists.
type NoteSource interface {
	Ping(ctx context.Context) (string, error)
	FetchDay(ctx context.Context, day time.Time) (*doctree.Note, error)
}

// Completer is the language model a run writes cards with.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Model() string
}

// CardSink is where cards end up.
type CardSink interface {
	anki.Sink
	DeckCardCount(ctx context.Context, deck string) (int, error)
}

// FileSource reads a journal from a local file instead of a Trilium server.
// The whole file is treated as one running document.
type FileSource struct {
	Path string
}

func (f *FileSource) Ping(context.Context) (string, error) {
	if _, err := parser.ForFile(f.Path); err != nil {
		return "", err
	}
	return "file " + filepath.Base(f.Path), nil
}

func (f *FileSource) FetchDay(_ context.Context, _ time.Time) (*doctree.Note, error) {
	text, err := parser.LoadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", f.Path, err)
	}
	base := filepath.Base(f.Path)
	return &doctree.Note{
		ID:        f.Path,
		Title:     strings.TrimSuffix(base, filepath.Ext(base)),
		Content:   text,
		IsFullDoc: true,
	}, nil
}

// NewNoteSource builds the source selected by cfg.FetchMode. The returned
// func releases its resources.
func NewNoteSource(cfg config.Trilium) (NoteSource, func()) {
	if cfg.FetchMode == config.FetchFile {
		return &FileSource{Path: cfg.FilePath}, func() {}
	}
	client := trilium.NewClient(cfg.ServerURL, cfg.APIToken, cfg.Timeout)
	return &trilium.Fetcher{
		Client:         client,
		Mode:           cfg.FetchMode,
		NoteID:         cfg.NoteID,
		SearchTemplate: cfg.SearchTemplate,
	}, client.Close
}

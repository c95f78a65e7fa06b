package trilium

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dgallion1/cardgest/internal/doctree"
)

// Fetch modes.
const (
	ModeFixedNote = "fixed_note"
	ModeCalendar  = "calendar"
	ModeSearch    = "search"
)

// DefaultSearchTemplate searches for the formatted date itself.
const DefaultSearchTemplate = "{date}"

// SearchDateLayout is how {date} is rendered in a search template.
const SearchDateLayout = "2006年01月02日"

// Fetcher picks the note for a day according to Mode.
type Fetcher struct {
	Client         *Client
	Mode           string
	NoteID         string
	SearchTemplate string
}

// Ping reports the server version.
func (f *Fetcher) Ping(ctx context.Context) (string, error) {
	info, err := f.Client.AppInfo(ctx)
	if err != nil {
		return "", err
	}
	return info.AppVersion, nil
}

// FetchDay returns the note holding day's content, or nil if there is none.
func (f *Fetcher) FetchDay(ctx context.Context, day time.Time) (*doctree.Note, error) {
	switch f.Mode {
	case "", ModeFixedNote:
		if f.NoteID == "" {
			return nil, errors.New("fixed_note mode needs a note id")
		}
		note, err := f.load(ctx, f.NoteID)
		if err != nil || note == nil {
			return note, err
		}
		note.IsFullDoc = true
		return note, nil

	case ModeCalendar:
		meta, err := f.Client.GetDayNote(ctx, day)
		if err != nil {
			if isNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		if meta.NoteID == "" {
			return nil, nil
		}
		return f.withContent(ctx, meta)

	case ModeSearch:
		tmpl := f.SearchTemplate
		if tmpl == "" {
			tmpl = DefaultSearchTemplate
		}
		query := strings.ReplaceAll(tmpl, "{date}", day.Format(SearchDateLayout))
		results, err := f.Client.SearchNotes(ctx, query)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return nil, nil
		}
		return f.withContent(ctx, &results[0])

	default:
		return nil, fmt.Errorf("unsupported fetch mode: %q", f.Mode)
	}
}

func (f *Fetcher) load(ctx context.Context, noteID string) (*doctree.Note, error) {
	meta, err := f.Client.GetNote(ctx, noteID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return f.withContent(ctx, meta)
}

func (f *Fetcher) withContent(ctx context.Context, meta *Note) (*doctree.Note, error) {
	content, err := f.Client.GetNoteContent(ctx, meta.NoteID)
	if err != nil {
		return nil, err
	}
	return &doctree.Note{ID: meta.NoteID, Title: meta.Title, Content: content}, nil
}

func isNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

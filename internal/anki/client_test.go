package anki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnkiConnect struct {
	mu      sync.Mutex
	decks   []string
	notes   []Note
	actions []string
}

func (f *fakeAnkiConnect) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action  string          `json:"action"`
		Version int             `json:"version"`
		Params  json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, req.Action)

	reply := func(result any, errMsg any) {
		_ = json.NewEncoder(w).Encode(map[string]any{"result": result, "error": errMsg})
	}
	if req.Version != 6 {
		reply(nil, "unsupported version")
		return
	}

	switch req.Action {
	case "version":
		reply(6, nil)
	case "deckNames":
		reply(f.decks, nil)
	case "createDeck":
		var p struct{ Deck string }
		_ = json.Unmarshal(req.Params, &p)
		f.decks = append(f.decks, p.Deck)
		reply(1700000000000+len(f.decks), nil)
	case "addNote":
		var p struct{ Note Note }
		_ = json.Unmarshal(req.Params, &p)
		for _, n := range f.notes {
			if n.Fields["正面"] == p.Note.Fields["正面"] {
				reply(nil, "cannot create note because it is a duplicate")
				return
			}
		}
		if p.Note.ModelName != "问答题" {
			reply(nil, "model was not found: "+p.Note.ModelName)
			return
		}
		f.notes = append(f.notes, p.Note)
		reply(1500000000000+len(f.notes), nil)
	case "findCards":
		var p struct{ Query string }
		_ = json.Unmarshal(req.Params, &p)
		ids := []int64{}
		for i, n := range f.notes {
			if p.Query == `deck:"`+n.DeckName+`"` {
				ids = append(ids, int64(i+1))
			}
		}
		reply(ids, nil)
	default:
		reply(nil, "unsupported action")
	}
}

func newTestClient(t *testing.T, f *fakeAnkiConnect) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, time.Second)
}

func TestClient_Version(t *testing.T) {
	c := newTestClient(t, &fakeAnkiConnect{})
	v, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, v)
}

func TestClient_EnsureDeck(t *testing.T) {
	f := &fakeAnkiConnect{decks: []string{"Default"}}
	c := newTestClient(t, f)

	created, err := c.EnsureDeck(context.Background(), "每日学习")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = c.EnsureDeck(context.Background(), "每日学习")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, []string{"deckNames", "createDeck", "deckNames"}, f.actions)
}

func TestClient_AddNoteAndCount(t *testing.T) {
	c := newTestClient(t, &fakeAnkiConnect{})
	note := Note{
		DeckName:  "每日学习",
		ModelName: "问答题",
		Fields:    map[string]string{"正面": "Q1", "背面": "A1"},
		Tags:      []string{"cardgest"},
	}

	id, err := c.AddNote(context.Background(), note)
	require.NoError(t, err)
	assert.NotZero(t, id)

	_, err = c.AddNote(context.Background(), note)
	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "addNote", ae.Action)
	assert.True(t, IsDuplicate(err))

	n, err := c.DeckCardCount(context.Background(), "每日学习")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Version(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.False(t, IsDuplicate(err))
}

func TestIsDuplicate(t *testing.T) {
	assert.True(t, IsDuplicate(&Error{Action: "addNote", Message: "Cannot create note: DUPLICATE"}))
	assert.False(t, IsDuplicate(&Error{Action: "addNote", Message: "model was not found"}))
	assert.False(t, IsDuplicate(nil))
}

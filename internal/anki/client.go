// Package anki adds study cards to a running Anki through the AnkiConnect
// add-on.
package anki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"
)

// DefaultURL is where AnkiConnect listens unless configured otherwise.
const DefaultURL = "http://localhost:8765"

const apiVersion = 6

// Client talks to AnkiConnect.
type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Note is an Anki note as accepted by the addNote action.
type Note struct {
	DeckName  string            `json:"deckName"`
	ModelName string            `json:"modelName"`
	Fields    map[string]string `json:"fields"`
	Tags      []string          `json:"tags"`
	Options   NoteOptions       `json:"options"`
}

type NoteOptions struct {
	AllowDuplicate bool `json:"allowDuplicate"`
}

// Error is an error reported by AnkiConnect itself, as opposed to a transport
// failure.
type Error struct {
	Action  string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("ankiconnect %s: %s", e.Action, e.Message)
}

type request struct {
	Action  string `json:"action"`
	Version int    `json:"version"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

// Version returns the AnkiConnect API version.
func (c *Client) Version(ctx context.Context) (int, error) {
	var v int
	if err := c.invoke(ctx, "version", nil, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// DeckNames lists all decks.
func (c *Client) DeckNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.invoke(ctx, "deckNames", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// CreateDeck creates deck and returns its id. Creating an existing deck is a
// no-op in Anki.
func (c *Client) CreateDeck(ctx context.Context, deck string) (int64, error) {
	var id int64
	if err := c.invoke(ctx, "createDeck", map[string]any{"deck": deck}, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// EnsureDeck creates deck if it does not exist yet.
func (c *Client) EnsureDeck(ctx context.Context, deck string) (bool, error) {
	names, err := c.DeckNames(ctx)
	if err != nil {
		return false, err
	}
	if slices.Contains(names, deck) {
		return false, nil
	}
	if _, err := c.CreateDeck(ctx, deck); err != nil {
		return false, err
	}
	return true, nil
}

// AddNote adds note and returns the new note id. A zero id with a nil error
// means Anki declined the note without saying why.
func (c *Client) AddNote(ctx context.Context, note Note) (int64, error) {
	var id *int64
	if err := c.invoke(ctx, "addNote", map[string]any{"note": note}, &id); err != nil {
		return 0, err
	}
	if id == nil {
		return 0, nil
	}
	return *id, nil
}

// FindCards returns the ids of the cards matching an Anki search query.
func (c *Client) FindCards(ctx context.Context, query string) ([]int64, error) {
	var ids []int64
	if err := c.invoke(ctx, "findCards", map[string]any{"query": query}, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// DeckCardCount counts the cards in deck.
func (c *Client) DeckCardCount(ctx context.Context, deck string) (int, error) {
	ids, err := c.FindCards(ctx, fmt.Sprintf("deck:%q", deck))
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (c *Client) invoke(ctx context.Context, action string, params, out any) error {
	body, err := json.Marshal(request{Action: action, Version: apiVersion, Params: params})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", action, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("ankiconnect %s: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("ankiconnect %s: status %d: %s", action, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return fmt.Errorf("ankiconnect %s: decode response: %w", action, err)
	}
	if r.Error != nil {
		return &Error{Action: action, Message: *r.Error}
	}
	if out == nil || len(r.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Result, out); err != nil {
		return fmt.Errorf("ankiconnect %s: decode result: %w", action, err)
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

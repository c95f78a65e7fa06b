// Package trilium reads notes from a Trilium server over its ETAPI.
package trilium

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client communicates with the Trilium ETAPI.
type Client struct {
	apiBase    string
	token      string
	httpClient *http.Client
}

func NewClient(serverURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiBase: strings.TrimRight(serverURL, "/") + "/etapi",
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// AppInfo is the subset of GET /app-info cardgest reports.
type AppInfo struct {
	AppVersion string `json:"appVersion"`
	DBVersion  int    `json:"dbVersion"`
	BuildDate  string `json:"buildDate"`
}

// Note is note metadata as returned by the ETAPI.
type Note struct {
	NoteID string `json:"noteId"`
	Title  string `json:"title"`
	Type   string `json:"type"`
	MIME   string `json:"mime"`
}

// StatusError is returned for any non-2xx ETAPI response.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// AppInfo doubles as a connectivity and token check.
func (c *Client) AppInfo(ctx context.Context) (*AppInfo, error) {
	var info AppInfo
	if err := c.getJSON(ctx, "app info", "/app-info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetNote returns the metadata of a note by ID.
func (c *Client) GetNote(ctx context.Context, noteID string) (*Note, error) {
	var note Note
	if err := c.getJSON(ctx, "get note", "/notes/"+url.PathEscape(noteID), nil, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// GetNoteContent returns the raw body of a note, usually HTML for text notes.
func (c *Client) GetNoteContent(ctx context.Context, noteID string) (string, error) {
	resp, err := c.get(ctx, "get note content", "/notes/"+url.PathEscape(noteID)+"/content", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read note content: %w", err)
	}
	return string(body), nil
}

// GetDayNote returns the calendar note for day, as created by Trilium's
// journal. The result has an empty NoteID if the server returned no note.
func (c *Client) GetDayNote(ctx context.Context, day time.Time) (*Note, error) {
	var note Note
	if err := c.getJSON(ctx, "get day note", "/calendar/days/"+day.Format("2006-01-02"), nil, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// SearchNotes runs a Trilium search query and returns the matching notes.
func (c *Client) SearchNotes(ctx context.Context, query string) ([]Note, error) {
	var result struct {
		Results []Note `json:"results"`
	}
	if err := c.getJSON(ctx, "search notes", "/notes", url.Values{"search": {query}}, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, query url.Values, out any) error {
	resp, err := c.get(ctx, op, path, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values) (*http.Response, error) {
	u := c.apiBase + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	// ETAPI takes the bare token, without a Bearer scheme.
	httpReq.Header.Set("Authorization", c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	return resp, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

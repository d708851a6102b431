// Package blinko implements the NoteClient port against the Blinko HTTP API.
// Both creation and update go through the same note/upsert endpoint; the
// presence of an "id" field decides which one happens.
package blinko

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ericfisherdev/blinkobot/internal/domain/model"
	"github.com/ericfisherdev/blinkobot/internal/domain/port/driven"
)

const userAgent = "blinkobot/1.0"

// Compile-time interface satisfaction check.
var _ driven.NoteClient = (*Client)(nil)

// Client implements the driven.NoteClient port over plain net/http. Every
// request carries the caller's own token; the client holds no credential of
// its own.
type Client struct {
	httpc   *http.Client
	baseURL string
}

// NewClient creates a Blinko API client for the given base URL (for example
// "https://blinko.example.com/api/v1"). timeout bounds every request.
// insecureTLS disables certificate validation for deployments behind
// self-signed certificates; this is a deployment policy, not a per-request
// decision.
func NewClient(baseURL string, timeout time.Duration, insecureTLS bool) *Client {
	transport := http.DefaultTransport
	if insecureTLS {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		httpc: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client. This
// constructor is intended for testing, allowing injection of an httptest
// server.
func NewClientWithHTTPClient(httpc *http.Client, baseURL string) *Client {
	return &Client{
		httpc:   httpc,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// upsertRequest is the note/upsert request body. ID is omitted on create.
type upsertRequest struct {
	ID      string `json:"id,omitempty"`
	Content string `json:"content"`
	Type    int    `json:"type"`
}

// CreateNote creates a note of the given kind and returns the remote note ID.
func (c *Client) CreateNote(ctx context.Context, token, content string, kind model.NoteKind) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", errors.New("note content is empty")
	}

	body, err := c.upsert(ctx, token, upsertRequest{Content: content, Type: int(kind)})
	if err != nil {
		return "", err
	}

	id := parseNoteID(body)
	if id == "" {
		return "", fmt.Errorf("create note: response carries no note id")
	}
	return id, nil
}

// UpdateNote replaces the content of an existing note. A 404 surfaces as
// driven.ErrNoteNotFound so the caller can fall back to creating a new note.
func (c *Client) UpdateNote(ctx context.Context, token, noteID, content string, kind model.NoteKind) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return errors.New("note content is empty")
	}
	if noteID == "" {
		return errors.New("note id is empty")
	}

	_, err := c.upsert(ctx, token, upsertRequest{ID: noteID, Content: content, Type: int(kind)})
	return err
}

// CheckToken verifies a token by listing notes. Any response the server
// recognizes as authenticated (including 403) counts as valid; only a 401
// rejects the token.
func (c *Client) CheckToken(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/note", nil)
	if err != nil {
		return fmt.Errorf("build token check request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", driven.ErrNetwork, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		return driven.ErrUnauthorized
	}
	return nil
}

// upsert posts a note/upsert request and returns the raw response body after
// mapping the status code onto the port's error taxonomy.
func (c *Client) upsert(ctx context.Context, token string, payload upsertRequest) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode upsert request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/note/upsert", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build upsert request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", driven.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", driven.ErrNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, driven.ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return nil, driven.ErrNoteNotFound
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", driven.ErrRemoteServer, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("note upsert failed: status %d", resp.StatusCode)
	}

	return body, nil
}

// parseNoteID extracts the "id" field from an upsert response. Blinko
// returns numeric ids; ids are treated as opaque strings everywhere else,
// so both numbers and strings are accepted.
func parseNoteID(body []byte) string {
	var envelope struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.ID) == 0 {
		return ""
	}

	id := strings.Trim(string(envelope.ID), `"`)
	if id == "null" {
		return ""
	}
	return id
}

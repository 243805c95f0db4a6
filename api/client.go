// Package api is the HTTP client for the document service.
//
// Upload returns the raw progress stream; decoding it is the caller's job.
// The client never retries.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pithecene-io/docqa/iox"
	"github.com/pithecene-io/docqa/types"
)

// Endpoint paths relative to the base URL.
const (
	UploadPath    = "/api/documents/upload"
	DocumentsPath = "/api/documents"
)

// FileField is the multipart field carrying the uploaded file.
const FileField = "file"

// DefaultTimeout bounds list and delete requests. Upload streams are bounded
// by the caller's context only.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 * 1024

// ErrNotFound is returned when the requested document does not exist.
var ErrNotFound = errors.New("document not found")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	// Detail is the server's "detail" message, if the body carried one.
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Message returns the detail when present, else the status text.
func (e *StatusError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Config configures the client.
type Config struct {
	// BaseURL is the service root, e.g. http://localhost:8000 (required).
	BaseURL string
	// Headers are added to every request.
	Headers map[string]string
	// Timeout bounds list and delete requests (default 30s).
	Timeout time.Duration
	// HTTPClient overrides the transport (tests).
	HTTPClient *http.Client
}

// Client talks to the document service.
type Client struct {
	base    *url.URL
	headers map[string]string
	timeout time.Duration
	http    *http.Client
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("api client requires a base URL")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		base:    base,
		headers: cfg.Headers,
		timeout: cfg.Timeout,
		http:    hc,
	}, nil
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// Upload sends the file as multipart form data and returns the progress
// stream. The multipart body is streamed, not buffered. The caller must close
// the returned body.
//
// A non-2xx response is returned as *StatusError.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (io.ReadCloser, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile(FileField, filename)
		if err == nil {
			_, err = io.Copy(part, content)
		}
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, http.MethodPost, UploadPath, pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		_ = pr.CloseWithError(err)
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer iox.DiscardClose(resp.Body)
		_ = pr.Close()
		return nil, readStatusError(resp)
	}
	return resp.Body, nil
}

// ListDocuments returns all documents, newest first.
func (c *Client) ListDocuments(ctx context.Context) ([]types.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, DocumentsPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, readStatusError(resp)
	}

	var list documentListWire
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode document list: %w", err)
	}
	return list.documents(), nil
}

// DeleteDocument deletes a document and its chunks.
// Returns ErrNotFound when the service answers 404.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("document id is required")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodDelete, DocumentsPath+"/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return readStatusError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// readStatusError builds a StatusError from a non-2xx response.
// The service reports errors as {"detail": "..."}; validation errors carry a
// list under detail, which is kept as raw JSON text.
func readStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	statusErr := &StatusError{Code: resp.StatusCode}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if json.Unmarshal(payload.Detail, &s) == nil {
			statusErr.Detail = s
		} else if string(payload.Detail) != "null" {
			statusErr.Detail = string(payload.Detail)
		}
	}
	return statusErr
}

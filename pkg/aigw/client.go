// Package aigw is the HTTP client for the external AI service that owns
// document extraction, chunk storage and answer generation. The service is
// treated as an opaque collaborator; this package only speaks its JSON wire
// format and classifies its failures.
package aigw

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrUnavailable marks transport failures (connection refused, DNS, reset).
	ErrUnavailable = errors.New("ai service unavailable")
	// ErrTimeout marks a deadline hit; terminal for the request, never retried.
	ErrTimeout = errors.New("ai service timeout")
	// ErrRemote marks an error response from the service itself.
	ErrRemote = errors.New("ai service error")
)

// Config wires the client. Zero timeouts fall back to per-endpoint defaults.
type Config struct {
	BaseURL         string
	ExtractTimeout  time.Duration
	GenerateTimeout time.Duration
	TitleTimeout    time.Duration
	DeleteTimeout   time.Duration
	HTTPClient      *http.Client
}

// Client calls the AI service's four endpoints with per-endpoint timeouts.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	extractTimeout  time.Duration
	generateTimeout time.Duration
	titleTimeout    time.Duration
	deleteTimeout   time.Duration
}

// New constructs the gateway client.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("ai gateway base URL required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// deadlines come from per-call contexts, not the client
		httpClient = &http.Client{}
	}
	c := &Client{
		baseURL:         baseURL,
		httpClient:      httpClient,
		extractTimeout:  cfg.ExtractTimeout,
		generateTimeout: cfg.GenerateTimeout,
		titleTimeout:    cfg.TitleTimeout,
		deleteTimeout:   cfg.DeleteTimeout,
	}
	if c.extractTimeout <= 0 {
		c.extractTimeout = 2 * time.Minute
	}
	if c.generateTimeout <= 0 {
		c.generateTimeout = 5 * time.Minute
	}
	if c.titleTimeout <= 0 {
		c.titleTimeout = 15 * time.Second
	}
	if c.deleteTimeout <= 0 {
		c.deleteTimeout = 30 * time.Second
	}
	return c, nil
}

// ExtractRequest carries a file's bytes and metadata to the extraction
// endpoint.
type ExtractRequest struct {
	FileID           string
	OwnerID          string
	OwnerName        string
	Collection       string
	OriginalFileName string
	Content          []byte
	Timestamp        time.Time
}

// Extract submits file content for extraction. Synchronous: ingestion is not
// complete until this succeeds.
func (c *Client) Extract(ctx context.Context, req ExtractRequest) error {
	payload := map[string]any{
		"fileId":           req.FileID,
		"userId":           req.OwnerID,
		"userName":         req.OwnerName,
		"collection":       req.Collection,
		"originalFileName": req.OriginalFileName,
		"fileContent":      base64.StdEncoding.EncodeToString(req.Content),
		"timestamp":        req.Timestamp.UTC().Format(time.RFC3339),
	}
	return c.post(ctx, "/extract", c.extractTimeout, payload, nil)
}

// HistoryMessage is one prior conversation turn in the generation request.
type HistoryMessage struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// GenerateRequest asks for an AI reply grounded in the given context files,
// conversation history and owner memories.
type GenerateRequest struct {
	Prompt   string
	FileIDs  []string
	History  []HistoryMessage
	OwnerID  string
	Memories []string
}

// GenerateResult is the AI reply plus the file names it drew on.
type GenerateResult struct {
	Text      string   `json:"text"`
	FilesUsed []string `json:"files_used"`
}

// Generate produces an AI reply. Long-timeout; callers must not hold any
// database transaction across this call.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	fileIDs := req.FileIDs
	if fileIDs == nil {
		fileIDs = []string{}
	}
	history := req.History
	if history == nil {
		history = []HistoryMessage{}
	}
	memories := req.Memories
	if memories == nil {
		memories = []string{}
	}
	payload := map[string]any{
		"prompt":       req.Prompt,
		"file_ids":     fileIDs,
		"chat_history": history,
		"user_id":      req.OwnerID,
		"memories":     memories,
	}
	var result GenerateResult
	if err := c.post(ctx, "/generate", c.generateTimeout, payload, &result); err != nil {
		return GenerateResult{}, err
	}
	return result, nil
}

// GenerateTitle produces a short session title for the first prompt.
func (c *Client) GenerateTitle(ctx context.Context, prompt string) (string, error) {
	var result struct {
		Title string `json:"title"`
	}
	if err := c.post(ctx, "/generate_title", c.titleTimeout, map[string]any{"prompt": prompt}, &result); err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Title), nil
}

// DeleteChunks asks the service to drop the derived chunks for a batch of
// file IDs. Best-effort from the caller's point of view.
func (c *Client) DeleteChunks(ctx context.Context, fileIDs []string) error {
	if len(fileIDs) == 0 {
		return nil
	}
	return c.post(ctx, "/delete_chunks", c.deleteTimeout, map[string]any{"file_ids": fileIDs}, nil)
}

func (c *Client) post(ctx context.Context, path string, timeout time.Duration, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s returned %s: %w", path, readRemoteError(resp.Body), ErrRemote)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, ErrRemote)
	}
	return nil
}

func classifyTransportError(path string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%s: %w", path, ErrTimeout)
	}
	return fmt.Errorf("%s: %v: %w", path, err, ErrUnavailable)
}

func readRemoteError(r io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	raw, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err == nil && json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return "error"
}

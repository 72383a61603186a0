// Package hub fetches tokenizer vocabularies from a Hugging Face compatible
// model hub.
package hub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/KromDaniel/excludebench/internal/engine"
	"github.com/KromDaniel/excludebench/internal/logging"
)

const (
	// DefaultEndpoint is the public Hugging Face hub.
	DefaultEndpoint = "https://huggingface.co"
	// DefaultModel is the tokenizer used for match-time probes.
	DefaultModel = "meta-llama/Llama-3.1-8B-Instruct"
	// DefaultRevision is the branch tokenizer files are read from.
	DefaultRevision = "main"

	maxTokenizerBytes = 64 << 20
)

// StatusError is returned for a non-200 hub response.
type StatusError struct {
	Model      string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("fetching tokenizer for %s: %s", e.Model, e.Status)
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		msg += " (model may be gated; set HF_TOKEN)"
	}
	return msg
}

// Client downloads tokenizer.json files.
type Client struct {
	endpoint   string
	revision   string
	token      string
	httpClient *http.Client
	logger     *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint sets the hub base URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = strings.TrimRight(endpoint, "/") }
}

// WithRevision sets the repository revision.
func WithRevision(rev string) Option {
	return func(c *Client) { c.revision = rev }
}

// WithToken sets the bearer token for gated models.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the progress logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a hub client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		endpoint:   DefaultEndpoint,
		revision:   DefaultRevision,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TokenizerURL returns the download URL of a model's tokenizer.json.
func (c *Client) TokenizerURL(model string) string {
	return fmt.Sprintf("%s/%s/resolve/%s/tokenizer.json", c.endpoint, model, url.PathEscape(c.revision))
}

// FetchTokenizer downloads and parses the tokenizer of model.
func (c *Client) FetchTokenizer(ctx context.Context, model string) (*engine.TokenizerInfo, error) {
	if model == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}
	u := c.TokenizerURL(model)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Log("Downloading %s", u)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download tokenizer for %s: %w", model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Model: model, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenizerBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read tokenizer for %s: %w", model, err)
	}
	if len(data) > maxTokenizerBytes {
		return nil, fmt.Errorf("tokenizer for %s exceeds %d bytes", model, maxTokenizerBytes)
	}

	info, err := ParseTokenizerJSON(data)
	if err != nil {
		return nil, fmt.Errorf("incompatible tokenizer for %s: %w", model, err)
	}
	c.logger.Log("Loaded %s: vocab size %d, stop tokens %v", model, info.VocabSize(), info.StopTokenIDs())
	return info, nil
}

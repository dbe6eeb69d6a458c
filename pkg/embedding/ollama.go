package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/ollama/ollama/api"

	"github.com/andrew/vecdash/pkg/logging"
)

// Defaults for the Ollama embedder.
const (
	DefaultBaseURL        = "http://localhost:11434"
	DefaultModel          = "nomic-embed-text"
	DefaultMaxRetries     = 3
	DefaultBaseDelay      = 1 * time.Second
	DefaultAttemptTimeout = 10 * time.Second
	MaxInputChars         = 2048 // bytes, cut back to a rune boundary
)

// OllamaConfig holds configuration for the Ollama embedder
type OllamaConfig struct {
	BaseURL        string
	Model          string
	MaxRetries     int
	BaseDelay      time.Duration // doubled after each failed attempt
	AttemptTimeout time.Duration
	Logger         *slog.Logger
}

// embedAPI is the subset of the Ollama client used here
type embedAPI interface {
	Embed(ctx context.Context, req *api.EmbedRequest) (*api.EmbedResponse, error)
}

// OllamaEmbedder computes embeddings through an Ollama server
type OllamaEmbedder struct {
	client embedAPI
	config OllamaConfig
	sleep  func(time.Duration)
}

// NewOllamaEmbedder creates an embedder for the server at cfg.BaseURL
func NewOllamaEmbedder(cfg OllamaConfig) (*OllamaEmbedder, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL %q: %w", cfg.BaseURL, err)
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	return newOllamaEmbedder(api.NewClient(baseURL, httpClient), cfg), nil
}

func newOllamaEmbedder(client embedAPI, cfg OllamaConfig) *OllamaEmbedder {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}

	return &OllamaEmbedder{
		client: client,
		config: cfg,
		sleep:  time.Sleep,
	}
}

// Model returns the embedding model name
func (e *OllamaEmbedder) Model() string {
	return e.config.Model
}

// Endpoint returns the Ollama base URL
func (e *OllamaEmbedder) Endpoint() string {
	return e.config.BaseURL
}

// Embed returns the embedding of text, retrying with exponential backoff.
// Text longer than MaxInputChars is truncated first.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, errors.New("cannot embed empty text")
	}
	if len(text) > MaxInputChars {
		text = truncate(text, MaxInputChars)
		e.config.Logger.Debug("embedding input truncated", "bytes", len(text))
	}

	req := &api.EmbedRequest{
		Model: e.config.Model,
		Input: text,
	}

	var lastErr error
	for attempt := 0; attempt < e.config.MaxRetries; attempt++ {
		embedding, err := e.embedOnce(ctx, req)
		if err == nil {
			return embedding, nil
		}
		lastErr = err

		if ctx.Err() != nil || attempt == e.config.MaxRetries-1 {
			break
		}

		retryDelay := time.Duration(math.Pow(2, float64(attempt))) * e.config.BaseDelay
		e.config.Logger.Warn("embedding attempt failed",
			"attempt", attempt+1, "max", e.config.MaxRetries, "error", err, "retry_in", retryDelay)
		e.sleep(retryDelay)
	}

	return nil, fmt.Errorf("embedding failed after %d attempts: %w", e.config.MaxRetries, lastErr)
}

// truncate cuts text to at most n bytes without splitting a rune
func truncate(text string, n int) string {
	if len(text) <= n {
		return text
	}
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}

func (e *OllamaEmbedder) embedOnce(ctx context.Context, req *api.EmbedRequest) ([]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.config.AttemptTimeout)
	defer cancel()

	resp, err := e.client.Embed(reqCtx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, errors.New("ollama returned no embedding")
	}
	return resp.Embeddings[0], nil
}

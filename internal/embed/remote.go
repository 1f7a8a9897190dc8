package embed

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Hino9LLC/newsearch/internal/errors"
)

// RemoteConfig configures the remote embedding client.
type RemoteConfig struct {
	// Endpoint is the embedding service URL.
	Endpoint string

	// APIKey authenticates the request.
	APIKey string

	// SigningSecret signs the request body with HMAC-SHA256.
	SigningSecret string

	// Dimensions is the expected embedding dimensionality.
	Dimensions int

	// Timeout bounds a single HTTP call.
	Timeout time.Duration

	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int
}

// RemoteEmbedder generates embeddings via a signed HTTP endpoint.
//
// Transient failures (timeouts, 5xx, 429) are retried with exponential
// backoff; client errors (other 4xx) are not retried. When all attempts
// fail the caller receives errors.ErrEmbeddingUnavailable.
type RemoteEmbedder struct {
	client *http.Client
	config RemoteConfig

	mu     sync.RWMutex
	closed bool
}

// Verify interface implementation at compile time
var _ Embedder = (*RemoteEmbedder)(nil)

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewRemoteEmbedder creates a remote embedder.
func NewRemoteEmbedder(cfg RemoteConfig) (*RemoteEmbedder, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "embedding endpoint is required", nil)
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	return &RemoteEmbedder{
		// Per-call deadlines come from context.WithTimeout in Embed, not
		// from a static client timeout.
		client: &http.Client{},
		config: cfg,
	}, nil
}

// Embed generates the embedding for a single text.
func (e *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil
	}

	cfg := errors.DefaultRetryConfig()
	cfg.MaxRetries = e.config.MaxRetries

	vec, err := errors.RetryWithResult(ctx, cfg, func() ([]float32, error) {
		return e.doEmbed(ctx, trimmed)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.EmbeddingUnavailable(err)
	}

	if len(vec) != e.config.Dimensions {
		return nil, errors.New(errors.ErrCodeDimensionMismatch,
			fmt.Sprintf("endpoint returned %d dimensions, expected %d", len(vec), e.config.Dimensions), nil)
	}

	return normalizeVector(vec), nil
}

// doEmbed performs one signed HTTP call to the embedding endpoint.
func (e *RemoteEmbedder) doEmbed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return nil, errors.Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	callCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, e.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Permanent(err)
	}

	req.Header.Set("Content-Type", "application/json")
	if e.config.APIKey != "" {
		req.Header.Set("X-Api-Key", e.config.APIKey)
	}
	if e.config.SigningSecret != "" {
		ts := strconv.FormatInt(time.Now().Unix(), 10)
		req.Header.Set("X-Timestamp", ts)
		req.Header.Set("X-Signature", signBody(e.config.SigningSecret, ts, body))
	}

	resp, err := e.client.Do(req)
	if err != nil {
		// Connection failures and per-call timeouts are transient. The
		// parent deadline is checked by the retry loop.
		return nil, errors.New(errors.ErrCodeNetworkUnavailable, err.Error(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := fmt.Sprintf("embedding failed with status %d: %s", resp.StatusCode, string(respBody))
		if isRetryableStatus(resp.StatusCode) {
			return nil, errors.New(errors.ErrCodeNetworkUnavailable, msg, nil)
		}
		return nil, errors.Permanent(errors.New(errors.ErrCodeEmbeddingRejected, msg, nil))
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.New(errors.ErrCodeNetworkUnavailable, fmt.Sprintf("failed to decode response: %v", err), err)
	}

	if len(result.Embedding) == 0 {
		return nil, errors.Permanent(fmt.Errorf("empty embedding returned"))
	}

	return result.Embedding, nil
}

// Dimensions returns the embedding dimensionality.
func (e *RemoteEmbedder) Dimensions() int {
	return e.config.Dimensions
}

// ModelName returns the model identifier.
func (e *RemoteEmbedder) ModelName() string {
	return "remote"
}

// Available checks if the embedder is ready. The endpoint exposes no probe,
// so readiness means the client has not been closed; actual outages surface
// as ErrEmbeddingUnavailable from Embed and degrade hybrid search.
func (e *RemoteEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// Close releases the HTTP client's idle connections.
func (e *RemoteEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.client.CloseIdleConnections()
	return nil
}

// isRetryableStatus reports whether an HTTP status is worth retrying.
// 429 means the endpoint is shedding load and may recover; other 4xx will
// fail the same way every time.
func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// signBody computes the hex HMAC-SHA256 of timestamp + body.
func signBody(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

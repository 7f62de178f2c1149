package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds every request made through the client.
const DefaultTimeout = 10 * time.Second

// Client is the single point of outbound calls to the ticketing backend. It
// attaches the held bearer token to every request, tags each request with a
// generated X-Request-ID, maps transport failures to sentinel errors and
// non-2xx responses to *StatusError, and invokes the unauthorized hook on
// every 401. No retries are performed at this layer.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger

	mu             sync.RWMutex
	token          string
	onUnauthorized func()
}

func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// SetToken sets the bearer credential attached to subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// ClearToken removes the bearer credential.
func (c *Client) ClearToken() {
	c.SetToken("")
}

// Token returns the currently held bearer credential, empty when none.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// OnUnauthorized registers a hook invoked once per 401 response, after the
// response status is known and before the error is returned to the caller.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

func (c *Client) unauthorizedHook() func() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.onUnauthorized
}

// do executes one JSON request. A nil out skips response decoding.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		rdr = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	log := c.log.With().
		Str("method", method).
		Str("path", path).
		Str("request_id", reqID).
		Logger()

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn().Err(err).Dur("duration", time.Since(start)).Msg("request_failed")
		return mapTransportError(err)
	}
	defer resp.Body.Close()

	log.Debug().Int("status", resp.StatusCode).Dur("duration", time.Since(start)).Msg("request_completed")

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if hook := c.unauthorizedHook(); hook != nil {
			hook()
		}
		return decodeError(resp)
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response body: %w", err)
		}
	}
	return nil
}

func mapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrTimeout
	}
	return ErrUnavailable
}

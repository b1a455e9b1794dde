package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kylrix/flow/internal/domain/entities"
	"github.com/kylrix/flow/internal/infrastructure/config"
	"github.com/kylrix/flow/internal/infrastructure/logger"
)

// AuthStatus is the session status reported by the identity provider.
type AuthStatus string

const (
	AuthStatusAuthenticated   AuthStatus = "authenticated"
	AuthStatusUnauthenticated AuthStatus = "unauthenticated"
)

// StatusMessage is the silent-check message contract. Only messages of
// type "auth-status" from the configured provider origin are accepted.
type StatusMessage struct {
	Type   string     `json:"type"`
	Status AuthStatus `json:"status"`
}

const statusMessageType = "auth-status"

// Bridge errors
var (
	ErrCheckInFlight      = errors.New("silent check already in flight")
	ErrSilentCheckTimeout = errors.New("silent check timed out")
)

// Transport loads the provider's silent-check document. Responses are
// handed back through the deliver callback together with the origin
// they arrived from; the bridge does the origin filtering.
type Transport interface {
	Open(ctx context.Context, url string, deliver func(origin string, msg StatusMessage)) error
}

type bridgeState int

const (
	bridgeIdle bridgeState = iota
	bridgeAwaiting
)

// Bridge runs the silent cross-origin session check as a timed
// request/response exchange: one in-flight check at a time, responses
// accepted only from the exact provider origin, resolution bounded by a
// hard timeout.
type Bridge struct {
	mu      sync.Mutex
	state   bridgeState
	result  chan StatusMessage
	origin  string
	url     string
	timeout time.Duration

	transport Transport
	logger    *logger.Logger
}

// NewBridge creates a bridge against the configured identity provider.
func NewBridge(cfg config.AuthConfig, transport Transport, appLogger *logger.Logger) *Bridge {
	return &Bridge{
		origin:    cfg.Origin(),
		url:       cfg.SilentCheckURL(),
		timeout:   cfg.SilentCheckTimeout,
		transport: transport,
		logger:    appLogger.WithComponent("auth-bridge"),
	}
}

// Deliver feeds a received message into the bridge. Messages from
// unknown origins, of the wrong type, or arriving while no check is
// awaiting are dropped.
func (b *Bridge) Deliver(origin string, msg StatusMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if origin != b.origin {
		b.logger.Warnw("Dropping silent-check message from unexpected origin", "origin", origin)
		return
	}
	if msg.Type != statusMessageType || b.state != bridgeAwaiting {
		return
	}

	select {
	case b.result <- msg:
	default:
	}
}

// Check performs one silent session check. It returns the reported
// status, ErrSilentCheckTimeout when the provider never answered within
// the bound, or a network error when the transport failed outright.
func (b *Bridge) Check(ctx context.Context) (AuthStatus, error) {
	b.mu.Lock()
	if b.state == bridgeAwaiting {
		b.mu.Unlock()
		return "", ErrCheckInFlight
	}
	b.state = bridgeAwaiting
	b.result = make(chan StatusMessage, 1)
	result := b.result
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.state = bridgeIdle
		b.mu.Unlock()
	}()

	if err := b.transport.Open(ctx, b.url, b.Deliver); err != nil {
		return "", fmt.Errorf("open silent check: %w", err)
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case msg := <-result:
		return msg.Status, nil
	case <-timer.C:
		return "", ErrSilentCheckTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// HTTPTransport fetches the silent-check document over plain HTTP. The
// provider answers with the status message body; the response origin is
// derived from the final request URL after redirects.
type HTTPTransport struct {
	Client *http.Client
}

// NewHTTPTransport returns a transport with the given timeout.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{Client: &http.Client{Timeout: timeout}}
}

func (t *HTTPTransport) Open(ctx context.Context, url string, deliver func(origin string, msg StatusMessage)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build silent-check request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: silent check: %v", entities.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("silent check returned %d", resp.StatusCode)
	}

	var msg StatusMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return fmt.Errorf("decode silent-check response: %w", err)
	}

	final := resp.Request.URL
	deliver(final.Scheme+"://"+final.Host, msg)
	return nil
}

package session

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kylrix/flow/internal/domain/entities"
	"github.com/kylrix/flow/internal/infrastructure/config"
	"github.com/kylrix/flow/internal/infrastructure/logger"
	"github.com/kylrix/flow/internal/ports"
)

// State is the primary session state.
type State int

const (
	StateLoading State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Routes that are served without authentication: the landing page, the
// event discovery page, and individual event pages.
var publicRoutePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^/$`),
	regexp.MustCompile(`^/events$`),
	regexp.MustCompile(`^/events/[^/]+$`),
}

// IsPublicRoute reports whether the path bypasses the auth overlay.
func IsPublicRoute(path string) bool {
	for _, p := range publicRoutePatterns {
		if p.MatchString(path) {
			return true
		}
	}
	return false
}

// LoginPopup describes the centered identity-provider window.
type LoginPopup struct {
	URL    string `json:"url"`
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Manager owns the current-user identity and session validity. It is
// constructed once at startup and passed explicitly to the components
// that need it.
type Manager struct {
	account ports.AccountAPI
	bridge  *Bridge
	cfg     config.AuthConfig
	logger  *logger.Logger

	mu             sync.RWMutex
	state          State
	user           *entities.User
	overlayVisible bool
	route          string

	pollCancel context.CancelFunc
	pollWG     sync.WaitGroup
}

// NewManager creates a session manager. The route is the initially
// active path, used for the overlay decision.
func NewManager(account ports.AccountAPI, bridge *Bridge, cfg config.AuthConfig, appLogger *logger.Logger) *Manager {
	return &Manager{
		account: account,
		bridge:  bridge,
		cfg:     cfg,
		logger:  appLogger.WithComponent("session"),
		state:   StateLoading,
		route:   "/",
	}
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// User returns the current user, or nil when unauthenticated.
func (m *Manager) User() *entities.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

// OverlayVisible reports whether the blocking sign-in overlay is shown.
func (m *Manager) OverlayVisible() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.overlayVisible
}

// SetRoute records the active route and re-evaluates overlay
// visibility for an unauthenticated session.
func (m *Manager) SetRoute(route string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.route = route
	if m.state == StateUnauthenticated {
		m.overlayVisible = !IsPublicRoute(route)
	}
}

// Bootstrap establishes the initial session state: direct fetch first,
// silent cross-origin recovery second. Network failures retain the
// prior state without raising the overlay; a definitive rejection
// transitions to Unauthenticated and raises the overlay unless the
// active route is public.
func (m *Manager) Bootstrap(ctx context.Context) error {
	user, err := m.account.CurrentSession(ctx)
	if err == nil {
		m.setAuthenticated(user)
		return nil
	}

	// Every initial-fetch failure goes through silent recovery before
	// it is classified: the provider may still hold a live session.
	status, bridgeErr := m.bridge.Check(ctx)
	if bridgeErr == nil && status == AuthStatusAuthenticated {
		m.logger.Infow("Silent check discovered an active provider session")
		if user, err := m.account.CurrentSession(ctx); err == nil {
			m.setAuthenticated(user)
			return nil
		}
	}

	if errors.Is(err, entities.ErrNetwork) {
		m.logger.Warnw("Network issue during session bootstrap, retaining state", "error", err)
		m.retainState()
		return err
	}
	if bridgeErr != nil && errors.Is(bridgeErr, entities.ErrNetwork) {
		m.logger.Warnw("Network issue during silent check, retaining state", "error", bridgeErr)
		m.retainState()
		return bridgeErr
	}

	m.setUnauthenticated()
	return entities.ErrUnauthorized
}

// CheckSession performs one idempotent session fetch and updates state
// on success. Concurrent checks may race; last resolved wins, which is
// safe because every check reads the same session.
func (m *Manager) CheckSession(ctx context.Context) (*entities.User, error) {
	user, err := m.account.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	m.setAuthenticated(user)
	return user, nil
}

// ResolveRequestUser resolves a user from a forwarded Cookie header.
// An obviously expired session token is rejected without a network
// round-trip.
func (m *Manager) ResolveRequestUser(ctx context.Context, cookieHeader string) (*entities.User, error) {
	if cookieHeader == "" {
		return nil, entities.ErrUnauthorized
	}
	if token := sessionTokenFromCookie(cookieHeader); token != "" && TokenExpired(token) {
		return nil, entities.ErrUnauthorized
	}
	return m.account.CurrentSessionWithCookie(ctx, cookieHeader)
}

// BeginLogin returns the centered login popup and starts the bounded
// session poll: one fetch every poll interval, up to the configured
// attempt limit, cancelled deterministically by success, DismissLogin,
// or parent context cancellation.
func (m *Manager) BeginLogin(ctx context.Context) LoginPopup {
	m.mu.Lock()
	if m.pollCancel != nil {
		m.pollCancel()
	}
	pollCtx, cancel := context.WithCancel(ctx)
	m.pollCancel = cancel
	m.mu.Unlock()

	m.pollWG.Add(1)
	go m.pollForSession(pollCtx)

	return LoginPopup{
		URL:    m.cfg.LoginURL(),
		Name:   "FlowAuth",
		Width:  500,
		Height: 600,
	}
}

// DismissLogin stops an active login poll.
func (m *Manager) DismissLogin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pollCancel != nil {
		m.pollCancel()
		m.pollCancel = nil
	}
}

// Close stops background work and waits for it to finish.
func (m *Manager) Close() {
	m.DismissLogin()
	m.pollWG.Wait()
}

func (m *Manager) pollForSession(ctx context.Context) {
	defer m.pollWG.Done()

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < m.cfg.PollMaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if _, err := m.CheckSession(ctx); err == nil {
			m.logger.Infow("Session established during login poll", "attempt", attempt+1)
			return
		}
	}
	m.logger.Warnw("Login poll gave up", "attempts", m.cfg.PollMaxAttempts)
}

// Logout invalidates the backend session and clears local user state.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.account.DeleteCurrentSession(ctx); err != nil {
		m.logger.Errorw("Logout failed", "error", err)
		return err
	}
	m.setUnauthenticated()
	return nil
}

func (m *Manager) setAuthenticated(user *entities.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateAuthenticated
	m.user = user
	m.overlayVisible = false
	if m.pollCancel != nil {
		m.pollCancel()
		m.pollCancel = nil
	}
}

func (m *Manager) setUnauthenticated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateUnauthenticated
	m.user = nil
	m.overlayVisible = !IsPublicRoute(m.route)
}

// retainState leaves an established state untouched after a network
// failure; only an initial Loading state degrades to Unauthenticated
// without the overlay.
func (m *Manager) retainState() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateLoading {
		m.state = StateUnauthenticated
		m.overlayVisible = false
	}
}

// TokenExpired reports whether the JWT carries an exp claim in the
// past. The signature is deliberately not verified: the token is only
// inspected to skip a pointless round-trip, never trusted.
func TokenExpired(token string) bool {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}

// sessionTokenFromCookie extracts the session token value from a raw
// Cookie header, or "" when absent.
func sessionTokenFromCookie(cookieHeader string) string {
	for _, part := range strings.Split(cookieHeader, ";") {
		if name, value, ok := strings.Cut(strings.TrimSpace(part), "="); ok && name == "session" {
			return value
		}
	}
	return ""
}

package sudo

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kylrix/flow/internal/domain/entities"
	"github.com/kylrix/flow/internal/infrastructure/config"
	"github.com/kylrix/flow/internal/infrastructure/logger"
	"github.com/kylrix/flow/internal/ports"
)

// localPINKey is the device-local key holding the bcrypt hash of the
// quick-access PIN. The PIN never leaves the device.
const localPINKey = "sudo.pin"

var pinPattern = regexp.MustCompile(`^\d{4}$`)

// Action is a sensitive operation deferred behind the gate. Exactly one
// of the callbacks runs: OnSuccess after a verified unlock, OnCancel
// when the prompt is dismissed.
type Action struct {
	Name      string
	OnSuccess func()
	OnCancel  func()
}

// Gate guards sensitive operations behind step-up verification. Once
// unlocked it stays unlocked for the configured relock window (forever
// when the window is zero); a failed verification never partially
// unlocks it.
type Gate struct {
	keychain ports.KeychainAPI
	local    ports.LocalState
	logger   *logger.Logger

	relockAfter time.Duration

	mu         sync.Mutex
	unlockedAt time.Time
	unlocked   bool
	pending    *Action
}

// NewGate builds the step-up gate. The keychain backs master-password
// verification; local state backs the device PIN.
func NewGate(cfg config.SudoConfig, keychain ports.KeychainAPI, local ports.LocalState, appLogger *logger.Logger) *Gate {
	return &Gate{
		keychain:    keychain,
		local:       local,
		logger:      appLogger.WithComponent("sudo"),
		relockAfter: cfg.RelockAfter,
	}
}

// Unlocked reports whether the gate currently admits sensitive actions.
func (g *Gate) Unlocked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.unlockedLocked()
}

func (g *Gate) unlockedLocked() bool {
	if !g.unlocked {
		return false
	}
	if g.relockAfter > 0 && time.Since(g.unlockedAt) > g.relockAfter {
		g.unlocked = false
		return false
	}
	return true
}

// Request runs the action immediately when the gate is unlocked.
// Otherwise it parks the action and returns true: the caller must show
// the verification prompt and route the outcome through one of the
// Verify methods or Cancel.
func (g *Gate) Request(action Action) (prompt bool) {
	g.mu.Lock()
	if g.unlockedLocked() {
		g.mu.Unlock()
		if action.OnSuccess != nil {
			action.OnSuccess()
		}
		return false
	}
	// A newer request supersedes any parked one; the old action is
	// cancelled, not silently dropped.
	superseded := g.pending
	g.pending = &action
	g.mu.Unlock()

	if superseded != nil && superseded.OnCancel != nil {
		superseded.OnCancel()
	}
	return true
}

// Pending returns the name of the action awaiting verification, if any.
func (g *Gate) Pending() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return "", false
	}
	return g.pending.Name, true
}

// Cancel dismisses the verification prompt without unlocking.
func (g *Gate) Cancel() {
	g.mu.Lock()
	action := g.pending
	g.pending = nil
	g.mu.Unlock()

	if action != nil && action.OnCancel != nil {
		action.OnCancel()
	}
}

// Lock relocks the gate. Any parked action stays parked.
func (g *Gate) Lock() {
	g.mu.Lock()
	g.unlocked = false
	g.mu.Unlock()
}

// VerifyPIN unlocks the gate with the device quick-access PIN. Format
// is checked before any I/O: a PIN is exactly four digits.
func (g *Gate) VerifyPIN(ctx context.Context, pin string) error {
	if !pinPattern.MatchString(pin) {
		return entities.ErrInvalidPIN
	}

	hash, ok, err := g.local.Get(ctx, localPINKey)
	if err != nil {
		return fmt.Errorf("load pin check: %w", err)
	}
	if !ok {
		return entities.ErrPINNotSet
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) != nil {
		g.logger.Warnw("Step-up pin verification failed")
		return entities.ErrIncorrectPIN
	}

	g.unlock()
	return nil
}

// SetPIN provisions or replaces the device PIN. Only the bcrypt hash is
// stored.
func (g *Gate) SetPIN(ctx context.Context, pin string) error {
	if !pinPattern.MatchString(pin) {
		return entities.ErrInvalidPIN
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}
	return g.local.Set(ctx, localPINKey, string(hash))
}

// HasPIN reports whether a device PIN has been provisioned.
func (g *Gate) HasPIN(ctx context.Context) (bool, error) {
	_, ok, err := g.local.Get(ctx, localPINKey)
	return ok, err
}

// VerifyMasterPassword unlocks the gate with the vault master password.
// The check value lives in the user's keychain as a password entry.
func (g *Gate) VerifyMasterPassword(ctx context.Context, userID, password string) error {
	entries, err := g.keychain.List(ctx,
		ports.Equal("userId", userID),
		ports.Equal("type", string(entities.KeychainEntryPassword)),
	)
	if err != nil {
		return fmt.Errorf("load keychain: %w", err)
	}
	if len(entries) == 0 {
		return entities.ErrPasswordNotSet
	}
	if bcrypt.CompareHashAndPassword([]byte(entries[0].Check), []byte(password)) != nil {
		g.logger.Warnw("Step-up password verification failed", "user_id", userID)
		return entities.ErrIncorrectPassword
	}

	g.unlock()
	return nil
}

// VerifyPasskey is reserved for hardware-backed verification, which this
// client does not provide.
func (g *Gate) VerifyPasskey(ctx context.Context, userID string) error {
	return entities.ErrPasskeyNotSupported
}

// unlock opens the gate and releases the parked action, if any.
func (g *Gate) unlock() {
	g.mu.Lock()
	g.unlocked = true
	g.unlockedAt = time.Now()
	action := g.pending
	g.pending = nil
	g.mu.Unlock()

	if action != nil && action.OnSuccess != nil {
		action.OnSuccess()
	}
}

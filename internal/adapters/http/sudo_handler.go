package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kylrix/flow/internal/application/sudo"
	"github.com/kylrix/flow/internal/infrastructure/logger"
	"github.com/kylrix/flow/internal/ports"
)

// SudoHandler exposes the step-up gate and the vault listing it guards.
type SudoHandler struct {
	gate    *sudo.Gate
	secrets ports.SecretAPI
	logger  *logger.Logger
}

// NewSudoHandler creates a new sudo handler
func NewSudoHandler(gate *sudo.Gate, secrets ports.SecretAPI, logger *logger.Logger) *SudoHandler {
	return &SudoHandler{
		gate:    gate,
		secrets: secrets,
		logger:  logger,
	}
}

// Status reports the gate state.
func (h *SudoHandler) Status(c echo.Context) error {
	configured, err := h.gate.HasPIN(c.Request().Context())
	if err != nil {
		h.logger.Errorw("PIN lookup failed", "error", err)
		return err
	}
	resp := SudoStatusResponse{
		Unlocked:      h.gate.Unlocked(),
		PINConfigured: configured,
	}
	if name, ok := h.gate.Pending(); ok {
		resp.PendingAction = name
	}
	return c.JSON(http.StatusOK, resp)
}

// VerifyPIN unlocks the gate with the device PIN.
func (h *SudoHandler) VerifyPIN(c echo.Context) error {
	var req VerifyPINRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.gate.VerifyPIN(c.Request().Context(), req.PIN); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "unlocked"})
}

// SetPIN provisions the device PIN.
func (h *SudoHandler) SetPIN(c echo.Context) error {
	var req SetPINRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.gate.SetPIN(c.Request().Context(), req.PIN); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "pin configured"})
}

// VerifyPassword unlocks the gate with the master password.
func (h *SudoHandler) VerifyPassword(c echo.Context) error {
	var req VerifyPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, _ := currentUser(c)
	if err := h.gate.VerifyMasterPassword(c.Request().Context(), user.ID, req.Password); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "unlocked"})
}

// VerifyPasskey reports that hardware verification is unavailable.
func (h *SudoHandler) VerifyPasskey(c echo.Context) error {
	user, _ := currentUser(c)
	return h.gate.VerifyPasskey(c.Request().Context(), user.ID)
}

// Cancel dismisses the verification prompt.
func (h *SudoHandler) Cancel(c echo.Context) error {
	h.gate.Cancel()
	return c.JSON(http.StatusOK, MessageResponse{Message: "cancelled"})
}

// Lock relocks the gate.
func (h *SudoHandler) Lock(c echo.Context) error {
	h.gate.Lock()
	return c.JSON(http.StatusOK, MessageResponse{Message: "locked"})
}

// ListSecrets lists the viewer's vault entries. The whole listing sits
// behind the gate: a locked request parks the action, so Status reports
// it as pending until the viewer verifies or cancels.
func (h *SudoHandler) ListSecrets(c echo.Context) error {
	user, _ := currentUser(c)
	if prompt := h.gate.Request(sudo.Action{
		Name: "list-secrets",
		OnSuccess: func() {
			h.logger.Infow("Vault listing released", "user_id", user.ID)
		},
		OnCancel: func() {
			h.logger.Infow("Vault listing dismissed", "user_id", user.ID)
		},
	}); prompt {
		return echo.NewHTTPError(http.StatusForbidden, "Verification required")
	}

	secrets, err := h.secrets.List(c.Request().Context(), ports.Equal("userId", user.ID))
	if err != nil {
		h.logger.Errorw("Secret list failed", "error", err, "user_id", user.ID)
		return err
	}
	return c.JSON(http.StatusOK, secrets)
}

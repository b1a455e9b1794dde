package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/kylrix/flow/internal/adapters/backend"
	"github.com/kylrix/flow/internal/adapters/completion"
	httpHandlers "github.com/kylrix/flow/internal/adapters/http"
	"github.com/kylrix/flow/internal/application/events"
	"github.com/kylrix/flow/internal/application/intent"
	"github.com/kylrix/flow/internal/application/session"
	"github.com/kylrix/flow/internal/application/store"
	"github.com/kylrix/flow/internal/application/sudo"
	"github.com/kylrix/flow/internal/infrastructure/config"
	"github.com/kylrix/flow/internal/infrastructure/localdata"
	"github.com/kylrix/flow/internal/infrastructure/logger"
)

// Server represents the HTTP server
type Server struct {
	echo     *echo.Echo
	config   *config.Config
	logger   *logger.Logger
	local    *localdata.Store
	sessions *session.Manager
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New wires the backend client, device-local storage and application
// services into an HTTP server.
func New(cfg *config.Config, local *localdata.Store, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	// Set custom validator
	e.Validator = &CustomValidator{validator: validator.New()}

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true

	// Custom error handler
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	// Backend surfaces
	client := backend.New(cfg.Backend, appLogger)
	completionClient := completion.New(cfg.Completion, appLogger)

	// Application services
	bridge := session.NewBridge(cfg.Auth, session.NewHTTPTransport(cfg.Auth.SilentCheckTimeout), appLogger)
	sessions := session.NewManager(client, bridge, cfg.Auth, appLogger)
	gate := sudo.NewGate(cfg.Sudo, client.Keychain(), local, appLogger)
	taskStore := store.NewTaskStore(client.Tasks(), appLogger)
	noteStore := store.NewNoteStore(client.Notes(), appLogger)
	notificationStore := store.NewNotificationStore(client.Notifications(), local, appLogger)
	layoutStore := store.NewLayoutStore(local)
	eventService := events.NewService(client.Events(), client.EventGuests(), client, appLogger)
	analyzer := intent.NewAnalyzer(completionClient, taskStore, client.Events(), appLogger)

	// Handlers
	sessionHandler := httpHandlers.NewSessionHandler(sessions, cfg.Auth, appLogger)
	taskHandler := httpHandlers.NewTaskHandler(taskStore, appLogger)
	noteHandler := httpHandlers.NewNoteHandler(noteStore, appLogger)
	eventHandler := httpHandlers.NewEventHandler(eventService, client.Events(), appLogger)
	sudoHandler := httpHandlers.NewSudoHandler(gate, client.Secrets(), appLogger)
	intentHandler := httpHandlers.NewIntentHandler(analyzer, appLogger)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationStore, layoutStore, appLogger)
	dashboardHandler := httpHandlers.NewDashboardHandler(taskStore, noteStore, client.Events(), notificationStore, appLogger)

	server := &Server{
		echo:     e,
		config:   cfg,
		logger:   appLogger,
		local:    local,
		sessions: sessions,
	}

	// Setup middleware
	server.setupMiddleware()
	e.Use(httpHandlers.ResolveUser(sessions, appLogger))

	// Setup routes
	server.setupRoutes(sessionHandler, taskHandler, noteHandler, eventHandler, sudoHandler, intentHandler, notificationHandler, dashboardHandler)

	// Setup metrics
	if cfg.Metrics.Enabled {
		server.setupMetrics()
	}

	return server, nil
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(
	sessionHandler *httpHandlers.SessionHandler,
	taskHandler *httpHandlers.TaskHandler,
	noteHandler *httpHandlers.NoteHandler,
	eventHandler *httpHandlers.EventHandler,
	sudoHandler *httpHandlers.SudoHandler,
	intentHandler *httpHandlers.IntentHandler,
	notificationHandler *httpHandlers.NotificationHandler,
	dashboardHandler *httpHandlers.DashboardHandler,
) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	v1 := s.echo.Group("/api/v1")
	authed := httpHandlers.RequireUser()

	// Session surface (public)
	sessionGroup := v1.Group("/session")
	sessionGroup.GET("", sessionHandler.Status)
	sessionGroup.POST("/login", sessionHandler.BeginLogin)
	sessionGroup.POST("/login/dismiss", sessionHandler.DismissLogin)
	sessionGroup.POST("/logout", sessionHandler.Logout, authed)

	// App-bar switcher (public, part of the shell)
	v1.GET("/apps", sessionHandler.Apps)

	v1.GET("/dashboard", dashboardHandler.Summary, authed)

	// Event pages are the only public content surface.
	v1.GET("/events/:id", eventHandler.GetEvent)
	v1.GET("/events", eventHandler.ListEvents, authed)
	v1.POST("/events", eventHandler.CreateEvent, authed)
	v1.POST("/events/:id/register", eventHandler.Register, authed)
	v1.DELETE("/events/:id/register", eventHandler.CancelRegistration, authed)
	v1.GET("/calendar", eventHandler.Calendar, authed)

	// Task routes (authenticated)
	taskGroup := v1.Group("/tasks", authed)
	taskGroup.GET("", taskHandler.ListTasks)
	taskGroup.POST("", taskHandler.CreateTask)
	taskGroup.GET("/:id", taskHandler.GetTask)
	taskGroup.PATCH("/:id", taskHandler.UpdateTask)
	taskGroup.DELETE("/:id", taskHandler.DeleteTask)

	// Note routes (authenticated)
	noteGroup := v1.Group("/notes", authed)
	noteGroup.GET("", noteHandler.ListNotes)
	noteGroup.POST("", noteHandler.CreateNote)
	noteGroup.GET("/:id", noteHandler.GetNote)
	noteGroup.PATCH("/:id", noteHandler.UpdateNote)
	noteGroup.DELETE("/:id", noteHandler.DeleteNote)

	// Notification + layout routes (authenticated)
	notificationGroup := v1.Group("/notifications", authed)
	notificationGroup.GET("", notificationHandler.List)
	notificationGroup.POST("/:id/read", notificationHandler.MarkRead)
	notificationGroup.POST("/read-all", notificationHandler.MarkAllRead)

	layoutGroup := v1.Group("/layout", authed)
	layoutGroup.GET("", notificationHandler.GetLayout)
	layoutGroup.PUT("/sidebar", notificationHandler.SetSidebar)
	layoutGroup.PUT("/calendar-view", notificationHandler.SetCalendarView)

	// Step-up gate and the vault listing it guards (authenticated)
	sudoGroup := v1.Group("/sudo", authed)
	sudoGroup.GET("", sudoHandler.Status)
	sudoGroup.POST("/pin", sudoHandler.VerifyPIN)
	sudoGroup.PUT("/pin", sudoHandler.SetPIN)
	sudoGroup.POST("/password", sudoHandler.VerifyPassword)
	sudoGroup.POST("/passkey", sudoHandler.VerifyPasskey)
	sudoGroup.POST("/cancel", sudoHandler.Cancel)
	sudoGroup.POST("/lock", sudoHandler.Lock)
	v1.GET("/secrets", sudoHandler.ListSecrets, authed)

	// Assistant routes (authenticated)
	intentGroup := v1.Group("/intent", authed)
	intentGroup.POST("/analyze", intentHandler.Analyze)
	intentGroup.POST("/execute", intentHandler.Execute)
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) readinessCheck(c echo.Context) error {
	// Device-local storage must be reachable before serving.
	if _, _, err := s.local.Get(c.Request().Context(), "health.probe"); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "local_storage_not_ready",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Bootstrap primes the session state machine before serving.
func (s *Server) Bootstrap(ctx context.Context) {
	if err := s.sessions.Bootstrap(ctx); err != nil {
		s.logger.Infow("Starting without an established session", "error", err)
	}
}

// Handler exposes the routing tree.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.Infow("Starting server", "address", address)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Shutting down server")
	s.sessions.Close()
	return s.echo.Shutdown(ctx)
}

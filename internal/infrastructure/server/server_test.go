package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kylrix/flow/internal/infrastructure/config"
	"github.com/kylrix/flow/internal/infrastructure/localdata"
	"github.com/kylrix/flow/internal/infrastructure/logger"
)

// fakeBackend answers the backend surface the server wires against.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/account", func(w http.ResponseWriter, r *http.Request) {
		cookie := r.Header.Get("Cookie")
		switch {
		case strings.Contains(cookie, "session=valid"):
			json.NewEncoder(w).Encode(map[string]string{"id": "u1", "email": "u1@example.test", "name": "User One"})
		case strings.Contains(cookie, "session=bob"):
			json.NewEncoder(w).Encode(map[string]string{"id": "u2", "email": "bob@example.test", "name": "Bob"})
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})
	mux.HandleFunc("/tables/events/rows/pub", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id": "pub", "title": "Launch party", "visibility": "public",
			"userId":    "owner",
			"startTime": time.Now().Format(time.RFC3339),
			"endTime":   time.Now().Add(time.Hour).Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/tables/events/rows/priv", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id": "priv", "title": "Board meeting", "visibility": "private",
			"userId": "owner",
		})
	})
	mux.HandleFunc("/tables/events/rows/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/tables/events/rows", func(w http.ResponseWriter, r *http.Request) {
		// Only the indexed event fields may be filtered on.
		forOwner := false
		for _, q := range r.URL.Query()["query"] {
			if !strings.HasPrefix(q, "userId=") && !strings.HasPrefix(q, "eventId=") {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if q == "userId=u1" {
				forOwner = true
			}
		}
		if !forOwner {
			json.NewEncoder(w).Encode(map[string]any{"total": 0, "rows": []any{}})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"total": 1, "rows": []any{
			map[string]any{
				"id": "soon", "title": "Standup", "visibility": "private",
				"userId":    "u1",
				"startTime": time.Now().Add(time.Hour).Format(time.RFC3339),
				"endTime":   time.Now().Add(2 * time.Hour).Format(time.RFC3339),
			},
		}})
	})
	mux.HandleFunc("/tables/notes/rows", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"total": 0, "rows": []any{}})
	})
	mux.HandleFunc("/tables/notifications/rows", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"total": 0, "rows": []any{}})
	})
	mux.HandleFunc("/tables/event_guests/rows", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"total": 0, "rows": []any{}})
	})
	mux.HandleFunc("/tables/tasks/rows", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var row map[string]any
			json.NewDecoder(r.Body).Decode(&row)
			json.NewEncoder(w).Encode(row)
			return
		}
		for _, q := range r.URL.Query()["query"] {
			if q == "creatorId=u1" {
				json.NewEncoder(w).Encode(map[string]any{"total": 1, "rows": []any{
					map[string]any{
						"id": "t1", "title": "Private plan", "status": "todo",
						"priority": "medium", "creatorId": "u1", "assigneeIds": []string{"u1"},
					},
				}})
				return
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"total": 0, "rows": []any{}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	backend := fakeBackend(t)

	cfg := &config.Config{}
	cfg.App.Name = "flow"
	cfg.App.Environment = "test"
	cfg.Backend.Endpoint = backend.URL
	cfg.Backend.ProjectID = "test-project"
	cfg.Backend.RequestTimeout = 2 * time.Second
	cfg.Auth.Subdomain = "id"
	cfg.Auth.Domain = "example.test"
	cfg.Auth.SilentCheckTimeout = 50 * time.Millisecond
	cfg.Auth.PollInterval = 10 * time.Millisecond
	cfg.Auth.PollMaxAttempts = 2
	cfg.Security.CORSAllowedOrigins = "https://flow.example.test"
	cfg.Security.RateLimitRequests = 1000
	cfg.Security.RateLimitWindow = time.Minute
	cfg.Metrics.Enabled = true

	local, err := localdata.Open(config.LocalDataConfig{Path: filepath.Join(t.TempDir(), "flow.db")})
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	t.Cleanup(func() { local.Close() })

	srv, err := New(cfg, local, logger.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/health = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/ready = %d", rec.Code)
	}
}

func TestPublicEventPage(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events/pub", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("public event = %d: %s", rec.Code, rec.Body.String())
	}

	var page struct {
		Event struct {
			ID string `json:"id"`
		} `json:"event"`
		CoverPattern struct {
			From string `json:"from"`
		} `json:"coverPattern"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Event.ID != "pub" || page.CoverPattern.From == "" {
		t.Errorf("page = %+v", page)
	}
}

func TestPrivateAndMissingEventsAnswerIdentically(t *testing.T) {
	srv := newTestServer(t)

	var bodies []string
	for _, id := range []string{"priv", "nope"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events/"+id, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("event %s = %d", id, rec.Code)
		}
		bodies = append(bodies, rec.Body.String())
	}
	if bodies[0] != bodies[1] {
		t.Errorf("responses differ:\n%s\n%s", bodies[0], bodies[1])
	}
	if !strings.Contains(bodies[0], "private or does not exist") {
		t.Errorf("body = %s", bodies[0])
	}
}

func TestPrivateSurfaceRequiresSession(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/api/v1/tasks", "/api/v1/notes", "/api/v1/notifications", "/api/v1/secrets", "/api/v1/calendar"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s = %d, want 401", path, rec.Code)
		}
	}
}

func TestSessionCookieResolvesViewer(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	req.Header.Set("Cookie", "session=valid")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("tasks with session = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateTaskThroughTheStack(t *testing.T) {
	srv := newTestServer(t)

	body := strings.NewReader(`{"title":"Ship it"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", "session=valid")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}

	var task struct {
		Title    string `json:"title"`
		Status   string `json:"status"`
		Priority string `json:"priority"`
		Creator  string `json:"creatorId"`
	}
	json.Unmarshal(rec.Body.Bytes(), &task)
	if task.Status != "todo" || task.Priority != "medium" || task.Creator != "u1" {
		t.Errorf("task = %+v", task)
	}
}

func TestTaskCacheDoesNotLeakAcrossSessions(t *testing.T) {
	srv := newTestServer(t)

	// First viewer populates the working set.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	req.Header.Set("Cookie", "session=valid")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "t1") {
		t.Fatalf("owner list = %d: %s", rec.Code, rec.Body.String())
	}

	// A different session must not see the cached row.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/tasks/t1", nil)
	req.Header.Set("Cookie", "session=bob")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign get = %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/tasks/t1", nil)
	req.Header.Set("Cookie", "session=bob")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign delete = %d: %s", rec.Code, rec.Body.String())
	}

	// The owner still reaches their row afterwards.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/tasks/t1", nil)
	req.Header.Set("Cookie", "session=valid")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner get = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDashboardSummary(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	req.Header.Set("Cookie", "session=valid")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard = %d: %s", rec.Code, rec.Body.String())
	}

	var summary struct {
		Tasks struct {
			Total int `json:"total"`
		} `json:"tasks"`
		NoteCount      int `json:"noteCount"`
		UpcomingEvents []struct {
			ID string `json:"id"`
		} `json:"upcomingEvents"`
		UnreadCount int `json:"unreadCount"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(summary.UpcomingEvents) != 1 || summary.UpcomingEvents[0].ID != "soon" {
		t.Errorf("upcoming = %+v", summary.UpcomingEvents)
	}
	if summary.NoteCount != 0 || summary.UnreadCount != 0 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestLockedGateHidesSecrets(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/secrets", nil)
	req.Header.Set("Cookie", "session=valid")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("secrets while locked = %d", rec.Code)
	}
}

func TestLockedVaultRequestParksAction(t *testing.T) {
	srv := newTestServer(t)

	sudoStatus := func() (string, bool) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/sudo", nil)
		req.Header.Set("Cookie", "session=valid")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("sudo status = %d: %s", rec.Code, rec.Body.String())
		}
		var status struct {
			Unlocked      bool   `json:"unlocked"`
			PendingAction string `json:"pendingAction"`
		}
		json.Unmarshal(rec.Body.Bytes(), &status)
		return status.PendingAction, status.Unlocked
	}

	if pending, _ := sudoStatus(); pending != "" {
		t.Fatalf("pending before any request = %q", pending)
	}

	// A locked vault listing parks the action behind the prompt.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/secrets", nil)
	req.Header.Set("Cookie", "session=valid")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("locked secrets = %d", rec.Code)
	}
	if pending, _ := sudoStatus(); pending != "list-secrets" {
		t.Errorf("pending = %q, want list-secrets", pending)
	}

	// Dismissing the prompt drops it.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/sudo/cancel", nil)
	req.Header.Set("Cookie", "session=valid")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel = %d", rec.Code)
	}
	if pending, _ := sudoStatus(); pending != "" {
		t.Errorf("pending after cancel = %q", pending)
	}
}

func TestSessionStatusEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("session status = %d", rec.Code)
	}
	var status struct {
		State string `json:"state"`
	}
	json.Unmarshal(rec.Body.Bytes(), &status)
	if status.State == "" {
		t.Error("empty session state")
	}
}

func TestEcosystemAppsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/apps", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/apps = %d", rec.Code)
	}

	var apps []struct {
		ID      string `json:"id"`
		URL     string `json:"url"`
		Current bool   `json:"current"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &apps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	found := false
	for _, app := range apps {
		if app.ID == "flow" {
			found = true
			if !app.Current {
				t.Error("flow entry not marked current")
			}
			if app.URL != "https://flow.example.test" {
				t.Errorf("url = %q", app.URL)
			}
		}
	}
	if !found {
		t.Error("flow missing from the registry")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/metrics = %d", rec.Code)
	}
}

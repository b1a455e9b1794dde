package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kylrix/flow/internal/domain/entities"
	"github.com/kylrix/flow/internal/infrastructure/config"
	"github.com/kylrix/flow/internal/infrastructure/logger"
	"github.com/kylrix/flow/internal/ports"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := New(config.BackendConfig{
		Endpoint:       srv.URL,
		ProjectID:      "proj-1",
		RequestTimeout: 5 * time.Second,
	}, logger.NewNop())
	return client, srv
}

func TestListTasksSendsProjectHeaderAndQueries(t *testing.T) {
	var gotProject, gotQuery string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotProject = r.Header.Get("X-Project")
		gotQuery = r.URL.Query().Get("query")
		json.NewEncoder(w).Encode(map[string]any{
			"total": 1,
			"rows": []map[string]any{
				{"id": "t1", "title": "T", "priority": "high", "status": "todo", "creatorId": "u1"},
			},
		})
	}))

	tasks, err := client.Tasks().List(context.Background(), ports.Equal("projectId", "inbox"))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if gotProject != "proj-1" {
		t.Errorf("project header = %q", gotProject)
	}
	if gotQuery != "projectId=inbox" {
		t.Errorf("query = %q", gotQuery)
	}
	if len(tasks) != 1 || tasks[0].Priority != entities.PriorityHigh {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}

func TestGetEventNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"no such row"}`, http.StatusNotFound)
	}))

	_, err := client.Events().Get(context.Background(), "missing")
	if !errors.Is(err, entities.ErrEventNotFound) {
		t.Errorf("err = %v, want ErrEventNotFound", err)
	}
}

func TestUnauthorizedMapsToSentinel(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"missing session"}`, http.StatusUnauthorized)
	}))

	_, err := client.CurrentSession(context.Background())
	if !errors.Is(err, entities.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestTransportFailureMapsToNetworkSentinel(t *testing.T) {
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := client.Tasks().List(context.Background())
	if !errors.Is(err, entities.ErrNetwork) {
		t.Errorf("err = %v, want ErrNetwork", err)
	}
}

func TestCreateTaskAssignsIDAndRoundTrips(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		var task entities.Task
		if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if task.ID == "" {
			t.Error("client must generate a row id before submission")
		}
		json.NewEncoder(w).Encode(task)
	}))

	created, err := client.Tasks().Create(context.Background(), &entities.Task{
		Title: "T", Priority: entities.PriorityHigh, Status: entities.TaskStatusTodo, CreatorID: "u1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Title != "T" || created.Priority != entities.PriorityHigh {
		t.Errorf("round trip lost fields: %+v", created)
	}
}

func TestCookieForwarding(t *testing.T) {
	var gotCookie string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		json.NewEncoder(w).Encode(entities.User{ID: "u1", Email: "a@b.c"})
	}))

	user, err := client.CurrentSessionWithCookie(context.Background(), "session=abc123")
	if err != nil {
		t.Fatalf("CurrentSessionWithCookie: %v", err)
	}
	if gotCookie != "session=abc123" {
		t.Errorf("cookie = %q", gotCookie)
	}
	if user.ID != "u1" {
		t.Errorf("user = %+v", user)
	}

	if _, err := client.CurrentSessionWithCookie(context.Background(), ""); !errors.Is(err, entities.ErrUnauthorized) {
		t.Errorf("empty cookie should fail with ErrUnauthorized, got %v", err)
	}
}

func TestProfilePreviewURL(t *testing.T) {
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	url := client.ProfilePreviewURL("f1", 64, 64)
	if !strings.HasPrefix(url, srv.URL+"/storage/files/f1/preview?") {
		t.Errorf("url = %q", url)
	}
	if !strings.Contains(url, "width=64") || !strings.Contains(url, "project=proj-1") {
		t.Errorf("url missing params: %q", url)
	}
	if client.ProfilePreviewURL("", 64, 64) != "" {
		t.Error("empty file id should produce empty url")
	}
}

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kylrix/flow/internal/domain/entities"
	"github.com/kylrix/flow/internal/infrastructure/config"
	"github.com/kylrix/flow/internal/infrastructure/logger"
	"github.com/kylrix/flow/internal/ports"
)

// Client wraps the remote backend-as-a-service REST API. Every request
// carries the project header; row tables are exposed through the typed
// table adapters in tables.go.
type Client struct {
	httpClient *http.Client
	endpoint   string
	projectID  string
	logger     *logger.Logger

	// sessionCookie is the process-wide session, set after login.
	sessionCookie string
}

// New creates a backend client from configuration.
func New(cfg config.BackendConfig, appLogger *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		endpoint:   cfg.Endpoint,
		projectID:  cfg.ProjectID,
		logger:     appLogger.WithComponent("backend"),
	}
}

// SetSessionCookie installs the process-wide session cookie used for
// all subsequent requests.
func (c *Client) SetSessionCookie(cookie string) {
	c.sessionCookie = cookie
}

// listResponse is the envelope the backend returns for row listings.
type listResponse struct {
	Total int               `json:"total"`
	Rows  []json.RawMessage `json:"rows"`
}

// do executes one request against the backend and decodes the response
// into out when out is non-nil. Transport failures are classified as
// entities.ErrNetwork; HTTP failures map onto the shared sentinels.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, cookie string, out any) error {
	u := c.endpoint + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Project", c.projectID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie == "" {
		cookie = c.sessionCookie
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", entities.ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.statusError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// statusError maps an HTTP failure onto the shared error taxonomy.
func (c *Client) statusError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", entities.ErrUnauthorized, body.Message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrRowNotFound, body.Message)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrRowConflict, body.Message)
	default:
		return fmt.Errorf("backend returned %d: %s", resp.StatusCode, body.Message)
	}
}

func queryValues(queries []ports.Query) url.Values {
	if len(queries) == 0 {
		return nil
	}
	values := url.Values{}
	for _, q := range queries {
		values.Add("query", q.Field+"="+q.Value)
	}
	return values
}

func previewQuery(width, height int) url.Values {
	values := url.Values{}
	values.Set("width", strconv.Itoa(width))
	values.Set("height", strconv.Itoa(height))
	return values
}

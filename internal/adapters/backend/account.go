package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kylrix/flow/internal/domain/entities"
)

// CurrentSession returns the user bound to the process-wide session.
func (c *Client) CurrentSession(ctx context.Context) (*entities.User, error) {
	var user entities.User
	if err := c.do(ctx, http.MethodGet, "/account", nil, nil, "", &user); err != nil {
		return nil, fmt.Errorf("current session: %w", err)
	}
	if user.ID == "" {
		return nil, entities.ErrUnauthorized
	}
	return &user, nil
}

// CurrentSessionWithCookie resolves the user from a forwarded Cookie
// header, the way incoming browser requests carry their session.
func (c *Client) CurrentSessionWithCookie(ctx context.Context, cookieHeader string) (*entities.User, error) {
	if cookieHeader == "" {
		return nil, entities.ErrUnauthorized
	}
	var user entities.User
	if err := c.do(ctx, http.MethodGet, "/account", nil, nil, cookieHeader, &user); err != nil {
		return nil, fmt.Errorf("session from cookie: %w", err)
	}
	if user.ID == "" {
		return nil, entities.ErrUnauthorized
	}
	return &user, nil
}

// DeleteCurrentSession invalidates the current session on the backend.
func (c *Client) DeleteCurrentSession(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, "/account/sessions/current", nil, nil, "", nil); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	c.sessionCookie = ""
	return nil
}

// SearchUsers looks up ecosystem users by id or name fragment. Used to
// resolve attendee identities for avatar display.
func (c *Client) SearchUsers(ctx context.Context, term string, limit int) ([]*entities.User, error) {
	values := url.Values{}
	values.Set("search", term)
	values.Set("limit", strconv.Itoa(limit))

	var resp struct {
		Total int              `json:"total"`
		Users []*entities.User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/search", values, nil, "", &resp); err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return resp.Users, nil
}

// ProfilePreviewURL builds the file-storage preview URL for a stored
// profile picture.
func (c *Client) ProfilePreviewURL(fileID string, width, height int) string {
	if fileID == "" {
		return ""
	}
	values := previewQuery(width, height)
	values.Set("project", c.projectID)
	return fmt.Sprintf("%s/storage/files/%s/preview?%s", c.endpoint, fileID, values.Encode())
}

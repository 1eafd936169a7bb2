package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

func (c *Client) ListUsers(ctx context.Context) ([]types.User, error) {
	return call[[]types.User](ctx, c, "/users", RequestOptions{})
}

func (c *Client) GetUser(ctx context.Context, id string) (types.User, error) {
	return call[types.User](ctx, c, "/users/"+url.PathEscape(id), RequestOptions{})
}

func (c *Client) CreateUser(ctx context.Context, in types.UserInput) (types.User, error) {
	return call[types.User](ctx, c, "/users", RequestOptions{Method: http.MethodPost, Body: in})
}

func (c *Client) UpdateUser(ctx context.Context, id string, in types.UserInput) (types.User, error) {
	return call[types.User](ctx, c, "/users/"+url.PathEscape(id), RequestOptions{Method: http.MethodPut, Body: in})
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	_, err := c.Request(ctx, "/users/"+url.PathEscape(id), RequestOptions{Method: http.MethodDelete})
	return err
}

// ToggleUserActive flips isActive server-side and returns the new record.
func (c *Client) ToggleUserActive(ctx context.Context, id string) (types.User, error) {
	return call[types.User](ctx, c, "/users/"+url.PathEscape(id)+"/toggle", RequestOptions{Method: http.MethodPatch})
}

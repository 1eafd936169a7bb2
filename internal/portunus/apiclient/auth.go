package apiclient

import (
	"context"
	"net/http"
	"strings"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// Login exchanges credentials for a session token and stores it.
func (c *Client) Login(ctx context.Context, email, password string) (types.LoginResult, error) {
	res, err := call[types.LoginResult](ctx, c, "/auth/login", RequestOptions{
		Method: http.MethodPost,
		Body:   Credentials{Email: email, Password: password},
	})
	if err != nil {
		return res, err
	}
	if res.Token != "" {
		if err := c.tokens.SetToken(ctx, res.Token); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Register creates an operator account. An empty display name becomes the
// local part of the email address.
func (c *Client) Register(ctx context.Context, r Registration) (types.Account, error) {
	if r.DisplayName == "" {
		local, _, _ := strings.Cut(r.Email, "@")
		r.DisplayName = local
	}
	return call[types.Account](ctx, c, "/auth/register", RequestOptions{
		Method: http.MethodPost,
		Body:   r,
	})
}

// Logout notifies the backend and clears the local token. The token is
// cleared even when the request fails.
func (c *Client) Logout(ctx context.Context) error {
	_, reqErr := c.Request(ctx, "/auth/logout", RequestOptions{Method: http.MethodPost})
	if err := c.tokens.ClearToken(ctx); err != nil {
		return err
	}
	return reqErr
}

func (c *Client) CurrentUser(ctx context.Context) (types.Account, error) {
	return call[types.Account](ctx, c, "/auth/me", RequestOptions{})
}

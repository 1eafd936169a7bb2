package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

func cardPath(id string) string { return "/v1/cards/" + url.PathEscape(id) }

func (c *Client) ListCards(ctx context.Context) ([]types.Card, error) {
	return call[[]types.Card](ctx, c, "/v1/cards", RequestOptions{})
}

func (c *Client) GetCard(ctx context.Context, id string) (types.Card, error) {
	return call[types.Card](ctx, c, cardPath(id), RequestOptions{})
}

func (c *Client) UpdateCard(ctx context.Context, id string, u types.CardUpdate) (types.Card, error) {
	return call[types.Card](ctx, c, cardPath(id), RequestOptions{Method: http.MethodPut, Body: u})
}

// AssignCard binds a card to a user with the given policy and activates it.
func (c *Client) AssignCard(ctx context.Context, id string, r types.AssignCardRequest) (types.Card, error) {
	return call[types.Card](ctx, c, cardPath(id)+"/assign", RequestOptions{Method: http.MethodPost, Body: r})
}

func (c *Client) RevokeCard(ctx context.Context, id, reason string) (types.Card, error) {
	return call[types.Card](ctx, c, cardPath(id)+"/revoke", RequestOptions{
		Method: http.MethodPost,
		Body:   types.RevokeCardRequest{Reason: reason},
	})
}

// ReactivateCard moves a revoked card back to active.
func (c *Client) ReactivateCard(ctx context.Context, id string) (types.Card, error) {
	active := types.CardActive
	return c.UpdateCard(ctx, id, types.CardUpdate{Status: &active})
}

func (c *Client) DeleteCard(ctx context.Context, id string) error {
	_, err := c.Request(ctx, cardPath(id), RequestOptions{Method: http.MethodDelete})
	return err
}

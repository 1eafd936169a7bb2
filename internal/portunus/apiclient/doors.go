package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

func (c *Client) ListDoors(ctx context.Context) ([]types.DoorStatus, error) {
	return call[[]types.DoorStatus](ctx, c, "/doors", RequestOptions{})
}

func (c *Client) DoorStatus(ctx context.Context, doorID string) (types.DoorStatus, error) {
	return call[types.DoorStatus](ctx, c, "/doors/"+url.PathEscape(doorID), RequestOptions{})
}

// SendDoorCommand validates the action locally before sending it.
func (c *Client) SendDoorCommand(ctx context.Context, doorID string, action types.DoorAction) (types.DoorCommandResult, error) {
	if err := action.Validate(); err != nil {
		return types.DoorCommandResult{}, err
	}
	return call[types.DoorCommandResult](ctx, c, "/doors/"+url.PathEscape(doorID)+"/command", RequestOptions{
		Method: http.MethodPost,
		Body:   types.DoorCommand{Action: action},
	})
}

package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

func (c *Client) ListDevices(ctx context.Context) ([]types.Device, error) {
	return call[[]types.Device](ctx, c, "/v1/device/list", RequestOptions{})
}

func (c *Client) GetDevice(ctx context.Context, id string) (types.Device, error) {
	return call[types.Device](ctx, c, "/v1/device/"+url.PathEscape(id), RequestOptions{})
}

// UpdateDeviceConfig sends a partial config and returns the device's
// effective config.
func (c *Client) UpdateDeviceConfig(ctx context.Context, id string, cfg types.DeviceConfig) (types.DeviceConfig, error) {
	return call[types.DeviceConfig](ctx, c, "/v1/device/"+url.PathEscape(id)+"/config", RequestOptions{
		Method: http.MethodPut,
		Body:   cfg,
	})
}

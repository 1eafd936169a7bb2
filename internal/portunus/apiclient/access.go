package apiclient

import (
	"context"
	"net/url"
	"strconv"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

func (c *Client) AccessLogs(ctx context.Context, q types.AccessLogQuery) ([]types.AccessLogEntry, error) {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	endpoint := "/access/logs"
	if len(v) > 0 {
		endpoint += "?" + v.Encode()
	}
	return call[[]types.AccessLogEntry](ctx, c, endpoint, RequestOptions{})
}

// AccessStats returns counters for period (today, week or month). An empty
// period means today.
func (c *Client) AccessStats(ctx context.Context, period string) (types.AccessStats, error) {
	if period == "" {
		period = "today"
	}
	return call[types.AccessStats](ctx, c, "/access/stats?period="+url.QueryEscape(period), RequestOptions{})
}

func (c *Client) RecentAccessLogs(ctx context.Context, limit int) ([]types.AccessLogEntry, error) {
	endpoint := "/access/recent"
	if limit > 0 {
		endpoint += "?limit=" + strconv.Itoa(limit)
	}
	return call[[]types.AccessLogEntry](ctx, c, endpoint, RequestOptions{})
}

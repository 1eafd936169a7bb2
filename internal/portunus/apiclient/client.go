package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Portunus/dashboard/internal/portunus/types"
)

const DefaultBaseURL = "http://localhost:3001/api"

// TokenStore is the part of the session the client needs.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client issues requests against the Portunus backend. It never retries;
// callers decide what to do with a failure.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
	logger  zerolog.Logger
}

func New(tokens TokenStore, opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		baseURL: base,
		http:    hc,
		tokens:  tokens,
		logger:  opts.Logger.With().Str("component", "apiclient").Logger(),
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// Tokens exposes the session the client authenticates with.
func (c *Client) Tokens() TokenStore { return c.tokens }

type RequestOptions struct {
	Method string // default GET
	// Body is sent as-is when it is []byte, string or io.Reader and
	// JSON-encoded otherwise.
	Body   any
	Header http.Header
}

// Request sends one request to a server-relative endpoint and returns the
// decoded envelope. Any non-2xx status becomes an *APIError; a 401 also
// clears the stored token.
func (c *Client) Request(ctx context.Context, endpoint string, opts RequestOptions) (*types.Envelope, error) {
	env, err := c.do(ctx, endpoint, opts)
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("api error")
		return nil, err
	}
	return env, nil
}

func (c *Client) do(ctx context.Context, endpoint string, opts RequestOptions) (*types.Envelope, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	body, err := encodeBody(opts.Body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, vs := range opts.Header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var env types.Envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Message:    defaultErrorMessage,
		}
		if decodeErr == nil && env.Error != nil {
			apiErr.Code = env.Error.Code
			if env.Error.Message != "" {
				apiErr.Message = env.Error.Message
			}
		}
		if resp.StatusCode == http.StatusUnauthorized {
			// Navigation back to login is the caller's business.
			if err := c.tokens.ClearToken(ctx); err != nil {
				c.logger.Warn().Err(err).Msg("failed to clear token after 401")
			}
		}
		c.logger.Debug().Str("detail", apiErr.describe()).Msg("api error response")
		return nil, apiErr
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("decode %s response: %w", endpoint, decodeErr)
	}
	return &env, nil
}

func encodeBody(b any) (io.Reader, error) {
	switch v := b.(type) {
	case nil:
		return nil, nil
	case io.Reader:
		return v, nil
	case []byte:
		return bytes.NewReader(v), nil
	case string:
		return strings.NewReader(v), nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return bytes.NewReader(data), nil
}

// call performs a request and decodes the envelope's data into T.
func call[T any](ctx context.Context, c *Client, endpoint string, opts RequestOptions) (T, error) {
	var out T
	env, err := c.Request(ctx, endpoint, opts)
	if err != nil {
		return out, err
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return out, nil
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		err = fmt.Errorf("decode %s data: %w", endpoint, err)
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("api error")
		return out, err
	}
	return out, nil
}

// IsUnauthorized is shorthand for errors.Is(err, ErrUnauthorized).
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

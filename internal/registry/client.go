package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"rollcall/pkg/platform/sentinel"
)

// Client exposes read access to the position registry. The audit engine
// never retries internally; retries, if any, belong to the caller.
type Client interface {
	ListUsers(ctx context.Context) ([]User, error)
	ListGuilds(ctx context.Context) ([]Guild, error)
	GetGuild(ctx context.Context, id string) (*Guild, error)
}

// HTTPClient talks to the registry API over HTTPS with bearer authentication.
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// HTTPClientOption configures an HTTPClient.
type HTTPClientOption func(*HTTPClient)

// WithHTTPDoer overrides the underlying http.Client, mainly for tests.
func WithHTTPDoer(c *http.Client) HTTPClientOption {
	return func(hc *HTTPClient) {
		if c != nil {
			hc.http = c
		}
	}
}

// NewHTTPClient constructs a registry client for the given base URL and token.
func NewHTTPClient(baseURL, token string, opts ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.get(ctx, "/users", &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		if err := u.Validate(); err != nil {
			return nil, err
		}
	}
	return users, nil
}

func (c *HTTPClient) ListGuilds(ctx context.Context) ([]Guild, error) {
	var guilds []Guild
	if err := c.get(ctx, "/guilds", &guilds); err != nil {
		return nil, err
	}
	for _, g := range guilds {
		if err := g.Validate(); err != nil {
			return nil, err
		}
	}
	return guilds, nil
}

func (c *HTTPClient) GetGuild(ctx context.Context, id string) (*Guild, error) {
	var guild Guild
	if err := c.get(ctx, "/guilds/"+id, &guild); err != nil {
		return nil, err
	}
	if err := guild.Validate(); err != nil {
		return nil, err
	}
	return &guild, nil
}

// get performs one authenticated GET and decodes the JSON response.
// 404 maps to sentinel.ErrNotFound; any other non-2xx status surfaces as
// an UnavailableError.
func (c *HTTPClient) get(ctx context.Context, route string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+route, nil)
	if err != nil {
		return fmt.Errorf("build registry request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &UnavailableError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("registry %s: %w", route, sentinel.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &UnavailableError{Status: resp.StatusCode, Reason: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &MalformedDataError{Entity: "response", Detail: err.Error()}
	}
	return nil
}

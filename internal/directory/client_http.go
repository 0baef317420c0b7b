package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"rollcall/pkg/platform/sentinel"
)

// HTTPClient talks to the directory API over HTTPS with bearer
// authentication. It is scoped to one HQ space for membership reads.
type HTTPClient struct {
	baseURL string
	token   string
	spaceID string
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

// NewHTTPClient constructs a directory client for the given base URL, token,
// and HQ space id.
func NewHTTPClient(baseURL, token, spaceID string, opts ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		token:   token,
		spaceID: spaceID,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) ListMembers(ctx context.Context) ([]Member, error) {
	var members []Member
	if err := c.get(ctx, "/spaces/"+c.spaceID+"/members", &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (c *HTTPClient) GetUser(ctx context.Context, id string) (*Member, error) {
	var member Member
	if err := c.get(ctx, "/users/"+id, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (c *HTTPClient) ResolveInvite(ctx context.Context, ref string) (string, error) {
	var invite struct {
		SpaceID string `json:"space_id"`
	}
	err := c.get(ctx, "/invites/"+ref, &invite)
	if err != nil {
		// The directory reports an unknown invite as 404; that is a clean
		// "invalid", not an outage.
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", fmt.Errorf("invite %s: %w", ref, ErrInvalidInvite)
		}
		return "", err
	}
	return invite.SpaceID, nil
}

// get performs one authenticated GET and decodes the JSON response.
// 404 maps to sentinel.ErrNotFound; any other non-2xx status surfaces as an
// UnavailableError.
func (c *HTTPClient) get(ctx context.Context, route string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+route, nil)
	if err != nil {
		return fmt.Errorf("build directory request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &UnavailableError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("directory %s: %w", route, sentinel.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &UnavailableError{Reason: fmt.Sprintf("status %d: %s", resp.StatusCode, body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UnavailableError{Reason: "malformed response: " + err.Error()}
	}
	return nil
}

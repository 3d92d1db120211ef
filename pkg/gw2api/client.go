// Package gw2api provides the account data fetchers used by the aggregator:
// Client talks to the live API, DumpFetcher reads the same documents from a
// directory. Neither retries; a failed call is reported as ErrUnavailable and
// the aggregator carries on without that source.
package gw2api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rubiojr/itemsearch/pkg/core"
	"github.com/rubiojr/itemsearch/pkg/log"
	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL = "https://api.guildwars2.com"

	// schemaVersion is the oldest schema exposing character equipment tabs.
	schemaVersion = "2019-12-19T00:00:00.000Z"
)

// ErrUnavailable wraps every fetch failure.
var ErrUnavailable = errors.New("gw2api: unavailable")

// Endpoint paths, relative to the base URL.
const (
	PathTokenInfo = "/v2/tokeninfo"
	PathBank      = "/v2/account/bank"
	PathInventory = "/v2/account/inventory"
	PathMaterials = "/v2/account/materials"
	PathCharacter = "/v2/characters?ids=all"
	PathDelivery  = "/v2/commerce/delivery"
	PathSells     = "/v2/commerce/transactions/current/sells"
)

// TokenInfo describes the API key in use.
type TokenInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// Scopes returns the key permissions as a set.
func (t *TokenInfo) Scopes() core.Permissions {
	return core.ParsePermissions(t.Permissions)
}

// Client fetches account data over HTTP with a bearer API key.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	base    *http.Client
	timeout time.Duration
}

// WithHTTPClient sets the client whose transport carries the requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.base = c }
}

// WithTimeout bounds each request. Zero keeps the default of 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// NewClient returns a client for baseURL authenticating with token. An empty
// token only works for public endpoints.
func NewClient(baseURL, token string, opts ...Option) *Client {
	o := &clientOptions{timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(o)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	var hc *http.Client
	if token != "" {
		ctx := context.Background()
		if o.base != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, o.base)
		}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
		hc = oauth2.NewClient(ctx, ts)
	} else if o.base != nil {
		c := *o.base
		hc = &c
	} else {
		hc = &http.Client{}
	}
	hc.Timeout = o.timeout

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		logger:  log.ForService("gw2api"),
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	start := time.Now()
	defer c.logger.Since("GET "+path, start)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: building request for %s: %v", ErrUnavailable, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Schema-Version", schemaVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %w", ErrUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Text string `json:"text"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Text != "" {
			return fmt.Errorf("%w: GET %s: %s: %s", ErrUnavailable, path, resp.Status, apiErr.Text)
		}
		return fmt.Errorf("%w: GET %s: %s", ErrUnavailable, path, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrUnavailable, path, err)
	}
	return nil
}

// TokenInfo returns the key name and permissions.
func (c *Client) TokenInfo(ctx context.Context) (*TokenInfo, error) {
	var info TokenInfo
	if err := c.get(ctx, PathTokenInfo, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) Bank(ctx context.Context) ([]*core.ItemSlot, error) {
	var slots []*core.ItemSlot
	if err := c.get(ctx, PathBank, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func (c *Client) SharedInventory(ctx context.Context) ([]*core.ItemSlot, error) {
	var slots []*core.ItemSlot
	if err := c.get(ctx, PathInventory, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func (c *Client) Materials(ctx context.Context) ([]core.MaterialSlot, error) {
	var mats []core.MaterialSlot
	if err := c.get(ctx, PathMaterials, &mats); err != nil {
		return nil, err
	}
	return mats, nil
}

func (c *Client) Characters(ctx context.Context) ([]*core.Character, error) {
	var chars []*core.Character
	if err := c.get(ctx, PathCharacter, &chars); err != nil {
		return nil, err
	}
	return chars, nil
}

func (c *Client) Delivery(ctx context.Context) (*core.Delivery, error) {
	var box core.Delivery
	if err := c.get(ctx, PathDelivery, &box); err != nil {
		return nil, err
	}
	return &box, nil
}

func (c *Client) Sells(ctx context.Context) ([]core.Listing, error) {
	var listings []core.Listing
	if err := c.get(ctx, PathSells, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

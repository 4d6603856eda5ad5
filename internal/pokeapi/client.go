// Package pokeapi is the read-only adapter for the remote species catalog.
//
// Every call either returns a decoded payload or an *Error that unwraps to
// schema.ErrNotFound (4xx) or schema.ErrTransport (network, 5xx, bad body).
// The adapter never retries; retry policy belongs to its callers.
package pokeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/devmasterteam/pokecache/internal/cache/schema"
)

// Observer receives the outcome of every remote call.
type Observer interface {
	ObserveRequest(op string, duration time.Duration, err error)
}

// Config controls how the client reaches the remote catalog.
type Config struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Observer   Observer
}

// Client fetches species data from the remote catalog.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient httpDoer
	observer   Observer
	now        func() time.Time
}

// NewClient constructs a client with the provided configuration.
func NewClient(cfg Config) *Client {
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		baseURL:    normalizeBaseURL(cfg.BaseURL),
		userAgent:  userAgent,
		httpClient: resolveHTTPClient(cfg.HTTPClient, cfg.Timeout),
		observer:   cfg.Observer,
		now:        time.Now,
	}
}

// ListPokemon fetches one page of basic pokemon references.
func (c *Client) ListPokemon(ctx context.Context, limit, offset int) (*Page, error) {
	if limit <= 0 || offset < 0 {
		return nil, fmt.Errorf("%w: limit must be positive and offset non-negative (limit=%d offset=%d)",
			schema.ErrInvalidInput, limit, offset)
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var page Page
	if err := c.get(ctx, "list_pokemon", "/pokemon", q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Pokemon fetches the details of a pokemon by id.
func (c *Client) Pokemon(ctx context.Context, id int) (*Pokemon, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: pokemon id must be positive (got %d)", schema.ErrInvalidInput, id)
	}
	var p Pokemon
	if err := c.get(ctx, "pokemon", "/pokemon/"+strconv.Itoa(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// PokemonByName fetches the details of a pokemon by name.
func (c *Client) PokemonByName(ctx context.Context, name string) (*Pokemon, error) {
	key, err := resourceKey(name)
	if err != nil {
		return nil, err
	}
	var p Pokemon
	if err := c.get(ctx, "pokemon", "/pokemon/"+key, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Generation fetches the species references of a generation by id.
func (c *Client) Generation(ctx context.Context, id int) (*Generation, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: generation id must be positive (got %d)", schema.ErrInvalidInput, id)
	}
	var g Generation
	if err := c.get(ctx, "generation", "/generation/"+strconv.Itoa(id), nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Version fetches a game version by name.
func (c *Client) Version(ctx context.Context, name string) (*Version, error) {
	key, err := resourceKey(name)
	if err != nil {
		return nil, err
	}
	var v Version
	if err := c.get(ctx, "version", "/version/"+key, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// VersionGroup fetches a version group by name.
func (c *Client) VersionGroup(ctx context.Context, name string) (*VersionGroup, error) {
	key, err := resourceKey(name)
	if err != nil {
		return nil, err
	}
	var vg VersionGroup
	if err := c.get(ctx, "version_group", "/version-group/"+key, nil, &vg); err != nil {
		return nil, err
	}
	return &vg, nil
}

// Pokedex fetches a pokedex by name.
func (c *Client) Pokedex(ctx context.Context, name string) (*Pokedex, error) {
	key, err := resourceKey(name)
	if err != nil {
		return nil, err
	}
	var dex Pokedex
	if err := c.get(ctx, "pokedex", "/pokedex/"+key, nil, &dex); err != nil {
		return nil, err
	}
	return &dex, nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) (err error) {
	start := c.now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveRequest(op, c.now().Sub(start), err)
		}
	}()

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &Error{Op: op, URL: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return &Error{
			Op:         op,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, URL: endpoint, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func resourceKey(name string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "", fmt.Errorf("%w: resource name must not be blank", schema.ErrInvalidInput)
	}
	return url.PathEscape(key), nil
}

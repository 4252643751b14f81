package gist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultAPIURL  = "https://api.github.com"
	userAgent      = "sitekit-gists"
	maxPayloadSize = 10 << 20
)

var ErrMalformedResponse = errors.New("malformed gist response")

// Fetcher retrieves a single gist by identifier.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (*Record, error)
}

type APIError struct {
	StatusCode int
	Status     string
}

func (e *APIError) Error() string {
	return "gist API returned " + e.Status
}

// Client talks to the GitHub gist API, spacing requests by a fixed delay.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	limiter *rate.Limiter
}

type ClientOptions struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Delay   time.Duration
}

func NewClient(opts ClientOptions) *Client {
	base := opts.BaseURL
	if base == "" {
		base = DefaultAPIURL
	}

	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}

	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		token:   opts.Token,
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (c *Client) Fetch(ctx context.Context, id string) (*Record, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/gists/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPayloadSize))
		return nil, &APIError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var payload apiGist
	if err = json.NewDecoder(io.LimitReader(resp.Body, maxPayloadSize)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if payload.ID == nil || *payload.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrMalformedResponse)
	}

	return payload.toRecord(), nil
}

package clist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kula-app/upcoming-contests/internal/config"
)

// StartTimeLayout is the format of the start__gt filter (UTC, second precision, no offset)
const StartTimeLayout = "2006-01-02T15:04:05"

// Client talks to the clist.by v2 REST API
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    *url.URL
	username   string
	apiKey     string
	pageLimit  int
	now        func() time.Time
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for requests
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithClock replaces the clock used to compute the start__gt filter
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new API client from the configuration
func NewClient(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", cfg.BaseURL)
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		logger:     logger,
		baseURL:    baseURL,
		username:   cfg.Username,
		apiKey:     cfg.APIKey,
		pageLimit:  cfg.PageLimit,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ResolveResources maps platform names to their resource IDs.
// Names unknown to the API are absent from the returned map; the caller decides how to report them.
func (c *Client) ResolveResources(ctx context.Context, names []string) (map[string]int64, error) {
	ids := make(map[string]int64, len(names))
	if len(names) == 0 {
		return ids, nil
	}

	params := url.Values{}
	params.Set("name__in", strings.Join(names, ","))
	params.Set("limit", strconv.Itoa(c.pageLimit))

	var list resourceList
	if err := c.get(ctx, "resource fetch", "resource/", params, &list); err != nil {
		return ids, err
	}

	for _, resource := range list.Objects {
		ids[resource.Name] = resource.ID
	}

	c.logger.Debug("resources resolved",
		"requested", len(names),
		"found", len(ids))

	return ids, nil
}

// UpcomingContests lists contests of the given resources starting after now, ordered by start time
func (c *Client) UpcomingContests(ctx context.Context, resourceIDs []int64) ([]Contest, error) {
	if len(resourceIDs) == 0 {
		return nil, ErrNoResourceIDs
	}

	ids := make([]string, 0, len(resourceIDs))
	for _, id := range resourceIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}

	params := url.Values{}
	params.Set("resource_id__in", strings.Join(ids, ","))
	params.Set("start__gt", c.now().UTC().Format(StartTimeLayout))
	params.Set("order_by", "start")
	params.Set("limit", strconv.Itoa(c.pageLimit))

	var list contestList
	if err := c.get(ctx, "contest fetch", "contest/", params, &list); err != nil {
		return nil, err
	}

	c.logger.Debug("contests fetched", "count", len(list.Objects))

	return list.Objects, nil
}

// get performs an authenticated GET and decodes a 200 OK JSON body into out
func (c *Client) get(ctx context.Context, op, path string, params url.Values, out any) error {
	endpoint := c.baseURL.ResolveReference(&url.URL{Path: path})
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return &RequestError{Op: op, Kind: KindNetwork, Err: err}
	}
	req.Header.Set("Authorization", c.authorization())
	req.Header.Set("Accept", "application/json")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RequestError{Op: op, Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{Op: op, Kind: KindNetwork, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	c.logger.Debug("clist request completed",
		"op", op,
		"path", endpoint.Path,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(startTime))

	if resp.StatusCode != http.StatusOK {
		return &RequestError{
			Op:         op,
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        fmt.Errorf("HTTP %s", resp.Status),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &RequestError{
			Op:         op,
			Kind:       KindDecode,
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        err,
		}
	}
	return nil
}

func (c *Client) authorization() string {
	return "ApiKey " + c.username + ":" + c.apiKey
}

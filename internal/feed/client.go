// Package feed talks to the cloud feed service that relays sensor readings
// and actuator commands.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	apiKeyHeader   = "X-AIO-Key"
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

// ErrBaseURL is returned by NewClient when no base URL is configured.
var ErrBaseURL = errors.New("feed base url is required")

// Sample is one datum of a feed.
type Sample struct {
	ID        string    `json:"id"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	FeedKey   string    `json:"feed_key"`
}

// Float parses the sample value as a number.
func (s Sample) Float() (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s.Value), 64)
	if err != nil {
		return 0, fmt.Errorf("feed %q value %q: %w", s.FeedKey, s.Value, err)
	}
	return v, nil
}

// Client reads and writes feed data over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) dataURL(key string) string {
	return c.baseURL + "/feeds/" + url.PathEscape(key) + "/data"
}

// Latest returns the newest datum of the feed, or (nil, nil) when the feed is empty.
func (c *Client) Latest(ctx context.Context, key string) (*Sample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.dataURL(key)+"?limit=1", nil)
	if err != nil {
		return nil, fmt.Errorf("build request for feed %q: %w", key, err)
	}
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %q: %w", key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("fetch feed %q: %w", key, err)
	}

	var data []Sample
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode feed %q: %w", key, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	s := data[0]
	if s.FeedKey == "" {
		s.FeedKey = key
	}
	return &s, nil
}

// Publish appends value to the feed.
func (c *Client) Publish(ctx context.Context, key, value string) error {
	body, err := json.Marshal(map[string]string{"value": value})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.dataURL(key), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build publish for feed %q: %w", key, err)
	}
	c.decorate(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("publish to feed %q: %w", key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("publish to feed %q: %w", key, err)
	}
	return nil
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
}

// Package supabase is a small client for the Supabase PostgREST API.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxErrorBodyBytes = 32 << 10 // 32 KiB

// Config holds the remote store connection settings.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Client wraps the Supabase REST API.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// APIError is a non-2xx response from the REST API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase API error %d: %s", e.Status, e.Body)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// NewClient creates a new Supabase client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("SUPABASE_URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("SUPABASE_ANON_KEY is required")
	}
	parsed, err := url.Parse(cfg.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("SUPABASE_URL must be an absolute URL")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// RPC calls a database function with a JSON argument object.
func (c *Client) RPC(ctx context.Context, fn string, args interface{}) ([]byte, error) {
	return c.request(ctx, http.MethodPost, "rpc/"+fn, args, nil, "")
}

// Upsert inserts row into table, merging with an existing row that matches onConflict.
func (c *Client) Upsert(ctx context.Context, table string, row interface{}, onConflict ...string) error {
	q := url.Values{}
	if len(onConflict) > 0 {
		q.Set("on_conflict", strings.Join(onConflict, ","))
	}
	_, err := c.request(ctx, http.MethodPost, table, row, q, "resolution=merge-duplicates,return=minimal")
	return err
}

// Delete removes the rows of table matching filter (PostgREST operators, e.g. "eq.42").
// An empty filter is refused so a table is never wiped by accident.
func (c *Client) Delete(ctx context.Context, table string, filter url.Values) error {
	if len(filter) == 0 {
		return fmt.Errorf("delete from %s: refusing unfiltered delete", table)
	}
	_, err := c.request(ctx, http.MethodDelete, table, nil, filter, "return=minimal")
	return err
}

// InFilter builds a PostgREST in.(...) operand, quoting every value.
func InFilter(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + strings.ReplaceAll(strings.ReplaceAll(v, `\`, `\\`), `"`, `\"`) + `"`
	}
	return "in.(" + strings.Join(quoted, ",") + ")"
}

func (c *Client) request(ctx context.Context, method, path string, body interface{}, query url.Values, prefer string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.url, path)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return respBody, nil
}

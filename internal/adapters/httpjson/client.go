// Package httpjson calls JSON-over-HTTP model backends and extracts results with JMESPath.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
)

const maxErrorBody = 4 << 10

// Config describes one backend endpoint.
type Config struct {
	Endpoint string
	APIKey   string
	// ResultPath is a JMESPath expression applied to the decoded response body.
	ResultPath string
	HTTPClient *http.Client
}

// Client posts a JSON body and returns the value at ResultPath.
type Client struct {
	endpoint string
	apiKey   string
	path     string
	http     *http.Client
}

// New validates cfg and compiles ResultPath.
func New(cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	path := strings.TrimSpace(cfg.ResultPath)
	if path == "" {
		return nil, errors.New("result path is required")
	}
	if _, err := jmespath.Compile(path); err != nil {
		return nil, fmt.Errorf("compile result path %q: %w", path, err)
	}
	client := cfg.HTTPClient
	if client == nil {
		// Callers bound each request with ctx; this only caps a hung connection.
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Client{endpoint: endpoint, apiKey: cfg.APIKey, path: path, http: client}, nil
}

// Post sends body and evaluates the result path against the response.
func (c *Client) Post(ctx context.Context, body any) (any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var decoded any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	result, err := jmespath.Search(c.path, decoded)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", c.path, err)
	}
	if result == nil {
		return nil, fmt.Errorf("response has no value at %q", c.path)
	}
	return result, nil
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// String converts a result to text.
func String(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected string result, got %T", v)
	}
	return s, nil
}

// Float32s converts a JSON number array result to a vector.
func Float32s(v any) ([]float32, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array result, got %T", v)
	}
	out := make([]float32, len(items))
	for i, item := range items {
		f, ok := item.(float64)
		if !ok {
			return nil, fmt.Errorf("element %d: expected number, got %T", i, item)
		}
		out[i] = float32(f)
	}
	return out, nil
}

package shortener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrNoAPIKey = errors.New("shortener api key not configured")

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *Client) doRequest(ctx context.Context, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error: %s (status: %d)", strings.TrimSpace(string(respBody)), resp.StatusCode)
	}

	return respBody, nil
}

// Shorten asks ShrinkMe for a short link in plain-text format.
func (c *Client) Shorten(ctx context.Context, apiKey, longURL string) (string, error) {
	if apiKey == "" {
		return "", ErrNoAPIKey
	}

	body, err := c.doRequest(ctx, url.Values{
		"api":    {apiKey},
		"url":    {longURL},
		"format": {"text"},
	})
	if err != nil {
		return "", err
	}

	short := strings.TrimSpace(string(body))
	if !strings.HasPrefix(short, "http") {
		return "", fmt.Errorf("unexpected shortener response: %.200s", short)
	}
	return short, nil
}

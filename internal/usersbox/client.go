// Package usersbox is the client for the external personal-data lookup
// provider.
package usersbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const searchTimeout = 30 * time.Second

type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: searchTimeout,
		},
	}
}

// Search runs one lookup. Transport failures and timeouts come back as errors;
// any HTTP response, success or not, is returned as a SearchResult so the
// caller can audit the payload.
func (c *Client) Search(ctx context.Context, query string) (*SearchResult, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s", c.BaseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	result := &SearchResult{
		HTTPStatus: resp.StatusCode,
		Raw:        json.RawMessage(respBody),
	}
	if err := json.Unmarshal(respBody, &result.Body); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return result, nil
}

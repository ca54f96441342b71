package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/edvin/searchvault/internal/config"
)

// UpsertBatchSize is the largest batch the search service accepts per
// indexing call.
const UpsertBatchSize = 250

// Client talks to the REST API of the allow-listed search services.
type Client struct {
	httpClient *http.Client
	apiVersion string
	keys       map[string]string
}

func NewClient(endpoints []config.SearchEndpoint, apiVersion string) *Client {
	keys := make(map[string]string, len(endpoints))
	for _, ep := range endpoints {
		keys[strings.TrimRight(ep.URL, "/")] = ep.APIKey
	}
	return &Client{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		apiVersion: apiVersion,
		keys:       keys,
	}
}

// Endpoints returns the allow-listed endpoint URLs in a stable order.
func (c *Client) Endpoints() []string {
	out := make([]string, 0, len(c.keys))
	for ep := range c.keys {
		out = append(out, ep)
	}
	sort.Strings(out)
	return out
}

// Allowed reports whether endpoint is on the allow-list.
func (c *Client) Allowed(endpoint string) bool {
	_, ok := c.keys[strings.TrimRight(endpoint, "/")]
	return ok
}

func (c *Client) resolve(endpoint string) (string, string, error) {
	base := strings.TrimRight(endpoint, "/")
	key, ok := c.keys[base]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidEndpoint, endpoint)
	}
	return base, key, nil
}

// do sends a request to endpoint and decodes the JSON response into out
// when out is non-nil. A 404 is reported as ErrNotFound.
func (c *Client) do(ctx context.Context, method, endpoint, path string, query url.Values, in, out any) (int, error) {
	base, key, err := c.resolve(endpoint)
	if err != nil {
		return 0, err
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("api-version", c.apiVersion)
	u := base + path + "?" + query.Encode()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("marshal %s request: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return 0, fmt.Errorf("%s request: %w", path, err)
	}
	req.Header.Set("api-key", key)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, fmt.Errorf("%s %s on %s: %w", method, path, base, ErrNotFound)
	}
	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

func indexPath(index string, rest string) string {
	return "/indexes/" + url.PathEscape(index) + rest
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SearchEndpoint is one allow-listed search service.
type SearchEndpoint struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

type endpointsFile struct {
	Endpoints []SearchEndpoint `yaml:"endpoints"`
}

// LoadSearchEndpoints reads the endpoint allow-list from the configured
// YAML file. Endpoints without an api_key inherit SEARCH_API_KEY.
func (c *Config) LoadSearchEndpoints() ([]SearchEndpoint, error) {
	data, err := os.ReadFile(c.SearchEndpointsFile)
	if err != nil {
		return nil, fmt.Errorf("read search endpoints %s: %w", c.SearchEndpointsFile, err)
	}
	return ParseSearchEndpoints(data, c.SearchAPIKey)
}

// ParseSearchEndpoints parses an endpoint allow-list. URLs are normalized
// without a trailing slash so they compare equal to message values.
func ParseSearchEndpoints(data []byte, defaultKey string) ([]SearchEndpoint, error) {
	var f endpointsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse search endpoints: %w", err)
	}
	if len(f.Endpoints) == 0 {
		return nil, fmt.Errorf("no search endpoints configured")
	}

	seen := make(map[string]bool, len(f.Endpoints))
	out := make([]SearchEndpoint, 0, len(f.Endpoints))
	for i, ep := range f.Endpoints {
		u, err := url.Parse(ep.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("search endpoint %d: invalid url %q", i, ep.URL)
		}
		ep.URL = strings.TrimRight(ep.URL, "/")
		if seen[ep.URL] {
			return nil, fmt.Errorf("search endpoint %s listed twice", ep.URL)
		}
		seen[ep.URL] = true
		if ep.APIKey == "" {
			ep.APIKey = defaultKey
		}
		if ep.APIKey == "" {
			return nil, fmt.Errorf("search endpoint %s: no api_key and SEARCH_API_KEY unset", ep.URL)
		}
		out = append(out, ep)
	}
	return out, nil
}

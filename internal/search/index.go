package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/edvin/searchvault/internal/model"
)

// ListIndexes returns the names of all indexes on endpoint.
func (c *Client) ListIndexes(ctx context.Context, endpoint string) ([]string, error) {
	var result struct {
		Value []struct {
			Name string `json:"name"`
		} `json:"value"`
	}
	query := url.Values{"$select": {"name"}}
	if _, err := c.do(ctx, http.MethodGet, endpoint, "/indexes", query, nil, &result); err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}

	names := make([]string, 0, len(result.Value))
	for _, v := range result.Value {
		names = append(names, v.Name)
	}
	return names, nil
}

// GetIndexSchema returns the top-level field names and types of index.
func (c *Client) GetIndexSchema(ctx context.Context, endpoint, index string) (*model.IndexSchema, error) {
	var result struct {
		Name   string `json:"name"`
		Fields []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"fields"`
	}
	if _, err := c.do(ctx, http.MethodGet, endpoint, indexPath(index, ""), nil, nil, &result); err != nil {
		return nil, fmt.Errorf("get index schema %s: %w", index, err)
	}

	schema := &model.IndexSchema{
		Name:       result.Name,
		Fields:     make([]string, 0, len(result.Fields)),
		FieldTypes: make(map[string]string, len(result.Fields)),
	}
	for _, f := range result.Fields {
		schema.Fields = append(schema.Fields, f.Name)
		schema.FieldTypes[f.Name] = f.Type
	}
	return schema, nil
}

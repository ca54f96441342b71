package search

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/edvin/searchvault/internal/model"
)

// Field names start with a letter, as the search service requires.
var fieldNameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

type searchRequest struct {
	Search  string `json:"search"`
	Filter  string `json:"filter,omitempty"`
	OrderBy string `json:"orderby"`
	Top     int    `json:"top"`
	Skip    int    `json:"skip,omitempty"`
	Count   bool   `json:"count,omitempty"`
}

type searchResponse struct {
	Count *int             `json:"@odata.count"`
	Value []model.Document `json:"value"`
}

// CountDocumentsFrom returns how many documents have sf.Key >= sf.Value, or
// the whole index when sf.Value is nil.
func (c *Client) CountDocumentsFrom(ctx context.Context, endpoint, index string, sf model.SortField) (int, error) {
	req, err := newSearchRequest(sf, 0, 0)
	if err != nil {
		return 0, err
	}
	req.Count = true

	var resp searchResponse
	if _, err := c.do(ctx, http.MethodPost, endpoint, indexPath(index, "/docs/search"), nil, req, &resp); err != nil {
		return 0, fmt.Errorf("count documents in %s: %w", index, err)
	}
	if resp.Count == nil {
		return 0, fmt.Errorf("count documents in %s: response has no count", index)
	}
	return *resp.Count, nil
}

// GetDocumentsPage returns up to limit documents at offset from the same
// filtered query CountDocumentsFrom counts, ordered ascending by sf.Key.
// Search annotations are removed so the documents can be re-indexed as is.
func (c *Client) GetDocumentsPage(ctx context.Context, endpoint, index string, sf model.SortField, limit, offset int) ([]model.Document, error) {
	req, err := newSearchRequest(sf, limit, offset)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if _, err := c.do(ctx, http.MethodPost, endpoint, indexPath(index, "/docs/search"), nil, req, &resp); err != nil {
		return nil, fmt.Errorf("get documents page of %s at offset %d: %w", index, offset, err)
	}

	for _, doc := range resp.Value {
		for k := range doc {
			if strings.HasPrefix(k, "@search.") {
				delete(doc, k)
			}
		}
	}
	return resp.Value, nil
}

func newSearchRequest(sf model.SortField, top, skip int) (*searchRequest, error) {
	if !fieldNameRegex.MatchString(sf.Key) {
		return nil, fmt.Errorf("invalid sort field name %q", sf.Key)
	}
	req := &searchRequest{
		Search:  "*",
		OrderBy: sf.Key + " asc",
		Top:     top,
		Skip:    skip,
	}
	if sf.Value != nil {
		req.Filter = fmt.Sprintf("%s ge %s", sf.Key, odataLiteral(*sf.Value, sf.Type))
	}
	return req, nil
}

// odataLiteral renders a cursor value for a filter on a field of EDM type
// typ. Timestamps and numbers are emitted bare only when the field has that
// type; everything else is a quoted string with ' doubled. With an unknown
// type, anything that parses as a timestamp is taken to be one.
func odataLiteral(v, typ string) string {
	switch typ {
	case "Edm.DateTimeOffset":
		if _, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return v
		}
	case "Edm.Int32", "Edm.Int64", "Edm.Double":
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			return v
		}
	case "":
		if _, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return v
		}
	}
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

type indexAction struct {
	Value []map[string]any `json:"value"`
}

type indexResult struct {
	Value []struct {
		Key          string  `json:"key"`
		Status       bool    `json:"status"`
		ErrorMessage *string `json:"errorMessage"`
	} `json:"value"`
}

// UpsertDocuments merges or uploads docs into index in batches of
// UpsertBatchSize. A batch with any failed document fails the call.
func (c *Client) UpsertDocuments(ctx context.Context, endpoint, index string, docs []model.Document) error {
	for start := 0; start < len(docs); start += UpsertBatchSize {
		end := min(start+UpsertBatchSize, len(docs))

		batch := indexAction{Value: make([]map[string]any, 0, end-start)}
		for _, doc := range docs[start:end] {
			action := make(map[string]any, len(doc)+1)
			for k, v := range doc {
				action[k] = v
			}
			action["@search.action"] = "mergeOrUpload"
			batch.Value = append(batch.Value, action)
		}

		var result indexResult
		status, err := c.do(ctx, http.MethodPost, endpoint, indexPath(index, "/docs/index"), nil, batch, &result)
		if err != nil {
			return fmt.Errorf("upsert documents %d-%d into %s: %w", start, end, index, err)
		}
		if status == http.StatusMultiStatus {
			var failed []string
			for _, r := range result.Value {
				if r.Status {
					continue
				}
				if r.ErrorMessage != nil {
					failed = append(failed, r.Key+" ("+*r.ErrorMessage+")")
				} else {
					failed = append(failed, r.Key)
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("upsert documents into %s: %d documents rejected: %s", index, len(failed), strings.Join(failed, ", "))
			}
		}
	}
	return nil
}

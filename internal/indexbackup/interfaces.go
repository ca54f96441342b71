package indexbackup

import (
	"context"

	"github.com/edvin/searchvault/internal/model"
)

// SearchIndex is the search service API the jobs need.
type SearchIndex interface {
	GetIndexSchema(ctx context.Context, endpoint, index string) (*model.IndexSchema, error)
	CountDocumentsFrom(ctx context.Context, endpoint, index string, sf model.SortField) (int, error)
	GetDocumentsPage(ctx context.Context, endpoint, index string, sf model.SortField, limit, offset int) ([]model.Document, error)
	UpsertDocuments(ctx context.Context, endpoint, index string, docs []model.Document) error
}

// IndexLister enumerates the indexes of every allow-listed endpoint.
type IndexLister interface {
	Endpoints() []string
	ListIndexes(ctx context.Context, endpoint string) ([]string, error)
}

// BlobStore holds snapshot blobs.
type BlobStore interface {
	Put(ctx context.Context, path string, content []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]model.BlobRef, error)
}

// Sender enqueues a message on a named queue.
type Sender interface {
	SendMessage(ctx context.Context, queue string, v any) (string, error)
}

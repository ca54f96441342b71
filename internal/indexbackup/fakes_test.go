package indexbackup

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/edvin/searchvault/internal/model"
)

// fakeIndex is an in-memory search index ordered by created_at.
type fakeIndex struct {
	mu sync.Mutex

	fields     []string
	fieldTypes map[string]string
	docs       []model.Document

	schemaErr   error
	countErr    error
	countOffset int
	pageErrAt   int
	upsertErr   error

	pageCalls   []pageCall
	upserted    map[string]model.Document
	upsertOrder []string
}

type pageCall struct {
	cursor   *string
	sortType string
	limit    int
	offset   int
}

func newFakeIndex(fields ...string) *fakeIndex {
	if len(fields) == 0 {
		fields = []string{"id", "title", "created_at"}
	}
	return &fakeIndex{fields: fields, pageErrAt: -1, upserted: map[string]model.Document{}}
}

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func makeDocs(n int) []model.Document {
	docs := make([]model.Document, n)
	for i := range docs {
		docs[i] = model.Document{
			"id":         fmt.Sprintf("doc-%06d", i),
			"title":      fmt.Sprintf("Document %d", i),
			"created_at": baseTime.Add(time.Duration(i) * time.Second).Format(time.RFC3339),
		}
	}
	return docs
}

func (f *fakeIndex) filtered(sf model.SortField) []model.Document {
	sorted := append([]model.Document(nil), f.docs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i][sf.Key].(string) < sorted[j][sf.Key].(string)
	})
	if sf.Value == nil {
		return sorted
	}
	var out []model.Document
	for _, d := range sorted {
		if d[sf.Key].(string) >= *sf.Value {
			out = append(out, d)
		}
	}
	return out
}

func (f *fakeIndex) GetIndexSchema(_ context.Context, _, index string) (*model.IndexSchema, error) {
	if f.schemaErr != nil {
		return nil, f.schemaErr
	}
	return &model.IndexSchema{Name: index, Fields: f.fields, FieldTypes: f.fieldTypes}, nil
}

func (f *fakeIndex) CountDocumentsFrom(_ context.Context, _, _ string, sf model.SortField) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	return len(f.filtered(sf)) + f.countOffset, nil
}

func (f *fakeIndex) GetDocumentsPage(_ context.Context, _, _ string, sf model.SortField, limit, offset int) ([]model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageCalls = append(f.pageCalls, pageCall{cursor: sf.Value, sortType: sf.Type, limit: limit, offset: offset})
	if f.pageErrAt >= 0 && offset == f.pageErrAt {
		return nil, errors.New("search service timeout")
	}
	all := f.filtered(sf)
	if offset >= len(all) {
		return nil, nil
	}
	return all[offset:min(offset+limit, len(all))], nil
}

func (f *fakeIndex) UpsertDocuments(_ context.Context, _, _ string, docs []model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, d := range docs {
		id := d["id"].(string)
		f.upserted[id] = d
		f.upsertOrder = append(f.upsertOrder, id)
	}
	return nil
}

// fakeLister serves index names per endpoint.
type fakeLister struct {
	indexes map[string][]string
	errs    map[string]error
}

func (l *fakeLister) Endpoints() []string {
	var eps []string
	for ep := range l.indexes {
		eps = append(eps, ep)
	}
	for ep := range l.errs {
		eps = append(eps, ep)
	}
	sort.Strings(eps)
	return eps
}

func (l *fakeLister) ListIndexes(_ context.Context, endpoint string) ([]string, error) {
	if err := l.errs[endpoint]; err != nil {
		return nil, err
	}
	return l.indexes[endpoint], nil
}

// fakeSender records every message sent.
type fakeSender struct {
	mu     sync.Mutex
	sent   []sentMessage
	failOn string
}

type sentMessage struct {
	queue string
	msg   any
}

func (s *fakeSender) SendMessage(_ context.Context, queue string, v any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := v.(model.BackupQueueMessage); ok && m.IndexName == s.failOn {
		return "", errors.New("queue unavailable")
	}
	s.sent = append(s.sent, sentMessage{queue: queue, msg: v})
	return fmt.Sprintf("msg-%d", len(s.sent)), nil
}

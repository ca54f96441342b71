package worker

import (
	"context"
	"sync"
	"time"

	"github.com/edvin/searchvault/internal/model"
)

type fakeQueue struct {
	mu          sync.Mutex
	messages    map[string][]*model.QueueMessage
	receiveErrs map[string]error
	deleted     []string
	poisoned    map[string]string
	extended    map[string]int
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{
		messages:    map[string][]*model.QueueMessage{},
		receiveErrs: map[string]error{},
		poisoned:    map[string]string{},
		extended:    map[string]int{},
	}
}

func (q *fakeQueue) push(queue string, msg *model.QueueMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages[queue] = append(q.messages[queue], msg)
}

func (q *fakeQueue) Receive(_ context.Context, queue string, _ time.Duration) (*model.QueueMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.receiveErrs[queue]; err != nil {
		return nil, err
	}
	msgs := q.messages[queue]
	if len(msgs) == 0 {
		return nil, nil
	}
	m := msgs[0]
	q.messages[queue] = msgs[1:]
	m.DequeueCount++
	return m, nil
}

func (q *fakeQueue) Delete(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deleted = append(q.deleted, id)
	return nil
}

func (q *fakeQueue) Poison(_ context.Context, id, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.poisoned[id] = reason
	return nil
}

func (q *fakeQueue) Extend(_ context.Context, id string, _ time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.extended[id]++
	return nil
}

func (q *fakeQueue) extensions(id string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.extended[id]
}

type allowList map[string]bool

func (a allowList) Allowed(endpoint string) bool { return a[endpoint] }

type stubBackup struct {
	next *model.BackupQueueMessage
	err  error
	got  []model.BackupQueueMessage
}

func (s *stubBackup) Run(_ context.Context, msg model.BackupQueueMessage) (*model.BackupQueueMessage, error) {
	s.got = append(s.got, msg)
	return s.next, s.err
}

type stubRestore struct {
	next *model.RestoreQueueMessage
	err  error
	got  []model.RestoreQueueMessage
}

func (s *stubRestore) Run(_ context.Context, msg model.RestoreQueueMessage) (*model.RestoreQueueMessage, error) {
	s.got = append(s.got, msg)
	return s.next, s.err
}

type recordingSender struct {
	queue string
	sent  []any
	err   error
}

func (s *recordingSender) SendMessage(_ context.Context, queue string, v any) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.queue = queue
	s.sent = append(s.sent, v)
	return "next-id", nil
}

type handlerFunc func(ctx context.Context, body string) error

func (f handlerFunc) Handle(ctx context.Context, body string) error { return f(ctx, body) }

package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/edvin/searchvault/internal/model"
)

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) SendMessage(ctx context.Context, queue string, v any) (string, error) {
	args := m.Called(ctx, queue, v)
	return args.String(0), args.Error(1)
}

func (m *mockQueue) Stats(ctx context.Context, queues []string) ([]model.QueueStats, error) {
	args := m.Called(ctx, queues)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.QueueStats), args.Error(1)
}

type allowList map[string]bool

func (a allowList) Allowed(endpoint string) bool { return a[endpoint] }

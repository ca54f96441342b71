package indexbackup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/searchvault/internal/model"
)

func newTestFanOut(lister IndexLister, sender Sender) *FanOut {
	f := NewFanOut(lister, sender, "search-backup", zerolog.Nop())
	f.now = func() time.Time { return time.Date(2024, 6, 1, 1, 0, 0, 0, time.UTC) }
	return f
}

func TestFanOut_OneMessagePerIndexSharingRunID(t *testing.T) {
	lister := &fakeLister{indexes: map[string][]string{
		"https://search-a.example.net": {"documents", "projects"},
		"https://search-b.example.net": {"people"},
	}}
	sender := &fakeSender{}

	n, err := newTestFanOut(lister, sender).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, sender.sent, 3)

	var got []model.BackupQueueMessage
	for _, s := range sender.sent {
		assert.Equal(t, "search-backup", s.queue)
		got = append(got, s.msg.(model.BackupQueueMessage))
	}
	assert.ElementsMatch(t, []model.BackupQueueMessage{
		{Datetime: "2024-06-01T01:00:00Z", Endpoint: "https://search-a.example.net", IndexName: "documents"},
		{Datetime: "2024-06-01T01:00:00Z", Endpoint: "https://search-a.example.net", IndexName: "projects"},
		{Datetime: "2024-06-01T01:00:00Z", Endpoint: "https://search-b.example.net", IndexName: "people"},
	}, got)
	for _, m := range got {
		assert.Nil(t, m.SortFieldValue)
	}
}

func TestFanOut_FailingEndpointDoesNotStopOthers(t *testing.T) {
	lister := &fakeLister{
		indexes: map[string][]string{"https://search-b.example.net": {"people"}},
		errs:    map[string]error{"https://search-a.example.net": errors.New("403 forbidden")},
	}
	sender := &fakeSender{}

	n, err := newTestFanOut(lister, sender).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "https://search-a.example.net")
	assert.Equal(t, 1, n)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "people", sender.sent[0].msg.(model.BackupQueueMessage).IndexName)
}

func TestFanOut_SendFailureIsReported(t *testing.T) {
	lister := &fakeLister{indexes: map[string][]string{
		"https://search-a.example.net": {"documents", "projects"},
	}}
	sender := &fakeSender{failOn: "documents"}

	n, err := newTestFanOut(lister, sender).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index documents")
	assert.Equal(t, 1, n)
}

func TestFanOut_NoEndpoints(t *testing.T) {
	n, err := newTestFanOut(&fakeLister{}, &fakeSender{}).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFanOut_RunAsUsesGivenRunID(t *testing.T) {
	lister := &fakeLister{indexes: map[string][]string{"https://search-a.example.net": {"documents"}}}
	sender := &fakeSender{}

	n, err := newTestFanOut(lister, sender).RunAs(context.Background(), "2024-07-01T01:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "2024-07-01T01:00:00Z", sender.sent[0].msg.(model.BackupQueueMessage).Datetime)
}

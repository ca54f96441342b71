package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/edvin/searchvault/internal/indexbackup"
	"github.com/edvin/searchvault/internal/metrics"
	"github.com/edvin/searchvault/internal/model"
	"github.com/edvin/searchvault/internal/queue"
	"github.com/edvin/searchvault/internal/search"
)

var validate = validator.New()

// Handler processes the encoded body of one queue message. A nil error
// acknowledges the message.
type Handler interface {
	Handle(ctx context.Context, body string) error
}

// EndpointChecker reports whether an endpoint is on the allow-list.
type EndpointChecker interface {
	Allowed(endpoint string) bool
}

type BackupRunner interface {
	Run(ctx context.Context, msg model.BackupQueueMessage) (*model.BackupQueueMessage, error)
}

type RestoreRunner interface {
	Run(ctx context.Context, msg model.RestoreQueueMessage) (*model.RestoreQueueMessage, error)
}

// BackupHandler runs one backup invocation per message and re-enqueues
// the continuation on the same queue.
type BackupHandler struct {
	job       BackupRunner
	endpoints EndpointChecker
	sender    indexbackup.Sender
	queue     string
	metrics   *metrics.Pipeline
	logger    zerolog.Logger
}

func NewBackupHandler(job BackupRunner, endpoints EndpointChecker, sender indexbackup.Sender, queueName string, m *metrics.Pipeline, logger zerolog.Logger) *BackupHandler {
	return &BackupHandler{
		job:       job,
		endpoints: endpoints,
		sender:    sender,
		queue:     queueName,
		metrics:   m,
		logger:    logger.With().Str("component", "backup-handler").Logger(),
	}
}

func (h *BackupHandler) Handle(ctx context.Context, body string) error {
	var msg model.BackupQueueMessage
	if err := decodeMessage(body, &msg); err != nil {
		return err
	}
	if !h.endpoints.Allowed(msg.Endpoint) {
		return Permanent(fmt.Errorf("%w: %s", search.ErrInvalidEndpoint, msg.Endpoint))
	}

	next, err := h.job.Run(ctx, msg)
	if err != nil {
		switch {
		case errors.Is(err, indexbackup.ErrSortFieldNotFound):
			h.logger.Warn().Err(err).Str("index", msg.IndexName).Msg("index skipped")
			return nil
		case errors.Is(err, indexbackup.ErrCursorStuck), errors.Is(err, search.ErrInvalidEndpoint):
			return Permanent(err)
		}
		return err
	}
	if next == nil {
		return nil
	}

	if _, err := h.sender.SendMessage(ctx, h.queue, *next); err != nil {
		return fmt.Errorf("enqueue backup continuation for %s: %w", msg.IndexName, err)
	}
	h.metrics.ContinuationEnqueued("backup")
	return nil
}

// RestoreHandler runs one restore invocation per message and re-enqueues
// the continuation on the same queue.
type RestoreHandler struct {
	job       RestoreRunner
	endpoints EndpointChecker
	sender    indexbackup.Sender
	queue     string
	metrics   *metrics.Pipeline
	logger    zerolog.Logger
}

func NewRestoreHandler(job RestoreRunner, endpoints EndpointChecker, sender indexbackup.Sender, queueName string, m *metrics.Pipeline, logger zerolog.Logger) *RestoreHandler {
	return &RestoreHandler{
		job:       job,
		endpoints: endpoints,
		sender:    sender,
		queue:     queueName,
		metrics:   m,
		logger:    logger.With().Str("component", "restore-handler").Logger(),
	}
}

func (h *RestoreHandler) Handle(ctx context.Context, body string) error {
	var msg model.RestoreQueueMessage
	if err := decodeMessage(body, &msg); err != nil {
		return err
	}
	if !h.endpoints.Allowed(msg.Endpoint) {
		return Permanent(fmt.Errorf("%w: %s", search.ErrInvalidEndpoint, msg.Endpoint))
	}

	next, err := h.job.Run(ctx, msg)
	if err != nil {
		if errors.Is(err, search.ErrInvalidEndpoint) {
			return Permanent(err)
		}
		return err
	}
	if next == nil {
		h.logger.Info().Str("folder", msg.FolderName).Str("index", msg.IndexName).Msg("restore finished")
		return nil
	}

	if _, err := h.sender.SendMessage(ctx, h.queue, *next); err != nil {
		return fmt.Errorf("enqueue restore continuation for %s: %w", msg.IndexName, err)
	}
	h.metrics.ContinuationEnqueued("restore")
	return nil
}

func decodeMessage(body string, v any) error {
	if err := queue.Decode(body, v); err != nil {
		return Permanent(err)
	}
	if err := validate.Struct(v); err != nil {
		return Permanent(fmt.Errorf("validation error: %w", err))
	}
	return nil
}

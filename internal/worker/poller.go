package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/searchvault/internal/metrics"
	"github.com/edvin/searchvault/internal/model"
)

// Queue is the queue API the poller consumes.
type Queue interface {
	Receive(ctx context.Context, queue string, visibility time.Duration) (*model.QueueMessage, error)
	Delete(ctx context.Context, id string) error
	Poison(ctx context.Context, id, reason string) error
	Extend(ctx context.Context, id string, visibility time.Duration) error
}

// Message outcomes recorded in metrics.
const (
	OutcomeCompleted = "completed"
	OutcomeRetry     = "retry"
	OutcomePoisoned  = "poisoned"
)

type PollerOptions struct {
	PollInterval      time.Duration
	VisibilityTimeout time.Duration
	MaxDequeueCount   int
}

// Poller delivers queue messages to their handlers, one goroutine per
// queue. While a handler runs, the message's visibility is extended every
// half visibility timeout. A message whose handler fails stays invisible
// until the visibility timeout lapses and is then redelivered.
type Poller struct {
	queue    Queue
	handlers map[string]Handler
	opts     PollerOptions
	metrics  *metrics.Pipeline
	logger   zerolog.Logger
}

func NewPoller(q Queue, opts PollerOptions, m *metrics.Pipeline, logger zerolog.Logger) *Poller {
	return &Poller{
		queue:    q,
		handlers: make(map[string]Handler),
		opts:     opts,
		metrics:  m,
		logger:   logger.With().Str("component", "poller").Logger(),
	}
}

// Register routes messages of the named queue to h.
func (p *Poller) Register(queueName string, h Handler) {
	p.handlers[queueName] = h
}

// Run polls every registered queue until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for name, h := range p.handlers {
		g.Go(func() error {
			p.poll(ctx, name, h)
			return nil
		})
	}
	return g.Wait()
}

func (p *Poller) poll(ctx context.Context, queueName string, h Handler) {
	log := p.logger.With().Str("queue", queueName).Logger()
	log.Info().Dur("interval", p.opts.PollInterval).Msg("polling queue")

	for {
		handled, err := p.ProcessOne(ctx, queueName, h)
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("poll failed")
		}
		if handled && err == nil {
			continue
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("stopped polling queue")
			return
		case <-time.After(p.opts.PollInterval):
		}
	}
}

// ProcessOne receives and handles at most one message from queueName. It
// reports whether a message was received.
func (p *Poller) ProcessOne(ctx context.Context, queueName string, h Handler) (bool, error) {
	msg, err := p.queue.Receive(ctx, queueName, p.opts.VisibilityTimeout)
	if err != nil {
		return false, err
	}
	if msg == nil {
		return false, nil
	}

	log := p.logger.With().
		Str("queue", queueName).
		Str("message_id", msg.ID).
		Int("dequeue_count", msg.DequeueCount).
		Logger()

	if p.opts.MaxDequeueCount > 0 && msg.DequeueCount > p.opts.MaxDequeueCount {
		log.Warn().Msg("message exceeded max dequeue count")
		return true, p.poison(ctx, queueName, msg, "exceeded max dequeue count", time.Now())
	}

	start := time.Now()
	stopLease := p.holdLease(ctx, log, msg.ID)
	herr := h.Handle(ctx, msg.Body)
	stopLease()
	switch {
	case herr == nil:
		if err := p.queue.Delete(ctx, msg.ID); err != nil {
			return true, err
		}
		p.metrics.MessageHandled(queueName, OutcomeCompleted, time.Since(start).Seconds())
		log.Debug().Msg("message completed")
		return true, nil

	case IsPermanent(herr):
		log.Error().Err(herr).Msg("message cannot be processed")
		return true, p.poison(ctx, queueName, msg, herr.Error(), start)

	case errors.Is(herr, context.Canceled) && ctx.Err() != nil:
		// Shutdown mid-message; the message is redelivered later.
		return true, nil

	default:
		log.Error().Err(herr).Msg("message failed, will be retried")
		p.metrics.MessageHandled(queueName, OutcomeRetry, time.Since(start).Seconds())
		return true, nil
	}
}

// holdLease keeps message id invisible until the returned func is called.
// The func returns once no further extension can happen.
func (p *Poller) holdLease(ctx context.Context, log zerolog.Logger, id string) func() {
	interval := p.opts.VisibilityTimeout / 2
	if interval <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.queue.Extend(ctx, id, p.opts.VisibilityTimeout); err != nil && ctx.Err() == nil {
					log.Warn().Err(err).Msg("failed to extend message visibility")
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func (p *Poller) poison(ctx context.Context, queueName string, msg *model.QueueMessage, reason string, start time.Time) error {
	if err := p.queue.Poison(ctx, msg.ID, reason); err != nil {
		return err
	}
	p.metrics.MessageHandled(queueName, OutcomePoisoned, time.Since(start).Seconds())
	return nil
}

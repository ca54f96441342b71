// Package queue implements named message queues on a Postgres table.
//
// Delivery is at-least-once: Receive hides a message for the visibility
// timeout and counts the delivery, Delete acknowledges it. A message that
// is neither deleted nor poisoned becomes visible again once the timeout
// lapses.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edvin/searchvault/internal/model"
	"github.com/edvin/searchvault/internal/platform"
)

// DB is the subset of pgxpool.Pool the queue needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Queue struct {
	db DB
}

func New(db DB) *Queue {
	return &Queue{db: db}
}

// Send stores an already encoded message body on the named queue and
// returns the message id.
func (q *Queue) Send(ctx context.Context, queue, body string) (string, error) {
	id := platform.NewID()
	_, err := q.db.Exec(ctx,
		`INSERT INTO queue_messages (id, queue, body, status) VALUES ($1, $2, $3, $4)`,
		id, queue, body, model.StatusReady,
	)
	if err != nil {
		return "", fmt.Errorf("send to %s: %w", queue, err)
	}
	return id, nil
}

// SendMessage encodes v and sends it.
func (q *Queue) SendMessage(ctx context.Context, queue string, v any) (string, error) {
	body, err := Encode(v)
	if err != nil {
		return "", err
	}
	return q.Send(ctx, queue, body)
}

// Receive claims the oldest visible message on queue, hiding it for
// visibility. It returns nil, nil when the queue is empty.
func (q *Queue) Receive(ctx context.Context, queue string, visibility time.Duration) (*model.QueueMessage, error) {
	var m model.QueueMessage
	err := q.db.QueryRow(ctx,
		`UPDATE queue_messages
		 SET dequeue_count = dequeue_count + 1,
		     visible_at = now() + make_interval(secs => $2),
		     updated_at = now()
		 WHERE id = (
		     SELECT id FROM queue_messages
		     WHERE queue = $1 AND status = $3 AND visible_at <= now()
		     ORDER BY created_at
		     LIMIT 1
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, queue, body, status, dequeue_count, visible_at, created_at, updated_at`,
		queue, visibility.Seconds(), model.StatusReady,
	).Scan(&m.ID, &m.Queue, &m.Body, &m.Status, &m.DequeueCount, &m.VisibleAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("receive from %s: %w", queue, err)
	}
	return &m, nil
}

// Delete acknowledges a message.
func (q *Queue) Delete(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, `DELETE FROM queue_messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete message %s: %w", id, err)
	}
	return nil
}

// Extend pushes the visibility of a message being handled to visibility
// from now, so it is not redelivered while its handler still runs.
func (q *Queue) Extend(ctx context.Context, id string, visibility time.Duration) error {
	_, err := q.db.Exec(ctx,
		`UPDATE queue_messages
		 SET visible_at = now() + make_interval(secs => $2), updated_at = now()
		 WHERE id = $1 AND status = $3`,
		id, visibility.Seconds(), model.StatusReady,
	)
	if err != nil {
		return fmt.Errorf("extend message %s: %w", id, err)
	}
	return nil
}

// Poison parks a message that must not be retried. It stays in the table
// for operators to inspect.
func (q *Queue) Poison(ctx context.Context, id, reason string) error {
	_, err := q.db.Exec(ctx,
		`UPDATE queue_messages SET status = $2, status_message = $3, updated_at = now() WHERE id = $1`,
		id, model.StatusPoisoned, reason,
	)
	if err != nil {
		return fmt.Errorf("poison message %s: %w", id, err)
	}
	return nil
}

// Stats returns message counts for each of the given queues, in order.
func (q *Queue) Stats(ctx context.Context, queues []string) ([]model.QueueStats, error) {
	rows, err := q.db.Query(ctx,
		`SELECT queue,
		        count(*) FILTER (WHERE status = $2 AND visible_at <= now()),
		        count(*) FILTER (WHERE status = $2 AND visible_at > now()),
		        count(*) FILTER (WHERE status = $3)
		 FROM queue_messages
		 WHERE queue = ANY($1)
		 GROUP BY queue`,
		queues, model.StatusReady, model.StatusPoisoned,
	)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	byQueue := make(map[string]model.QueueStats, len(queues))
	for rows.Next() {
		var s model.QueueStats
		if err := rows.Scan(&s.Queue, &s.Ready, &s.InFlight, &s.Poisoned); err != nil {
			return nil, fmt.Errorf("scan queue stats: %w", err)
		}
		byQueue[s.Queue] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue stats: %w", err)
	}

	out := make([]model.QueueStats, 0, len(queues))
	for _, name := range queues {
		s, ok := byQueue[name]
		if !ok {
			s = model.QueueStats{Queue: name}
		}
		out = append(out, s)
	}
	return out, nil
}

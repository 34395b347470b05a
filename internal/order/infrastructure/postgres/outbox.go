package postgres

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/shop-cart-service/pkg/outbox"
	pg "github.com/dmehra2102/shop-cart-service/pkg/postgres"
)

// InsertOutbox queues events on q. Callers pass the transaction that
// writes the aggregate so the event exists exactly when the change does.
func InsertOutbox(ctx context.Context, q pg.Querier, events []outbox.Event) error {
	for _, ev := range events {
		headers := ev.Headers
		if headers == nil {
			headers = map[string]string{}
		}
		if _, err := q.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
			VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
			ev.AggregateType, ev.AggregateID, ev.Type, ev.Payload, headers, ev.Traceparent); err != nil {
			return pg.Wrap("insert outbox event", err)
		}
	}
	return nil
}

type OutboxStore struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewOutboxStore(log *slog.Logger, pool *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{log: log, pool: pool}
}

// LockBatch claims up to batchSize events for relayID. Rows locked by
// another relay are skipped; rows whose lease ran out are claimed again.
func (s *OutboxStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration, maxRetries int) ([]outbox.Event, error) {
	rows, err := s.pool.Query(ctx, `
		WITH claimable AS (
			SELECT id FROM outbox
			WHERE status = 'pending'
			   OR (status = 'failed' AND retry_count < $3)
			   OR (status = 'in_progress' AND lease_until < now())
			ORDER BY id
			FOR UPDATE SKIP LOCKED
			LIMIT $1
		)
		UPDATE outbox o
		SET status = 'in_progress', relay_id = $2, lease_until = now() + make_interval(secs => $4)
		FROM claimable c
		WHERE o.id = c.id
		RETURNING o.id, o.aggregate_type, o.aggregate_id, o.type, o.payload, o.headers, o.traceparent,
			o.created_at, o.retry_count, o.last_error`,
		batchSize, relayID, maxRetries, lease.Seconds())
	if err != nil {
		return nil, pg.Wrap("lock outbox batch", err)
	}
	defer rows.Close()

	var events []outbox.Event
	for rows.Next() {
		ev := outbox.Event{Status: outbox.StatusInProgress, RelayID: relayID}
		if err := rows.Scan(&ev.ID, &ev.AggregateType, &ev.AggregateID, &ev.Type, &ev.Payload, &ev.Headers,
			&ev.Traceparent, &ev.CreatedAt, &ev.RetryCount, &ev.LastError); err != nil {
			return nil, pg.Wrap("scan outbox event", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, pg.Wrap("lock outbox batch", err)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, ids []int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET status='sent', lease_until=NULL WHERE id = ANY($1)`, ids)
	return pg.Wrap("mark outbox sent", err)
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET status='failed', last_error=$2, retry_count=retry_count+1,
		lease_until=NULL WHERE id=$1`, id, errMsg)
	if err == nil {
		s.log.Warn("outbox event failed", "event_id", id, "err", errMsg)
	}
	return pg.Wrap("mark outbox failed", err)
}

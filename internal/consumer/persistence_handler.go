package consumer

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PersistenceHandler writes consumed events into Postgres for auditing.
type PersistenceHandler struct {
	pool *pgxpool.Pool
}

// NewPersistenceHandler constructs a handler backed by the provided pool.
func NewPersistenceHandler(pool *pgxpool.Pool) *PersistenceHandler {
	return &PersistenceHandler{pool: pool}
}

// Handle stores the event in exercise_event_log. Redelivered records are
// ignored so replays after a missed commit stay idempotent.
func (h *PersistenceHandler) Handle(ctx context.Context, msg Message) error {
	received := msg.Timestamp
	if received.IsZero() {
		received = time.Now().UTC()
	}

	tag, err := h.pool.Exec(ctx,
		`INSERT INTO exercise_event_log (event_type, topic, partition, record_offset, event_key, payload, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7)
         ON CONFLICT (topic, partition, record_offset) DO NOTHING`,
		msg.EventType,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		msg.Key,
		msg.Payload,
		received,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		recordDuplicate(msg.Topic)
	}
	return nil
}

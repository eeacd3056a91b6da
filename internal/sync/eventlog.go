package syncx

import (
	"context"
	"time"

	"github.com/quizsmith/quizsmith/internal/structure"
)

// Event is one append-only audit record of a structure mutation.
type Event struct {
	Offset    int64
	Type      string
	Key       string // natural key: quiz ID
	DataJSON  string
	CreatedAt int64
}

// EventRepo appends audit events. Append runs on the caller's transaction so
// the event commits (or rolls back) with the mutation it describes.
type EventRepo struct{}

func NewEventRepo() *EventRepo { return &EventRepo{} }

func (r *EventRepo) Append(ctx context.Context, tx structure.DBTX, typ, key, dataJSON string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4)`,
		typ, key, dataJSON, time.Now().Unix())
	return err
}

// Recent returns the latest events for one quiz, newest first.
func (r *EventRepo) Recent(ctx context.Context, tx structure.DBTX, key string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := tx.QueryContext(ctx, `
		SELECT "offset", typ, key, data, created_at FROM event_log
		WHERE key=$1 ORDER BY "offset" DESC LIMIT $2`, key, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Offset, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

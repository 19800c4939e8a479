package outbox

import (
	"database/sql"
	"time"
)

// SQLiteRepository stores next_attempt_at as unix milliseconds so due
// events are selected by integer comparison.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db}
}

func (r *SQLiteRepository) Save(evt OutboxEvent) error {
	_, err := r.db.Exec(`
		INSERT INTO outbox_events (id, event_type, payload, published, abandoned, attempts, next_attempt_at, last_error, created_at)
		VALUES (?, ?, ?, 0, 0, ?, ?, '', ?)
	`,
		evt.ID,
		string(evt.Type),
		evt.Payload,
		evt.Attempts,
		evt.NextAttemptAt.UnixMilli(),
		evt.CreatedAt.UTC(),
	)
	return err
}

func (r *SQLiteRepository) FindDue(now time.Time, limit int) ([]OutboxEvent, error) {
	rows, err := r.db.Query(`
		SELECT id, event_type, payload, published, abandoned, attempts, next_attempt_at, last_error, created_at
		FROM outbox_events
		WHERE published = 0 AND abandoned = 0 AND next_attempt_at <= ?
		ORDER BY created_at
		LIMIT ?
	`, now.UnixMilli(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []OutboxEvent

	for rows.Next() {
		var evt OutboxEvent
		var published, abandoned int
		var next int64

		if err := rows.Scan(
			&evt.ID,
			&evt.Type,
			&evt.Payload,
			&published,
			&abandoned,
			&evt.Attempts,
			&next,
			&evt.LastError,
			&evt.CreatedAt,
		); err != nil {
			return nil, err
		}

		evt.Published = published == 1
		evt.Abandoned = abandoned == 1
		evt.NextAttemptAt = time.UnixMilli(next)
		events = append(events, evt)
	}

	return events, rows.Err()
}

func (r *SQLiteRepository) MarkPublished(id string) error {
	return r.exec(`UPDATE outbox_events SET published = 1 WHERE id = ?`, id)
}

func (r *SQLiteRepository) MarkRetry(id string, attempts int, next time.Time, lastErr string) error {
	return r.exec(`
		UPDATE outbox_events
		SET attempts = ?, next_attempt_at = ?, last_error = ?
		WHERE id = ?
	`, attempts, next.UnixMilli(), lastErr, id)
}

func (r *SQLiteRepository) MarkAbandoned(id string, attempts int, lastErr string) error {
	return r.exec(`
		UPDATE outbox_events
		SET abandoned = 1, attempts = ?, last_error = ?
		WHERE id = ?
	`, attempts, lastErr, id)
}

func (r *SQLiteRepository) exec(query string, args ...any) error {
	res, err := r.db.Exec(query, args...)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrEventNotFound
	}
	return nil
}

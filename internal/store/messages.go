package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const selectMessage = `
	SELECT m.id, s.login, r.login, m.body, m.timestamp, m.delivered
	FROM messages m
	JOIN users s ON s.id = m.sender_id
	JOIN users r ON r.id = m.receiver_id`

// AppendMessage records a message as undelivered and returns its id.
// Both logins must exist, otherwise ErrNotFound is returned.
func (s *Store) AppendMessage(ctx context.Context, sender, receiver, body string, ts time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (sender_id, receiver_id, body, timestamp, delivered)
		SELECT s.id, r.id, ?, ?, FALSE
		FROM users s, users r
		WHERE s.login = ? AND r.login = ?`,
		body, ts.UnixNano(), sender, receiver,
	)
	if err != nil {
		return 0, fmt.Errorf("insert message %s->%s: %w", sender, receiver, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		return 0, ErrNotFound
	}
	return res.LastInsertId()
}

// Undelivered returns the backlog from sender to receiver, oldest first.
func (s *Store) Undelivered(ctx context.Context, sender, receiver string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, selectMessage+`
		WHERE s.login = ? AND r.login = ? AND m.delivered = FALSE
		ORDER BY m.timestamp ASC, m.id ASC`,
		sender, receiver,
	)
	if err != nil {
		return nil, fmt.Errorf("query undelivered %s->%s: %w", sender, receiver, err)
	}
	return scanMessages(rows)
}

// Between returns the last limit messages exchanged between a and b in either
// direction, in ascending time order.
func (s *Store) Between(ctx context.Context, a, b string, limit int) ([]Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, selectMessage+`
		WHERE (s.login = ? AND r.login = ?) OR (s.login = ? AND r.login = ?)
		ORDER BY m.timestamp DESC, m.id DESC
		LIMIT ?`,
		a, b, b, a, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history %s<->%s: %w", a, b, err)
	}

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *Store) MarkDelivered(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "UPDATE messages SET delivered = TRUE WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark message %d delivered: %w", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var ts int64
		if err := rows.Scan(&m.ID, &m.Sender, &m.Receiver, &m.Body, &ts, &m.Delivered); err != nil {
			return nil, err
		}
		m.Timestamp = time.Unix(0, ts)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

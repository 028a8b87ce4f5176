// internal/store/notifications.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/FreakyLetsFail/NKalendar/internal/models"
)

// NotificationStore reads and completes scheduled reminders. The due
// query performs the explicit join with events so callers get the
// denormalized row in one round trip.
type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// Due returns every unsent reminder whose notify_at is at or before now,
// joined with its parent event. An empty result is a normal outcome.
func (s *NotificationStore) Due(ctx context.Context, now time.Time) ([]models.DueNotification, error) {
	query := `SELECT n.id, n.event_id, n.notify_at, e.title, e.start_time
		FROM notifications n
		JOIN events e ON e.id = n.event_id
		WHERE n.sent = false AND n.notify_at <= $1`

	rows, err := s.db.QueryContext(ctx, query, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("query due notifications: %w", err)
	}
	defer rows.Close()

	var due []models.DueNotification
	for rows.Next() {
		var d models.DueNotification
		if err := rows.Scan(&d.ID, &d.EventID, &d.NotifyAt, &d.EventTitle, &d.EventStartTime); err != nil {
			return nil, fmt.Errorf("scan due notification: %w", err)
		}
		due = append(due, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due notifications: %w", err)
	}

	return due, nil
}

// MarkSent sets sent = true unconditionally. Used after a record's full
// audience has been attempted.
func (s *NotificationStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE notifications SET sent = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark notification %s sent: %w", id, err)
	}
	return nil
}

// ClaimSent flips sent from false to true and reports whether this
// caller won the flip. The affected-row count acts as a lock for callers
// that want to guard against overlapping scan passes.
func (s *NotificationStore) ClaimSent(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET sent = true WHERE id = $1 AND sent = false`, id)
	if err != nil {
		return false, fmt.Errorf("claim notification %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim notification %s: rows affected: %w", id, err)
	}
	return n == 1, nil
}

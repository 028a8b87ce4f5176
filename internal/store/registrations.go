// internal/store/registrations.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/FreakyLetsFail/NKalendar/internal/models"
)

// RegistrationStore persists per-event registrations. Only the day-of
// reminder tier reads from here.
type RegistrationStore struct {
	db *sql.DB
}

func NewRegistrationStore(db *sql.DB) *RegistrationStore {
	return &RegistrationStore{db: db}
}

// SubscribedForEvent returns the subscriptions of registrants for one
// event, skipping registrations without one.
func (s *RegistrationStore) SubscribedForEvent(ctx context.Context, eventID string) ([]models.Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subscription FROM event_registrations
		 WHERE event_id = $1 AND subscription IS NOT NULL`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query event registrations: %w", err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan event registration: %w", err)
		}
		var sub models.Subscription
		if err := json.Unmarshal(raw, &sub); err != nil {
			return nil, fmt.Errorf("decode registration subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event registrations: %w", err)
	}

	return subs, nil
}

// Save inserts a new registration. The subscription may be nil for
// visitors that registered without enabling push.
func (s *RegistrationStore) Save(ctx context.Context, reg models.EventRegistration) error {
	var raw interface{}
	if reg.Subscription != nil {
		b, err := json.Marshal(reg.Subscription)
		if err != nil {
			return fmt.Errorf("encode registration subscription: %w", err)
		}
		raw = b
	}

	id := reg.ID
	if id == "" {
		id = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO event_registrations (id, event_id, name, subscription)
		 VALUES ($1, $2, $3, $4)`,
		id, reg.EventID, sql.NullString{String: reg.Name, Valid: reg.Name != ""}, raw)
	if err != nil {
		return fmt.Errorf("save event registration: %w", err)
	}
	return nil
}

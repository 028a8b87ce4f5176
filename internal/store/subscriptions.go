// internal/store/subscriptions.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/FreakyLetsFail/NKalendar/internal/models"
)

// SubscriptionStore persists the global push subscription pool. The
// subscription column holds the raw browser descriptor as JSON, keyed
// unique by its endpoint so re-subscribing the same browser is an
// upsert, not a duplicate.
type SubscriptionStore struct {
	db *sql.DB
}

func NewSubscriptionStore(db *sql.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

// All returns every subscription in the global pool.
func (s *SubscriptionStore) All(ctx context.Context) ([]models.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT subscription FROM push_subscriptions`)
	if err != nil {
		return nil, fmt.Errorf("query push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		var sub models.Subscription
		if err := json.Unmarshal(raw, &sub); err != nil {
			return nil, fmt.Errorf("decode push subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate push subscriptions: %w", err)
	}

	return subs, nil
}

// Save upserts a subscription by endpoint.
func (s *SubscriptionStore) Save(ctx context.Context, sub models.Subscription) error {
	raw, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode push subscription: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO push_subscriptions (id, endpoint, subscription)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (endpoint) DO UPDATE SET subscription = EXCLUDED.subscription`,
		uuid.New().String(), sub.Endpoint, raw)
	if err != nil {
		return fmt.Errorf("save push subscription: %w", err)
	}
	return nil
}

// Remove deletes a subscription by endpoint. Missing rows are not an
// error; unsubscribe must be idempotent.
func (s *SubscriptionStore) Remove(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	if err != nil {
		return fmt.Errorf("remove push subscription: %w", err)
	}
	return nil
}

// internal/models/event.go
package models

import "time"

// Event is a calendar entry published by an organizer. The dispatcher
// only ever reads events; creation and deletion belong to the CRUD API.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"startTime"` // stored and compared in UTC
}

// internal/models/registration.go
package models

// EventRegistration records a visitor's interest in one event. Name may
// be empty (anonymous) and the subscription is optional; only
// registrations that supplied one can receive the day-of reminder.
type EventRegistration struct {
	ID           string        `json:"id"`
	EventID      string        `json:"eventId"`
	Name         string        `json:"name,omitempty"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

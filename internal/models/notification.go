// internal/models/notification.go
package models

import "time"

// NotificationRecord is one scheduled reminder for an event. One record
// exists per lead-time tier. Sent transitions false -> true exactly once
// and is never reverted.
type NotificationRecord struct {
	ID       string    `json:"id"`
	EventID  string    `json:"eventId"`
	NotifyAt time.Time `json:"notifyAt"`
	Sent     bool      `json:"sent"`
}

// DueNotification is the denormalized row returned by the due-record
// query: the reminder joined with the minimal event fields the audience
// resolver needs.
type DueNotification struct {
	ID             string    `json:"id"`
	EventID        string    `json:"eventId"`
	NotifyAt       time.Time `json:"notifyAt"`
	EventTitle     string    `json:"eventTitle"`
	EventStartTime time.Time `json:"eventStartTime"`
}

// PushPayload is the JSON document delivered to the browser.
type PushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// internal/models/subscription.go
package models

// SubscriptionKeys are the browser-issued encryption keys of a Web Push
// subscription.
type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription is the standard Web Push subscription descriptor. A
// subscription is unique by its endpoint; there is no identity beyond
// that.
type Subscription struct {
	Endpoint string           `json:"endpoint"`
	Keys     SubscriptionKeys `json:"keys"`
}

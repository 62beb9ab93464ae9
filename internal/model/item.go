package model

import "time"

// Item is a single cached key-value entry.
// This is a pure domain model with no database-specific dependencies or tags.
// It can be used across layers (HTTP, service, cache, repository) without
// coupling to persistence.
type Item struct {
	Key         string    `json:"key"`
	Value       []byte    `json:"value"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Expired reports whether the item carries an expiry that has already passed.
// A zero ExpiresAt means the item never expires.
func (i *Item) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// Package model defines the domain types used across the application.
package model

import "time"

// Mirror is a successfully generated mirror link kept in a chat's history.
type Mirror struct {
	ID          int64
	ChatID      int64
	UserID      int64
	OriginalURL string
	MirrorURL   string
	CreatedAt   time.Time
}

// DefaultIntervalMinutes is the polling interval of a new subscription.
const DefaultIntervalMinutes = 30

// Subscription is a news feed whose new items are mirrored into a chat.
// Keywords is an optional comma-separated include list; entries wrapped in
// slashes are regular expressions.
type Subscription struct {
	ID              int64
	ChatID          int64
	Name            string
	URL             string
	Keywords        string
	IntervalMinutes int
	IsActive        bool
	LastCheckAt     *time.Time
	CreatedAt       time.Time
}

// SeenItem tracks a feed item that has already been processed.
type SeenItem struct {
	SubscriptionID int64
	GUID           string
	SeenAt         time.Time
}

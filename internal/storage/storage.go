// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"

	"mirror_bot/internal/model"
)

// Lookup errors.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// Storage is the interface for all persistence operations.
type Storage interface {
	RecordMirror(ctx context.Context, m *model.Mirror) error
	GetMirror(ctx context.Context, id int64) (*model.Mirror, error)
	ListMirrors(ctx context.Context, chatID int64, limit int) ([]model.Mirror, error)

	CreateSubscription(ctx context.Context, sub *model.Subscription) error
	GetSubscription(ctx context.Context, id int64) (*model.Subscription, error)
	ListSubscriptions(ctx context.Context, chatID int64) ([]model.Subscription, error)
	ListDueSubscriptions(ctx context.Context) ([]model.Subscription, error)
	UpdateSubscription(ctx context.Context, sub *model.Subscription) error
	DeleteSubscription(ctx context.Context, id int64) error

	MarkSeen(ctx context.Context, subscriptionID int64, guid string) error
	IsSeen(ctx context.Context, subscriptionID int64, guid string) (bool, error)

	Close() error
}

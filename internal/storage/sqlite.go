package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"mirror_bot/internal/model"
	"mirror_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

const subscriptionColumns = `id, chat_id, name, url, keywords, interval_minutes, is_active, last_check_at, created_at`

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Every pooled connection to ":memory:" would be a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// RecordMirror inserts a mirror history entry and populates its ID and CreatedAt.
func (s *SQLite) RecordMirror(ctx context.Context, m *model.Mirror) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO mirrors (chat_id, user_id, original_url, mirror_url, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		m.ChatID, m.UserID, m.OriginalURL, m.MirrorURL, now,
	)
	if err != nil {
		return fmt.Errorf("insert mirror: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	m.ID = id
	m.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetMirror returns a single history entry by its ID.
func (s *SQLite) GetMirror(ctx context.Context, id int64) (*model.Mirror, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, chat_id, user_id, original_url, mirror_url, created_at FROM mirrors WHERE id = ?`, id,
	)
	m, err := scanMirror(row)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMirrors returns the newest history entries of a chat, newest first.
func (s *SQLite) ListMirrors(ctx context.Context, chatID int64, limit int) ([]model.Mirror, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, user_id, original_url, mirror_url, created_at
		 FROM mirrors WHERE chat_id = ? ORDER BY id DESC LIMIT ?`, chatID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query mirrors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mirrors []model.Mirror
	for rows.Next() {
		m, err := scanMirror(rows)
		if err != nil {
			return nil, err
		}
		mirrors = append(mirrors, m)
	}
	return mirrors, rows.Err()
}

// CreateSubscription inserts a new subscription and populates its ID and CreatedAt.
// Subscribing a chat to the same feed twice returns ErrDuplicate.
func (s *SQLite) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	if sub.IntervalMinutes <= 0 {
		sub.IntervalMinutes = model.DefaultIntervalMinutes
	}
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (chat_id, name, url, keywords, interval_minutes, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sub.ChatID, sub.Name, sub.URL, sub.Keywords, sub.IntervalMinutes, boolToInt(sub.IsActive), now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicate
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	sub.ID = id
	sub.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetSubscription returns a single subscription by its ID.
func (s *SQLite) GetSubscription(ctx context.Context, id int64) (*model.Subscription, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`, id,
	)
	return scanSubscription(row)
}

// ListSubscriptions returns all subscriptions belonging to the given chat.
func (s *SQLite) ListSubscriptions(ctx context.Context, chatID int64) ([]model.Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE chat_id = ? ORDER BY id`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanSubscriptions(rows)
}

// ListDueSubscriptions returns all active subscriptions that are due for checking.
func (s *SQLite) ListDueSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	now := time.Now().UTC().Format(timeLayout)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions
		 WHERE is_active = 1
		   AND (last_check_at IS NULL
		        OR datetime(last_check_at, '+' || interval_minutes || ' minutes') <= datetime(?))
		 ORDER BY id`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("query due subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanSubscriptions(rows)
}

// UpdateSubscription persists changes to an existing subscription.
func (s *SQLite) UpdateSubscription(ctx context.Context, sub *model.Subscription) error {
	var lastCheck *string
	if sub.LastCheckAt != nil {
		v := sub.LastCheckAt.UTC().Format(timeLayout)
		lastCheck = &v
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE subscriptions
		 SET name = ?, url = ?, keywords = ?, interval_minutes = ?, is_active = ?, last_check_at = ?
		 WHERE id = ?`,
		sub.Name, sub.URL, sub.Keywords, sub.IntervalMinutes, boolToInt(sub.IsActive), lastCheck, sub.ID,
	)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return nil
}

// DeleteSubscription removes a subscription and its seen items.
func (s *SQLite) DeleteSubscription(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM seen_items WHERE subscription_id = ?`, id); err != nil {
		return fmt.Errorf("delete seen_items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return tx.Commit()
}

// MarkSeen records that a feed item has been processed.
func (s *SQLite) MarkSeen(ctx context.Context, subscriptionID int64, guid string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO seen_items (subscription_id, guid) VALUES (?, ?)`,
		subscriptionID, guid,
	)
	if err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	return nil
}

// IsSeen checks whether a feed item has already been processed.
func (s *SQLite) IsSeen(ctx context.Context, subscriptionID int64, guid string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seen_items WHERE subscription_id = ? AND guid = ?`,
		subscriptionID, guid,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check seen: %w", err)
	}
	return count > 0, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanMirror(row scannable) (model.Mirror, error) {
	var m model.Mirror
	var created string
	err := row.Scan(&m.ID, &m.ChatID, &m.UserID, &m.OriginalURL, &m.MirrorURL, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return m, ErrNotFound
	}
	if err != nil {
		return m, fmt.Errorf("scan mirror: %w", err)
	}
	m.CreatedAt, _ = time.Parse(timeLayout, created)
	return m, nil
}

func scanSubscription(row scannable) (*model.Subscription, error) {
	var sub model.Subscription
	var isActive int
	var lastCheck, created sql.NullString
	err := row.Scan(&sub.ID, &sub.ChatID, &sub.Name, &sub.URL, &sub.Keywords,
		&sub.IntervalMinutes, &isActive, &lastCheck, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	sub.IsActive = isActive == 1
	if lastCheck.Valid {
		t, _ := time.Parse(timeLayout, lastCheck.String)
		sub.LastCheckAt = &t
	}
	if created.Valid {
		sub.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &sub, nil
}

func scanSubscriptions(rows *sql.Rows) ([]model.Subscription, error) {
	var subs []model.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// Package sqliterepo persists the login attempt ledger in SQLite.
package sqliterepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/LyDawei/Rate-my-services/attempts"
)

// Repo is a SQLite-backed attempts.Repo.
type Repo struct {
	db      *sql.DB
	nowTime func() time.Time
}

// Option modifies a Repo instance.
type Option func(*Repo)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(r *Repo) {
		r.nowTime = nowFunc
	}
}

var _ attempts.Repo = (*Repo)(nil)

// New creates a Repo over an open database.
func New(db *sql.DB, options ...Option) *Repo {
	r := &Repo{
		db:      db,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *Repo) Record(ctx context.Context, username, origin string, success bool) error {
	query := `INSERT INTO login_attempts (id, username, origin, success, created_at)
	          VALUES (?, ?, ?, ?, ?)`

	successInt := 0
	if success {
		successInt = 1
	}
	_, err := r.db.ExecContext(ctx, query,
		uuid.New().String(), username, origin, successInt, r.nowTime().UTC().UnixMilli())
	if err != nil {
		return errors.Wrap(err, "[Repo.Record] insert")
	}
	return nil
}

func (r *Repo) CountRecentFailures(ctx context.Context, username string, window time.Duration) (int, error) {
	query := `SELECT COUNT(*) FROM login_attempts
	          WHERE username = ? AND success = 0 AND created_at > ?`

	cutoff := r.nowTime().Add(-window).UTC().UnixMilli()
	var count int
	if err := r.db.QueryRowContext(ctx, query, username, cutoff).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "[Repo.CountRecentFailures] scan")
	}
	return count, nil
}

func (r *Repo) OldestRecentFailure(ctx context.Context, username string, window time.Duration) (time.Time, bool, error) {
	query := `SELECT MIN(created_at) FROM login_attempts
	          WHERE username = ? AND success = 0 AND created_at > ?`

	cutoff := r.nowTime().Add(-window).UTC().UnixMilli()
	var oldest sql.NullInt64
	if err := r.db.QueryRowContext(ctx, query, username, cutoff).Scan(&oldest); err != nil {
		return time.Time{}, false, errors.Wrap(err, "[Repo.OldestRecentFailure] scan")
	}
	if !oldest.Valid {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(oldest.Int64).UTC(), true, nil
}

func (r *Repo) ClearFailures(ctx context.Context, username string) error {
	query := `DELETE FROM login_attempts WHERE username = ? AND success = 0`
	if _, err := r.db.ExecContext(ctx, query, username); err != nil {
		return errors.Wrap(err, "[Repo.ClearFailures] delete")
	}
	return nil
}

func (r *Repo) PurgeOlderThan(ctx context.Context, age time.Duration) error {
	query := `DELETE FROM login_attempts WHERE created_at <= ?`
	cutoff := r.nowTime().Add(-age).UTC().UnixMilli()
	if _, err := r.db.ExecContext(ctx, query, cutoff); err != nil {
		return errors.Wrap(err, "[Repo.PurgeOlderThan] delete")
	}
	return nil
}

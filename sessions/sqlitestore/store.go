// Package sqlitestore persists sessions in the app's SQLite database, in the
// same (sid, sess, expiry) table the feedback app has always used. Migrate
// normalizes older layouts of that table at startup.
package sqlitestore

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/LyDawei/Rate-my-services/sessions"
)

// Store is a SQLite-backed sessions.Store.
type Store struct {
	db *sql.DB
}

var _ sessions.Store = (*Store)(nil)

// New creates a Store over an open database. Call Migrate before serving
// traffic; the store assumes the current schema.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, id string) (*sessions.Session, error) {
	query := `SELECT sess FROM sessions WHERE sid = ?`

	var raw []byte
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sessions.ErrNotFound
		}
		return nil, errors.Wrap(err, "[Store.Get] scan")
	}

	session, err := sessions.Decode(id, raw)
	if err != nil {
		return nil, errors.Wrap(err, "[Store.Get] decode")
	}
	return session, nil
}

func (s *Store) Upsert(ctx context.Context, session *sessions.Session, expiry time.Time) error {
	raw, err := session.Encode()
	if err != nil {
		return errors.Wrap(err, "[Store.Upsert] encode")
	}

	query := `INSERT INTO sessions (sid, sess, expiry) VALUES (?, ?, ?)
	          ON CONFLICT(sid) DO UPDATE SET sess = excluded.sess, expiry = excluded.expiry`

	if _, err := s.db.ExecContext(ctx, query, session.ID, raw, expiry.UTC().UnixMilli()); err != nil {
		return errors.Wrap(err, "[Store.Upsert] exec")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM sessions WHERE sid = ?`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return errors.Wrap(err, "[Store.Delete] exec")
	}
	return nil
}

func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM sessions WHERE expiry <= ?`
	res, err := s.db.ExecContext(ctx, query, now.UTC().UnixMilli())
	if err != nil {
		return 0, errors.Wrap(err, "[Store.DeleteExpired] exec")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "[Store.DeleteExpired] rows affected")
	}
	return n, nil
}

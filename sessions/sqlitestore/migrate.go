package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// The session table predates this codebase: the original store wrote
// sessions(sid, sess, expired) with a text datetime in expired. The current
// contract is an integer epoch-millisecond expiry column, which the sweep
// can index and compare cheaply.
const (
	legacyExpiryColumn  = "expired"
	currentExpiryColumn = "expiry"

	currentSchema = `CREATE TABLE sessions (
		sid    TEXT PRIMARY KEY,
		sess   TEXT NOT NULL,
		expiry INTEGER NOT NULL
	)`
	currentIndex = `CREATE INDEX sessions_expiry_idx ON sessions (expiry)`
)

// Migrate normalizes the persisted session table to the current schema. It
// runs once at startup, before the store serves traffic.
//
// Cases:
//   - no table: fresh install, create the current schema;
//   - current schema: no-op;
//   - legacy expired column: rebuild the table in one transaction, copying
//     every row and converting the expiry value; any failure aborts startup;
//   - both columns: ambiguous, proceed with a loud warning for the operator;
//   - missing sid/sess or any expiry column: fail fast, never guess.
func Migrate(ctx context.Context, db *sql.DB, logger zerolog.Logger) error {
	columns, err := tableColumns(ctx, db, "sessions")
	if err != nil {
		return errors.Wrap(err, "[Migrate] inspect sessions table")
	}

	if len(columns) == 0 {
		if _, err := db.ExecContext(ctx, currentSchema); err != nil {
			return errors.Wrap(err, "[Migrate] create sessions table")
		}
		if _, err := db.ExecContext(ctx, currentIndex); err != nil {
			return errors.Wrap(err, "[Migrate] create sessions index")
		}
		logger.Info().Msg("session table created")
		return nil
	}

	if !columns["sid"] || !columns["sess"] {
		return fmt.Errorf("[Migrate] sessions table is malformed: need sid and sess columns, have %v", columnNames(columns))
	}

	hasLegacy := columns[legacyExpiryColumn]
	hasCurrent := columns[currentExpiryColumn]

	switch {
	case hasCurrent && hasLegacy:
		logger.Warn().
			Str("legacy_column", legacyExpiryColumn).
			Str("current_column", currentExpiryColumn).
			Msg("session table carries BOTH expiry columns; this is ambiguous and must be resolved manually, continuing with the current column")
		return nil
	case hasCurrent:
		return nil
	case hasLegacy:
		return migrateLegacy(ctx, db, logger)
	default:
		return fmt.Errorf("[Migrate] sessions table is malformed: no expiry column, have %v", columnNames(columns))
	}
}

// migrateLegacy rebuilds the session table with the current expiry column.
// All-or-nothing: a failure anywhere rolls the whole migration back and the
// application refuses to start against the half-old store.
func migrateLegacy(ctx context.Context, db *sql.DB, logger zerolog.Logger) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "[migrateLegacy] begin")
	}
	defer func() { _ = tx.Rollback() }()

	statements := []string{
		`CREATE TABLE sessions_migrating (
			sid    TEXT PRIMARY KEY,
			sess   TEXT NOT NULL,
			expiry INTEGER NOT NULL
		)`,
		// The legacy column holds a UTC datetime string; the value carried
		// across is the same instant as epoch milliseconds.
		`INSERT INTO sessions_migrating (sid, sess, expiry)
		 SELECT sid, sess, CAST(strftime('%s', expired) AS INTEGER) * 1000 FROM sessions`,
		`DROP INDEX IF EXISTS sessions_expired_idx`,
		`DROP TABLE sessions`,
		`ALTER TABLE sessions_migrating RENAME TO sessions`,
		currentIndex,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "[migrateLegacy] %q", stmt)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "[migrateLegacy] commit")
	}

	logger.Info().Msg("session table migrated from legacy expired column")
	return nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, err
		}
		columns[name] = true
	}
	return columns, rows.Err()
}

func columnNames(columns map[string]bool) []string {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	return names
}

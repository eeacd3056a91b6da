package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:quizsmith.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/quizsmith?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS quizzes (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  time_limit_sec INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  qtype TEXT NOT NULL,                -- mcq_single, essay, description, random, ...
  name TEXT NOT NULL DEFAULT '',
  default_mark REAL NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS quiz_slots (
  id TEXT PRIMARY KEY,
  quiz_id TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  ordinal INTEGER NOT NULL,
  page INTEGER NOT NULL,
  question_ref TEXT NOT NULL,
  max_mark REAL NOT NULL DEFAULT 1,
  requires_previous INTEGER NOT NULL DEFAULT 0,
  UNIQUE (quiz_id, ordinal)
);

CREATE TABLE IF NOT EXISTS quiz_sections (
  id TEXT PRIMARY KEY,
  quiz_id TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  first_slot INTEGER NOT NULL,
  heading TEXT NOT NULL DEFAULT '',
  shuffle INTEGER NOT NULL DEFAULT 0,
  UNIQUE (quiz_id, first_slot)
);

CREATE TABLE IF NOT EXISTS quiz_page_meta (
  quiz_id TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  page INTEGER NOT NULL,
  aux_data TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (quiz_id, page)
);

CREATE TABLE IF NOT EXISTS quiz_attempts (
  id TEXT PRIMARY KEY,
  quiz_id TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL,
  state TEXT NOT NULL,                -- in_progress|finished|abandoned
  preview INTEGER NOT NULL DEFAULT 0,
  started_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS attempt_marks (
  attempt_id TEXT NOT NULL REFERENCES quiz_attempts(id) ON DELETE CASCADE,
  ordinal INTEGER NOT NULL,
  mark REAL NOT NULL DEFAULT 0,
  max_mark REAL NOT NULL,
  PRIMARY KEY (attempt_id, ordinal)
);

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS event_log (
  "offset" INTEGER PRIMARY KEY AUTOINCREMENT, -- BIGSERIAL in Postgres
  typ TEXT NOT NULL,                        -- e.g., slot_moved
  key TEXT NOT NULL,                        -- natural key: quizID
  data TEXT NOT NULL,                       -- JSON payload
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS quizzes (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  time_limit_sec INTEGER NOT NULL DEFAULT 0,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  qtype TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  default_mark DOUBLE PRECISION NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS quiz_slots (
  id TEXT PRIMARY KEY,
  quiz_id TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  ordinal INTEGER NOT NULL,
  page INTEGER NOT NULL,
  question_ref TEXT NOT NULL,
  max_mark DOUBLE PRECISION NOT NULL DEFAULT 1,
  requires_previous BOOLEAN NOT NULL DEFAULT FALSE,
  UNIQUE (quiz_id, ordinal)
);

CREATE TABLE IF NOT EXISTS quiz_sections (
  id TEXT PRIMARY KEY,
  quiz_id TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  first_slot INTEGER NOT NULL,
  heading TEXT NOT NULL DEFAULT '',
  shuffle BOOLEAN NOT NULL DEFAULT FALSE,
  UNIQUE (quiz_id, first_slot)
);

CREATE TABLE IF NOT EXISTS quiz_page_meta (
  quiz_id TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  page INTEGER NOT NULL,
  aux_data TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (quiz_id, page)
);

CREATE TABLE IF NOT EXISTS quiz_attempts (
  id TEXT PRIMARY KEY,
  quiz_id TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL,
  state TEXT NOT NULL,
  preview BOOLEAN NOT NULL DEFAULT FALSE,
  started_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS attempt_marks (
  attempt_id TEXT NOT NULL REFERENCES quiz_attempts(id) ON DELETE CASCADE,
  ordinal INTEGER NOT NULL,
  mark DOUBLE PRECISION NOT NULL DEFAULT 0,
  max_mark DOUBLE PRECISION NOT NULL,
  PRIMARY KEY (attempt_id, ordinal)
);

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS event_log (
  "offset" BIGSERIAL PRIMARY KEY,
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`

// Package postgres implements the repository interfaces on PostgreSQL using
// sqlx for struct scanning and lib/pq as the driver.
//
// It mirrors the sqlite package: one DB owns the pool and hands out a UserDB
// and a PostDB. Pick it with DB_DRIVER=postgres.
package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// pgUniqueViolationCode is SQLSTATE unique_violation.
const pgUniqueViolationCode = "23505"

type DB struct {
	conn  *sqlx.DB
	users *UserDB
	posts *PostDB
}

// New connects to dsn, verifies the connection and creates the schema if
// needed.
func New(dsn string) (*DB, error) {
	conn, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connecting: %w", err)
	}

	db := NewWithConn(conn)
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}

	return db, nil
}

// NewWithConn wraps an existing connection without touching the schema.
// Tests use it with a sqlmock connection.
func NewWithConn(conn *sqlx.DB) *DB {
	return &DB{
		conn:  conn,
		users: &UserDB{db: conn, now: time.Now},
		posts: &PostDB{db: conn, now: time.Now},
	}
}

func (db *DB) Users() *UserDB { return db.users }

func (db *DB) Posts() *PostDB { return db.posts }

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS posts (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL DEFAULT '',
			summary    TEXT NOT NULL DEFAULT '',
			content    TEXT NOT NULL DEFAULT '',
			cover      TEXT NOT NULL DEFAULT '',
			author_id  TEXT NOT NULL REFERENCES users(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_posts_author_id ON posts(author_id);
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode
}

package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"
)

const database_timeout = "5"

// PostgresDSN builds a lib/pq connection string
func PostgresDSN(host string, port int, user, password, dbname string) string {
	return fmt.Sprintf("host=%s port=%d user=%s "+
		"password=%s dbname=%s sslmode=disable connect_timeout=%s",
		host, port, user, password, dbname, database_timeout)
}

// every kiosk keeps its own session, keyed by hostname
const createSessionTable = `CREATE TABLE IF NOT EXISTS client_session (
	hostname   TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (hostname, key)
);`

const getSessionQuery = `SELECT value, expires_at FROM client_session WHERE hostname = $1 AND key = $2;`

const upsertSessionQuery = `INSERT INTO client_session(hostname, key, value, expires_at)
VALUES($1, $2, $3, $4)
ON CONFLICT (hostname, key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at;`

const deleteSessionQuery = `DELETE FROM client_session WHERE hostname = $1 AND key = $2;`

// PostgresPersister keeps the session in a shared postgres table, one row per hostname and key
type PostgresPersister struct {
	db       *sql.DB
	hostname string
	now      func() time.Time
}

// OpenPostgres connects with dsn and makes sure the session table exists
func OpenPostgres(dsn string) (*PostgresPersister, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("error gettng hostname: %w", err)
	}

	slog.Info("setting up database connection")
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error reaching database: %w", err)
	}
	if _, err := db.Exec(createSessionTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating client_session table: %w", err)
	}
	return &PostgresPersister{db: db, hostname: hostname, now: time.Now}, nil
}

// Get returns the value of key for this host. Expired rows are removed and reported as missing.
func (p *PostgresPersister) Get(key string) (string, bool, error) {
	slog.Debug("Stats", "DatabaseOpenConnections", p.db.Stats().OpenConnections)

	var value string
	var expires time.Time
	err := p.db.QueryRow(getSessionQuery, p.hostname, key).Scan(&value, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("error reading %s from client_session: %w", key, err)
	}
	if !expires.After(p.now()) {
		if err := p.Delete(key); err != nil {
			slog.Warn("could not remove expired key", "key", key, "error", err)
		}
		return "", false, nil
	}
	return value, true, nil
}

// Set upserts key for this host
func (p *PostgresPersister) Set(key, value string, expires time.Time) error {
	slog.Debug("sending database query", "query", "upsert client_session", "key", key)
	if _, err := p.db.Exec(upsertSessionQuery, p.hostname, key, value, expires); err != nil {
		return fmt.Errorf("error writing %s to client_session: %w", key, err)
	}
	return nil
}

// Delete removes keys for this host in one transaction
func (p *PostgresPersister) Delete(keys ...string) error {
	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	for _, k := range keys {
		if _, err := tx.Exec(deleteSessionQuery, p.hostname, k); err != nil {
			tx.Rollback()
			return fmt.Errorf("error deleting %s from client_session: %w", k, err)
		}
	}
	return tx.Commit()
}

// Close closes the connection pool
func (p *PostgresPersister) Close() error {
	return p.db.Close()
}

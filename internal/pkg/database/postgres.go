// Package database records entity state changes to Postgres so device
// history survives restarts. It is an optional publisher sink.
package database

import (
	"context"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
)

type Database struct {
	conn *pgx.Conn
	io.Closer
}

func NewDatabase(ctx context.Context, conn *pgx.Conn) (*Database, error) {
	if err := initialise(ctx, conn); err != nil {
		return nil, err
	}
	return &Database{
		conn: conn,
	}, nil
}

func initialise(ctx context.Context, conn *pgx.Conn) error {
	const createTablesSQL = `
CREATE TABLE IF NOT EXISTS kvm_state_changes (
    id SERIAL PRIMARY KEY,
    time_stamp TIMESTAMP WITH TIME ZONE NOT NULL,
    value TEXT NOT NULL,
    identifier TEXT NOT NULL,
    slug TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_state_changes_identifier ON kvm_state_changes (identifier);
CREATE INDEX IF NOT EXISTS idx_state_changes_timestamp ON kvm_state_changes (time_stamp);
CREATE TABLE IF NOT EXISTS kvm_devices (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    model TEXT NOT NULL,
    mdns TEXT NOT NULL
);
`
	_, err := conn.Exec(ctx, createTablesSQL)
	return err
}

func (db *Database) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close(context.Background())
}

type StateChange struct {
	ID         int64     `json:"id"`
	TimeStamp  time.Time `json:"timestamp"`
	Value      string    `json:"value"`
	Identifier string    `json:"identifier"`
	Slug       string    `json:"slug"`
}

type StateChanges []StateChange

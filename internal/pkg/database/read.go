package database

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// GetLatestStateChanges returns the most recent value per entity slug
// for one device, used to serve history without waiting for a poll.
func (db *Database) GetLatestStateChanges(ctx context.Context, identifier string) (StateChanges, error) {
	const query = `
	SELECT DISTINCT ON (slug) id, time_stamp, value, identifier, slug
	FROM kvm_state_changes
	WHERE identifier = $1
	ORDER BY slug, time_stamp DESC;
	`

	rows, err := db.conn.Query(ctx, query, identifier)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes StateChanges
	for rows.Next() {
		var change StateChange
		if err := rows.Scan(&change.ID, &change.TimeStamp, &change.Value, &change.Identifier, &change.Slug); err != nil {
			return nil, err
		}
		changes = append(changes, change)
	}

	if err := rows.Err(); err != nil {
		if err == pgx.ErrNoRows {
			return changes, nil
		}
		return nil, err
	}

	return changes, nil
}

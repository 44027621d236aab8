package database

import (
	"context"

	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/model"
)

func (db *Database) Write(ctx context.Context, data []map[string]any) error {
	tx, err := db.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, record := range data {
		if _, err := tx.Exec(ctx, `
			INSERT INTO kvm_state_changes (time_stamp, value, identifier, slug)
			VALUES ($1, $2, $3, $4)
		`, record["timestamp"], record["value"], record["identifier"], record["slug"]); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (db *Database) RegisterDevice(device *model.Device) error {
	_, err := db.conn.Exec(context.Background(), `
		INSERT INTO kvm_devices (id, name, model, mdns)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING;`, device.ID, device.Name, device.Model, device.MDNS)
	return err
}

// PublishAvailability records availability transitions as ordinary
// state changes under a reserved slug.
func (db *Database) PublishAvailability(ctx context.Context, device *model.Device, available bool) error {
	value := "offline"
	if available {
		value = "online"
	}
	_, err := db.conn.Exec(ctx, `
		INSERT INTO kvm_state_changes (time_stamp, value, identifier, slug)
		VALUES (now(), $1, $2, 'availability')
	`, value, device.ID)
	return err
}

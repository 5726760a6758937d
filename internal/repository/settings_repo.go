package repository

import (
	"context"
	"time"
)

type SettingsRepository struct {
	db DBTX
}

func NewSettingsRepository(db DBTX) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// LoadSettings returns every stored key with the current settings version.
func (r *SettingsRepository) LoadSettings(ctx context.Context) (map[string]string, int64, error) {
	var version int64
	if err := r.db.QueryRow(ctx, `SELECT COALESCE((SELECT version FROM settings_version WHERE id = 1), 0)`).Scan(&version); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `SELECT key, value FROM game_settings`)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, 0, err
		}
		values[k] = v
	}
	return values, version, rows.Err()
}

// SaveSettings upserts values and bumps the version. Call it inside InTx.
func (r *SettingsRepository) SaveSettings(ctx context.Context, values map[string]string, now time.Time) (int64, error) {
	for k, v := range values {
		_, err := r.db.Exec(ctx,
			`INSERT INTO game_settings (key, value, updated_at) VALUES ($1, $2, $3)
			 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
			k, v, now,
		)
		if err != nil {
			return 0, err
		}
	}

	var version int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO settings_version (id, version) VALUES (1, 1)
		 ON CONFLICT (id) DO UPDATE SET version = settings_version.version + 1
		 RETURNING version`,
	).Scan(&version)
	return version, err
}

package database

import (
	"database/sql"
	"fmt"
)

// ConfigRepositoryImpl handles database operations for settings records
type ConfigRepositoryImpl struct {
	db *DB
}

var _ ConfigRepository = (*ConfigRepositoryImpl)(nil)

func NewConfigRepository(db *DB) *ConfigRepositoryImpl {
	return &ConfigRepositoryImpl{db: db}
}

// Get returns the value stored under key and whether it was present
func (r *ConfigRepositoryImpl) Get(key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get config value: %w", err)
	}

	return value, true, nil
}

// Set stores a value under key, overwriting any previous value
func (r *ConfigRepositoryImpl) Set(key, value string) error {
	_, err := r.db.Exec(`
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set config value: %w", err)
	}

	return nil
}

// GetAll returns every settings record
func (r *ConfigRepositoryImpl) GetAll() (map[string]string, error) {
	rows, err := r.db.Query("SELECT key, value FROM config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config values: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan config row: %w", err)
		}
		values[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating config rows: %w", err)
	}

	return values, nil
}

// DeleteAll wipes the config table. Debug and testing operation.
func (r *ConfigRepositoryImpl) DeleteAll() error {
	if _, err := r.db.Exec("DELETE FROM config"); err != nil {
		return fmt.Errorf("failed to delete config values: %w", err)
	}
	return nil
}

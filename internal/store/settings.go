package store

import "database/sql"

// GetSetting reads one settings value, or notFound.
func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", notFound("get setting", "setting")
	}
	if err != nil {
		return "", classify("get setting", err)
	}
	return value, nil
}

// SetSetting upserts one settings value.
func (s *Store) SetSetting(key, value string) error {
	_, err := s.conn.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return classify("set setting", err)
	}
	return nil
}

// AllSettings returns the full settings map.
func (s *Store) AllSettings() (map[string]string, error) {
	rows, err := s.conn.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, classify("all settings", err)
	}
	defer rows.Close()

	settings := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, classify("all settings", err)
		}
		settings[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, classify("all settings", err)
	}
	return settings, nil
}

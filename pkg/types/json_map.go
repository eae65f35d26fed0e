package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap is an opaque jsonb payload (raw provider responses, audit blobs).
// It implements driver.Valuer and sql.Scanner so it survives map-based
// gorm updates, which bypass field serializers.
type JSONMap map[string]any

// Value JSON-encodes the map for the database driver.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan decodes a jsonb column into the map.
func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", value)
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(raw, m)
}

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMapValueScanRoundTrip(t *testing.T) {
	m := JSONMap{"status": "SUCCESS", "attempt": float64(2)}

	value, err := m.Value()
	require.NoError(t, err)
	raw, ok := value.([]byte)
	require.True(t, ok, "Value should produce bytes, got %T", value)

	var decoded JSONMap
	require.NoError(t, decoded.Scan(raw))
	assert.Equal(t, m, decoded)

	// drivers hand back strings too
	var fromString JSONMap
	require.NoError(t, fromString.Scan(string(raw)))
	assert.Equal(t, m, fromString)
}

func TestJSONMapNilAndEmpty(t *testing.T) {
	var m JSONMap
	value, err := m.Value()
	require.NoError(t, err)
	assert.Nil(t, value)

	var decoded JSONMap
	require.NoError(t, decoded.Scan(nil))
	assert.Nil(t, decoded)

	require.NoError(t, decoded.Scan([]byte{}))
	assert.Nil(t, decoded)

	assert.Error(t, decoded.Scan(42))
}

// pointers carry the same Valuer, matching how repositories pass *JSONMap
// inside map-based updates
func TestJSONMapPointerValue(t *testing.T) {
	m := JSONMap{"id": "trx-9"}
	p := &m

	value, err := p.Value()
	require.NoError(t, err)
	assert.NotNil(t, value)
}

package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateDocumentTranslatesPatch(t *testing.T) {
	// Arrange
	patch := Patch{
		"id":            float64(99),
		"timestamp":     "2020-01-01T00:00:00Z",
		"status":        StatusReady,
		"customer_name": "Ana",
		"party_size":    float64(4),
		"products":      []any{"Lasagna Tradicional (x2)"},
		"table":         float64(7),
	}

	// Act
	set := updateDocument(patch)

	// Assert
	assert.NotContains(t, set, "id", "id must be immutable")
	assert.Equal(t, StatusReady, set["status"])
	assert.Equal(t, "Ana", set["customer_name"])
	assert.Equal(t, 4, set["party_size"])
	assert.Equal(t, []string{"Lasagna Tradicional (x2)"}, set["products"])
	assert.Equal(t, float64(7), set["table"], "unknown keys pass through")

	ts, ok := set["timestamp"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339, ts)
	require.NoError(t, err)
	assert.NotEqual(t, "2020-01-01T00:00:00Z", ts, "timestamp is owned by the store")
}

func TestUpdateDocumentAlwaysRefreshesTimestamp(t *testing.T) {
	set := updateDocument(Patch{})

	assert.Len(t, set, 1, "an empty patch still touches the record")
	assert.Contains(t, set, "timestamp")
}

func TestUpdateDocumentNormalizesNilProducts(t *testing.T) {
	set := updateDocument(Patch{"products": nil})

	assert.Equal(t, []string{}, set["products"])
}

package timezone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationFallsBack(t *testing.T) {
	assert.Equal(t, DefaultTimezone, Location("").String())
	assert.Equal(t, DefaultTimezone, Location("Mars/Olympus").String())
	assert.Equal(t, "UTC", Location("UTC").String())
}

func TestParseLocal(t *testing.T) {
	got, err := ParseLocal("2025-12-25", "10:00:00", "Europe/Oslo")
	require.NoError(t, err)
	assert.Equal(t, 9, got.UTC().Hour())

	got, err = ParseLocal("2025-12-25", "10:30", "Europe/Oslo")
	require.NoError(t, err)
	assert.Equal(t, 30, got.Minute())

	_, err = ParseLocal("25/12/2025", "10:00", "Europe/Oslo")
	assert.Error(t, err)
}

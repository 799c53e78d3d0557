package ids

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsSortableAndUnique(t *testing.T) {
	prev := New()
	seen := map[string]struct{}{prev: {}}

	for i := 0; i < 1000; i++ {
		id := New()
		_, err := ulid.ParseStrict(id)
		require.NoError(t, err)

		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}

		assert.Greater(t, id, prev)
		prev = id
	}
}

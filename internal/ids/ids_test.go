package ids_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/echofeed/echofeed/internal/ids"
)

func TestNew_PrefixAndUniqueness(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := ids.New(ids.Session)
		assert.True(t, ids.HasPrefix(id, ids.Session), "id %q", id)
		assert.False(t, ids.HasPrefix(id, ids.User))
		assert.Len(t, id, len(ids.Session)+1+26, "prefix + underscore + ULID")
		assert.False(t, seen[id], "duplicate id %q", id)
		seen[id] = true
	}
}

package crypto_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/echofeed/echofeed/internal/crypto"
)

func TestTimestampValid_Window(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	maxAge := 300 * time.Second

	assert.True(t, crypto.TimestampValid(now.Unix(), maxAge, now))
	assert.True(t, crypto.TimestampValid(now.Unix()-300, maxAge, now))
	assert.True(t, crypto.TimestampValid(now.Unix()+300, maxAge, now))
	assert.False(t, crypto.TimestampValid(now.Unix()-301, maxAge, now))
	assert.False(t, crypto.TimestampValid(now.Unix()+301, maxAge, now))
	assert.False(t, crypto.TimestampValid(0, maxAge, now))
}

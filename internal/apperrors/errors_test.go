package apperrors

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("resolve: %w", NotFound("tournament not found: abc"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConfigMissing))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestUnwrapReachesCause(t *testing.T) {
	err := Upstream("osu! profile fetch failed", sql.ErrConnDone)

	assert.True(t, errors.Is(err, sql.ErrConnDone))
	assert.True(t, errors.Is(err, ErrUpstream))
	assert.Contains(t, err.Error(), "osu! profile fetch failed")
}

func TestRetryAfter(t *testing.T) {
	secs, ok := RetryAfter(fmt.Errorf("wrapped: %w", Throttled(42)))
	assert.True(t, ok)
	assert.Equal(t, 42, secs)

	_, ok = RetryAfter(Forbidden("nope"))
	assert.False(t, ok)

	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

package schemas

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionCredentialsComplete(t *testing.T) {
	creds := SessionCredentials{UserID: "100001234", CSRFToken: "AQHx"}
	assert.True(t, creds.Complete())

	assert.False(t, SessionCredentials{UserID: "100001234"}.Complete(), "missing csrf token")
	assert.False(t, SessionCredentials{CSRFToken: "AQHx"}.Complete(), "missing user id")
	assert.False(t, SessionCredentials{}.Complete())
}

func TestStateSnapshotStale(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	fresh := StateSnapshot{UpdatedAt: now.Add(-5 * time.Second)}
	assert.False(t, fresh.Stale(30*time.Second, now))

	old := StateSnapshot{UpdatedAt: now.Add(-2 * time.Minute)}
	assert.True(t, old.Stale(30*time.Second, now))

	// A zero timestamp means no producer has reported yet, which is not the
	// same thing as a producer that disappeared.
	assert.False(t, StateSnapshot{}.Stale(30*time.Second, now))
}

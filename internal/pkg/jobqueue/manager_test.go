package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManagerStartStop(t *testing.T) {
	m := &Manager{stopCh: make(chan struct{})}

	assert.False(t, m.IsRunning())

	m.Start()
	assert.True(t, m.IsRunning())

	// Start is idempotent while running
	m.Start()
	assert.True(t, m.IsRunning())

	m.Stop()
	assert.False(t, m.IsRunning())

	// Stop is idempotent while stopped
	m.Stop()
	assert.False(t, m.IsRunning())
}

func TestManagerRestart(t *testing.T) {
	m := &Manager{stopCh: make(chan struct{})}

	m.Start()
	m.Stop()

	m.Start()
	assert.True(t, m.IsRunning())
	m.Stop()
	assert.False(t, m.IsRunning())
}

func TestPurgeInterval(t *testing.T) {
	assert.Equal(t, 15*time.Minute, purgeInterval())

	t.Setenv("PLAN_CACHE_PURGE_INTERVAL_MINUTES", "30")
	assert.Equal(t, 30*time.Minute, purgeInterval())

	t.Setenv("PLAN_CACHE_PURGE_INTERVAL_MINUTES", "not-a-number")
	assert.Equal(t, 15*time.Minute, purgeInterval())
}

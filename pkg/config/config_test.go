package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	c, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 9999, c.Port)
	assert.Equal(t, 1.0, c.Speed)
	assert.Equal(t, 32, c.MaxSubscribers)
	assert.Equal(t, 5*time.Second, c.WriteTimeout)
	assert.Equal(t, "replay.itch", c.NATSSubject)
	assert.Equal(t, "info", c.LogLevel)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("REPLAY_SOURCE", "/data/feed.itch.gz")
	t.Setenv("REPLAY_PORT", "7777")
	t.Setenv("REPLAY_SPEED", "2.5")
	t.Setenv("REPLAY_WS_PORT", "8081")

	c, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/data/feed.itch.gz", c.SourcePath)
	assert.Equal(t, 7777, c.Port)
	assert.Equal(t, 2.5, c.Speed)
	assert.Equal(t, 8081, c.WSPort)
}

func TestValidate(t *testing.T) {
	base := Config{SourcePath: "feed.itch", Port: 9999, Speed: 1.0, MaxSubscribers: 32}
	require.NoError(t, base.Validate())

	missing := base
	missing.SourcePath = ""
	assert.Error(t, missing.Validate())

	badPort := base
	badPort.Port = 0
	assert.Error(t, badPort.Validate())

	negative := base
	negative.Speed = -1.0
	assert.Error(t, negative.Validate())

	// Zero speed is a valid mode: pacing disabled.
	unpaced := base
	unpaced.Speed = 0
	assert.NoError(t, unpaced.Validate())

	noSlots := base
	noSlots.MaxSubscribers = 0
	assert.Error(t, noSlots.Validate())
}

package utilities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewIDIsUniqueAndIncreasing(t *testing.T) {
	seen := make(map[int64]struct{}, 1000)
	prev := int64(0)
	for i := 0; i < 1000; i++ {
		id := NewID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %d", id)
		require.Greater(t, id, prev)
		seen[id] = struct{}{}
		prev = id
	}
}

func TestNewKSUID(t *testing.T) {
	a, b := NewKSUID(), NewKSUID()
	assert.Len(t, a, 27)
	assert.NotEqual(t, a, b)
}

func TestLevelFromString(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, levelFromString("debug"))
	assert.Equal(t, zapcore.WarnLevel, levelFromString("warning"))
	assert.Equal(t, zapcore.InfoLevel, levelFromString("nonsense"))
}

func TestInitWithRotatedFile(t *testing.T) {
	dir := t.TempDir()
	lg, err := Init(Config{Level: "info", File: dir + "/api.log", MaxAge: time.Hour, Rotation: time.Hour})
	require.NoError(t, err)
	lg.Info("hello")
	_ = lg.Sync()
}

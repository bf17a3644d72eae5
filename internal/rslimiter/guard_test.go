package rslimiter

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewGuard_AppliesDefaults(t *testing.T) {
	g := NewGuard(GuardConfig{}, zerolog.Nop())
	assert.Equal(t, 30*time.Second, g.config.CheckInterval)
	assert.Equal(t, 0.9, g.config.SystemMemThreshold)
	assert.Equal(t, 0.9, g.config.CPUThreshold)
}

func TestGuard_RecommendedHashWorkers(t *testing.T) {
	g := NewGuard(GuardConfig{}, zerolog.Nop())

	assert.Equal(t, 8, g.RecommendedHashWorkers(8))
	assert.Equal(t, 1, g.RecommendedHashWorkers(0))

	g.mu.Lock()
	g.underPressure = true
	g.mu.Unlock()

	assert.Equal(t, 4, g.RecommendedHashWorkers(8))
	assert.Equal(t, 1, g.RecommendedHashWorkers(1))
}

func TestGuard_StartStopIdempotent(t *testing.T) {
	g := NewGuard(GuardConfig{CheckInterval: time.Hour}, zerolog.Nop())

	g.Start()
	g.Start()
	g.Stop()
	g.Stop()

	assert.False(t, g.UnderPressure())
}

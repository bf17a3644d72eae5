// Package rslimiter keeps scanning from starving the host. A guard watches
// process and system resource usage and advises the scan pipeline to shrink
// its hash worker pool when the system is under memory or CPU pressure.
package rslimiter

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// GuardConfig controls the resource guard thresholds.
type GuardConfig struct {
	CheckInterval      time.Duration
	SystemMemThreshold float64 // fraction of total memory, 0..1
	CPUThreshold       float64 // fraction of total CPU, 0..1
}

// NewDefaultGuardConfig returns guard defaults suited to a background agent.
func NewDefaultGuardConfig() GuardConfig {
	return GuardConfig{
		CheckInterval:      30 * time.Second,
		SystemMemThreshold: 0.9,
		CPUThreshold:       0.9,
	}
}

// Guard monitors system resource usage in the background. The monitor loop
// consults it before each scan cycle to size the hash worker pool.
type Guard struct {
	config GuardConfig
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.RWMutex
	running       bool
	underPressure bool
}

// NewGuard creates a resource guard. Zero-value config fields fall back to
// defaults.
func NewGuard(config GuardConfig, logger zerolog.Logger) *Guard {
	defaults := NewDefaultGuardConfig()
	if config.CheckInterval == 0 {
		config.CheckInterval = defaults.CheckInterval
	}
	if config.SystemMemThreshold == 0 {
		config.SystemMemThreshold = defaults.SystemMemThreshold
	}
	if config.CPUThreshold == 0 {
		config.CPUThreshold = defaults.CPUThreshold
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Guard{
		config: config,
		logger: logger.With().Str("component", "ResourceGuard").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins the background usage checks.
func (g *Guard) Start() {
	g.mu.Lock()
	if g.running {
		g.mu.Unlock()
		return
	}
	g.running = true
	g.mu.Unlock()

	g.wg.Add(1)
	go g.watch()

	g.logger.Info().
		Dur("check_interval", g.config.CheckInterval).
		Float64("system_mem_threshold", g.config.SystemMemThreshold).
		Float64("cpu_threshold", g.config.CPUThreshold).
		Msg("Resource guard started")
}

// Stop ends the background checks.
func (g *Guard) Stop() {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return
	}
	g.running = false
	g.mu.Unlock()

	g.cancel()
	g.wg.Wait()
	g.logger.Info().Msg("Resource guard stopped")
}

// UnderPressure reports whether the last check found the system above its
// memory or CPU threshold.
func (g *Guard) UnderPressure() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.underPressure
}

// RecommendedHashWorkers returns the worker count the scan should use this
// cycle. Under pressure the configured count is halved, never below one.
func (g *Guard) RecommendedHashWorkers(configured int) int {
	if configured < 1 {
		configured = 1
	}
	if !g.UnderPressure() {
		return configured
	}

	reduced := configured / 2
	if reduced < 1 {
		reduced = 1
	}
	if reduced != configured {
		g.logger.Warn().
			Int("configured", configured).
			Int("reduced", reduced).
			Msg("Reducing hash workers due to resource pressure")
	}
	return reduced
}

func (g *Guard) watch() {
	defer g.wg.Done()

	ticker := time.NewTicker(g.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-g.ctx.Done():
			return
		case <-ticker.C:
			g.refresh()
		}
	}
}

func (g *Guard) refresh() {
	pressure := false

	if vmStat, err := mem.VirtualMemory(); err != nil {
		g.logger.Error().Err(err).Msg("Failed to read system memory stats")
	} else if vmStat.UsedPercent/100.0 > g.config.SystemMemThreshold {
		g.logger.Warn().
			Float64("used_percent", vmStat.UsedPercent).
			Uint64("used_mb", vmStat.Used/1024/1024).
			Uint64("total_mb", vmStat.Total/1024/1024).
			Msg("System memory usage exceeded threshold")
		pressure = true
	}

	if cpuPercents, err := cpu.Percent(time.Second, false); err != nil {
		g.logger.Error().Err(err).Msg("Failed to read CPU usage")
	} else if len(cpuPercents) > 0 && cpuPercents[0]/100.0 > g.config.CPUThreshold {
		g.logger.Warn().
			Float64("cpu_percent", cpuPercents[0]).
			Msg("CPU usage exceeded threshold")
		pressure = true
	}

	g.mu.Lock()
	g.underPressure = pressure
	g.mu.Unlock()
}

package baseline

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aegis-sec/aegisfim/internal/config"
	"github.com/aegis-sec/aegisfim/internal/models"
)

// Engine builds baselines from discovered path sets. Hashing is the dominant
// cost, so independent paths are hashed across a bounded worker pool; results
// accumulate into a map keyed by path, keeping the final baseline identical
// regardless of completion order.
type Engine struct {
	cfg    config.BaselineConfig
	logger zerolog.Logger
}

// hashOutcome is the resolved result for one path: a record or a warning,
// never both.
type hashOutcome struct {
	record  *models.FileRecord
	warning *models.ScanWarning
}

// NewEngine creates a baseline engine. The worker count and algorithm are
// validated at config load; a zero worker count falls back to one.
func NewEngine(cfg config.BaselineConfig, logger zerolog.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		logger: logger.With().Str("component", "BaselineEngine").Logger(),
	}
}

// Build hashes every path and assembles an immutable baseline. A file that
// disappears or becomes unreadable between discovery and hashing is excluded
// and reported as a hash warning, not silently dropped. Cancellation is
// observed at task boundaries: an in-flight file finishes hashing.
func (e *Engine) Build(ctx context.Context, paths []string) (*models.Baseline, []models.ScanWarning, error) {
	return e.BuildWithWorkers(ctx, paths, e.cfg.HashWorkers)
}

// BuildWithWorkers is Build with an explicit pool size, letting callers shrink
// the pool under resource pressure.
func (e *Engine) BuildWithWorkers(ctx context.Context, paths []string, workers int) (*models.Baseline, []models.ScanWarning, error) {
	if workers <= 0 {
		workers = 1
	}

	jobs := make(chan string)
	outcomes := make(chan hashOutcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.worker(ctx, jobs, outcomes)
		}()
	}

	go func() {
		defer close(jobs)
		for _, path := range paths {
			select {
			case jobs <- path:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	bl := models.NewBaseline(time.Now())
	var warnings []models.ScanWarning
	for outcome := range outcomes {
		if outcome.record != nil {
			bl.Records[outcome.record.Path] = *outcome.record
		}
		if outcome.warning != nil {
			warnings = append(warnings, *outcome.warning)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	e.logger.Debug().
		Int("records", bl.Len()).
		Int("warnings", len(warnings)).
		Int("workers", workers).
		Msg("Baseline build complete")
	return bl, warnings, nil
}

func (e *Engine) worker(ctx context.Context, jobs <-chan string, outcomes chan<- hashOutcome) {
	for path := range jobs {
		// Stop taking new work once cancelled; the current file is never
		// left half-hashed because hashFile runs to completion.
		if ctx.Err() != nil {
			return
		}

		record, err := hashFile(path, e.cfg.Algorithm)
		if err != nil {
			e.logger.Warn().Err(err).Str("path", path).Msg("Failed to hash file, excluding from baseline")
			outcomes <- hashOutcome{warning: &models.ScanWarning{
				Kind: models.WarningHash,
				Path: path,
				Err:  err.Error(),
			}}
			continue
		}
		outcomes <- hashOutcome{record: &record}
	}
}

// Package monitor drives the scan cycle: discover files, hash them into a
// candidate baseline, diff against the persisted baseline, dispatch alert
// events for every divergence, then promote the candidate to be the new
// baseline. It also owns the continuous loop that repeats this on an interval.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aegis-sec/aegisfim/internal/baseline"
	"github.com/aegis-sec/aegisfim/internal/config"
	"github.com/aegis-sec/aegisfim/internal/datastore"
	"github.com/aegis-sec/aegisfim/internal/discovery"
	"github.com/aegis-sec/aegisfim/internal/history"
	"github.com/aegis-sec/aegisfim/internal/integrity"
	"github.com/aegis-sec/aegisfim/internal/models"
	"github.com/aegis-sec/aegisfim/internal/rslimiter"
)

// CycleState describes what the service is currently doing.
type CycleState string

const (
	StateIdle        CycleState = "IDLE"
	StateScanning    CycleState = "SCANNING"
	StateDiffing     CycleState = "DIFFING"
	StateDispatching CycleState = "DISPATCHING"
	StateStopped     CycleState = "STOPPED"
)

// ErrBaselineExists is returned by Init when a baseline is already present
// and force was not requested.
var ErrBaselineExists = errors.New("baseline already exists")

// AlertSink receives the alert events produced by a cycle. Implemented by
// dispatcher.Dispatcher.
type AlertSink interface {
	Enqueue(ev models.AlertEvent) error
}

// Deps are the collaborators a Service needs. Archive, History, Alerts and
// Guard are optional; nil disables the corresponding concern.
type Deps struct {
	Discoverer    *discovery.Engine
	Baseliner     *baseline.Engine
	BaselineStore *datastore.BaselineStore
	Archive       *datastore.ChangeArchive
	History       *history.DB
	Alerts        AlertSink
	Guard         *rslimiter.Guard
}

// CycleResult summarizes one completed scan cycle.
type CycleResult struct {
	CycleID           string
	StartedAt         time.Time
	FinishedAt        time.Time
	FilesScanned      int
	Diff              *models.DiffResult
	Warnings          []models.ScanWarning
	EventsEnqueued    int
	BaselinePersisted bool
}

// Service runs scan cycles and the continuous monitoring loop.
type Service struct {
	cfg    *config.GlobalConfig
	deps   Deps
	logger zerolog.Logger

	mu       sync.RWMutex
	state    CycleState
	cycleSeq uint64
}

// NewService wires a service from its configuration and collaborators.
func NewService(cfg *config.GlobalConfig, deps Deps, logger zerolog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With().Str("component", "MonitorService").Logger(),
		state:  StateIdle,
	}
}

// State returns the current cycle state.
func (s *Service) State() CycleState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Service) setState(st CycleState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Service) nextCycleID(startedAt time.Time) string {
	s.mu.Lock()
	s.cycleSeq++
	seq := s.cycleSeq
	s.mu.Unlock()
	return fmt.Sprintf("cycle-%s-%04d", startedAt.Format("20060102-150405"), seq)
}

// scan discovers and hashes the monitored paths into a candidate baseline.
func (s *Service) scan(ctx context.Context, startedAt time.Time) (*models.Baseline, []models.ScanWarning, error) {
	discovered, err := s.deps.Discoverer.Discover(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("discovery failed: %w", err)
	}

	workers := s.cfg.BaselineConfig.HashWorkers
	if s.deps.Guard != nil {
		workers = s.deps.Guard.RecommendedHashWorkers(workers)
	}

	candidate, hashWarnings, err := s.deps.Baseliner.BuildWithWorkers(ctx, discovered.Paths, workers)
	if err != nil {
		return nil, nil, fmt.Errorf("baseline build failed: %w", err)
	}
	candidate.CreatedAt = startedAt.UTC()

	warnings := append(discovered.Warnings, hashWarnings...)
	return candidate, warnings, nil
}

// Init performs the initial scan and persists the resulting baseline without
// emitting any events. An existing baseline is only replaced when force is
// set.
func (s *Service) Init(ctx context.Context, force bool) (*CycleResult, error) {
	if s.deps.BaselineStore.Exists() && !force {
		return nil, fmt.Errorf("%w at %s", ErrBaselineExists, s.deps.BaselineStore.Path())
	}

	startedAt := time.Now()
	s.setState(StateScanning)
	defer s.setState(StateIdle)

	candidate, warnings, err := s.scan(ctx, startedAt)
	if err != nil {
		return nil, err
	}

	if err := s.deps.BaselineStore.Save(candidate); err != nil {
		return nil, fmt.Errorf("failed to persist baseline: %w", err)
	}

	res := &CycleResult{
		CycleID:           s.nextCycleID(startedAt),
		StartedAt:         startedAt,
		FinishedAt:        time.Now(),
		FilesScanned:      candidate.Len(),
		Diff:              &models.DiffResult{Unchanged: candidate.Len()},
		Warnings:          warnings,
		BaselinePersisted: true,
	}
	s.logger.Info().
		Int("files", res.FilesScanned).
		Int("warnings", len(warnings)).
		Str("baseline", s.deps.BaselineStore.Path()).
		Msg("Baseline initialized")
	return res, nil
}

// Check performs a single scan and diff against the persisted baseline.
// Nothing is persisted and no events are dispatched; the caller inspects the
// returned diff. A missing baseline is an error in check mode.
func (s *Service) Check(ctx context.Context) (*CycleResult, error) {
	prior, err := s.deps.BaselineStore.Load()
	if err != nil {
		return nil, err
	}

	startedAt := time.Now()
	s.setState(StateScanning)
	defer s.setState(StateIdle)

	candidate, warnings, err := s.scan(ctx, startedAt)
	if err != nil {
		return nil, err
	}

	s.setState(StateDiffing)
	diff := integrity.Diff(prior, candidate)

	res := &CycleResult{
		CycleID:      s.nextCycleID(startedAt),
		StartedAt:    startedAt,
		FinishedAt:   time.Now(),
		FilesScanned: candidate.Len(),
		Diff:         diff,
		Warnings:     warnings,
	}
	s.logSummary(res)
	return res, nil
}

// RunCycle executes one full monitoring cycle. A missing baseline means first
// run: the scan is diffed against an empty baseline, so every discovered file
// surfaces as ADDED. The prior baseline is only replaced after the cycle's
// events have been enqueued; any scan failure leaves it untouched.
func (s *Service) RunCycle(ctx context.Context) (*CycleResult, error) {
	startedAt := time.Now()
	cycleID := s.nextCycleID(startedAt)

	var historyID int64
	if s.deps.History != nil {
		id, err := s.deps.History.RecordCycleStart(cycleID, startedAt.UTC())
		if err != nil {
			s.logger.Error().Err(err).Str("cycle_id", cycleID).Msg("Failed to record cycle start")
		} else {
			historyID = id
		}
	}

	res, err := s.runCycleInner(ctx, cycleID, startedAt)
	if s.deps.History != nil && historyID != 0 {
		s.recordCycleOutcome(historyID, res, err)
	}
	return res, err
}

func (s *Service) runCycleInner(ctx context.Context, cycleID string, startedAt time.Time) (*CycleResult, error) {
	prior, err := s.deps.BaselineStore.Load()
	if err != nil {
		if !errors.Is(err, models.ErrBaselineNotFound) {
			return nil, err
		}
		s.logger.Info().Msg("No baseline found, treating this cycle as first run")
		prior = models.EmptyBaseline()
	}

	s.setState(StateScanning)
	defer s.setState(StateIdle)

	candidate, warnings, err := s.scan(ctx, startedAt)
	if err != nil {
		return nil, err
	}

	// An empty scan with warnings against a non-empty baseline means the
	// roots themselves failed, not that every file vanished. Diffing would
	// mass-report REMOVED and then wipe the baseline.
	if candidate.Len() == 0 && prior.Len() > 0 && len(warnings) > 0 {
		return nil, fmt.Errorf("%w: no files scanned (%d warnings), prior baseline has %d records",
			models.ErrScanFailed, len(warnings), prior.Len())
	}

	s.setState(StateDiffing)
	diff := integrity.Diff(prior, candidate)

	s.setState(StateDispatching)
	events := BuildAlertEvents(diff, startedAt.UTC(), s.cfg.AlertsConfig.SeverityOverrides)
	enqueued := 0
	if s.deps.Alerts != nil {
		for _, ev := range events {
			if err := s.deps.Alerts.Enqueue(ev); err != nil {
				s.logger.Error().Err(err).Str("path", ev.Path).Msg("Failed to enqueue alert event")
				continue
			}
			enqueued++
		}
	}

	if s.deps.Archive != nil && len(events) > 0 {
		if err := s.deps.Archive.ArchiveCycle(cycleID, startedAt, events); err != nil {
			s.logger.Error().Err(err).Str("cycle_id", cycleID).Msg("Failed to archive cycle changes")
		}
	}

	res := &CycleResult{
		CycleID:        cycleID,
		StartedAt:      startedAt,
		FilesScanned:   candidate.Len(),
		Diff:           diff,
		Warnings:       warnings,
		EventsEnqueued: enqueued,
	}

	if err := s.deps.BaselineStore.Save(candidate); err != nil {
		res.FinishedAt = time.Now()
		return res, fmt.Errorf("failed to persist baseline: %w", err)
	}
	res.BaselinePersisted = true
	res.FinishedAt = time.Now()

	s.logSummary(res)
	return res, nil
}

func (s *Service) recordCycleOutcome(historyID int64, res *CycleResult, cycleErr error) {
	status := history.StatusCompleted
	summary := ""
	filesScanned, added, removed, modified, warnings := 0, 0, 0, 0, 0
	if cycleErr != nil {
		status = history.StatusFailed
		summary = cycleErr.Error()
	}
	if res != nil {
		filesScanned = res.FilesScanned
		warnings = len(res.Warnings)
		if res.Diff != nil {
			added = len(res.Diff.Added)
			removed = len(res.Diff.Removed)
			modified = len(res.Diff.Modified)
		}
	}

	err := s.deps.History.RecordCycleCompletion(
		historyID, time.Now().UTC(), status, filesScanned, added, removed, modified, warnings, summary)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to record cycle completion")
	}
}

func (s *Service) logSummary(res *CycleResult) {
	s.logger.Info().
		Str("cycle_id", res.CycleID).
		Int("files", res.FilesScanned).
		Int("added", len(res.Diff.Added)).
		Int("removed", len(res.Diff.Removed)).
		Int("modified", len(res.Diff.Modified)).
		Int("unchanged", res.Diff.Unchanged).
		Int("warnings", len(res.Warnings)).
		Dur("duration", res.FinishedAt.Sub(res.StartedAt)).
		Msg("Scan cycle completed")
}

// Run executes scan cycles until the context is cancelled or MaxCycles is
// reached. A failed cycle is logged and the loop continues with the prior
// baseline intact. Between cycles the loop waits for the interval tick, or
// for the watch trigger when enabled.
func (s *Service) Run(ctx context.Context) error {
	interval := s.cfg.MonitorConfig.ScanInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var trigger <-chan struct{}
	if s.cfg.MonitorConfig.EnableWatchTrigger {
		wt, err := NewWatchTrigger(s.cfg.DiscoveryConfig.Roots, s.cfg.MonitorConfig.WatchDebounce, s.logger)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to start watch trigger, falling back to interval-only scans")
		} else {
			wt.Start()
			defer wt.Stop()
			trigger = wt.C()
		}
	}

	s.logger.Info().
		Dur("interval", interval).
		Int("max_cycles", s.cfg.MonitorConfig.MaxCycles).
		Bool("watch_trigger", trigger != nil).
		Msg("Monitoring loop started")

	cycles := 0
	for {
		if _, err := s.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				s.setState(StateStopped)
				return nil
			}
			s.logger.Error().Err(err).Msg("Scan cycle failed, prior baseline retained")
		}

		cycles++
		if max := s.cfg.MonitorConfig.MaxCycles; max > 0 && cycles >= max {
			s.logger.Info().Int("cycles", cycles).Msg("Cycle limit reached, stopping")
			s.setState(StateStopped)
			return nil
		}

		select {
		case <-ctx.Done():
			s.setState(StateStopped)
			return nil
		case <-ticker.C:
		case <-trigger:
			s.logger.Info().Msg("Filesystem activity detected, starting early scan cycle")
		}
	}
}

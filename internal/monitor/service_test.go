package monitor

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-sec/aegisfim/internal/baseline"
	"github.com/aegis-sec/aegisfim/internal/config"
	"github.com/aegis-sec/aegisfim/internal/datastore"
	"github.com/aegis-sec/aegisfim/internal/discovery"
	"github.com/aegis-sec/aegisfim/internal/history"
	"github.com/aegis-sec/aegisfim/internal/models"
)

type captureSink struct {
	mu     sync.Mutex
	events []models.AlertEvent
}

func (c *captureSink) Enqueue(ev models.AlertEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *captureSink) byPath() map[string]models.AlertEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]models.AlertEvent, len(c.events))
	for _, ev := range c.events {
		out[ev.Path] = ev
	}
	return out
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *captureSink) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestService(t *testing.T, root string) (*Service, *captureSink) {
	t.Helper()

	cfg := config.NewDefaultGlobalConfig()
	cfg.DiscoveryConfig.Roots = []string{root}
	cfg.BaselineConfig.HashWorkers = 2
	cfg.StorageConfig.BaselinePath = filepath.Join(t.TempDir(), "baseline.json")

	disc, err := discovery.NewEngine(cfg.DiscoveryConfig, nil, zerolog.Nop())
	require.NoError(t, err)

	sink := &captureSink{}
	svc := NewService(cfg, Deps{
		Discoverer:    disc,
		Baseliner:     baseline.NewEngine(cfg.BaselineConfig, zerolog.Nop()),
		BaselineStore: datastore.NewBaselineStore(cfg.StorageConfig.BaselinePath, zerolog.Nop()),
		Alerts:        sink,
	}, zerolog.Nop())
	return svc, sink
}

func TestService_FirstRunEmitsAddedThenSettles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.conf"), "alpha")
	writeFile(t, filepath.Join(root, "b.conf"), "beta")

	svc, sink := newTestService(t, root)

	res, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.FilesScanned)
	assert.Len(t, res.Diff.Added, 2)
	assert.True(t, res.BaselinePersisted)
	assert.Equal(t, 2, res.EventsEnqueued)
	for _, ev := range sink.byPath() {
		assert.Equal(t, models.EventAdded, ev.Type)
		assert.Equal(t, models.SeverityMedium, ev.Severity)
	}

	// Nothing changed, so the next cycle is quiet.
	sink.reset()
	res, err = svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Diff.IsEmpty())
	assert.Equal(t, 2, res.Diff.Unchanged)
	assert.Zero(t, sink.count())
}

func TestService_DetectsContentPermissionAddAndRemove(t *testing.T) {
	root := t.TempDir()
	contentPath := filepath.Join(root, "content.cfg")
	permPath := filepath.Join(root, "perm.cfg")
	removedPath := filepath.Join(root, "removed.cfg")
	writeFile(t, contentPath, "v1")
	writeFile(t, permPath, "stable")
	writeFile(t, removedPath, "ephemeral")

	svc, sink := newTestService(t, root)
	_, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	sink.reset()

	writeFile(t, contentPath, "v2-tampered")
	require.NoError(t, os.Chmod(permPath, 0o600))
	writeFile(t, filepath.Join(root, "added.cfg"), "new file")
	require.NoError(t, os.Remove(removedPath))

	res, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Diff.TotalChanges())

	events := sink.byPath()
	require.Len(t, events, 4)

	content := events[contentPath]
	assert.Equal(t, models.EventModified, content.Type)
	assert.Equal(t, models.SeverityCritical, content.Severity)
	assert.Contains(t, content.ChangedFields, "content")

	perm := events[permPath]
	assert.Equal(t, models.EventModified, perm.Type)
	assert.Equal(t, models.SeverityHigh, perm.Severity)
	assert.Equal(t, []string{"permissions"}, perm.ChangedFields)

	assert.Equal(t, models.EventAdded, events[filepath.Join(root, "added.cfg")].Type)
	assert.Equal(t, models.EventRemoved, events[removedPath].Type)
}

func TestService_MtimeOnlyTouchIsNotAChange(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "touched.cfg")
	writeFile(t, path, "same content")

	svc, sink := newTestService(t, root)
	_, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	sink.reset()

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))

	res, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Diff.IsEmpty())
	assert.Zero(t, sink.count())
}

func TestService_CheckDoesNotPersistOrDispatch(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "watched.cfg")
	writeFile(t, path, "original")

	svc, sink := newTestService(t, root)
	_, err := svc.Init(context.Background(), false)
	require.NoError(t, err)

	writeFile(t, path, "tampered")

	res, err := svc.Check(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Diff.Modified, 1)
	assert.Zero(t, sink.count())

	// The persisted baseline still describes the original content.
	again, err := svc.Check(context.Background())
	require.NoError(t, err)
	assert.Len(t, again.Diff.Modified, 1)
}

func TestService_CheckRequiresBaseline(t *testing.T) {
	svc, _ := newTestService(t, t.TempDir())

	_, err := svc.Check(context.Background())
	assert.ErrorIs(t, err, models.ErrBaselineNotFound)
}

func TestService_InitRefusesOverwriteWithoutForce(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "f.cfg"), "data")

	svc, sink := newTestService(t, root)

	res, err := svc.Init(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesScanned)
	assert.Zero(t, sink.count())

	_, err = svc.Init(context.Background(), false)
	assert.ErrorIs(t, err, ErrBaselineExists)

	_, err = svc.Init(context.Background(), true)
	assert.NoError(t, err)
}

func TestService_FailedScanRetainsPriorBaseline(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.cfg"), "original")

	svc, sink := newTestService(t, root)
	_, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	sink.reset()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.RunCycle(cancelled)
	require.Error(t, err)

	// The baseline from the successful cycle is still in place.
	res, err := svc.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Diff.IsEmpty())
}

func TestService_EmptyScanWithWarningsDoesNotWipeBaseline(t *testing.T) {
	root := filepath.Join(t.TempDir(), "monitored")
	require.NoError(t, os.Mkdir(root, 0o755))
	writeFile(t, filepath.Join(root, "keep.cfg"), "original")

	svc, sink := newTestService(t, root)
	_, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	sink.reset()

	// The whole root disappearing is a scan failure, not a mass deletion.
	require.NoError(t, os.RemoveAll(root))
	_, err = svc.RunCycle(context.Background())
	assert.ErrorIs(t, err, models.ErrScanFailed)
	assert.Zero(t, sink.count())

	// Restore the root: the retained baseline still matches.
	require.NoError(t, os.Mkdir(root, 0o755))
	writeFile(t, filepath.Join(root, "keep.cfg"), "original")
	res, err := svc.Check(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Diff.Modified, 0)
	assert.Len(t, res.Diff.Removed, 0)
}

func TestService_RunStopsAfterMaxCycles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "f.cfg"), "data")

	svc, _ := newTestService(t, root)
	svc.cfg.MonitorConfig.MaxCycles = 2
	svc.cfg.MonitorConfig.ScanInterval = 10 * time.Millisecond

	require.NoError(t, svc.Run(context.Background()))
	assert.Equal(t, StateStopped, svc.State())
}

func TestService_RunCycleRecordsHistoryAndArchive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "f.cfg"), "data")

	svc, _ := newTestService(t, root)

	db, err := history.NewDB(filepath.Join(t.TempDir(), "scan_history.db"), zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()
	svc.deps.History = db

	archive, err := datastore.NewChangeArchive(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	svc.deps.Archive = archive

	res, err := svc.RunCycle(context.Background())
	require.NoError(t, err)

	cycles, err := db.Cycles()
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Equal(t, res.CycleID, cycles[0].CycleID)
	assert.Equal(t, history.StatusCompleted, cycles[0].Status)
	assert.Equal(t, 1, cycles[0].Added)

	records, err := archive.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, res.CycleID, records[0].CycleID)
	assert.Equal(t, string(models.EventAdded), records[0].EventType)
}

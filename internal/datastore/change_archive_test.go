package datastore

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-sec/aegisfim/internal/models"
)

func TestChangeArchive_RoundTrip(t *testing.T) {
	archive, err := NewChangeArchive(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	detectedAt := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	events := []models.AlertEvent{
		{
			Type:       models.EventAdded,
			Path:       "/etc/new.conf",
			Severity:   models.SeverityMedium,
			DetectedAt: detectedAt,
			New:        &models.FileRecord{Path: "/etc/new.conf", Digest: "n1"},
		},
		{
			Type:          models.EventModified,
			Path:          "/etc/app.conf",
			Severity:      models.SeverityCritical,
			DetectedAt:    detectedAt,
			Old:           &models.FileRecord{Path: "/etc/app.conf", Digest: "o1"},
			New:           &models.FileRecord{Path: "/etc/app.conf", Digest: "n2"},
			ChangedFields: []string{"content", "permissions"},
		},
	}

	require.NoError(t, archive.ArchiveCycle("cycle-1", detectedAt, events))

	records, err := archive.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "cycle-1", records[0].CycleID)
	assert.Equal(t, "ADDED", records[0].EventType)
	assert.Equal(t, "n1", records[0].NewDigest)
	assert.Empty(t, records[0].OldDigest)

	assert.Equal(t, "MODIFIED", records[1].EventType)
	assert.Equal(t, "o1", records[1].OldDigest)
	assert.Equal(t, "content,permissions", records[1].ChangedFields)
	assert.Equal(t, detectedAt.UnixMilli(), records[1].DetectedAt)
}

func TestChangeArchive_EmptyCycleWritesNothing(t *testing.T) {
	dir := t.TempDir()
	archive, err := NewChangeArchive(dir, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, archive.ArchiveCycle("cycle-1", time.Now(), nil))

	records, err := archive.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestChangeArchive_MultipleCyclesAccumulate(t *testing.T) {
	archive, err := NewChangeArchive(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		startedAt := base.Add(time.Duration(i) * time.Hour)
		ev := models.AlertEvent{
			Type:       models.EventRemoved,
			Path:       "/tmp/x",
			Severity:   models.SeverityMedium,
			DetectedAt: startedAt,
			Old:        &models.FileRecord{Path: "/tmp/x", Digest: "d"},
		}
		require.NoError(t, archive.ArchiveCycle("c", startedAt, []models.AlertEvent{ev}))
	}

	records, err := archive.ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

package datastore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"

	"github.com/aegis-sec/aegisfim/internal/models"
)

const (
	archiveFileFormat          = "%s_changes.parquet" // cycle start timestamp
	archiveTimestampLayout     = "2006-01-02_15-04-05.000"
	archiveFileGlobPattern     = "*_changes.parquet"
	changedFieldsJoinSeparator = ","
)

// ChangeRecord is one archived integrity change, flattened for parquet
// storage. Timestamps are stored as UnixMilli int64.
type ChangeRecord struct {
	CycleID       string `parquet:"cycle_id,zstd"`
	DetectedAt    int64  `parquet:"detected_at"`
	EventType     string `parquet:"event_type,zstd"`
	Path          string `parquet:"path,zstd"`
	Severity      string `parquet:"severity,zstd"`
	OldDigest     string `parquet:"old_digest,zstd,optional"`
	NewDigest     string `parquet:"new_digest,zstd,optional"`
	ChangedFields string `parquet:"changed_fields,zstd,optional"`
}

// ChangeArchive keeps an append-only history of detected changes, one parquet
// file per scan cycle. It exists purely for local operator forensics; the
// collector keeps its own audit trail.
type ChangeArchive struct {
	basePath string
	logger   zerolog.Logger
}

// NewChangeArchive creates the archive, ensuring the base directory exists.
func NewChangeArchive(basePath string, logger zerolog.Logger) (*ChangeArchive, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure archive directory '%s': %w", basePath, err)
	}
	return &ChangeArchive{
		basePath: basePath,
		logger:   logger.With().Str("component", "ChangeArchive").Logger(),
	}, nil
}

// ArchiveCycle writes all events of one cycle into a new parquet file. Cycles
// without changes produce no file.
func (a *ChangeArchive) ArchiveCycle(cycleID string, startedAt time.Time, events []models.AlertEvent) error {
	if len(events) == 0 {
		return nil
	}

	records := make([]ChangeRecord, 0, len(events))
	for _, ev := range events {
		records = append(records, toChangeRecord(cycleID, ev))
	}

	fileName := fmt.Sprintf(archiveFileFormat, startedAt.UTC().Format(archiveTimestampLayout))
	filePath := filepath.Join(a.basePath, fileName)

	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create archive file '%s': %w", filePath, err)
	}

	writer := parquet.NewWriter(file, parquet.SchemaOf(ChangeRecord{}), parquet.Compression(&parquet.Zstd))
	for _, rec := range records {
		if err := writer.Write(rec); err != nil {
			writer.Close()
			file.Close()
			return fmt.Errorf("failed to write archive record for '%s': %w", rec.Path, err)
		}
	}
	if err := writer.Close(); err != nil {
		file.Close()
		return fmt.Errorf("failed to close archive writer: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close archive file '%s': %w", filePath, err)
	}

	a.logger.Debug().Int("records", len(records)).Str("file", filePath).Msg("Cycle changes archived")
	return nil
}

// ReadAll returns every archived change record, newest cycle first within the
// file ordering, oldest row order preserved per file.
func (a *ChangeArchive) ReadAll() ([]ChangeRecord, error) {
	matches, err := filepath.Glob(filepath.Join(a.basePath, archiveFileGlobPattern))
	if err != nil {
		return nil, fmt.Errorf("failed to list archive files: %w", err)
	}
	sort.Strings(matches)

	var all []ChangeRecord
	for _, path := range matches {
		records, err := readChangeRecords(path)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

func readChangeRecords(filePath string) ([]ChangeRecord, error) {
	osFile, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive file '%s': %w", filePath, err)
	}
	defer osFile.Close()

	stat, err := osFile.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive file '%s': %w", filePath, err)
	}
	if stat.Size() == 0 {
		return nil, nil
	}

	pqFile, err := parquet.OpenFile(osFile, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file '%s': %w", filePath, err)
	}

	reader := parquet.NewReader(pqFile)
	var records []ChangeRecord
	for {
		var rec ChangeRecord
		if err := reader.Read(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read record from '%s': %w", filePath, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func toChangeRecord(cycleID string, ev models.AlertEvent) ChangeRecord {
	rec := ChangeRecord{
		CycleID:    cycleID,
		DetectedAt: ev.DetectedAt.UnixMilli(),
		EventType:  string(ev.Type),
		Path:       ev.Path,
		Severity:   string(ev.Severity),
	}
	if ev.Old != nil {
		rec.OldDigest = ev.Old.Digest
	}
	if ev.New != nil {
		rec.NewDigest = ev.New.Digest
	}
	if len(ev.ChangedFields) > 0 {
		rec.ChangedFields = strings.Join(ev.ChangedFields, changedFieldsJoinSeparator)
	}
	return rec
}

package datastore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aegis-sec/aegisfim/internal/models"
)

// BaselineStore persists the current baseline as a single JSON document.
// Saves are atomic (write to a temp file in the same directory, then rename)
// so a crash mid-write can never leave a half-written baseline behind, and
// the round trip serialize -> deserialize yields an identical baseline.
type BaselineStore struct {
	path   string
	logger zerolog.Logger
}

// NewBaselineStore creates a store rooted at path.
func NewBaselineStore(path string, logger zerolog.Logger) *BaselineStore {
	return &BaselineStore{
		path:   path,
		logger: logger.With().Str("component", "BaselineStore").Logger(),
	}
}

// Path returns the baseline file location.
func (s *BaselineStore) Path() string {
	return s.path
}

// Exists reports whether a persisted baseline is present.
func (s *BaselineStore) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}

// Load reads the persisted baseline. A missing file yields
// models.ErrBaselineNotFound; unparseable content or an unsupported schema
// version yields models.ErrBaselineCorrupt.
func (s *BaselineStore) Load() (*models.Baseline, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, models.ErrBaselineNotFound
		}
		return nil, fmt.Errorf("failed to read baseline '%s': %w", s.path, err)
	}

	var bl models.Baseline
	if err := json.Unmarshal(data, &bl); err != nil {
		return nil, fmt.Errorf("%w: failed to parse '%s': %v", models.ErrBaselineCorrupt, s.path, err)
	}
	if bl.SchemaVersion != models.BaselineSchemaVersion {
		return nil, fmt.Errorf("%w: schema version %d, expected %d",
			models.ErrBaselineCorrupt, bl.SchemaVersion, models.BaselineSchemaVersion)
	}
	if bl.Records == nil {
		bl.Records = make(map[string]models.FileRecord)
	}

	s.logger.Debug().Int("records", bl.Len()).Str("path", s.path).Msg("Baseline loaded")
	return &bl, nil
}

// Save atomically replaces the persisted baseline.
func (s *BaselineStore) Save(bl *models.Baseline) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create baseline directory '%s': %w", dir, err)
	}

	data, err := json.MarshalIndent(bl, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal baseline: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".baseline-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp baseline file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp baseline file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp baseline file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace baseline '%s': %w", s.path, err)
	}

	s.logger.Info().Int("records", bl.Len()).Str("path", s.path).Msg("Baseline persisted")
	return nil
}

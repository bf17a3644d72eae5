package models

import (
	"sort"
	"time"
)

// BaselineSchemaVersion is the current persisted baseline schema. Loading a
// baseline with a different version fails with ErrBaselineCorrupt.
const BaselineSchemaVersion = 1

// Baseline is an immutable snapshot of the monitored file set: a mapping from
// canonical absolute path to FileRecord. A new scan always produces a brand-new
// Baseline; persisted baselines are never mutated in place.
type Baseline struct {
	SchemaVersion int                   `json:"schema_version"`
	CreatedAt     time.Time             `json:"created_at"`
	Records       map[string]FileRecord `json:"records"`
}

// NewBaseline creates an empty baseline stamped with the current schema version.
func NewBaseline(createdAt time.Time) *Baseline {
	return &Baseline{
		SchemaVersion: BaselineSchemaVersion,
		CreatedAt:     createdAt.UTC(),
		Records:       make(map[string]FileRecord),
	}
}

// EmptyBaseline returns the degenerate baseline used for first-run diffs.
func EmptyBaseline() *Baseline {
	return NewBaseline(time.Unix(0, 0))
}

// Len returns the number of recorded files.
func (b *Baseline) Len() int {
	return len(b.Records)
}

// SortedPaths returns all recorded paths in lexicographic order. Downstream
// diffing and reporting rely on this total order being stable.
func (b *Baseline) SortedPaths() []string {
	paths := make([]string, 0, len(b.Records))
	for p := range b.Records {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

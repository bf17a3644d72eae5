package models

import "time"

// EventType classifies a reportable integrity change.
type EventType string

const (
	EventAdded    EventType = "ADDED"
	EventRemoved  EventType = "REMOVED"
	EventModified EventType = "MODIFIED"
)

// Severity levels for alert events, ordered low to critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ValidSeverity reports whether s is a known severity label.
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// AlertEvent is one reportable change, delivered to the collector as a single
// JSON payload. Old is absent for ADDED events, New for REMOVED events.
type AlertEvent struct {
	Type          EventType   `json:"event_type"`
	Path          string      `json:"path"`
	Severity      Severity    `json:"severity"`
	DetectedAt    time.Time   `json:"detected_at"`
	Old           *FileRecord `json:"old_record,omitempty"`
	New           *FileRecord `json:"new_record,omitempty"`
	ChangedFields []string    `json:"changed_fields,omitempty"`
}

// ScanWarning is a per-path, non-fatal failure surfaced alongside scan results
// so operators can distinguish tool malfunction from detected changes.
type ScanWarning struct {
	Kind string `json:"kind"` // "discovery" or "hash"
	Path string `json:"path"`
	Err  string `json:"error"`
}

const (
	WarningDiscovery = "discovery"
	WarningHash      = "hash"
)

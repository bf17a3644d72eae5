package monitor

import (
	"time"

	"github.com/aegis-sec/aegisfim/internal/models"
)

// Event classes used for severity policy and overrides.
const (
	classContent     = "content"
	classPermissions = "permissions"
	classAdded       = "added"
	classRemoved     = "removed"
)

// defaultSeverity maps an event class to its built-in severity. Content
// tampering on a monitored path is the strongest signal, permission drift the
// next, appearance or disappearance of files the weakest.
func defaultSeverity(class string) models.Severity {
	switch class {
	case classContent:
		return models.SeverityCritical
	case classPermissions:
		return models.SeverityHigh
	default:
		return models.SeverityMedium
	}
}

// resolveSeverity applies configured overrides on top of the defaults.
// Unknown or invalid override values are ignored.
func resolveSeverity(class string, overrides map[string]string) models.Severity {
	if raw, ok := overrides[class]; ok {
		sev := models.Severity(raw)
		if models.ValidSeverity(sev) {
			return sev
		}
	}
	return defaultSeverity(class)
}

// BuildAlertEvents converts a diff into alert events, one per changed path.
// A modified file with both content and permission changes is classed by its
// content change. The diff's path ordering is preserved.
func BuildAlertEvents(diff *models.DiffResult, detectedAt time.Time, overrides map[string]string) []models.AlertEvent {
	if diff == nil || diff.IsEmpty() {
		return nil
	}

	events := make([]models.AlertEvent, 0, diff.TotalChanges())

	for i := range diff.Added {
		rec := diff.Added[i]
		events = append(events, models.AlertEvent{
			Type:       models.EventAdded,
			Path:       rec.Path,
			Severity:   resolveSeverity(classAdded, overrides),
			DetectedAt: detectedAt,
			New:        &rec,
		})
	}

	for i := range diff.Removed {
		rec := diff.Removed[i]
		events = append(events, models.AlertEvent{
			Type:       models.EventRemoved,
			Path:       rec.Path,
			Severity:   resolveSeverity(classRemoved, overrides),
			DetectedAt: detectedAt,
			Old:        &rec,
		})
	}

	for i := range diff.Modified {
		entry := diff.Modified[i]
		class := classPermissions
		if entry.Flags.Has(models.ChangeContent) {
			class = classContent
		}
		events = append(events, models.AlertEvent{
			Type:          models.EventModified,
			Path:          entry.Path,
			Severity:      resolveSeverity(class, overrides),
			DetectedAt:    detectedAt,
			Old:           &entry.Old,
			New:           &entry.New,
			ChangedFields: entry.Flags.Fields(),
		})
	}

	return events
}

package dispatcher

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/aegis-sec/aegisfim/internal/models"
)

// Drop reasons recorded in the fallback log.
const (
	DropReasonRetriesExhausted = "retries_exhausted"
	DropReasonEvicted          = "evicted"
	DropReasonShutdown         = "shutdown"
	DropReasonNoCollector      = "no_collector"
)

// DroppedEvent is one fallback log line: the undeliverable event plus why and
// when it was dropped. Events are never discarded without such a trace.
type DroppedEvent struct {
	Reason    string            `json:"reason"`
	DroppedAt time.Time         `json:"dropped_at"`
	Event     models.AlertEvent `json:"event"`
}

// FallbackLog is the rotating local JSON-lines log receiving alert events
// that could not be delivered to the collector.
type FallbackLog struct {
	mu     sync.Mutex
	writer *lumberjack.Logger
	logger zerolog.Logger
}

// NewFallbackLog creates the fallback log at path, ensuring its directory.
func NewFallbackLog(path string, logger zerolog.Logger) (*FallbackLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create fallback log directory for '%s': %w", path, err)
	}
	return &FallbackLog{
		writer: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    50,
			MaxBackups: 5,
			LocalTime:  true,
		},
		logger: logger.With().Str("component", "FallbackLog").Logger(),
	}, nil
}

// Record writes one dropped event. Failures to write are logged but not
// propagated; dispatch must never become fatal to the scan loop.
func (f *FallbackLog) Record(ev models.AlertEvent, reason string) {
	line, err := json.Marshal(DroppedEvent{
		Reason:    reason,
		DroppedAt: time.Now().UTC(),
		Event:     ev,
	})
	if err != nil {
		f.logger.Error().Err(err).Str("path", ev.Path).Msg("Failed to marshal dropped event")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.writer.Write(append(line, '\n')); err != nil {
		f.logger.Error().Err(err).Str("path", ev.Path).Msg("Failed to write dropped event to fallback log")
		return
	}
	f.logger.Warn().Str("path", ev.Path).Str("reason", reason).Msg("Alert event dropped to fallback log")
}

// Close flushes and closes the underlying writer.
func (f *FallbackLog) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writer.Close()
}

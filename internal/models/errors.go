package models

import "errors"

// ErrBaselineNotFound is returned when no persisted baseline exists yet.
var ErrBaselineNotFound = errors.New("baseline not found")

// ErrBaselineCorrupt is returned when a persisted baseline cannot be parsed
// or carries an unsupported schema version. There is no reliable prior state
// to diff against; recovering requires re-running init.
var ErrBaselineCorrupt = errors.New("baseline corrupt")

// ErrScanFailed is returned when a scan produced no usable records at all
// (for example, every configured root was unreadable).
var ErrScanFailed = errors.New("scan failed")

// ErrQueueClosed is returned when enqueueing an alert after dispatcher shutdown.
var ErrQueueClosed = errors.New("alert queue closed")

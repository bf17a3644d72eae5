package config

const (
	// Discovery defaults
	DefaultFollowSymlinks = false

	// Baseline defaults
	DefaultDigestAlgorithm = "sha256"
	DefaultHashWorkers     = 4

	// Monitor defaults
	DefaultScanIntervalSeconds = 300
	DefaultMaxCycles           = 0 // 0 means run indefinitely
	DefaultWatchDebounceMillis = 2000

	// Alert dispatch defaults
	DefaultDispatchQueueSize     = 256
	DefaultDispatchTimeoutSecs   = 15
	DefaultDispatchMaxRetries    = 3
	DefaultDispatchBaseDelaySecs = 2
	DefaultDispatchMaxDelaySecs  = 60
	DefaultFallbackLogPath       = "data/alerts_fallback.log"

	// Storage defaults
	DefaultBaselinePath    = "data/baseline.json"
	DefaultHistoryDBPath   = "data/scan_history.db"
	DefaultArchiveBasePath = "data/archive"

	// Log defaults
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultLogFile       = ""
	DefaultMaxLogSizeMB  = 100
	DefaultMaxLogBackups = 3
)

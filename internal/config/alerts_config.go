package config

import "time"

// AlertsConfig defines alert delivery to the remote collector.
type AlertsConfig struct {
	// CollectorURL is the endpoint receiving one JSON payload per event.
	// Empty disables remote dispatch; events then go straight to the
	// fallback log.
	CollectorURL       string `json:"collector_url,omitempty" yaml:"collector_url,omitempty" validate:"omitempty,url"`
	RequestTimeoutSecs int    `json:"request_timeout_secs,omitempty" yaml:"request_timeout_secs,omitempty" validate:"omitempty,min=1,max=300"`
	// QueueSize bounds the dispatch queue. When full, the oldest undelivered
	// event is evicted to the fallback log so scanning never blocks.
	QueueSize int `json:"queue_size,omitempty" yaml:"queue_size,omitempty" validate:"omitempty,min=1"`
	// FallbackLogPath receives events that exhausted retries or were evicted.
	FallbackLogPath string      `json:"fallback_log_path,omitempty" yaml:"fallback_log_path,omitempty"`
	Retry           RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
	// SeverityOverrides remaps default severities per event class. Keys:
	// content, permissions, added, removed.
	SeverityOverrides map[string]string `json:"severity_overrides,omitempty" yaml:"severity_overrides,omitempty" validate:"omitempty,dive,keys,oneof=content permissions added removed,endkeys,severity"`
}

// RetryConfig defines exponential backoff for collector delivery attempts.
type RetryConfig struct {
	MaxRetries    int  `json:"max_retries,omitempty" yaml:"max_retries,omitempty" validate:"omitempty,min=0,max=10"`
	BaseDelaySecs int  `json:"base_delay_secs,omitempty" yaml:"base_delay_secs,omitempty" validate:"omitempty,min=1,max=300"`
	MaxDelaySecs  int  `json:"max_delay_secs,omitempty" yaml:"max_delay_secs,omitempty" validate:"omitempty,min=1,max=3600"`
	EnableJitter  bool `json:"enable_jitter" yaml:"enable_jitter"`
}

// BaseDelay returns the configured base delay as a duration.
func (rc RetryConfig) BaseDelay() time.Duration {
	return time.Duration(rc.BaseDelaySecs) * time.Second
}

// MaxDelay returns the configured delay cap as a duration.
func (rc RetryConfig) MaxDelay() time.Duration {
	return time.Duration(rc.MaxDelaySecs) * time.Second
}

// NewDefaultAlertsConfig creates default alert configuration.
func NewDefaultAlertsConfig() AlertsConfig {
	return AlertsConfig{
		CollectorURL:       "",
		RequestTimeoutSecs: DefaultDispatchTimeoutSecs,
		QueueSize:          DefaultDispatchQueueSize,
		FallbackLogPath:    DefaultFallbackLogPath,
		Retry: RetryConfig{
			MaxRetries:    DefaultDispatchMaxRetries,
			BaseDelaySecs: DefaultDispatchBaseDelaySecs,
			MaxDelaySecs:  DefaultDispatchMaxDelaySecs,
			EnableJitter:  true,
		},
		SeverityOverrides: map[string]string{},
	}
}

package config

// StorageConfig defines where local state lives.
type StorageConfig struct {
	// BaselinePath is the persisted baseline JSON document.
	BaselinePath string `json:"baseline_path,omitempty" yaml:"baseline_path,omitempty"`
	// HistoryDBPath is the sqlite scan-cycle history database.
	HistoryDBPath string `json:"history_db_path,omitempty" yaml:"history_db_path,omitempty"`
	// ArchiveBasePath holds the parquet change-history archive. Empty
	// disables archiving.
	ArchiveBasePath string `json:"archive_base_path,omitempty" yaml:"archive_base_path,omitempty"`
}

// NewDefaultStorageConfig creates default storage configuration.
func NewDefaultStorageConfig() StorageConfig {
	return StorageConfig{
		BaselinePath:    DefaultBaselinePath,
		HistoryDBPath:   DefaultHistoryDBPath,
		ArchiveBasePath: DefaultArchiveBasePath,
	}
}

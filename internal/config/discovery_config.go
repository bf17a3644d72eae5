package config

// DiscoveryConfig defines which parts of the filesystem are monitored.
// A path is selected iff it matches at least one include pattern (an empty
// include list means "all") and matches no exclude pattern; exclude always
// wins on conflict. Patterns are glob-style and matched against the full
// canonical path as well as the base name.
type DiscoveryConfig struct {
	Roots           []string `json:"roots" yaml:"roots" validate:"required,min=1,dive,required"`
	IncludePatterns []string `json:"include_patterns,omitempty" yaml:"include_patterns,omitempty"`
	ExcludePatterns []string `json:"exclude_patterns,omitempty" yaml:"exclude_patterns,omitempty"`
	FollowSymlinks  bool     `json:"follow_symlinks" yaml:"follow_symlinks"`
}

// NewDefaultDiscoveryConfig creates default discovery configuration.
// Roots intentionally stays empty; it is required and must come from the
// operator's config file.
func NewDefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		Roots:           []string{},
		IncludePatterns: []string{},
		ExcludePatterns: []string{},
		FollowSymlinks:  DefaultFollowSymlinks,
	}
}

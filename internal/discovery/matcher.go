package discovery

import (
	"fmt"
	"path/filepath"

	"github.com/gobwas/glob"
)

// ruleSet holds the compiled include/exclude patterns for path selection.
// Patterns are matched against both the full canonical path and the base
// name, so "*.conf" selects any conf file while "/etc/ssl/*" scopes a tree.
type ruleSet struct {
	includes []glob.Glob
	excludes []glob.Glob
}

func compileRuleSet(includePatterns, excludePatterns []string) (*ruleSet, error) {
	rs := &ruleSet{}

	for _, p := range includePatterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern '%s': %w", p, err)
		}
		rs.includes = append(rs.includes, g)
	}
	for _, p := range excludePatterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern '%s': %w", p, err)
		}
		rs.excludes = append(rs.excludes, g)
	}
	return rs, nil
}

// Selected reports whether path passes the include/exclude rules. A path is
// selected iff it matches at least one include pattern (an empty include list
// selects everything) and matches no exclude pattern; exclude wins.
func (rs *ruleSet) Selected(path string) bool {
	base := filepath.Base(path)

	for _, g := range rs.excludes {
		if g.Match(path) || g.Match(base) {
			return false
		}
	}

	if len(rs.includes) == 0 {
		return true
	}
	for _, g := range rs.includes {
		if g.Match(path) || g.Match(base) {
			return true
		}
	}
	return false
}

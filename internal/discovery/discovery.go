package discovery

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aegis-sec/aegisfim/internal/config"
	"github.com/aegis-sec/aegisfim/internal/models"
)

// Engine resolves the discovery configuration into a deterministic, ordered,
// deduplicated set of absolute file paths. It performs read-only traversal
// only; per-path failures are recorded as warnings and never abort the walk.
type Engine struct {
	cfg    config.DiscoveryConfig
	rules  *ruleSet
	logger zerolog.Logger

	// selfPaths are the agent's own state files (baseline, history DB,
	// fallback log). They are always excluded to avoid circular hashing
	// when they live under a monitored root.
	selfPaths map[string]struct{}
}

// Result is the outcome of one discovery pass.
type Result struct {
	Paths    []string
	Warnings []models.ScanWarning
}

// NewEngine creates a discovery engine, compiling the configured patterns.
func NewEngine(cfg config.DiscoveryConfig, selfPaths []string, logger zerolog.Logger) (*Engine, error) {
	rules, err := compileRuleSet(cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, err
	}

	self := make(map[string]struct{}, len(selfPaths))
	for _, p := range selfPaths {
		if abs, err := filepath.Abs(p); err == nil {
			self[abs] = struct{}{}
		}
	}

	return &Engine{
		cfg:       cfg,
		rules:     rules,
		logger:    logger.With().Str("component", "DiscoveryEngine").Logger(),
		selfPaths: self,
	}, nil
}

// Discover walks every configured root and returns the selected file paths in
// lexicographic order. Output order is independent of filesystem enumeration
// order so downstream diffing is deterministic.
func (e *Engine) Discover(ctx context.Context) (*Result, error) {
	seen := make(map[string]struct{})
	result := &Result{}

	for _, root := range e.cfg.Roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		absRoot, err := filepath.Abs(root)
		if err != nil {
			result.addWarning(root, err)
			continue
		}
		if err := e.walkRoot(ctx, absRoot, seen, result); err != nil {
			return nil, err
		}
	}

	sort.Strings(result.Paths)
	e.logger.Debug().
		Int("paths", len(result.Paths)).
		Int("warnings", len(result.Warnings)).
		Msg("Discovery pass complete")
	return result, nil
}

func (e *Engine) walkRoot(ctx context.Context, root string, seen map[string]struct{}, result *Result) error {
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// Permission denied, vanished mid-walk: record and continue.
			result.addWarning(path, err)
			e.logger.Warn().Err(err).Str("path", path).Msg("Skipping inaccessible path")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			if !e.cfg.FollowSymlinks {
				return nil
			}
			info, statErr := os.Stat(path)
			if statErr != nil {
				result.addWarning(path, statErr)
				e.logger.Warn().Err(statErr).Str("path", path).Msg("Skipping broken symlink")
				return nil
			}
			if !info.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			// Sockets, devices, pipes are not monitorable content.
			return nil
		}

		if _, isSelf := e.selfPaths[path]; isSelf {
			return nil
		}
		if !e.rules.Selected(path) {
			return nil
		}
		if _, dup := seen[path]; dup {
			return nil
		}
		seen[path] = struct{}{}
		result.Paths = append(result.Paths, path)
		return nil
	})

	if walkErr != nil {
		if walkErr == ctx.Err() {
			return walkErr
		}
		// Root itself unusable: warning, not fatal. The scan continues with
		// the remaining roots.
		result.addWarning(root, walkErr)
		e.logger.Warn().Err(walkErr).Str("root", root).Msg("Failed to walk root")
	}
	return nil
}

func (r *Result) addWarning(path string, err error) {
	r.Warnings = append(r.Warnings, models.ScanWarning{
		Kind: models.WarningDiscovery,
		Path: path,
		Err:  err.Error(),
	})
}

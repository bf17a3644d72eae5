package discovery

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-sec/aegisfim/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestEngine(t *testing.T, cfg config.DiscoveryConfig) *Engine {
	t.Helper()
	engine, err := NewEngine(cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	return engine
}

func TestDiscover_AllFilesWhenNoPatterns(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "a")
	b := writeFile(t, dir, "sub/b.txt", "b")

	engine := newTestEngine(t, config.DiscoveryConfig{Roots: []string{dir}})
	result, err := engine.Discover(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{a, b}, result.Paths)
	assert.Empty(t, result.Warnings)
}

func TestDiscover_OrderIsStable(t *testing.T) {
	dir := t.TempDir()
	var want []string
	for _, name := range []string{"z.txt", "a.txt", "m/k.txt", "m/a.txt"} {
		want = append(want, writeFile(t, dir, name, name))
	}
	sort.Strings(want)

	engine := newTestEngine(t, config.DiscoveryConfig{Roots: []string{dir}})
	for i := 0; i < 3; i++ {
		result, err := engine.Discover(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, result.Paths)
	}
}

func TestDiscover_ExcludeWinsOverInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep.conf", "x")
	writeFile(t, dir, "drop.conf", "x")

	engine := newTestEngine(t, config.DiscoveryConfig{
		Roots:           []string{dir},
		IncludePatterns: []string{"*.conf"},
		ExcludePatterns: []string{"drop.conf"},
	})
	result, err := engine.Discover(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Paths, 1)
	assert.Equal(t, "keep.conf", filepath.Base(result.Paths[0]))
}

func TestDiscover_IncludeFiltersOthersOut(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.log", "x")
	conf := writeFile(t, dir, "app.conf", "x")

	engine := newTestEngine(t, config.DiscoveryConfig{
		Roots:           []string{dir},
		IncludePatterns: []string{"*.conf"},
	})
	result, err := engine.Discover(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{conf}, result.Paths)
}

func TestDiscover_MissingRootIsWarningNotFatal(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "a")

	engine := newTestEngine(t, config.DiscoveryConfig{
		Roots: []string{filepath.Join(dir, "no-such-dir"), dir},
	})
	result, err := engine.Discover(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{a}, result.Paths)
	require.NotEmpty(t, result.Warnings)
	assert.Equal(t, "discovery", result.Warnings[0].Kind)
}

func TestDiscover_DeduplicatesOverlappingRoots(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "a")

	engine := newTestEngine(t, config.DiscoveryConfig{Roots: []string{dir, dir}})
	result, err := engine.Discover(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{a}, result.Paths)
}

func TestDiscover_SymlinksSkippedByDefault(t *testing.T) {
	dir := t.TempDir()
	target := writeFile(t, dir, "target.txt", "t")
	link := filepath.Join(dir, "link.txt")
	require.NoError(t, os.Symlink(target, link))

	engine := newTestEngine(t, config.DiscoveryConfig{Roots: []string{dir}})
	result, err := engine.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{target}, result.Paths)

	followEngine := newTestEngine(t, config.DiscoveryConfig{Roots: []string{dir}, FollowSymlinks: true})
	followResult, err := followEngine.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{link, target}, followResult.Paths)
}

func TestDiscover_BrokenSymlinkIsWarningWhenFollowing(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "broken.txt")
	require.NoError(t, os.Symlink(filepath.Join(dir, "gone"), link))

	engine := newTestEngine(t, config.DiscoveryConfig{Roots: []string{dir}, FollowSymlinks: true})
	result, err := engine.Discover(context.Background())
	require.NoError(t, err)

	assert.Empty(t, result.Paths)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, link, result.Warnings[0].Path)
}

func TestDiscover_SelfPathsAlwaysExcluded(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "a")
	baseline := writeFile(t, dir, "baseline.json", "{}")

	engine, err := NewEngine(config.DiscoveryConfig{Roots: []string{dir}}, []string{baseline}, zerolog.Nop())
	require.NoError(t, err)

	result, err := engine.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{a}, result.Paths)
}

func TestDiscover_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := newTestEngine(t, config.DiscoveryConfig{Roots: []string{dir}})
	_, err := engine.Discover(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

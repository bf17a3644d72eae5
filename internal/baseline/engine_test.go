package baseline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-sec/aegisfim/internal/config"
	"github.com/aegis-sec/aegisfim/internal/models"
)

func newTestEngine(workers int) *Engine {
	return NewEngine(config.BaselineConfig{
		Algorithm:   models.AlgorithmSHA256,
		HashWorkers: workers,
	}, zerolog.Nop())
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuild_RecordsAllPaths(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "hello")
	b := writeFile(t, dir, "b.txt", "world")

	bl, warnings, err := newTestEngine(2).Build(context.Background(), []string{a, b})
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, 2, bl.Len())

	rec := bl.Records[a]
	assert.Equal(t, a, rec.Path)
	assert.Equal(t, int64(5), rec.Size)
	assert.Equal(t, models.AlgorithmSHA256, rec.Algorithm)
	// sha256("hello")
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", rec.Digest)
	assert.Equal(t, models.BaselineSchemaVersion, bl.SchemaVersion)
}

func TestBuild_Reproducible(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "a.txt", "alpha"),
		writeFile(t, dir, "b.txt", "beta"),
		writeFile(t, dir, "c.txt", "gamma"),
	}

	first, _, err := newTestEngine(3).Build(context.Background(), paths)
	require.NoError(t, err)
	second, _, err := newTestEngine(1).Build(context.Background(), paths)
	require.NoError(t, err)

	require.Equal(t, first.Len(), second.Len())
	for path, rec := range first.Records {
		other := second.Records[path]
		assert.Equal(t, rec.Digest, other.Digest, path)
		assert.Equal(t, rec.Size, other.Size, path)
		assert.Equal(t, rec.Mode, other.Mode, path)
	}
}

func TestBuild_VanishedFileBecomesWarning(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "kept")
	gone := filepath.Join(dir, "gone.txt")

	bl, warnings, err := newTestEngine(2).Build(context.Background(), []string{a, gone})
	require.NoError(t, err)

	assert.Equal(t, 1, bl.Len())
	_, hasGone := bl.Records[gone]
	assert.False(t, hasGone)
	require.Len(t, warnings, 1)
	assert.Equal(t, models.WarningHash, warnings[0].Kind)
	assert.Equal(t, gone, warnings[0].Path)
}

func TestBuild_SHA512Records(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "content")

	engine := NewEngine(config.BaselineConfig{
		Algorithm:   models.AlgorithmSHA512,
		HashWorkers: 1,
	}, zerolog.Nop())

	bl, _, err := engine.Build(context.Background(), []string{a})
	require.NoError(t, err)
	rec := bl.Records[a]
	assert.Equal(t, models.AlgorithmSHA512, rec.Algorithm)
	assert.Len(t, rec.Digest, 128)
}

func TestBuild_UnknownAlgorithmWarnsPerPath(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "x")

	engine := NewEngine(config.BaselineConfig{Algorithm: "md5", HashWorkers: 1}, zerolog.Nop())
	bl, warnings, err := engine.Build(context.Background(), []string{a})
	require.NoError(t, err)
	assert.Equal(t, 0, bl.Len())
	assert.Len(t, warnings, 1)
}

func TestBuild_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newTestEngine(2).Build(ctx, []string{a})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuild_EmptyPathList(t *testing.T) {
	bl, warnings, err := newTestEngine(2).Build(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, bl.Len())
	assert.Empty(t, warnings)
}

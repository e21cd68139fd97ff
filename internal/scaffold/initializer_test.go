package scaffold

import (
	"context"
	"os"
	"testing"

	"github.com/dyluth/anchor/internal/config"
	"github.com/dyluth/anchor/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp switches to an isolated temp dir for the duration of the test.
func chdirTemp(t *testing.T) {
	t.Helper()
	tmpDir := t.TempDir()
	originalDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmpDir))
	t.Cleanup(func() { os.Chdir(originalDir) })
}

func TestInitialize_CreatesFiles(t *testing.T) {
	chdirTemp(t)

	require.NoError(t, Initialize(false))

	assert.FileExists(t, "anchor.yml")
	assert.FileExists(t, "track.yml")
}

func TestInitialize_GeneratedConfigLoads(t *testing.T) {
	chdirTemp(t)

	require.NoError(t, Initialize(false))

	cfg, err := config.Load("anchor.yml")
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.Instance)
	assert.InDelta(t, 37.5665, cfg.DefaultCenter().Lat, 1e-9)
	assert.InDelta(t, 126.9780, cfg.DefaultCenter().Lng, 1e-9)
	require.NotNil(t, cfg.Source)
	assert.Equal(t, "track.yml", cfg.Source.ReplayFile)
}

func TestInitialize_GeneratedTrackLoads(t *testing.T) {
	chdirTemp(t)

	require.NoError(t, Initialize(false))

	src, err := source.LoadReplaySource("track.yml")
	require.NoError(t, err)

	sample, err := src.PullOnce(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 37.5665, sample.Latitude, 1e-9)
}

func TestInitialize_ForceOverwrites(t *testing.T) {
	chdirTemp(t)

	require.NoError(t, os.WriteFile("anchor.yml", []byte("stale: true\n"), 0644))

	require.NoError(t, Initialize(true))

	content, err := os.ReadFile("anchor.yml")
	require.NoError(t, err)
	assert.Contains(t, string(content), "default_center")
	assert.NotContains(t, string(content), "stale")
}

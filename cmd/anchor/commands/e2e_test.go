//go:build integration

package commands

import (
	"fmt"
	"testing"
	"time"

	"github.com/dyluth/anchor/internal/docker"
	"github.com/dyluth/anchor/internal/instance"
	"github.com/dyluth/anchor/internal/testutil"
	"github.com/dyluth/anchor/pkg/bridge"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// TestE2E_UpPublishDown validates the CLI pipeline end to end:
// anchor up → publish → status state → anchor down.
func TestE2E_UpPublishDown(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}

	env := testutil.SetupE2EEnvironment(t)

	// Point the command tree at the test's anchor.yml
	originalConfigPath := configPath
	configPath = env.ConfigPath
	t.Cleanup(func() { configPath = originalConfigPath })

	// Clean up the instance at the end
	t.Cleanup(func() {
		downInstanceName = env.InstanceName
		runDown(&cobra.Command{}, []string{})
		downInstanceName = ""
	})

	t.Run("Step 1: anchor up creates network and Redis", func(t *testing.T) {
		err := runUp(&cobra.Command{}, []string{})
		require.NoError(t, err)

		env.WaitForContainer(docker.RedisContainerName(env.InstanceName))

		redisPort, err := instance.GetInstanceRedisPort(env.Ctx, env.DockerClient, env.InstanceName)
		require.NoError(t, err)
		require.GreaterOrEqual(t, redisPort, 6379)
		require.LessOrEqual(t, redisPort, 6478)

		t.Logf("✓ Instance created: %s (Redis port: %d)", env.InstanceName, redisPort)
	})

	t.Run("Step 2: published sample is retained", func(t *testing.T) {
		env.InitializeBridgeClient()

		sample := bridge.LocationSample{
			Latitude:    55.7558,
			Longitude:   37.6173,
			TimestampMs: time.Now().UnixMilli(),
		}
		require.NoError(t, env.Bridge.PublishSample(env.Ctx, bridge.MessageTypeInit, sample))

		retained := env.WaitForRetainedSample()
		require.InDelta(t, sample.Latitude, retained.Latitude, 1e-9)
		require.InDelta(t, sample.Longitude, retained.Longitude, 1e-9)
	})

	t.Run("Step 3: anchor status reads the instance", func(t *testing.T) {
		// Point status at the discovered Redis port.
		t.Setenv("ANCHOR_REDIS_ADDR", fmt.Sprintf("localhost:%d", env.RedisPort))

		err := runStatus(&cobra.Command{}, []string{})
		require.NoError(t, err)
	})

	t.Run("Step 4: anchor down removes everything", func(t *testing.T) {
		downInstanceName = env.InstanceName
		defer func() { downInstanceName = "" }()

		err := runDown(&cobra.Command{}, []string{})
		require.NoError(t, err)

		// Name is free again once containers are gone
		collision, err := instance.CheckNameCollision(env.Ctx, env.DockerClient, env.InstanceName)
		require.NoError(t, err)
		require.False(t, collision, "containers should be removed")
	})
}

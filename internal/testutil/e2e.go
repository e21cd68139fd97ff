//go:build integration

package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/dyluth/anchor/internal/instance"
	"github.com/dyluth/anchor/pkg/bridge"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// E2EEnvironment represents an isolated E2E test environment
type E2EEnvironment struct {
	T            *testing.T
	TmpDir       string
	InstanceName string
	ConfigPath   string
	DockerClient *client.Client
	Bridge       *bridge.Client
	RedisPort    int
	Ctx          context.Context
}

// SetupE2EEnvironment creates an isolated E2E test environment with a temp
// directory, an anchor.yml, and a unique instance name.
func SetupE2EEnvironment(t *testing.T) *E2EEnvironment {
	ctx := context.Background()

	// Isolated temporary directory (auto-cleaned up)
	tmpDir := t.TempDir()

	// Unique instance name with microseconds for uniqueness
	instanceName := fmt.Sprintf("test-e2e-%s", time.Now().Format("20060102-150405-000000"))

	configPath := filepath.Join(tmpDir, "anchor.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(DefaultAnchorYML(instanceName)), 0644),
		"Failed to write anchor.yml")

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	require.NoError(t, err, "Failed to create Docker client")

	env := &E2EEnvironment{
		T:            t,
		TmpDir:       tmpDir,
		InstanceName: instanceName,
		ConfigPath:   configPath,
		DockerClient: cli,
		Ctx:          ctx,
	}

	t.Cleanup(func() {
		if env.Bridge != nil {
			env.Bridge.Close()
		}
		if env.DockerClient != nil {
			env.DockerClient.Close()
		}
	})

	return env
}

// InitializeBridgeClient discovers the instance's Redis port from Docker
// labels and connects a bridge client to it.
func (env *E2EEnvironment) InitializeBridgeClient() {
	var err error
	env.RedisPort, err = instance.GetInstanceRedisPort(env.Ctx, env.DockerClient, env.InstanceName)
	require.NoError(env.T, err, "Failed to get Redis port")

	redisOpts := &redis.Options{
		Addr: fmt.Sprintf("localhost:%d", env.RedisPort),
	}

	env.Bridge, err = bridge.NewClient(redisOpts, env.InstanceName)
	require.NoError(env.T, err, "Failed to create bridge client")
}

// WaitForContainer waits for a container to be running (up to 30 seconds)
func (env *E2EEnvironment) WaitForContainer(fullName string) {
	for i := 0; i < 30; i++ {
		containers, err := env.DockerClient.ContainerList(env.Ctx, container.ListOptions{All: true})
		if err == nil {
			for _, c := range containers {
				for _, name := range c.Names {
					if name == "/"+fullName && c.State == "running" {
						env.T.Logf("✓ Container %s is running", fullName)
						return
					}
				}
			}
		}
		time.Sleep(1 * time.Second)
	}

	require.Fail(env.T, fmt.Sprintf("Container %s did not start within 30 seconds", fullName))
}

// WaitForRetainedSample polls the retained latest sample until it appears
// (up to 30 seconds).
func (env *E2EEnvironment) WaitForRetainedSample() *bridge.LocationSample {
	require.NotNil(env.T, env.Bridge, "Bridge client not initialized - call InitializeBridgeClient first")

	for i := 0; i < 30; i++ {
		sample, err := env.Bridge.GetLatestSample(env.Ctx)
		if err == nil {
			env.T.Logf("✓ Retained sample: (%.6f, %.6f)", sample.Latitude, sample.Longitude)
			return sample
		}
		if !bridge.IsNotFound(err) {
			require.NoError(env.T, err, "Failed to read retained sample")
		}
		time.Sleep(1 * time.Second)
	}

	require.Fail(env.T, "Retained sample did not appear within 30 seconds")
	return nil
}

// DefaultAnchorYML returns a minimal anchor.yml for the given instance
func DefaultAnchorYML(instanceName string) string {
	return fmt.Sprintf(`version: "1.0"
instance: %s
map:
  default_center:
    lat: 37.5665
    lng: 126.9780
`, instanceName)
}

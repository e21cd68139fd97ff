// Package instance resolves per-environment connection details shared by
// the anchor CLI and the warden daemon.
package instance

import (
	"fmt"
	"os"
)

// ResolveRedisAddr picks the Redis address for this run.
// Precedence: explicit config value, ANCHOR_REDIS_ADDR, then a host-inferred
// default on port 6379.
func ResolveRedisAddr(configAddr string) string {
	if configAddr != "" {
		return configAddr
	}
	if env := os.Getenv("ANCHOR_REDIS_ADDR"); env != "" {
		return env
	}
	return fmt.Sprintf("%s:6379", redisHost())
}

// redisHost returns the appropriate Redis hostname for the current
// environment. In Docker-in-Docker scenarios it returns
// "host.docker.internal" to access the host's published ports; otherwise
// "localhost".
func redisHost() string {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return "host.docker.internal"
	}
	return "localhost"
}

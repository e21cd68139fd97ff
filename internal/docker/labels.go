package docker

import (
	"fmt"

	"github.com/google/uuid"
)

// Label keys used for Anchor resources
const (
	LabelProject       = "anchor.project"
	LabelInstanceName  = "anchor.instance.name"
	LabelInstanceRunID = "anchor.instance.run_id"
	LabelComponent     = "anchor.component"
	LabelRedisPort     = "anchor.redis.port"
)

// BuildLabels creates the standard label set for all Anchor resources.
// All parameters are required except component (which is resource-specific).
func BuildLabels(instanceName, runID, component string) map[string]string {
	labels := map[string]string{
		LabelProject:       "true",
		LabelInstanceName:  instanceName,
		LabelInstanceRunID: runID,
	}

	if component != "" {
		labels[LabelComponent] = component
	}

	return labels
}

// GenerateRunID creates a new UUID for an instance run.
// Each invocation of `anchor up` gets a unique run ID.
func GenerateRunID() string {
	return uuid.New().String()
}

// Resource naming conventions for Anchor components

// NetworkName returns the Docker network name for an instance
func NetworkName(instanceName string) string {
	return fmt.Sprintf("anchor-network-%s", instanceName)
}

// RedisContainerName returns the Redis container name for an instance
func RedisContainerName(instanceName string) string {
	return fmt.Sprintf("anchor-redis-%s", instanceName)
}

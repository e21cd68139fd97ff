package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dyluth/anchor/internal/guard"
	"github.com/dyluth/anchor/internal/printer"
	"github.com/dyluth/anchor/pkg/bridge"
	"github.com/spf13/cobra"
)

var statusWardenURL string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show instance status",
	Long: `Show the current state of the instance.

Reports the retained latest sample and its age, and (when a warden is
reachable) the guard's health: whether the map interceptor is installed
and whether the guard has a sample to defend with.

Examples:
  # Status of the configured instance
  anchor status

  # Also query a specific warden health endpoint
  anchor status --warden http://localhost:8080`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusWardenURL, "warden", "", "warden base URL to query for guard health (e.g. http://localhost:8080)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, client, err := loadConfigAndClient()
	if err != nil {
		return reportSetupError(err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		return reportRedisError(err)
	}

	printer.Info("Instance: %s\n", cfg.Instance)

	latest, err := client.GetLatestSample(ctx)
	switch {
	case bridge.IsNotFound(err):
		printer.Warning("No retained sample yet — nothing published.\n")
	case err != nil:
		return fmt.Errorf("failed to read retained sample: %w", err)
	default:
		age := time.Since(time.UnixMilli(latest.TimestampMs)).Round(time.Second)
		printer.Success("Latest sample: (%.6f, %.6f), %v old\n", latest.Latitude, latest.Longitude, age)
		if latest.Heading != nil {
			printer.Printf("  heading:  %.0f°\n", *latest.Heading)
		}
		if latest.Accuracy != nil {
			printer.Printf("  accuracy: %.0f m\n", *latest.Accuracy)
		}
	}

	if statusWardenURL == "" {
		return nil
	}

	health, err := fetchWardenHealth(ctx, statusWardenURL)
	if err != nil {
		printer.Warning("Warden unreachable at %s: %v\n", statusWardenURL, err)
		return nil
	}

	if health.Status == "healthy" {
		printer.Success("Warden: %s\n", health.Status)
	} else {
		printer.Warning("Warden: %s (%s)\n", health.Status, health.Error)
	}
	printer.Printf("  interceptor installed: %t\n", health.InterceptorInstalled)
	printer.Printf("  has sample:            %t\n", health.HasSample)
	if health.HasSample {
		printer.Printf("  sample age:            %v\n", (time.Duration(health.SampleAgeMs) * time.Millisecond).Round(time.Second))
	}
	return nil
}

func fetchWardenHealth(ctx context.Context, baseURL string) (*guard.HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// The warden answers 200 when healthy and 503 when degraded, with a
	// JSON body either way. Anything else is not a warden health endpoint.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL)
	}

	var health guard.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	return &health, nil
}

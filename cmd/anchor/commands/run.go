package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/anchor/internal/printer"
	"github.com/dyluth/anchor/internal/source"
	"github.com/dyluth/anchor/pkg/bridge"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the native-side location publisher",
	Long: `Run the native-side location publisher.

Opens the configured sample source, pushes one immediate INIT sample so a
freshly loaded surface does not wait for the first cadence tick, then
publishes every subscription sample as an UPDATE until interrupted.

Prerequisites:
  • anchor.yml with a source section (see 'source.replay_file')
  • Reachable Redis (config 'redis.addr' or ANCHOR_REDIS_ADDR)

Examples:
  # Publish the configured replay track
  anchor run

  # Use an alternate config
  anchor run --config deploy/anchor.yml`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, client, err := loadConfigAndClient()
	if err != nil {
		return reportSetupError(err)
	}
	defer client.Close()

	if cfg.Source == nil || cfg.Source.ReplayFile == "" {
		return printer.Error(
			"no sample source configured",
			"The run command needs a source section in anchor.yml.",
			[]string{"Add:\n  source:\n    replay_file: track.yml\n    cadence_ms: 5000"},
		)
	}

	src, err := source.LoadReplaySource(cfg.Source.ReplayFile)
	if err != nil {
		return printer.Error(
			"failed to load sample source",
			err.Error(),
			[]string{"Check 'source.replay_file' in anchor.yml"},
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := client.Ping(ctx); err != nil {
		return reportRedisError(err)
	}

	// First sample must not wait for the subscription cadence.
	first, err := src.PullOnce(ctx)
	if err != nil {
		return reportSourceError(err)
	}
	if err := client.PublishSample(ctx, bridge.MessageTypeInit, *first); err != nil {
		return fmt.Errorf("failed to publish initial sample: %w", err)
	}
	printer.Success("Published initial fix (%v, %v)\n", first.Latitude, first.Longitude)

	var minDistance float64
	if cfg.Source.MinDistanceMeters != nil {
		minDistance = *cfg.Source.MinDistanceMeters
	}

	stream, err := src.Subscribe(ctx, source.Options{
		Cadence:           cfg.Cadence(),
		MinDistanceMeters: minDistance,
	})
	if err != nil {
		return reportSourceError(err)
	}
	defer stream.Close()

	printer.Info("Publishing samples for instance '%s' (cadence %v). Ctrl+C to stop.\n", cfg.Instance, cfg.Cadence())

	for {
		select {
		case <-ctx.Done():
			printer.Info("\nStopped.\n")
			return nil

		case sample, ok := <-stream.Samples():
			if !ok {
				return nil
			}
			if err := client.PublishSample(ctx, bridge.MessageTypeUpdate, *sample); err != nil {
				printer.Warning("publish failed: %v\n", err)
				continue
			}
			printer.Printf("%s  (%.6f, %.6f)\n",
				time.UnixMilli(sample.TimestampMs).Format("15:04:05"),
				sample.Latitude, sample.Longitude)

		case err, ok := <-stream.Errors():
			if !ok {
				return nil
			}
			printer.Warning("source error: %v\n", err)
		}
	}
}

func reportSetupError(err error) error {
	return printer.Error(
		"failed to load configuration",
		err.Error(),
		[]string{"Create an anchor.yml, or point --config at one"},
	)
}

func reportRedisError(err error) error {
	return printer.Error(
		"Redis not reachable",
		err.Error(),
		[]string{
			"Start a local Redis (docker run -p 6379:6379 redis:7-alpine)",
			"Set 'redis.addr' in anchor.yml or the ANCHOR_REDIS_ADDR environment variable",
		},
	)
}

func reportSourceError(err error) error {
	switch {
	case errors.Is(err, source.ErrPermissionDenied):
		return printer.Error(
			"location permission denied",
			"The sample source refused to produce a fix.",
			[]string{"Grant location access to the host application"},
		)
	case errors.Is(err, source.ErrServiceUnavailable):
		return printer.Error(
			"location service unavailable",
			"The sample source cannot currently produce a fix.",
			[]string{"Check the device's location service, or the replay track file"},
		)
	default:
		return fmt.Errorf("sample source failed: %w", err)
	}
}

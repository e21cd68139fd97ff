package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/anchor/internal/printer"
	"github.com/dyluth/anchor/internal/source"
	"github.com/dyluth/anchor/pkg/bridge"
	"github.com/spf13/cobra"
)

var (
	sendLat     float64
	sendLng     float64
	sendHeading float64
	sendPull    bool
	sendUpdate  bool
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Publish a single location sample",
	Long: `Publish a single location sample to the map surface.

By default the sample is published as an INIT message, which re-seeds the
surface even if it reloaded and lost its listener: the latest sample is
also retained in Redis so a late subscriber recovers it on start.

Examples:
  # Send an explicit coordinate
  anchor send --lat 37.5665 --lng 126.9780

  # Send a coordinate with a heading, as an UPDATE
  anchor send --lat 37.5665 --lng 126.9780 --heading 90 --update

  # Pull one fix from the configured source and send it
  anchor send --pull`,
	RunE: runSend,
}

func init() {
	sendCmd.Flags().Float64Var(&sendLat, "lat", 0, "latitude in degrees")
	sendCmd.Flags().Float64Var(&sendLng, "lng", 0, "longitude in degrees")
	sendCmd.Flags().Float64Var(&sendHeading, "heading", -1, "heading in degrees (omitted if negative)")
	sendCmd.Flags().BoolVar(&sendPull, "pull", false, "pull one fix from the configured source instead of --lat/--lng")
	sendCmd.Flags().BoolVar(&sendUpdate, "update", false, "publish as UPDATE instead of INIT")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
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

	var sample *bridge.LocationSample
	switch {
	case sendPull:
		if cfg.Source == nil || cfg.Source.ReplayFile == "" {
			return printer.Error(
				"no sample source configured",
				"--pull needs a source section in anchor.yml.",
				[]string{"Add a 'source.replay_file' entry, or pass --lat/--lng instead"},
			)
		}
		src, err := source.LoadReplaySource(cfg.Source.ReplayFile)
		if err != nil {
			return printer.Error("failed to load sample source", err.Error(), nil)
		}
		sample, err = src.PullOnce(ctx)
		if err != nil {
			return reportSourceError(err)
		}

	case cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng"):
		sample = &bridge.LocationSample{
			Latitude:    sendLat,
			Longitude:   sendLng,
			TimestampMs: time.Now().UnixMilli(),
		}
		if sendHeading >= 0 {
			h := sendHeading
			sample.Heading = &h
		}

	default:
		return printer.Error(
			"no coordinate given",
			"send needs either --lat and --lng, or --pull.",
			[]string{"anchor send --lat 37.5665 --lng 126.9780"},
		)
	}

	msgType := bridge.MessageTypeInit
	if sendUpdate {
		msgType = bridge.MessageTypeUpdate
	}

	if err := client.PublishSample(ctx, msgType, *sample); err != nil {
		if bridge.IsInvalid(err) {
			return printer.Error(
				"invalid coordinate",
				err.Error(),
				[]string{"Latitude must be in [-90, 90], longitude in [-180, 180]"},
			)
		}
		return fmt.Errorf("failed to publish sample: %w", err)
	}

	printer.Success("Published %s (%.6f, %.6f) to instance '%s'\n", msgType, sample.Latitude, sample.Longitude, cfg.Instance)
	return nil
}

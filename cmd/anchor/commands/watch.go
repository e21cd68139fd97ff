package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/anchor/internal/filter"
	"github.com/dyluth/anchor/internal/printer"
	"github.com/dyluth/anchor/internal/timespec"
	"github.com/dyluth/anchor/pkg/bridge"
	"github.com/spf13/cobra"
)

var (
	watchOutput string
	watchSince  string
	watchUntil  string
	watchType   string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream published location samples",
	Long: `Stream location samples as they are published to the instance.

Shows the retained latest sample first (if any), then every INIT and
UPDATE envelope as it arrives on the sample channel. Useful for checking
that the native side is publishing and what the guard will receive.

Examples:
  # Human-readable stream
  anchor watch

  # One JSON envelope per line, for piping
  anchor watch --output json

  # Only UPDATE envelopes with samples from the last half hour
  anchor watch --type UPDATE --since 30m`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "text", "output format: text or json")
	watchCmd.Flags().StringVar(&watchSince, "since", "", "only show samples newer than this (duration like '30m' or RFC3339)")
	watchCmd.Flags().StringVar(&watchUntil, "until", "", "only show samples older than this (duration like '5m' or RFC3339)")
	watchCmd.Flags().StringVar(&watchType, "type", "", "only show envelopes of this type (INIT or UPDATE)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchOutput != "text" && watchOutput != "json" {
		return printer.Error(
			"unknown output format",
			fmt.Sprintf("--output must be 'text' or 'json', got %q.", watchOutput),
			nil,
		)
	}

	criteria, err := buildWatchCriteria()
	if err != nil {
		return printer.Error("invalid filter", err.Error(), nil)
	}

	cfg, client, err := loadConfigAndClient()
	if err != nil {
		return reportSetupError(err)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := client.Ping(ctx); err != nil {
		return reportRedisError(err)
	}

	// Show the retained sample so the stream has context before the
	// first live envelope lands. Skipped when filters are active: the
	// retained hash does not record its envelope type.
	if !criteria.HasFilters() {
		if latest, err := client.GetLatestSample(ctx); err == nil {
			printRetained(latest)
		} else if !bridge.IsNotFound(err) {
			printer.Warning("could not read retained sample: %v\n", err)
		}
	}

	sub, err := client.SubscribeSampleEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to sample events: %w", err)
	}
	defer sub.Close()

	if watchOutput == "text" {
		printer.Info("Watching instance '%s'. Ctrl+C to stop.\n", cfg.Instance)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case env, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if !criteria.Matches(env) {
				continue
			}
			printEnvelope(env)

		case err, ok := <-sub.Errors():
			if !ok {
				return nil
			}
			printer.Warning("subscription error: %v\n", err)
		}
	}
}

func buildWatchCriteria() (*filter.Criteria, error) {
	since, until, err := timespec.ParseRange(watchSince, watchUntil)
	if err != nil {
		return nil, err
	}

	criteria := &filter.Criteria{
		SinceTimestampMs: since,
		UntilTimestampMs: until,
	}

	switch watchType {
	case "":
	case string(bridge.MessageTypeInit), string(bridge.MessageTypeUpdate):
		criteria.Type = bridge.MessageType(watchType)
	default:
		return nil, fmt.Errorf("invalid --type %q (use INIT or UPDATE)", watchType)
	}

	return criteria, nil
}

func printRetained(sample *bridge.LocationSample) {
	if watchOutput == "json" {
		out, err := json.Marshal(sample)
		if err != nil {
			return
		}
		fmt.Println(string(out))
		return
	}
	printer.Info("Retained: (%.6f, %.6f) at %s\n",
		sample.Latitude, sample.Longitude,
		time.UnixMilli(sample.TimestampMs).Format(time.RFC3339))
}

func printEnvelope(env *bridge.Envelope) {
	if watchOutput == "json" {
		out, err := json.Marshal(env)
		if err != nil {
			return
		}
		fmt.Println(string(out))
		return
	}
	printer.Printf("%s  %-6s  (%.6f, %.6f)",
		time.UnixMilli(env.Sample.TimestampMs).Format("15:04:05"),
		env.Type, env.Sample.Latitude, env.Sample.Longitude)
	if env.Sample.Heading != nil {
		printer.Printf("  heading %.0f°", *env.Sample.Heading)
	}
	printer.Printf("\n")
}

package commands

import (
	"fmt"

	"github.com/dyluth/anchor/internal/config"
	"github.com/dyluth/anchor/internal/instance"
	"github.com/dyluth/anchor/pkg/bridge"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string

	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "anchor",
	Short: "Anchor - Location bridge for embedded map surfaces",
	Long: `Anchor pushes authoritative device-location samples into an embedded,
third-party-controlled map surface and defends the map's displayed centre
against the surface's own unwanted resets.

The anchor CLI is the native side of the bridge: it publishes samples over
Redis for the warden (the embedded-side guard) to consume.`,
	Version: version,
	// If no subcommand is specified, show help rather than silently
	// succeeding on unknown flags.
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Silence Cobra's default error and usage printing.
	// We print formatted colored errors directly in the printer package.
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "anchor.yml", "Path to anchor.yml")
}

// loadConfig loads and validates anchor.yml from the --config path.
func loadConfig() (*config.AnchorConfig, error) {
	return config.Load(configPath)
}

// loadConfigAndClient loads anchor.yml and opens a bridge client against the
// resolved Redis address. Caller owns closing the client.
func loadConfigAndClient() (*config.AnchorConfig, *bridge.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	var redisAddr string
	if cfg.Redis != nil {
		redisAddr = cfg.Redis.Addr
	}

	client, err := bridge.NewClient(&redis.Options{Addr: instance.ResolveRedisAddr(redisAddr)}, cfg.Instance)
	if err != nil {
		return nil, nil, err
	}

	return cfg, client, nil
}

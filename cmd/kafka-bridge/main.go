// Package main runs the Kafka to HTTP bridge.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/joeydtaylor/kafka-bridge/pkg/config"
	"github.com/joeydtaylor/kafka-bridge/pkg/serverfx"
)

var rootCmd = &cobra.Command{
	Use:   "kafka-bridge",
	Short: "Serve the latest Kafka messages per topic over HTTP",
	Long: `kafka-bridge consumes one or more Kafka topics and serves the latest
content of each at GET /<topic>, ready to be scraped as a Prometheus target.

With --most-recent-count 0 (default) every request polls the topic once and
returns a placeholder when nothing new arrived. With N > 0 a background loop
per topic keeps the last N messages and every request returns them joined by
newlines. In that mode --influx-write-url also forwards each message,
converted to line protocol, to a time-series write endpoint.

Settings are read from --config (TOML), then BRIDGE_* environment variables,
then flags.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString(config.FlagConfig)
		cfg, err := config.Load(path, cmd.Flags())
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		app := fx.New(serverfx.Module(cfg))
		if err := app.Err(); err != nil {
			return err
		}
		app.Run()
		return nil
	},
}

func init() {
	config.RegisterFlags(rootCmd.Flags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

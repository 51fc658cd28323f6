package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sightline-ai/sightline/internal/dotenv"
	"github.com/sightline-ai/sightline/pkg/sightline"
)

var (
	cfgFile      string
	verboseLevel int
)

var rootCmd = &cobra.Command{
	Use:   "sightline",
	Short: "Real-time duplex audio/video streaming client",
	Long: `Sightline streams microphone audio (and optionally video frames)
to a remote service over a websocket and plays the returned audio
gaplessly, with immediate truncation when the remote signals an
interruption.

Configuration is read from flags, SIGHTLINE_* environment variables,
an optional config file, and a local .env file, in that order.`,
	Version:       sightline.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(verboseLevel)

		if err := dotenv.Load(); err != nil {
			return err
		}

		viper.SetEnvPrefix("SIGHTLINE")
		viper.AutomaticEnv()
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}

		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("read config %q: %w", cfgFile, err)
			}
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml)")
	rootCmd.PersistentFlags().IntVarP(&verboseLevel, "verbose", "v", 0, "verbose level: 0=info, 1=debug")

	rootCmd.AddCommand(runCmd)
}

func setupLogging(level int) {
	slogLevel := slog.LevelInfo
	if level >= 1 {
		slogLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(handler))
}

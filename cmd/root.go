// Package cmd implements the claudebridge command line.
package cmd

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/claudebridge/config"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	envFiles   []string
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "claudebridge",
		Short: "Bridge Slack conversations to the Claude CLI",
		Long: "claudebridge relays Slack direct messages and mentions to a local Claude CLI " +
			"and posts its progress, tool use and final answer back to the channel.",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (.toml, .yaml or .yml)")
	rootCmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "dotenv files to load before reading the environment")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newAskCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

// loadConfig loads dotenv files, then the layered config.
func (o *globalOptions) loadConfig() (config.Config, error) {
	if err := config.LoadDotEnv(o.envFiles...); err != nil {
		return config.Config{}, err
	}
	return config.Load(o.configPath)
}

// newLogger builds the process logger from the config's level and format.
func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

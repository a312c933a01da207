package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/slack-go/slack"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/claudebridge/claudecontract"
	"github.com/randalmurphal/claudebridge/config"
	"github.com/randalmurphal/claudebridge/session"
	"github.com/randalmurphal/claudebridge/slackbot"
	"github.com/randalmurphal/claudebridge/slackmcp"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect to Slack and relay messages to Claude",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServe(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, opts.configPath, watch, newLogger(cfg, cmd.ErrOrStderr()))
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", true, "reload the allowlist when the config file changes")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config, configPath string, watch bool, logger *slog.Logger) error {
	slog.SetDefault(logger)

	if cfg.LockFile != "" {
		lock := flock.New(cfg.LockFile)
		locked, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("lock %s: %w", cfg.LockFile, err)
		}
		if !locked {
			return fmt.Errorf("another claudebridge holds %s", cfg.LockFile)
		}
		defer func() { _ = lock.Unlock() }()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	claudecontract.CheckVersion(ctx, cfg.ClaudePath, logger)

	api, err := slackbot.NewAPI(slackbot.APIConfig{
		BotToken: cfg.SlackBotToken,
		AppToken: cfg.SlackAppToken,
		Debug:    cfg.SlackDebug,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	poster := newPoster(cfg, api, logger)
	manager := session.NewManager(
		slackbot.NewNotifier(poster, logger),
		append(cfg.SessionOptions(), session.WithLogger(logger))...,
	)
	defer func() {
		n := manager.CloseAllSessions()
		_ = manager.Close()
		logger.Info("shut down", "closed_sessions", n)
	}()

	bot := slackbot.New(api, manager, poster, cfg.AllowedIDs, slackbot.WithLogger(logger))

	var wg conc.WaitGroup
	defer wg.Wait()
	defer stop()

	if watch && configPath != "" {
		wg.Go(func() {
			err := config.Watch(ctx, configPath, logger, func(c config.Config) {
				if len(c.AllowedIDs) == 0 {
					logger.Warn("reloaded config has no allowed_ids, keeping the current allowlist")
					return
				}
				bot.SetAllowed(c.AllowedIDs)
				logger.Info("allowlist reloaded", "count", len(c.AllowedIDs))
			})
			if err != nil {
				logger.Warn("config watch stopped", "error", err)
			}
		})
	}

	logger.Info("claudebridge running",
		"poster", cfg.Poster,
		"workspace", cfg.WorkspaceDir,
		"allowed", len(cfg.AllowedIDs),
	)
	return bot.Run(ctx)
}

func newPoster(cfg config.Config, api *slack.Client, logger *slog.Logger) slackbot.Poster {
	if cfg.Poster == config.PosterMCP {
		return slackmcp.New(cfg.MCPURL, cfg.MCPAPIKey, slackmcp.WithLogger(logger))
	}
	return slackbot.NewSlackPoster(api)
}

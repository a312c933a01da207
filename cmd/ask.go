package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/randalmurphal/claudebridge/session"
)

// errClaude marks a run that ended with an error event.
var errClaude = errors.New("claude reported an error")

func newAskCmd(opts *globalOptions) *cobra.Command {
	var (
		key   string
		fresh bool
	)

	cmd := &cobra.Command{
		Use:   "ask [flags] [--] message...",
		Short: "Send one message to Claude and print every event",
		Long: "ask runs a single message through the same session manager the Slack bridge uses " +
			"and prints each event until the run finishes.\n\n" +
			"Flags must come before the message. Everything from the first word that is not a " +
			"known flag, or everything after --, is sent as the message, so a leading reset token " +
			"works as it does in Slack:\n\n" +
			"  claudebridge ask -clear explain main.go\n" +
			"  claudebridge ask --fresh explain main.go",
		Example:            "  claudebridge ask --key C123 -- -c summarize the diff",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			fs.AddFlagSet(cmd.InheritedFlags())
			flagArgs, words := splitAskArgs(fs, args)
			if err := fs.Parse(flagArgs); err != nil {
				return err
			}
			if help, _ := fs.GetBool("help"); help {
				return cmd.Help()
			}
			if len(words) == 0 {
				return errors.New("ask: message required")
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg, cmd.ErrOrStderr())

			if fresh {
				token := session.DefaultResetTokens[0]
				if len(cfg.ResetTokens) > 0 {
					token = cfg.ResetTokens[0]
				}
				words = append([]string{token}, words...)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runAsk(ctx, cmd.OutOrStdout(), key, strings.Join(words, " "),
				append(cfg.SessionOptions(), session.WithLogger(logger))...)
		},
	}

	cmd.Flags().StringVar(&key, "key", "cli", "session key; runs with the same key share a process slot")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "start a fresh conversation instead of continuing the last one")
	return cmd
}

// splitAskArgs separates leading flags known to fs from the message words.
// The message starts at the first argument that is not a known flag, or
// after "--", and runs to the end.
func splitAskArgs(fs *pflag.FlagSet, args []string) (flagArgs, words []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return flagArgs, args[i+1:]
		}

		var f *pflag.Flag
		switch {
		case strings.HasPrefix(arg, "--"):
			name, _, _ := strings.Cut(arg[2:], "=")
			f = fs.Lookup(name)
		case len(arg) == 2 && arg[0] == '-':
			f = fs.ShorthandLookup(arg[1:])
		}
		if f == nil {
			return flagArgs, args[i:]
		}

		flagArgs = append(flagArgs, arg)
		if f.NoOptDefVal == "" && !strings.Contains(arg, "=") && i+1 < len(args) {
			i++
			flagArgs = append(flagArgs, args[i])
		}
	}
	return flagArgs, nil
}

// runAsk sends text and prints events to w until a terminal event arrives or
// ctx is cancelled.
func runAsk(ctx context.Context, w io.Writer, key, text string, opts ...session.Option) error {
	done := make(chan error, 1)
	finish := func(err error) {
		select {
		case done <- err:
		default:
		}
	}

	manager := session.NewManager(session.HandlerFuncs{
		Waiting: func(_, text string) { fmt.Fprintf(w, "[waiting] %s\n", text) },
		Stream:  func(_, text string) { fmt.Fprintf(w, "[stream] %s\n", text) },
		ToolUse: func(_, _, details string) { fmt.Fprintf(w, "[tool_use] %s\n", details) },
		Message: func(_ string, msg session.Message) {
			fmt.Fprintf(w, "[message:%s] %s\n", msg.Type, msg.Content)
			finish(nil)
		},
		Error: func(_, message string) {
			fmt.Fprintf(w, "[error] %s\n", message)
			finish(fmt.Errorf("%w: %s", errClaude, message))
		},
	}, opts...)
	defer manager.Close()

	if err := manager.SendMessage(key, text); err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		manager.CloseAllSessions()
		return ctx.Err()
	}
}

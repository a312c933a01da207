package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/claudebridge/claudecontract"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "claudebridge %s (tested with Claude CLI %s)\n",
				Version, claudecontract.TestedCLIVersion)
			return err
		},
	}
}

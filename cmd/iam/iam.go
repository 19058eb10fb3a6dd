// Package iam holds the out-of-band admin commands.
package iam

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/hrconsole/cmd/cmdutil"
	"github.com/terraconstructs/hrconsole/internal/config"
)

// CLIActor is recorded as assigned_by for grants made from the command line.
const CLIActor = "cli"

var emailFlag string

// IamCmd is the parent command for iam operations
var IamCmd = &cobra.Command{
	Use:   "iam",
	Short: "Out-of-band admin bootstrap",
	Long: `Commands for granting the first admin without going through the console:
a direct grant against the database, or a one-time setup token the principal
redeems after signing in.`,
}

func init() {
	IamCmd.PersistentFlags().StringVar(&emailFlag, "email", "", "Email of the principal")
	_ = IamCmd.MarkPersistentFlagRequired("email")

	IamCmd.AddCommand(bootstrapCmd, setupTokenCmd)
}

func openBundle() (*cmdutil.Bundle, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cmdutil.NewBundle(cfg, cmdutil.Options{})
}

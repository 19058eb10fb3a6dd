package iam

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var ttlFlag time.Duration

var setupTokenCmd = &cobra.Command{
	Use:   "setup-token",
	Short: "Issue a one-time admin setup token",
	Long: `Issue a signed one-time token that grants admin to the principal with the
given email when redeemed at POST /api/admin/setup-token. Requires
HRAPI_AUTH_SETUP_TOKEN_SECRET.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bundle, err := openBundle()
		if err != nil {
			return err
		}
		defer bundle.Close()

		if !bundle.SetupTokens.Enabled() {
			return fmt.Errorf("setup tokens are disabled: set HRAPI_AUTH_SETUP_TOKEN_SECRET")
		}
		token, err := bundle.SetupTokens.Issue(emailFlag, ttlFlag)
		if err != nil {
			return fmt.Errorf("failed to issue setup token: %w", err)
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Token for %s, valid for %s:\n", emailFlag, ttlFlag)
		fmt.Println(token)
		return nil
	},
}

func init() {
	setupTokenCmd.Flags().DurationVar(&ttlFlag, "ttl", time.Hour, "Token lifetime")
}

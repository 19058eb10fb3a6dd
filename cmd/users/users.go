// Package users manages principals directly from the server host.
package users

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/hrconsole/cmd/cmdutil"
	"github.com/terraconstructs/hrconsole/internal/config"
)

// UsersCmd is the parent command for user management operations
var UsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage console principals",
	Long:  `Commands for managing console principals directly against the database.`,
}

func init() {
	createCmd.Flags().StringVar(&emailFlag, "email", "", "Email address of the user")
	createCmd.Flags().StringVar(&nameFlag, "name", "", "Display name of the user")
	createCmd.Flags().StringVar(&passwordFlag, "password", "", "Password for the user (use --stdin to avoid shell history)")
	createCmd.Flags().StringVar(&roleFlag, "role", "user", "Role to assign: admin, user or blocked")
	createCmd.Flags().BoolVar(&stdinFlag, "stdin", false, "Read password from stdin instead of --password flag")
	_ = createCmd.MarkFlagRequired("email")

	UsersCmd.AddCommand(createCmd, listCmd)
}

func openBundle() (*cmdutil.Bundle, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cmdutil.NewBundle(cfg, cmdutil.Options{})
}

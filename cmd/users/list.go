package users

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List principals with their effective roles",
	RunE: func(cmd *cobra.Command, args []string) error {
		bundle, err := openBundle()
		if err != nil {
			return err
		}
		defer bundle.Close()

		ctx := context.Background()
		users, err := bundle.IAM.ListAllUsers(ctx)
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE\tCREATED_AT\tLAST_SIGN_IN")
		for _, u := range users {
			role, err := bundle.Roles.EffectiveRole(ctx, u.ID)
			if err != nil {
				return fmt.Errorf("failed to read role for %s: %w", u.ID, err)
			}
			lastLogin := "-"
			if u.LastLoginAt != nil {
				lastLogin = u.LastLoginAt.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				u.ID, u.Email, u.Name, role, u.CreatedAt.Format(time.RFC3339), lastLogin)
		}
		return w.Flush()
	},
}

package iam

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/hrconsole/internal/apperr"
	"github.com/terraconstructs/hrconsole/internal/db/models"
)

// bootstrapCmd grants admin to an existing principal directly in the store.
var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Grant admin to an existing principal",
	Long: `Grant the admin role to the principal with the given email.

The principal must already exist (sign up first, or use "users create").
Any existing role, including blocked, is overwritten.

Example:
  hrapi iam bootstrap --email root@example.com
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		bundle, err := openBundle()
		if err != nil {
			return err
		}
		defer bundle.Close()

		user, err := bundle.IAM.GetUserByEmail(ctx, emailFlag)
		if apperr.KindOf(err) == apperr.KindNotFound {
			return fmt.Errorf("no principal with email %q; sign up first", emailFlag)
		}
		if err != nil {
			return fmt.Errorf("failed to look up principal: %w", err)
		}

		if err := bundle.Roles.GrantRole(ctx, user.ID, models.RoleAdmin, CLIActor); err != nil {
			return fmt.Errorf("failed to grant admin: %w", err)
		}

		fmt.Println("✓ Bootstrap complete")
		fmt.Printf("  Principal: %s (%s)\n", user.Email, user.ID)
		fmt.Printf("  Role:      %s\n", models.RoleAdmin)
		return nil
	},
}

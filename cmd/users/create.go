package users

import (
	"bufio"
	"context"
	"fmt"
	"net/mail"
	"os"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/hrconsole/internal/db/models"
)

const cliActor = "cli"

var (
	emailFlag    string
	nameFlag     string
	passwordFlag string
	roleFlag     string
	stdinFlag    bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a principal with a role",
	RunE: func(cmd *cobra.Command, args []string) error {
		role := models.RoleTag(roleFlag)
		if !role.Valid() {
			return fmt.Errorf("invalid role %q: valid roles are %v", roleFlag, models.RoleTags)
		}

		if _, err := mail.ParseAddress(emailFlag); err != nil {
			return fmt.Errorf("invalid email format: %w", err)
		}

		password := passwordFlag
		if stdinFlag {
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Fprint(cmd.ErrOrStderr(), "Enter password: ")
			if scanner.Scan() {
				password = scanner.Text()
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
		}
		if password == "" {
			return fmt.Errorf("password is required (use --password or --stdin)")
		}

		bundle, err := openBundle()
		if err != nil {
			return err
		}
		defer bundle.Close()

		ctx := context.Background()
		user, err := bundle.IAM.CreateUser(ctx, emailFlag, password, nameFlag)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		if err := bundle.Roles.GrantRole(ctx, user.ID, role, cliActor); err != nil {
			return fmt.Errorf("user %s created but role grant failed: %w", user.ID, err)
		}

		fmt.Println("User created successfully!")
		fmt.Println("----------------------------------------")
		fmt.Printf("User ID: %s\n", user.ID)
		fmt.Printf("Email:   %s\n", user.Email)
		if user.Name != "" {
			fmt.Printf("Name:    %s\n", user.Name)
		}
		fmt.Printf("Role:    %s\n", role)
		fmt.Println("----------------------------------------")
		return nil
	},
}

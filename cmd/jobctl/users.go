package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jobmarket/internal/session"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts",
}

var promoteCmd = &cobra.Command{
	Use:   "promote <email>",
	Short: "Make a registered user an admin",
	Long:  "Admins cannot register themselves. The new role applies to the user's next request; existing tokens keep working.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := systemContext(cmd)
		p, _, err := application.Profiles.GetCredentials(ctx, args[0])
		if err != nil {
			return fmt.Errorf("find %s: %w", args[0], err)
		}
		if err := application.Profiles.SetRole(ctx, p.ID, session.RoleAdmin); err != nil {
			return err
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("✓ %s (%s) is now an admin", p.Email, p.ID)))
		return nil
	},
}

func init() {
	usersCmd.AddCommand(promoteCmd)
}

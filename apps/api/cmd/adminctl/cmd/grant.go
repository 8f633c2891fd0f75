package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"rentdash/apps/api/internal/models"
	"rentdash/apps/api/internal/repository"
	"rentdash/apps/api/internal/service"
)

var grantRole string

var grantCmd = &cobra.Command{
	Use:   "grant <user-id> <email>",
	Short: "Add a user to the admin registry",
	Args:  cobra.ExactArgs(2),
	RunE:  runGrant,
}

var setRoleCmd = &cobra.Command{
	Use:   "set-role <user-id> <admin|super_admin>",
	Short: "Change an administrator's role",
	Args:  cobra.ExactArgs(2),
	RunE:  runSetRole,
}

var revokeCmd = &cobra.Command{
	Use:   "revoke <user-id>",
	Short: "Remove a user from the admin registry",
	Args:  cobra.ExactArgs(1),
	RunE:  runRevoke,
}

func init() {
	rootCmd.AddCommand(grantCmd, setRoleCmd, revokeCmd)
	grantCmd.Flags().StringVar(&grantRole, "role", string(models.AdminRoleAdmin), "Role to grant (admin or super_admin)")
}

func runGrant(cmd *cobra.Command, args []string) error {
	admin, err := be.admins.Grant(cmd.Context(), service.GrantInput{
		UserID: args[0],
		Email:  args[1],
		Role:   grantRole,
	})
	if errors.Is(err, repository.ErrAdminExists) {
		return fmt.Errorf("%s is already registered; use set-role to change it", args[0])
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "granted %s to %s (%s)\n", admin.Role, admin.UserID, admin.Email)
	return nil
}

func runSetRole(cmd *cobra.Command, args []string) error {
	admin, err := be.admins.SetRole(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", admin.UserID, admin.Role)
	return nil
}

func runRevoke(cmd *cobra.Command, args []string) error {
	if err := be.admins.Revoke(cmd.Context(), args[0], ""); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
	return nil
}

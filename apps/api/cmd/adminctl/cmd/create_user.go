package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rentdash/apps/api/internal/ids"
	"rentdash/apps/api/internal/models"
	"rentdash/apps/api/internal/security"
	"rentdash/apps/api/internal/service"
)

var (
	createUserName  string
	createUserAdmin bool
)

var createUserCmd = &cobra.Command{
	Use:   "create-user <email> <password>",
	Short: "Create an account in the local credential store",
	Long: `Creates a user for the "local" auth provider. With --admin the new user
is also granted the admin role.`,
	Args: cobra.ExactArgs(2),
	RunE: runCreateUser,
}

func init() {
	rootCmd.AddCommand(createUserCmd)
	createUserCmd.Flags().StringVar(&createUserName, "name", "", "Display name")
	createUserCmd.Flags().BoolVar(&createUserAdmin, "admin", false, "Also grant the admin role")
}

func runCreateUser(cmd *cobra.Command, args []string) error {
	email := strings.ToLower(strings.TrimSpace(args[0]))
	if len(args[1]) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	hash, err := security.NewPasswordHasher(security.DefaultArgon2Params).Hash(args[1])
	if err != nil {
		return err
	}

	user := models.User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  createUserName,
		Status:       models.UserStatusActive,
	}
	if err := be.users.Create(cmd.Context(), user); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "created user %s (%s)\n", user.ID, user.Email)

	if !createUserAdmin {
		return nil
	}
	if _, err := be.admins.Grant(cmd.Context(), service.GrantInput{UserID: user.ID, Email: email}); err != nil {
		return fmt.Errorf("grant admin: %w", err)
	}
	fmt.Fprintf(out, "granted admin to %s\n", user.ID)
	return nil
}

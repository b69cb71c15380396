package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/schoolhub/internal/models"
	"github.com/telhawk-systems/schoolhub/internal/validators"
)

func newUserCommand(load configLoader) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage administrator accounts",
	}

	var username, email, pass, role, schoolID string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an administrator and print its long token",
		Long: `Create an administrator directly in the configured database. This is how
the first superadmin is bootstrapped; later accounts are normally created
through the API.

Examples:
  schoolhub user create --username root --email root@example.com --password secret
  schoolhub user create --username ada --email ada@example.com --password secret \
      --role schooladmin --school 0190c1f6-...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := models.Role(role)
			if msg := validators.UserCreate(username, email, pass, r, schoolID); msg != "" {
				return errors.New(msg)
			}
			if r != models.RoleSchooladmin {
				schoolID = ""
			}

			cfg, err := load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newStoreApp(ctx, cfg, newLogger(cmd.ErrOrStderr(), cfg))
			if err != nil {
				return err
			}
			defer a.close()

			hash, err := a.hasher().Hash(pass)
			if err != nil {
				return err
			}
			user := &models.User{Username: username, Email: email, PasswordHash: hash, Role: r, SchoolID: schoolID}
			if err := a.repo.CreateUser(ctx, user); err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			token, err := a.tokens.IssueLongToken(user.Identity())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %s %s (%s)\n", user.Role, user.Username, user.ID)
			fmt.Fprintf(out, "Token: %s\n", token)
			return nil
		},
	}
	createCmd.Flags().StringVar(&username, "username", "", "username (required)")
	createCmd.Flags().StringVar(&email, "email", "", "email address (required)")
	createCmd.Flags().StringVar(&pass, "password", "", "password (required)")
	createCmd.Flags().StringVar(&role, "role", string(models.RoleSuperadmin), "superadmin or schooladmin")
	createCmd.Flags().StringVar(&schoolID, "school", "", "school id, required for schooladmin")

	userCmd.AddCommand(createCmd)
	return userCmd
}

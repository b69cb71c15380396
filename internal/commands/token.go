package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/schoolhub/internal/models"
)

func newTokenCommand(load configLoader) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and inspect tokens",
	}

	var email, fingerprint string
	var short bool
	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a token for an existing user",
		Long: `Issue a long token for the user with --email. With --short, exchange it
for a short token bound to --fingerprint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			user, err := a.repo.GetUserByEmail(ctx, email)
			if err != nil {
				return fmt.Errorf("lookup %q: %w", email, err)
			}
			token, err := a.tokens.IssueLongToken(user.Identity())
			if err != nil {
				return err
			}
			if short {
				token, err = a.tokens.CreateShortTokenFromLong(token, fingerprint)
				if err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issueCmd.Flags().StringVar(&email, "email", "", "user email (required)")
	issueCmd.Flags().BoolVar(&short, "short", false, "issue a short token")
	issueCmd.Flags().StringVar(&fingerprint, "fingerprint", "", "device fingerprint bound into a short token")
	_ = issueCmd.MarkFlagRequired("email")

	verifyCmd := &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify a token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			svc, err := newTokenService(cfg)
			if err != nil {
				return err
			}
			id, payload, err := svc.Verify(args[0])
			if err != nil {
				return fmt.Errorf("token rejected: %w", err)
			}

			out := struct {
				Kind string `json:"kind"`
				models.Identity
				SessionID         string `json:"sessionId,omitempty"`
				DeviceFingerprint string `json:"deviceFingerprint,omitempty"`
			}{Kind: "long", Identity: *id}
			if payload != nil {
				out.Kind = "short"
				out.SessionID = payload.SessionID
				out.DeviceFingerprint = payload.DeviceFingerprint
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	tokenCmd.AddCommand(issueCmd, verifyCmd)
	return tokenCmd
}

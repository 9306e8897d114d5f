package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"go-school-portal/internal/config"
	"go-school-portal/internal/model"
)

func newResetPasswordCommand() *cobra.Command {
	var entity, email string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Replace a credential's password; the new password is prompted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, func(ctx context.Context, cfg *config.Config, b *backend) error {
				svc, stop, err := newAuthService(ctx, cfg, b)
				if err != nil {
					return err
				}
				defer stop()

				pwd, err := promptPassword(cmd.OutOrStdout(), true)
				if err != nil {
					return err
				}

				if err := svc.ResetPassword(ctx, entity, email, pwd); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "password reset for %s in %s\n", email, entity)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&entity, "entity", model.EntityUsers, "registry: users, staff or teachers")
	cmd.Flags().StringVar(&email, "email", "", "email address of the account")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"go-school-portal/internal/config"
	"go-school-portal/internal/model"
)

type createOptions struct {
	entity string
	name   string
	email  string
	phone  string
	school string
	role   string
}

func newCreateCommand() *cobra.Command {
	opts := &createOptions{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a credential; the password is prompted",
		Example: `  schooladmin create --entity staff --name "Ada Lovelace" --email ada@north.example \
    --phone 555-0100 --school "North High" --role admin`,
		Args: cobra.NoArgs,
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

				created, err := svc.Register(ctx, opts.entity, model.RegisterRequest{
					FullName:        opts.name,
					Email:           opts.email,
					Phone:           opts.phone,
					SchoolName:      opts.school,
					Role:            opts.role,
					Password:        pwd,
					ConfirmPassword: pwd,
				})
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "created %s #%d (%s, %s)\n", created.Entity, created.ID, created.Email, created.Role)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.entity, "entity", model.EntityUsers, "registry: users, staff or teachers")
	f.StringVar(&opts.name, "name", "", "full name")
	f.StringVar(&opts.email, "email", "", "email address")
	f.StringVar(&opts.phone, "phone", "", "phone number")
	f.StringVar(&opts.school, "school", "", "school name")
	f.StringVar(&opts.role, "role", model.RoleStudent, "role: admin, teacher or student")
	for _, name := range []string{"name", "email", "phone", "school"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

package cli

import (
	"errors"
	"fmt"
	"time"

	"cashpos/internal/middleware"

	"github.com/spf13/cobra"
)

type tokenOptions struct {
	UserID   string
	Username string
	Role     string
	TTL      time.Duration
	Secret   string
}

// NewTokenCommand creates the token command. Production tokens come from the
// auth service; this one is for local development and smoke tests.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:     "token",
		Short:   "Mint a signed development token",
		Example: "  cashctl token --user-id 42 --role cajero",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := opts.Secret
			if secret == "" {
				secret = rootOpts.cfg.JWTSecret
			}
			if secret == "" {
				return errors.New("no signing secret: set JWT_SECRET or pass --secret")
			}
			switch opts.Role {
			case middleware.RoleCajero, middleware.RoleSupervisor, middleware.RoleAdministrador:
			default:
				return fmt.Errorf("unknown role %q", opts.Role)
			}
			username := opts.Username
			if username == "" {
				username = opts.UserID
			}
			tok, err := middleware.IssueToken(secret, opts.UserID, username, opts.Role, opts.TTL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.UserID, "user-id", "", "employee id recorded on ledger events")
	cmd.Flags().StringVar(&opts.Username, "username", "", "display name, defaults to the user id")
	cmd.Flags().StringVar(&opts.Role, "role", middleware.RoleCajero, "cajero | supervisor | administrador")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 8*time.Hour, "token lifetime")
	cmd.Flags().StringVar(&opts.Secret, "secret", "", "signing secret, defaults to JWT_SECRET")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}

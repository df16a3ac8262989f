// Package cli implements cashctl, the operations CLI: migrations, register
// seeding and development tokens.
package cli

import (
	"fmt"

	"cashpos/internal/config"
	"cashpos/internal/infra"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// RootOptions holds global flags for all commands. Empty flags fall back to
// the environment, the same way the server is configured.
type RootOptions struct {
	DBDriver    string
	DatabaseURL string

	cfg *config.Config
}

// NewRootCommand creates the root command for cashctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cashctl",
		Short: "cashpos operations tool",
		Long:  "Runs migrations, seeds registers and mints development tokens for the cashpos API.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if opts.DBDriver != "" {
				cfg.DBDriver = opts.DBDriver
			}
			if opts.DatabaseURL != "" {
				cfg.DatabaseURL = opts.DatabaseURL
			}
			opts.cfg = cfg
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.DBDriver, "db-driver", "", "database driver (postgres|sqlite), defaults to DB_DRIVER")
	cmd.PersistentFlags().StringVar(&opts.DatabaseURL, "database-url", "", "database DSN, defaults to DATABASE_URL")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedRegistersCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	cc.Init(&cc.Config{
		RootCmd:  cmd,
		Headings: cc.HiCyan + cc.Bold + cc.Underline,
		Commands: cc.HiYellow + cc.Bold,
		Example:  cc.Italic,
		ExecName: cc.Bold,
		Flags:    cc.Bold,
	})

	return cmd
}

// openDB connects; NewDatabase brings the schema up to date on the way.
func (o *RootOptions) openDB() (*gorm.DB, error) {
	db, err := infra.NewDatabase(o.cfg.DBDriver, o.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", o.cfg.DBDriver, err)
	}
	return db, nil
}

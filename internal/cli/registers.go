package cli

import (
	"fmt"

	"cashpos/internal/dto"
	"cashpos/internal/infra"
	"cashpos/internal/repository"
	"cashpos/internal/service"

	"github.com/spf13/cobra"
)

// NewSeedRegistersCommand creates the seed-registers command. Names that
// already exist are skipped, so the command can be rerun.
func NewSeedRegistersCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "seed-registers <name>...",
		Short:   "Create registers by name",
		Example: "  cashctl seed-registers \"Front 1\" \"Front 2\"",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := rootOpts.openDB()
			if err != nil {
				return err
			}
			svc := service.NewRegisterService(repository.NewRegisterRepository(db), infra.NewMemoryRegisterCache())
			return seedRegisters(cmd, svc, args)
		},
	}
}

func seedRegisters(cmd *cobra.Command, svc service.RegisterService, names []string) error {
	ctx := cmd.Context()
	existing, err := svc.List(ctx)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(existing))
	for _, r := range existing {
		seen[r.Name] = true
	}

	out := cmd.OutOrStdout()
	for _, name := range names {
		if seen[name] {
			fmt.Fprintf(out, "skip    %s (exists)\n", name)
			continue
		}
		reg, err := svc.Create(ctx, dto.RegisterRequest{Name: name})
		if err != nil {
			return fmt.Errorf("create %q: %w", name, err)
		}
		seen[reg.Name] = true
		fmt.Fprintf(out, "created %d %s\n", reg.ID, reg.Name)
	}
	return nil
}

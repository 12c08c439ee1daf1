package cli

import (
	"context"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"automation-hub/internal/domain"
	"automation-hub/internal/relation"
)

func newSectorsCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sectors",
		Aliases: []string{"sector"},
		Short:   "Manage sectors (admin)",
	}
	cmd.AddCommand(
		newSectorsListCmd(rt),
		newSectorsGetCmd(rt),
		newSectorsCreateCmd(rt),
		newSectorsUpdateCmd(rt),
		newSectorsDeleteCmd(rt),
	)
	return cmd
}

func newSectorsListCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every sector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rt.adminApp(cmd)
			if err != nil {
				return err
			}
			items, err := app.Sectors.List(commandContext(cmd))
			if err != nil {
				return err
			}
			if isQuiet(cmd) {
				printIDs(cmd.OutOrStdout(), items, sectorID)
				return nil
			}
			return emit(cmd, items, func(w io.Writer) {
				rows := make([][]string, 0, len(items))
				for _, s := range items {
					rows = append(rows, []string{strconv.FormatInt(s.ID, 10), s.Name, s.Slug, s.Description})
				}
				PrintTable(w, []string{"id", "name", "slug", "description"}, rows)
			})
		},
	}
}

func newSectorsGetCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one sector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			app, err := rt.adminApp(cmd)
			if err != nil {
				return err
			}
			s, err := app.Sectors.Get(commandContext(cmd), id)
			if err != nil {
				return err
			}
			return printSector(cmd, s)
		},
	}
}

func printSector(cmd *cobra.Command, s *domain.Sector) error {
	return emit(cmd, s, func(w io.Writer) {
		PrintDetail(w, map[string]any{
			"id":          s.ID,
			"name":        s.Name,
			"slug":        s.Slug,
			"description": s.Description,
		})
	})
}

type sectorFlags struct {
	name        string
	slug        string
	description string
}

func (f *sectorFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.name, "name", "", "Sector name")
	fs.StringVar(&f.slug, "slug", "", "Stable identifier (derived from the name when blank)")
	fs.StringVar(&f.description, "description", "", "Description")
}

func (f *sectorFlags) stage(cmd *cobra.Command, d *relation.SectorDraft) {
	fs := cmd.Flags()
	if fs.Changed("name") {
		d.Name = f.name
	}
	if fs.Changed("slug") {
		d.Slug = f.slug
	}
	if fs.Changed("description") {
		d.Description = f.description
	}
}

func submitSector(ctx context.Context, draft *relation.SectorDraft, write func(context.Context, domain.SectorRequest) (*domain.Sector, error)) (*domain.Sector, error) {
	var saved *domain.Sector
	ed := relation.NewEditor(draft)
	err := ed.Submit(ctx, func(ctx context.Context, d *relation.SectorDraft) error {
		in, err := d.Input()
		if err != nil {
			return err
		}
		saved, err = write(ctx, in)
		return err
	})
	return saved, err
}

func newSectorsCreateCmd(rt *runtime) *cobra.Command {
	var f sectorFlags
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a sector",
		Example: `  hub sectors create --name "Recursos Humanos"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rt.adminApp(cmd)
			if err != nil {
				return err
			}
			draft := relation.NewSectorDraft()
			f.stage(cmd, draft)
			created, err := submitSector(commandContext(cmd), draft, app.Sectors.Create)
			if err != nil {
				return err
			}
			return printSector(cmd, created)
		},
	}
	f.register(cmd)
	return cmd
}

func newSectorsUpdateCmd(rt *runtime) *cobra.Command {
	var f sectorFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a sector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			app, err := rt.adminApp(cmd)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			current, err := app.Sectors.Get(ctx, id)
			if err != nil {
				return err
			}
			draft := relation.EditSector(*current)
			f.stage(cmd, draft)
			updated, err := submitSector(ctx, draft, func(ctx context.Context, in domain.SectorRequest) (*domain.Sector, error) {
				return app.Sectors.Update(ctx, id, in)
			})
			if err != nil {
				return err
			}
			return printSector(cmd, updated)
		},
	}
	f.register(cmd)
	return cmd
}

func newSectorsDeleteCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a sector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			app, err := rt.adminApp(cmd)
			if err != nil {
				return err
			}
			if err := app.Sectors.Delete(commandContext(cmd), id); err != nil {
				return err
			}
			return printDeleted(cmd, "sector", id)
		},
	}
}

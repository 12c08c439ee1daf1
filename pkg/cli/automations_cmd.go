package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"automation-hub/internal/domain"
	"automation-hub/internal/relation"
)

func automationID(a domain.Automation) int64 { return a.ID }
func sectorID(s domain.Sector) int64         { return s.ID }

func newAutomationsCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "automations",
		Aliases: []string{"automation"},
		Short:   "Manage the automation catalog (admin)",
	}
	cmd.AddCommand(
		newAutomationsListCmd(rt),
		newAutomationsGetCmd(rt),
		newAutomationsCreateCmd(rt),
		newAutomationsUpdateCmd(rt),
		newAutomationsDeleteCmd(rt),
	)
	return cmd
}

func newAutomationsListCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every automation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rt.adminApp(cmd)
			if err != nil {
				return err
			}
			items, err := app.Automations.List(commandContext(cmd))
			if err != nil {
				return err
			}
			if isQuiet(cmd) {
				printIDs(cmd.OutOrStdout(), items, automationID)
				return nil
			}
			return emit(cmd, items, func(w io.Writer) { printAutomations(w, items) })
		},
	}
}

func newAutomationsGetCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one automation",
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
			a, err := app.Automations.Get(commandContext(cmd), id)
			if err != nil {
				return err
			}
			return printAutomation(cmd, a)
		},
	}
}

func printAutomation(cmd *cobra.Command, a *domain.Automation) error {
	return emit(cmd, a, func(w io.Writer) {
		PrintDetail(w, map[string]any{
			"id":          a.ID,
			"title":       a.Title,
			"description": a.Description,
			"url":         a.TargetURL,
			"icon":        string(a.Icon),
			"active":      a.IsActive,
			"sector_ids":  a.SectorIDs(),
			"sectors":     sectorNames(a.Sectors),
		})
	})
}

// automationFlags are the scalar fields shared by create and update.
type automationFlags struct {
	title       string
	description string
	url         string
	icon        string
	active      bool
	sectors     relationFlags
}

func (f *automationFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.title, "title", "", "Title")
	fs.StringVar(&f.description, "description", "", "Description")
	fs.StringVar(&f.url, "url", "", "Target URL opened on launch")
	fs.StringVar(&f.icon, "icon", "", "Icon name (default bot)")
	fs.BoolVar(&f.active, "active", true, "Whether users can launch the automation")
	f.sectors.name = "sector"
	addRelationFlags(fs, &f.sectors, "sector")
}

func (f *automationFlags) stage(cmd *cobra.Command, d *relation.AutomationDraft) {
	fs := cmd.Flags()
	if fs.Changed("title") {
		d.Title = f.title
	}
	if fs.Changed("description") {
		d.Description = f.description
	}
	if fs.Changed("url") {
		d.TargetURL = f.url
	}
	if fs.Changed("icon") {
		d.Icon = domain.ParseIcon(f.icon)
	}
	if fs.Changed("active") {
		d.IsActive = f.active
	}
	f.sectors.apply(fs, d.Sectors)
}

func newAutomationsCreateCmd(rt *runtime) *cobra.Command {
	var f automationFlags
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create an automation",
		Example: `  hub automations create --title "Invoice OCR" --url https://ocr.example.com --icon receipt --sector 1,2`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rt.adminApp(cmd)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			sectors, err := app.Sectors.List(ctx)
			if err != nil {
				return err
			}

			draft := relation.NewAutomationDraft()
			f.stage(cmd, draft)
			reconcile(cmd, &f.sectors, draft.Sectors, sectors, sectorID)

			var created *domain.Automation
			ed := relation.NewEditor(draft)
			err = ed.Submit(ctx, func(ctx context.Context, d *relation.AutomationDraft) error {
				in, err := d.Input()
				if err != nil {
					return err
				}
				created, err = app.Automations.Create(ctx, in)
				return err
			})
			if err != nil {
				return err
			}
			return printAutomation(cmd, created)
		},
	}
	f.register(cmd)
	return cmd
}

func newAutomationsUpdateCmd(rt *runtime) *cobra.Command {
	var f automationFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an automation; unspecified fields keep their value",
		Example: `  hub automations update 7 --add-sector 3 --remove-sector 1
  hub automations update 7 --active=false`,
		Args: cobra.ExactArgs(1),
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
			current, err := app.Automations.Get(ctx, id)
			if err != nil {
				return err
			}
			sectors, err := app.Sectors.List(ctx)
			if err != nil {
				return err
			}

			draft := relation.EditAutomation(*current)
			f.stage(cmd, draft)
			reconcile(cmd, &f.sectors, draft.Sectors, sectors, sectorID)

			var updated *domain.Automation
			ed := relation.NewEditor(draft)
			err = ed.Submit(ctx, func(ctx context.Context, d *relation.AutomationDraft) error {
				in, err := d.Input()
				if err != nil {
					return err
				}
				updated, err = app.Automations.Update(ctx, d.ID, in)
				return err
			})
			if err != nil {
				return err
			}
			return printAutomation(cmd, updated)
		},
	}
	f.register(cmd)
	return cmd
}

func newAutomationsDeleteCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an automation",
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
			if err := app.Automations.Delete(commandContext(cmd), id); err != nil {
				return err
			}
			return printDeleted(cmd, "automation", id)
		},
	}
}

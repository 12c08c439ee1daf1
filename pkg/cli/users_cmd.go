package cli

import (
	"context"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"automation-hub/internal/domain"
	"automation-hub/internal/relation"
)

func userID(u domain.User) int64 { return u.ID }

func newUsersCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user"},
		Short:   "Manage portal users (admin)",
	}
	cmd.AddCommand(
		newUsersListCmd(rt),
		newUsersGetCmd(rt),
		newUsersCreateCmd(rt),
		newUsersUpdateCmd(rt),
		newUsersDeleteCmd(rt),
	)
	return cmd
}

func newUsersListCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rt.adminApp(cmd)
			if err != nil {
				return err
			}
			items, err := app.Users.List(commandContext(cmd))
			if err != nil {
				return err
			}
			if isQuiet(cmd) {
				printIDs(cmd.OutOrStdout(), items, userID)
				return nil
			}
			return emit(cmd, items, func(w io.Writer) {
				rows := make([][]string, 0, len(items))
				for _, u := range items {
					rows = append(rows, []string{
						strconv.FormatInt(u.ID, 10),
						u.Email,
						u.FullName,
						string(u.Role),
						strconv.FormatBool(u.IsActive),
						u.SectorName(),
						strconv.Itoa(len(u.ExtraAutomations)),
					})
				}
				PrintTable(w, []string{"id", "email", "name", "role", "active", "sector", "extra"}, rows)
			})
		},
	}
}

func newUsersGetCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one user",
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
			u, err := app.Users.Get(commandContext(cmd), id)
			if err != nil {
				return err
			}
			return printUser(cmd, u)
		},
	}
}

func printUser(cmd *cobra.Command, u *domain.User) error {
	return emit(cmd, u, func(w io.Writer) {
		fields := profileFields(&u.UserProfile)
		fields["sector"] = u.SectorName()
		fields["automation_ids"] = u.AutomationIDs()
		PrintDetail(w, fields)
	})
}

type userFlags struct {
	email         string
	fullName      string
	password      string
	passwordStdin bool
	admin         bool
	role          string
	active        bool
	sectorID      int64
	automations   relationFlags
}

func (f *userFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.email, "email", "", "Email address")
	fs.StringVar(&f.fullName, "name", "", "Full name")
	fs.StringVar(&f.password, "password", "", "Password")
	fs.BoolVar(&f.passwordStdin, "password-stdin", false, "Read the password from stdin")
	fs.BoolVar(&f.admin, "admin", false, "Grant administrator rights")
	fs.StringVar(&f.role, "role", "", "Role: user, manager, analyst or admin")
	fs.BoolVar(&f.active, "active", true, "Whether the account can sign in")
	fs.Int64Var(&f.sectorID, "sector", 0, "Sector id")
	f.automations.name = "automation"
	addRelationFlags(fs, &f.automations, "extra automation")
}

func (f *userFlags) stage(cmd *cobra.Command, d *relation.UserDraft) error {
	fs := cmd.Flags()
	if fs.Changed("email") {
		d.Email = f.email
	}
	if fs.Changed("name") {
		d.FullName = f.fullName
	}
	if fs.Changed("role") {
		d.Role = domain.ParseRole(f.role)
		d.IsAdmin = d.Role == domain.RoleAdmin
	}
	if fs.Changed("admin") {
		d.IsAdmin = f.admin
	}
	if fs.Changed("active") {
		d.IsActive = f.active
	}
	if fs.Changed("sector") {
		d.SectorID = f.sectorID
	}
	switch {
	case f.passwordStdin:
		pw, err := readPassword(cmd, true)
		if err != nil {
			return err
		}
		d.Password = pw
	case fs.Changed("password"):
		d.Password = f.password
	}
	f.automations.apply(fs, d.Automations)
	return nil
}

func newUsersCreateCmd(rt *runtime) *cobra.Command {
	var f userFlags
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a user",
		Example: `  hub users create --email ana@example.com --name "Ana Souza" --sector 2 --password-stdin`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rt.adminApp(cmd)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			automations, err := app.Automations.List(ctx)
			if err != nil {
				return err
			}

			draft := relation.NewUserDraft()
			if err := f.stage(cmd, draft); err != nil {
				return err
			}
			reconcile(cmd, &f.automations, draft.Automations, automations, automationID)

			var created *domain.User
			ed := relation.NewEditor(draft)
			err = ed.Submit(ctx, func(ctx context.Context, d *relation.UserDraft) error {
				in, err := d.CreateInput()
				if err != nil {
					return err
				}
				created, err = app.Users.Create(ctx, in)
				return err
			})
			if err != nil {
				return err
			}
			return printUser(cmd, created)
		},
	}
	f.register(cmd)
	return cmd
}

func newUsersUpdateCmd(rt *runtime) *cobra.Command {
	var f userFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a user; a blank password keeps the current one",
		Example: `  hub users update 4 --add-automation 9
  hub users update 4 --role manager --active=false`,
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
			current, err := app.Users.Get(ctx, id)
			if err != nil {
				return err
			}
			automations, err := app.Automations.List(ctx)
			if err != nil {
				return err
			}

			draft := relation.EditUser(*current)
			if err := f.stage(cmd, draft); err != nil {
				return err
			}
			reconcile(cmd, &f.automations, draft.Automations, automations, automationID)

			var updated *domain.User
			ed := relation.NewEditor(draft)
			err = ed.Submit(ctx, func(ctx context.Context, d *relation.UserDraft) error {
				in, err := d.UpdateInput()
				if err != nil {
					return err
				}
				updated, err = app.Users.Update(ctx, d.ID, in)
				return err
			})
			if err != nil {
				return err
			}
			return printUser(cmd, updated)
		},
	}
	f.register(cmd)
	return cmd
}

func newUsersDeleteCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
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
			if err := app.Users.Delete(commandContext(cmd), id); err != nil {
				return err
			}
			return printDeleted(cmd, "user", id)
		},
	}
}

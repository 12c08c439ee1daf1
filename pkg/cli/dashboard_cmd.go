package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"automation-hub/internal/domain"
	"automation-hub/internal/portal"
)

func newDashboardCmd(rt *runtime) *cobra.Command {
	var (
		search string
		watch  bool
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "List the automations you can launch",
		Example: `  hub dashboard
  hub dashboard --search invoice
  hub dashboard --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rt.portal(cmd)
			if err != nil {
				return err
			}
			if err := renderDashboard(cmd, app, search); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			return watchDashboard(cmd, app, search)
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter by title or description")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-render on every scheduled refresh until interrupted")

	return cmd
}

func renderDashboard(cmd *cobra.Command, app *portal.App, search string) error {
	view, err := app.Dashboard(commandContext(cmd), search)
	if err != nil {
		return err
	}
	if err := guardError(view.Decision); err != nil {
		return err
	}
	if isQuiet(cmd) {
		for _, a := range view.Automations {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), a.ID)
		}
		return nil
	}
	return emit(cmd, view.Automations, func(w io.Writer) {
		if len(view.Automations) == 0 {
			_, _ = fmt.Fprintln(w, emptyDashboardMessage(search))
			return
		}
		printAutomations(w, view.Automations)
	})
}

func emptyDashboardMessage(search string) string {
	if strings.TrimSpace(search) != "" {
		return fmt.Sprintf("No automations match %q", search)
	}
	return "No automations available"
}

// watchDashboard re-renders after each scheduled refresh until the command
// context is cancelled or the process receives SIGINT/SIGTERM.
func watchDashboard(cmd *cobra.Command, app *portal.App, search string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mu sync.Mutex
	refresher, err := app.NewRefresher(app.Config.RefreshSchedule, func() {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		if err := renderDashboard(cmd, app, search); err != nil {
			app.Logger.Warn("dashboard refresh failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("refresh schedule %q: %w", app.Config.RefreshSchedule, err)
	}
	refresher.Start()
	<-ctx.Done()
	refresher.Stop()
	if ctx.Err() == context.Canceled {
		return nil
	}
	return ctx.Err()
}

func newOpenCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "open <automation-id>",
		Short: "Print the launch URL of an automation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			app, err := rt.portal(cmd)
			if err != nil {
				return err
			}
			url, err := app.Launch(commandContext(cmd), id)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), map[string]any{"id": id, "url": url})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
}

func printAutomations(w io.Writer, items []domain.Automation) {
	rows := make([][]string, 0, len(items))
	for _, a := range items {
		rows = append(rows, []string{
			strconv.FormatInt(a.ID, 10),
			a.Title,
			string(a.Icon),
			strconv.FormatBool(a.IsActive),
			sectorNames(a.Sectors),
			a.TargetURL,
		})
	}
	PrintTable(w, []string{"id", "title", "icon", "active", "sectors", "url"}, rows)
}

func sectorNames(refs []domain.SectorRef) string {
	if len(refs) == 0 {
		return "-"
	}
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.Name
	}
	return strings.Join(names, ",")
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be a positive integer", s)
	}
	return id, nil
}

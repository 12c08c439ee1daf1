package portal

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"automation-hub/internal/domain"
	"automation-hub/internal/guard"
)

// DashboardView is the landing view: the active automations the user can
// launch, narrowed by an optional search.
type DashboardView struct {
	Decision    guard.Decision
	User        *domain.UserProfile
	Search      string
	Automations []domain.Automation
}

// Dashboard evaluates the landing view. When the guard does not allow
// rendering, nothing is fetched and only Decision is set.
func (a *App) Dashboard(ctx context.Context, search string) (DashboardView, error) {
	st := a.Session.Snapshot()
	view := DashboardView{Decision: guard.Evaluate(st, guard.Authenticated), Search: search}
	if view.Decision.Outcome != guard.Render {
		return view, nil
	}
	view.User = st.User

	all, err := a.Automations.List(ctx)
	if err != nil {
		return view, err
	}
	view.Automations = make([]domain.Automation, 0, len(all))
	for i := range all {
		if all[i].IsActive && all[i].Matches(search) {
			view.Automations = append(view.Automations, all[i])
		}
	}
	return view, nil
}

// AdminData holds the three catalogs of the admin screens.
type AdminData struct {
	Automations []domain.Automation
	Users       []domain.User
	Sectors     []domain.Sector
}

// Counts are the tab badges of the admin screens.
type Counts struct {
	Automations int
	Users       int
	Sectors     int
}

// Counts returns the size of each catalog.
func (d *AdminData) Counts() Counts {
	return Counts{Automations: len(d.Automations), Users: len(d.Users), Sectors: len(d.Sectors)}
}

// AdminView is the admin screen. Data is nil unless Decision renders.
type AdminView struct {
	Decision guard.Decision
	Data     *AdminData
}

// Admin evaluates the admin view and loads its catalogs concurrently. A
// non-admin is redirected before any catalog is requested.
func (a *App) Admin(ctx context.Context) (AdminView, error) {
	view := AdminView{Decision: guard.Evaluate(a.Session.Snapshot(), guard.AdminOnly)}
	if view.Decision.Outcome != guard.Render {
		return view, nil
	}

	data := &AdminData{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data.Automations, err = a.Automations.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		data.Users, err = a.Users.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		data.Sectors, err = a.Sectors.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return view, fmt.Errorf("load admin catalogs: %w", err)
	}
	view.Data = data
	return view, nil
}

// Launch returns the target URL of an active automation the user can see.
func (a *App) Launch(ctx context.Context, id int64) (string, error) {
	if !a.Session.Snapshot().IsAuthenticated {
		return "", domain.ErrNotAuthenticated
	}
	all, err := a.Automations.List(ctx)
	if err != nil {
		return "", err
	}
	for i := range all {
		if all[i].ID != id {
			continue
		}
		if !all[i].IsActive {
			return "", domain.ErrValidation("automation %q is inactive", all[i].Title)
		}
		return all[i].TargetURL, nil
	}
	return "", domain.ErrNotFound("automation %d not found", id)
}

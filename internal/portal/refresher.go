package portal

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher periodically re-fetches the catalogs that are already loaded,
// so a long-running view picks up changes made by other sessions.
type Refresher struct {
	cron    *cron.Cron
	app     *App
	logger  *slog.Logger
	timeout time.Duration
	onTick  func()
}

// NewRefresher schedules a refresh with a cron spec such as "@every 30s".
// onTick, when non-nil, runs after each refresh.
func (a *App) NewRefresher(spec string, onTick func()) (*Refresher, error) {
	r := &Refresher{
		cron:    cron.New(),
		app:     a,
		logger:  a.Logger,
		timeout: a.Config.RequestTimeout,
		onTick:  onTick,
	}
	if _, err := r.cron.AddFunc(spec, r.Tick); err != nil {
		return nil, err
	}
	return r, nil
}

// Start begins the schedule.
func (r *Refresher) Start() {
	r.cron.Start()
	r.logger.Debug("catalog refresher started")
}

// Stop halts the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Debug("catalog refresher stopped")
}

// Tick refreshes every loaded catalog once. It does nothing without an
// authenticated session.
func (r *Refresher) Tick() {
	if !r.app.Session.Snapshot().IsAuthenticated {
		return
	}
	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	refresh := func(name string, loaded bool, fn func(context.Context) error) {
		if !loaded {
			return
		}
		if err := fn(ctx); err != nil {
			r.logger.Warn("scheduled refresh failed", "collection", name, "error", err)
		}
	}
	refresh("automations", r.app.Automations.Collection().Loaded(), func(ctx context.Context) error {
		_, err := r.app.Automations.Collection().Refresh(ctx)
		return err
	})
	refresh("users", r.app.Users.Collection().Loaded(), func(ctx context.Context) error {
		_, err := r.app.Users.Collection().Refresh(ctx)
		return err
	})
	refresh("sectors", r.app.Sectors.Collection().Loaded(), func(ctx context.Context) error {
		_, err := r.app.Sectors.Collection().Refresh(ctx)
		return err
	})

	if r.onTick != nil {
		r.onTick()
	}
}

// Package portal wires the session, API client and catalogs into the views
// the front ends render: the dashboard, the admin screens and automation
// launch.
package portal

import (
	"context"
	"log/slog"
	"net/http"

	"automation-hub/internal/apiclient"
	"automation-hub/internal/config"
	"automation-hub/internal/domain"
	"automation-hub/internal/resource"
	"automation-hub/internal/session"
)

// Deps are the collaborators New needs. HTTPClient is optional.
type Deps struct {
	Config     *config.Config
	Tokens     domain.TokenStore
	Logger     *slog.Logger
	HTTPClient *http.Client
}

// App is one client process: a session plus the catalogs it reads.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Client  *apiclient.Client
	Session *session.Store

	Automations *resource.Automations
	Users       *resource.Users
	Sectors     *resource.Sectors
}

// New builds an App. The API client consults the session for its bearer
// token, and the session is logged out whenever an authenticated request
// comes back 401.
func New(d Deps) *App {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := d.Config

	app := &App{Config: cfg, Logger: logger}

	var opts []apiclient.Option
	if d.HTTPClient != nil {
		opts = append(opts, apiclient.WithHTTPClient(d.HTTPClient))
	}
	opts = append(opts,
		apiclient.WithTimeout(cfg.RequestTimeout),
		apiclient.WithMaxRetries(cfg.MaxRetries),
		apiclient.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		apiclient.WithLogger(logger),
		apiclient.WithTokenSource(func() string { return app.Session.Token() }),
	)
	app.Client = apiclient.NewClient(cfg.APIURL, opts...)
	app.Session = session.New(apiclient.NewAuthAPI(app.Client), d.Tokens, session.WithLogger(logger))
	app.Client.OnUnauthorized(app.Session.HandleUnauthorized)

	app.Automations = resource.NewAutomations(app.Client, cfg.CacheTTL, logger)
	app.Users = resource.NewUsers(app.Client, cfg.CacheTTL, logger)
	app.Sectors = resource.NewSectors(app.Client, cfg.CacheTTL, logger)

	// Automations and users carry denormalized sector and automation
	// fields, so a change to either source catalog drops the copies.
	app.Sectors.OnMutate(app.Automations.Collection().Invalidate)
	app.Sectors.OnMutate(app.Users.Collection().Invalidate)
	app.Automations.OnMutate(app.Users.Collection().Invalidate)

	// Catalogs are per-user on the server side, so nothing cached for one
	// session may be shown to the next.
	app.Session.Subscribe(func(st session.State) {
		if !st.IsAuthenticated {
			app.invalidateAll()
		}
	})
	return app
}

// Start resumes a persisted session, if any.
func (a *App) Start(ctx context.Context) error {
	return a.Session.Restore(ctx)
}

func (a *App) invalidateAll() {
	a.Automations.Collection().Invalidate()
	a.Users.Collection().Invalidate()
	a.Sectors.Collection().Invalidate()
}

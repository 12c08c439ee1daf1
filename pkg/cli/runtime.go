package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"automation-hub/internal/config"
	"automation-hub/internal/domain"
	"automation-hub/internal/guard"
	"automation-hub/internal/portal"
	"automation-hub/internal/profile"
	"automation-hub/internal/tokenstore"
)

// runtime carries the global flags and the lazily built portal for one
// command invocation.
type runtime struct {
	host        string
	output      string
	profileName string
	quiet       bool
	logLevel    string

	userCfg *profile.UserConfig
	active  string
	profile profile.Profile

	app    *portal.App
	closer io.Closer
}

// resolve loads the user config and settles the output format:
// flag > HUB_OUTPUT > profile > table.
func (rt *runtime) resolve(cmd *cobra.Command) error {
	userCfg, err := profile.Load(profile.Path())
	if err != nil {
		return err
	}
	rt.userCfg = userCfg

	override := rt.profileName
	if override == "" {
		override = os.Getenv("HUB_PROFILE")
	}
	rt.active = userCfg.ActiveName(override)
	rt.profile = userCfg.Profiles[rt.active]

	flags := cmd.Root().PersistentFlags()
	if !flags.Changed("output") {
		out := os.Getenv("HUB_OUTPUT")
		if out == "" {
			out = rt.profile.Output
		}
		if out != "" {
			if err := flags.Set("output", out); err != nil {
				return err
			}
		}
	}
	return validateOutputFormat(getOutputFormat(cmd))
}

// config builds the client configuration. The API URL follows
// --host > HUB_API_URL > profile host > default.
func (rt *runtime) config() (*config.Config, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	host := rt.host
	if host == "" && os.Getenv("HUB_API_URL") == "" {
		host = rt.profile.Host
	}
	if host != "" {
		if cfg.APIURL, err = normalizeAPIURL(host); err != nil {
			return nil, err
		}
		cfg.Warnings = nil
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if rt.logLevel != "" {
		cfg.LogLevel = rt.logLevel
	}
	return cfg, nil
}

func (rt *runtime) tokenStore(cfg *config.Config) (domain.TokenStore, error) {
	switch cfg.TokenStore {
	case config.TokenStoreSQLite:
		st, err := tokenstore.OpenSQLite(cfg.StateDBPath, rt.active)
		if err != nil {
			return nil, err
		}
		rt.closer = st
		return st, nil
	case config.TokenStoreMemory:
		return tokenstore.NewMemoryStore(os.Getenv("HUB_TOKEN")), nil
	default:
		return tokenstore.NewProfileStore(profile.Path(), rt.active), nil
	}
}

// portal builds the App on first use and resumes the stored session.
func (rt *runtime) portal(cmd *cobra.Command) (*portal.App, error) {
	if rt.app != nil {
		return rt.app, nil
	}
	cfg, err := rt.config()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	tokens, err := rt.tokenStore(cfg)
	if err != nil {
		return nil, err
	}
	app := portal.New(portal.Deps{Config: cfg, Tokens: tokens, Logger: logger})
	if err := app.Start(commandContext(cmd)); err != nil {
		logger.Warn("could not resume session", "error", err)
	}
	rt.app = app
	return app, nil
}

// require builds the portal and applies the route guard for access. A
// redirect becomes an error naming what the user must do.
func (rt *runtime) require(cmd *cobra.Command, access guard.Access) (*portal.App, error) {
	app, err := rt.portal(cmd)
	if err != nil {
		return nil, err
	}
	return app, guardError(guard.Evaluate(app.Session.Snapshot(), access))
}

func guardError(d guard.Decision) error {
	switch {
	case d.Outcome == guard.Render:
		return nil
	case d.Outcome == guard.Redirect && d.Target == guard.LoginPath:
		return fmt.Errorf("%w: run 'hub login' first", domain.ErrNotAuthenticated)
	case d.Outcome == guard.Redirect:
		return domain.ErrAccessDenied("this command requires an administrator")
	default:
		return fmt.Errorf("session is still loading")
	}
}

func (rt *runtime) close() error {
	if rt.closer == nil {
		return nil
	}
	err := rt.closer.Close()
	rt.closer = nil
	return err
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

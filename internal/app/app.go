// Package app wires the client core together: one HTTP client, one store of
// each kind, one persistence backend. Constructed once per application root.
package app

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tikitihub/tikiti-go/internal/api"
	"github.com/tikitihub/tikiti-go/internal/config"
	"github.com/tikitihub/tikiti-go/internal/persist"
	"github.com/tikitihub/tikiti-go/internal/store/auth"
	"github.com/tikitihub/tikiti-go/internal/store/catalog"
	"github.com/tikitihub/tikiti-go/internal/store/ui"
)

// Routes the 401 handler needs to know about. When the active view is
// already an auth view, a 401 must not trigger another redirect.
const (
	RouteHome     = "/"
	RouteLogin    = "/login"
	RouteRegister = "/register"
)

type App struct {
	Config  *config.Config
	API     *api.Client
	Auth    *auth.Store
	Catalog *catalog.Store
	UI      *ui.Store

	log    zerolog.Logger
	closer io.Closer

	mu    sync.Mutex
	route string
}

func New(cfg *config.Config, log zerolog.Logger) (*App, error) {
	var (
		p      persist.Store
		closer io.Closer
	)
	switch cfg.PersistBackend {
	case config.PersistFile:
		fs, err := persist.NewFileStore(cfg.StateDir)
		if err != nil {
			return nil, err
		}
		p = fs
	case config.PersistRedis:
		rs, err := persist.NewRedisStore(cfg.RedisURL, "tikiti", 0)
		if err != nil {
			return nil, err
		}
		p = rs
		closer = rs
	}

	client := api.New(cfg.APIBaseURL, cfg.HTTPTimeout, log.With().Str("component", "api").Logger())

	a := &App{
		Config:  cfg,
		API:     client,
		Auth:    auth.New(client, p, nil, log.With().Str("component", "auth").Logger()),
		Catalog: catalog.New(client, p, nil, log.With().Str("component", "catalog").Logger(), cfg.CacheDuration),
		UI:      ui.New(log.With().Str("component", "ui").Logger()),
		log:     log,
		closer:  closer,
		route:   RouteHome,
	}
	client.OnUnauthorized(a.handleUnauthorized)
	return a, nil
}

// Hydrate restores persisted session and catalog snapshots. Run once at
// startup, before any store action.
func (a *App) Hydrate(ctx context.Context) {
	a.Auth.Hydrate(ctx)
	a.Catalog.Hydrate(ctx)
}

// SetRoute records the active view.
func (a *App) SetRoute(route string) {
	a.mu.Lock()
	a.route = route
	a.mu.Unlock()
}

func (a *App) Route() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.route
}

func (a *App) handleUnauthorized() {
	route := a.Route()
	if route == RouteLogin || route == RouteRegister {
		return
	}
	a.log.Info().Str("route", route).Msg("session rejected, redirecting to login")
	a.Auth.Logout()
	a.SetRoute(RouteLogin)
}

func (a *App) Close() {
	a.UI.Close()
	if a.closer != nil {
		if err := a.closer.Close(); err != nil {
			a.log.Warn().Err(err).Msg("close persistence backend failed")
		}
	}
}

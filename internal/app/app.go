package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/patchbay/internal/catalog"
	"github.com/specialistvlad/patchbay/internal/config"
	"github.com/specialistvlad/patchbay/internal/ctxlog"
	"github.com/specialistvlad/patchbay/internal/sharedstate"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	ctx     context.Context
	config  *Config
	model   *config.Model
	catalog *catalog.Catalog
	state   *sharedstate.State

	httpServer *http.Server
}

// NewApp is the constructor for the main application. It loads every
// manifest and opens the shared patch state. Both failures are fatal at
// startup and panic; the entrypoint recovers them.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, cat *catalog.Catalog) *App {
	logger := newLogger(cfg, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, cfg.ManifestPaths...)
	if err != nil {
		panic(fmt.Errorf("failed to load manifests: %w", err))
	}
	logger.Debug("Manifests loaded and translated into unified model.",
		"patches", len(model.Patches), "unpatches", len(model.Unpatches), "removals", len(model.Removals))

	if cat == nil {
		cat = catalog.New()
	}

	state := sharedstate.MustOpen(ctx, cfg.StateName)
	logger.Debug("Shared patch state ready.",
		"role", state.Role(), "binding", state.Binding(), "actual_version", state.ActualVersion())

	return &App{
		outW:    outW,
		logger:  logger,
		ctx:     ctx,
		config:  cfg,
		model:   model,
		catalog: cat,
		state:   state,
	}
}

// State returns the handle of the shared patch state. This is primarily for testing.
func (app *App) State() *sharedstate.State {
	return app.state
}

// Catalog returns the catalog the manifests were resolved against.
func (app *App) Catalog() *catalog.Catalog {
	return app.catalog
}

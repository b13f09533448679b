package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/patchbay/internal/config"
	"github.com/specialistvlad/patchbay/internal/ctxlog"
	"github.com/specialistvlad/patchbay/pkg/patch"
)

// Apply replays the model against the shared state: every patch, then every
// unpatch, then every removal. It stops at the first patch that cannot be
// added.
func (app *App) Apply(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	for _, d := range app.model.Patches {
		if err := app.applyPatch(d); err != nil {
			return fmt.Errorf("%s: patch %q: %w", d.Source, d.Name, err)
		}
		logger.Debug("Patch added.", "kind", d.Kind, "name", d.Name, "target", d.Target, "owner", d.Owner, "priority", d.Priority)
	}

	for _, d := range app.model.Unpatches {
		tgt, ok := app.catalog.Lookup(d.Target)
		if !ok {
			logger.Warn("Unpatch skipped: target was never patched.", "target", d.Target, "source", d.Source.String())
			continue
		}
		set, ok := app.state.Patches(tgt)
		if !ok {
			logger.Warn("Unpatch skipped: target was never patched.", "target", d.Target, "source", d.Source.String())
			continue
		}
		patch.Remove(set, d.Kind, d.Owner)
		logger.Debug("Patches removed by owner.", "kind", d.Kind, "target", d.Target, "owner", d.Owner)
	}

	for _, d := range app.model.Removals {
		tgt, okT := app.catalog.Lookup(d.Target)
		m, okM := app.catalog.Lookup(d.Method)
		if !okT || !okM {
			logger.Warn("Patch removal skipped: unknown target or method.", "target", d.Target, "method", d.Method, "source", d.Source.String())
			continue
		}
		set, ok := app.state.Patches(tgt)
		if !ok {
			logger.Warn("Patch removal skipped: target was never patched.", "target", d.Target, "source", d.Source.String())
			continue
		}
		set.RemovePatch(m)
		logger.Debug("Patch removed.", "target", d.Target, "method", d.Method)
	}
	return nil
}

func (app *App) applyPatch(d *config.PatchDecl) error {
	m, err := app.catalog.Method(d.Method, d.Factory)
	if err != nil {
		return err
	}
	set := app.state.GetOrCreatePatches(app.catalog.Target(d.Target))
	return patch.Add(set, d.Kind, m, d.Owner, d.Priority, d.Before, d.After)
}

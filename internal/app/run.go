package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/patchbay/internal/ctxlog"
	"github.com/specialistvlad/patchbay/internal/report"
)

// Run applies the manifests, prints the plan, optionally reports it to a
// remote observer and, when the inspector is enabled, serves it until ctx is
// cancelled.
func (app *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, app.logger)
	app.logger.Debug("App.Run method started.")

	if err := app.startInspector(); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, app.closeInspector())
	}()

	if err := app.Apply(ctx); err != nil {
		return fmt.Errorf("failed to apply manifests: %w", err)
	}
	app.logger.Info("Manifests applied.",
		"patches", len(app.model.Patches), "unpatches", len(app.model.Unpatches), "removals", len(app.model.Removals))

	plan := BuildPlan(app.state, app.config.Resolve)
	if err := plan.WriteText(app.outW); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}

	if app.config.ReportURL != "" {
		opts := report.Options{URL: app.config.ReportURL, Namespace: app.config.ReportNamespace}
		if err := report.Publish(ctx, opts, plan); err != nil {
			return fmt.Errorf("failed to report plan: %w", err)
		}
	}

	if app.httpServer != nil {
		app.logger.Info("Inspector serving until interrupted.")
		<-ctx.Done()
	}

	app.logger.Debug("App.Run method finished.")
	return nil
}

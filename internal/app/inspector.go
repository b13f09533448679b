package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/specialistvlad/patchbay/internal/ctxlog"
)

// healthHandler answers liveness checks.
func (app *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(app.ctx)
	logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// patchesHandler serves the current plan as JSON. The plan is rebuilt per
// request, so changes made by other participants of the shared state show up.
func (app *App) patchesHandler(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(app.ctx)
	logger.Debug("Patches endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resolve := app.config.Resolve || r.URL.Query().Get("resolve") == "true"
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(BuildPlan(app.state, resolve)); err != nil {
		logger.Error("Failed to encode plan.", "error", err)
	}
}

// Handler returns the inspector's routes.
func (app *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", app.healthHandler)
	mux.HandleFunc("/patches", app.patchesHandler)
	return mux
}

// startInspector binds the inspector port and serves it in the background.
// A disabled inspector is not an error.
func (app *App) startInspector() error {
	logger := ctxlog.FromContext(app.ctx)
	logger.Debug("Configuring inspector server.")
	if app.config.InspectPort <= 0 {
		logger.Debug("Inspector server not started: disabled")
		return nil
	}

	addr := fmt.Sprintf(":%d", app.config.InspectPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("inspector cannot listen on %s: %w", addr, err)
	}
	app.httpServer = &http.Server{
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Inspector server starting", "address", fmt.Sprintf("http://localhost%s/patches", addr))
		if err := app.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Inspector server failed unexpectedly", "error", err)
		}
	}()
	return nil
}

func (app *App) closeInspector() error {
	logger := ctxlog.FromContext(app.ctx)
	logger.Debug("Closing inspector server...")

	if app.httpServer == nil {
		logger.Debug("Inspector server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("Shutting down inspector server...")
	if err := app.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Inspector server shutdown failed", "error", err)
		return err
	}
	app.httpServer = nil

	logger.Debug("Inspector server shut down gracefully.")
	return nil
}

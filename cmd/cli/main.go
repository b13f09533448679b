package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/specialistvlad/patchbay/internal/app"
	"github.com/specialistvlad/patchbay/internal/catalog"
	"github.com/specialistvlad/patchbay/internal/cli"
	"github.com/specialistvlad/patchbay/internal/hcl"
)

// main is the entrypoint for the patchbay application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Args[1:])
	stop()

	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW io.Writer, args []string) (err error) {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	patchbay, err := newApp(outW, appConfig)
	if err != nil {
		return err
	}
	return patchbay.Run(ctx)
}

// newApp builds the application. NewApp panics on fatal startup errors; the
// panic is turned into a regular error that keeps the cause's chain.
func newApp(outW io.Writer, cfg *app.Config) (a *app.App, err error) {
	defer func() {
		if r := recover(); r != nil {
			if cause, ok := r.(error); ok {
				err = fmt.Errorf("application startup panicked: %w", cause)
				return
			}
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()
	return app.NewApp(outW, cfg, hcl.NewLoader(), catalog.New()), nil
}

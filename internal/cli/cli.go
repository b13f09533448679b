package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/patchbay/internal/app"
	"github.com/specialistvlad/patchbay/internal/sharedstate"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("patchbay", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
patchbay - Plan and inspect the patches declared for a process.

Usage:
  patchbay [options] [MANIFEST_PATH...]

Arguments:
  MANIFEST_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	manifestsFlag := flagSet.String("manifests", "", "Comma-separated manifest files or directories.")
	mFlag := flagSet.String("m", "", "Comma-separated manifest files or directories (shorthand).")
	stateNameFlag := flagSet.String("state-name", sharedstate.DefaultName, "Discovery name of the shared patch state.")
	inspectPortFlag := flagSet.Int("inspect-port", 0, "Port for the HTTP inspector serving /health and /patches. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	resolveFlag := flagSet.Bool("resolve", false, "Invoke factories and report the callables they produce.")
	reportURLFlag := flagSet.String("report-url", "", "socket.io endpoint that receives the plan. Empty is disabled.")
	reportNamespaceFlag := flagSet.String("report-namespace", "", "socket.io namespace used with --report-url.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	var paths []string
	paths = append(paths, splitList(*manifestsFlag)...)
	paths = append(paths, splitList(*mFlag)...)
	paths = append(paths, flagSet.Args()...)
	slog.Debug("Manifest paths determined.", "paths", paths)

	if len(paths) == 0 {
		slog.Debug("No manifest path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if strings.TrimSpace(*stateNameFlag) == "" {
		return nil, false, &ExitError{Code: 2, Message: "invalid state-name: must not be empty"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ManifestPaths: paths,
		StateName:     *stateNameFlag,
		InspectPort:   *inspectPortFlag,
		LogFormat:     logFormat,
		LogLevel:      logLevel,
		Resolve:       *resolveFlag,

		ReportURL:       *reportURLFlag,
		ReportNamespace: *reportNamespaceFlag,
	})

	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

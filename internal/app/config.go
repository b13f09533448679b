package app

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/patchbay/internal/sharedstate"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ManifestPaths []string // hcl files or directories
	StateName     string

	LogFormat   string
	LogLevel    string
	InspectPort int
	// Resolve invokes factories when reporting the plan.
	Resolve bool

	// ReportURL, when set, receives the plan as a socket.io event.
	ReportURL       string
	ReportNamespace string
}

func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.ManifestPaths) == 0 {
		return nil, errors.New("ManifestPaths is a required configuration field and cannot be empty")
	}
	if cfg.StateName == "" {
		cfg.StateName = sharedstate.DefaultName
	}
	if cfg.InspectPort < 0 || cfg.InspectPort > 65535 {
		return nil, fmt.Errorf("InspectPort %d is out of range", cfg.InspectPort)
	}
	return &cfg, nil
}

// Package config defines the format-agnostic model of a patch manifest and
// the Loader interface that produces it.
//
// The `config.Model` is the single input of the planning step in `app`.
// Concrete loaders, such as the HCL one, live in separate packages.
package config

// Package hcl provides the concrete HCL implementation of config.Loader.
// It is responsible for file parsing, expression evaluation against the
// manifest scope and translation into the config model.
package hcl

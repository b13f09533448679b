// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary lifecycle: load manifests,
// apply them to the shared patch state and report the resulting plan,
// decoupled from any specific entrypoint like a CLI or server.
package app

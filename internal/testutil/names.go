// Package testutil holds helpers shared by the package tests.
package testutil

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

// UniqueName returns a discovery name no other test uses. The discovery
// namespace lives for the whole test binary and cannot be cleared, so every
// test that opens a shared state needs its own name.
func UniqueName(t *testing.T) string {
	t.Helper()
	return "patchbay.test." + strings.ReplaceAll(t.Name(), "/", ".") + "." + uuid.NewString()
}

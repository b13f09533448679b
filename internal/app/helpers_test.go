package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/patchbay/internal/catalog"
	"github.com/specialistvlad/patchbay/internal/hcl"
	"github.com/specialistvlad/patchbay/internal/testutil"
)

// setupAppTest writes manifest to a temporary directory and builds an App
// over it with its own shared state name. mutate may adjust the config.
func setupAppTest(t *testing.T, manifest string, cat *catalog.Catalog, mutate func(*Config)) (*App, *testutil.SafeBuffer) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.hcl"), []byte(manifest), 0o600))

	cfg, err := NewConfig(Config{
		ManifestPaths: []string{dir},
		StateName:     testutil.UniqueName(t),
		LogLevel:      "debug",
		LogFormat:     "text",
	})
	require.NoError(t, err)
	if mutate != nil {
		mutate(cfg)
	}

	buf := &testutil.SafeBuffer{}
	a := NewApp(buf, cfg, hcl.NewLoader(), cat)

	t.Cleanup(func() {
		if os.Getenv("PATCHBAY_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), buf.String())
		}
	})
	return a, buf
}

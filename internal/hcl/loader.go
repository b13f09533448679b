package hcl

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/specialistvlad/patchbay/internal/config"
	"github.com/specialistvlad/patchbay/internal/ctxlog"
	"github.com/specialistvlad/patchbay/internal/fsutil"
	"github.com/specialistvlad/patchbay/internal/schema"
)

// Extension is the file extension of manifest files.
const Extension = ".hcl"

// ErrNoManifests is returned when the given paths contain no manifest file.
var ErrNoManifests = errors.New("no manifest files found")

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	evalCtx *hcl.EvalContext
}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL manifest loader.
func NewLoader() *Loader {
	return &Loader{evalCtx: NewEvalContext()}
}

// Load parses every manifest below paths and merges them into one model.
// Files are read in the order the paths were given, directories in lexical
// order.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.FindFiles(paths, Extension)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%v: %w", paths, ErrNoManifests)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	model := &config.Model{}
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		m, err := l.decodeFile(ctx, hclFile)
		if err != nil {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, err)
		}
		model.Merge(m)
	}

	logger.Debug("HCL loading complete.",
		"patches", len(model.Patches), "unpatches", len(model.Unpatches), "removals", len(model.Removals))
	return model, nil
}

// LoadSource parses a single manifest held in memory. filename is only used
// in error messages.
func (l *Loader) LoadSource(ctx context.Context, filename string, src []byte) (*config.Model, error) {
	hclFile, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL source %s: %w", filename, diags)
	}
	return l.decodeFile(ctx, hclFile)
}

func (l *Loader) decodeFile(ctx context.Context, f *hcl.File) (*config.Model, error) {
	var root schema.ManifestFile
	if diags := gohcl.DecodeBody(f.Body, l.evalCtx, &root); diags.HasErrors() {
		return nil, diags
	}

	m := &config.Model{}
	for _, p := range root.Patches {
		decl, err := l.translatePatch(ctx, p)
		if err != nil {
			return nil, err
		}
		m.Patches = append(m.Patches, decl)
	}
	for _, u := range root.Unpatches {
		decl, err := l.translateUnpatch(u)
		if err != nil {
			return nil, err
		}
		m.Unpatches = append(m.Unpatches, decl)
	}
	for _, r := range root.Removals {
		decl, err := l.translateRemoval(r)
		if err != nil {
			return nil, err
		}
		m.Removals = append(m.Removals, decl)
	}
	return m, nil
}

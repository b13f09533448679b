package hcl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"

	"github.com/specialistvlad/patchbay/internal/config"
	"github.com/specialistvlad/patchbay/internal/schema"
	"github.com/specialistvlad/patchbay/pkg/patch"
)

// ErrInvalidManifest is wrapped by every semantic error in a manifest.
var ErrInvalidManifest = errors.New("invalid manifest")

func invalidf(src config.Source, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", src, ErrInvalidManifest, fmt.Sprintf(format, args...))
}

func sourceOf(body hcl.Body) config.Source {
	if body == nil {
		return config.Source{}
	}
	r := body.MissingItemRange()
	return config.Source{File: r.Filename, Line: r.Start.Line}
}

func requireNonEmpty(src config.Source, block string, fields map[string]string) error {
	for _, name := range []string{"target", "method", "owner"} {
		v, ok := fields[name]
		if ok && strings.TrimSpace(v) == "" {
			return invalidf(src, "%s: %s must not be empty", block, name)
		}
	}
	return nil
}

// translatePatch converts the HCL-specific patch schema into the agnostic model.
func (l *Loader) translatePatch(ctx context.Context, p *schema.Patch) (*config.PatchDecl, error) {
	src := sourceOf(p.Body)
	block := fmt.Sprintf("patch %q %q", p.Kind, p.Name)

	kind, err := patch.ParseKind(p.Kind)
	if err != nil {
		return nil, invalidf(src, "%s: %v", block, err)
	}
	if err := requireNonEmpty(src, block, map[string]string{
		"target": p.Target, "method": p.Method, "owner": p.Owner,
	}); err != nil {
		return nil, err
	}

	decl := &config.PatchDecl{
		Kind:     kind,
		Name:     p.Name,
		Target:   p.Target,
		Method:   p.Method,
		Owner:    p.Owner,
		Priority: patch.Normal,
		Source:   src,
	}
	if p.Factory != nil {
		decl.Factory = *p.Factory
	}
	if _, err := decodeExpr(ctx, p.Priority, l.evalCtx, &decl.Priority); err != nil {
		return nil, invalidf(src, "%s: priority: %v", block, err)
	}
	if _, err := decodeExpr(ctx, p.Before, l.evalCtx, &decl.Before); err != nil {
		return nil, invalidf(src, "%s: before: %v", block, err)
	}
	if _, err := decodeExpr(ctx, p.After, l.evalCtx, &decl.After); err != nil {
		return nil, invalidf(src, "%s: after: %v", block, err)
	}
	return decl, nil
}

// translateUnpatch converts the HCL-specific unpatch schema into the agnostic model.
func (l *Loader) translateUnpatch(u *schema.Unpatch) (*config.UnpatchDecl, error) {
	src := sourceOf(u.Body)
	block := fmt.Sprintf("unpatch %q", u.Kind)

	kind, err := patch.ParseKind(u.Kind)
	if err != nil {
		return nil, invalidf(src, "%s: %v", block, err)
	}
	if err := requireNonEmpty(src, block, map[string]string{"target": u.Target, "owner": u.Owner}); err != nil {
		return nil, err
	}
	return &config.UnpatchDecl{Kind: kind, Target: u.Target, Owner: u.Owner, Source: src}, nil
}

// translateRemoval converts the HCL-specific remove_patch schema into the agnostic model.
func (l *Loader) translateRemoval(r *schema.RemovePatch) (*config.RemovalDecl, error) {
	src := sourceOf(r.Body)
	if err := requireNonEmpty(src, "remove_patch", map[string]string{"target": r.Target, "method": r.Method}); err != nil {
		return nil, err
	}
	return &config.RemovalDecl{Target: r.Target, Method: r.Method, Source: src}, nil
}

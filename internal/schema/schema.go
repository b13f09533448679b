// Package schema holds the HCL decoding targets of a patch manifest. The
// structs mirror the file layout; translation into config.Model happens in
// the hcl package.
package schema

import "github.com/hashicorp/hcl/v2"

// Patch represents a `patch "<kind>" "<name>"` block.
type Patch struct {
	Kind   string `hcl:"kind,label"`
	Name   string `hcl:"name,label"`
	Target string `hcl:"target"`
	Method string `hcl:"method"`
	Owner  string `hcl:"owner"`

	// Evaluated later against the priority scope.
	Priority hcl.Expression `hcl:"priority,optional"`
	Before   hcl.Expression `hcl:"before,optional"`
	After    hcl.Expression `hcl:"after,optional"`

	Factory *bool    `hcl:"factory,optional"`
	Body    hcl.Body `hcl:",body"`
}

// Unpatch represents an `unpatch "<kind>"` block.
type Unpatch struct {
	Kind   string   `hcl:"kind,label"`
	Target string   `hcl:"target"`
	Owner  string   `hcl:"owner"`
	Body   hcl.Body `hcl:",body"`
}

// RemovePatch represents a `remove_patch` block.
type RemovePatch struct {
	Target string   `hcl:"target"`
	Method string   `hcl:"method"`
	Body   hcl.Body `hcl:",body"`
}

// ManifestFile represents the top-level structure of a manifest file.
type ManifestFile struct {
	Patches   []*Patch       `hcl:"patch,block"`
	Unpatches []*Unpatch     `hcl:"unpatch,block"`
	Removals  []*RemovePatch `hcl:"remove_patch,block"`
}

package sharedstate

import (
	"errors"
	"fmt"
	"reflect"
)

// InternalVersion is the schema version of the types compiled into this copy.
const InternalVersion = 2

// Descriptor field names. They are the part of the schema every version must
// keep stable.
const (
	FieldVersion      = "version"
	FieldPatchSetType = "patchSetType"
	FieldPatchType    = "patchType"
	FieldPatchSets    = "patchSets"
)

// descriptor is the decoded form of a published schema descriptor.
type descriptor struct {
	version      int
	patchSetType reflect.Type
	patchType    reflect.Type
	store        reflect.Value
}

// describe builds the descriptor published by a creator. Only standard
// library types appear in it so that any copy can read it.
func describe(store *sharedPatchSets) map[string]any {
	return map[string]any{
		FieldVersion:      InternalVersion,
		FieldPatchSetType: reflect.TypeOf((*sharedPatchSet)(nil)),
		FieldPatchType:    reflect.TypeOf((*sharedPatch)(nil)),
		FieldPatchSets:    store,
	}
}

func readDescriptor(published any) (*descriptor, error) {
	fields, ok := published.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("descriptor is %T, want map[string]any", published)
	}

	var errs []error
	d := &descriptor{}
	if v, ok := fields[FieldVersion].(int); ok {
		d.version = v
	} else {
		errs = append(errs, missingField(FieldVersion, fields))
	}
	if t, ok := fields[FieldPatchSetType].(reflect.Type); ok && t != nil {
		d.patchSetType = t
	} else {
		errs = append(errs, missingField(FieldPatchSetType, fields))
	}
	if t, ok := fields[FieldPatchType].(reflect.Type); ok && t != nil {
		d.patchType = t
	} else {
		errs = append(errs, missingField(FieldPatchType, fields))
	}
	if s, ok := fields[FieldPatchSets]; ok && s != nil {
		d.store = reflect.ValueOf(s)
	} else {
		errs = append(errs, missingField(FieldPatchSets, fields))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return d, nil
}

func missingField(name string, fields map[string]any) error {
	if v, ok := fields[name]; ok {
		return fmt.Errorf("descriptor field %q has unexpected type %T", name, v)
	}
	return fmt.Errorf("descriptor field %q is missing", name)
}

// matchesCompiled reports whether d was published by a copy built from the
// same types as this one, in which case no adapter is needed.
func (d *descriptor) matchesCompiled() bool {
	return d.version == InternalVersion &&
		d.patchSetType == reflect.TypeOf((*sharedPatchSet)(nil)) &&
		d.patchType == reflect.TypeOf((*sharedPatch)(nil)) &&
		d.store.Type() == reflect.TypeOf((*sharedPatchSets)(nil))
}

package hcl

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/specialistvlad/patchbay/pkg/patch"
)

// NewEvalContext returns the scope manifest expressions are evaluated in.
// It exposes the named priority levels as `priority.<name>` and a handful of
// functions for composing priorities and owner lists.
func NewEvalContext() *hcl.EvalContext {
	levels := make(map[string]cty.Value, len(patch.Priorities))
	for name, v := range patch.Priorities {
		levels[name] = cty.NumberIntVal(int64(v))
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"priority": cty.ObjectVal(levels),
		},
		Functions: map[string]function.Function{
			"max":    stdlib.MaxFunc,
			"min":    stdlib.MinFunc,
			"concat": stdlib.ConcatFunc,
			"lower":  stdlib.LowerFunc,
			"format": stdlib.FormatFunc,
		},
	}
}

package composite

import (
	"regexp"

	"github.com/rasto/lcmc-sub002/pkg/editable"
)

var (
	booleanRe = regexp.MustCompile(`^(true|false)$`)
	countRe   = regexp.MustCompile(`^[0-9]+$`)
	idRe      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)
)

// DefaultConfig returns the group and clone meta attributes the CRM
// understands, with their CRM defaults
func DefaultConfig() Config {
	return Config{
		GroupParams: []editable.ParamSpec{
			{Name: ParamID, Regexp: idRe, Required: true},
			{Name: GroupOrderedMetaAttr, Default: "true", Regexp: booleanRe},
			{Name: "collocated", Default: "true", Regexp: booleanRe},
			{Name: "target-role", Default: "started", Regexp: regexp.MustCompile(`^(started|stopped|master)$`)},
		},
		CloneParams: []editable.ParamSpec{
			{Name: ParamID, Regexp: idRe, Required: true},
			{Name: "clone-max", Regexp: countRe},
			{Name: "clone-node-max", Default: "1", Regexp: countRe},
			{Name: "notify", Default: "false", Regexp: booleanRe},
			{Name: "globally-unique", Default: "false", Regexp: booleanRe},
			{Name: "ordered", Default: "false", Regexp: booleanRe},
			{Name: "interleave", Default: "false", Regexp: booleanRe},
		},
	}
}

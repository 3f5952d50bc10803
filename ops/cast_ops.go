package ops

import "github.com/vinhphatfsg/rulemorph/value"

// The cast category's `string` op is identical to to_string and is
// registered as an alias for it in string_ops.go; only int/float/bool are
// registered here.
func init() {
	register([]string{"int"}, opCastInt)
	register([]string{"float"}, opCastFloat)
	register([]string{"bool"}, opCastBool)
}

func opCastInt(c Call) (any, error)   { return value.CastInt(c.Pipe) }
func opCastFloat(c Call) (any, error) { return value.CastFloat(c.Pipe) }
func opCastBool(c Call) (any, error)  { return value.CastBool(c.Pipe) }

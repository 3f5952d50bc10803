package ops

import (
	"strings"

	"github.com/vinhphatfsg/rulemorph/value"
	"github.com/vinhphatfsg/rulemorph/xerr"
)

func init() {
	register([]string{"trim"}, opTrim)
	register([]string{"lowercase"}, opLowercase)
	register([]string{"uppercase"}, opUppercase)
	register([]string{"to_string", "string"}, opToString)
	register([]string{"concat"}, opConcat)
	register([]string{"replace"}, opReplace)
	register([]string{"split"}, opSplit)
	register([]string{"pad_start"}, opPadStart)
	register([]string{"pad_end"}, opPadEnd)
}

func opTrim(c Call) (any, error) {
	s, err := value.CastString(c.Pipe)
	if err != nil {
		return nil, xerr.ErrTypeMismatch("trim", value.TypeName(c.Pipe), "string")
	}
	return strings.TrimSpace(s), nil
}

func opLowercase(c Call) (any, error) {
	s, err := value.CastString(c.Pipe)
	if err != nil {
		return nil, xerr.ErrTypeMismatch("lowercase", value.TypeName(c.Pipe), "string")
	}
	return strings.ToLower(s), nil
}

func opUppercase(c Call) (any, error) {
	s, err := value.CastString(c.Pipe)
	if err != nil {
		return nil, xerr.ErrTypeMismatch("uppercase", value.TypeName(c.Pipe), "string")
	}
	return strings.ToUpper(s), nil
}

func opToString(c Call) (any, error) {
	return value.CastString(c.Pipe)
}

// opConcat joins the pipe value with every argument's string form, in
// order. Used as concat(vars...): the pipe value is the first segment.
func opConcat(c Call) (any, error) {
	args, err := c.EvalArgs()
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	head, err := value.CastString(c.Pipe)
	if err != nil {
		return nil, xerr.ErrTypeMismatch("concat", value.TypeName(c.Pipe), "string-able")
	}
	b.WriteString(head)
	for _, a := range args {
		s, err := value.CastString(a)
		if err != nil {
			return nil, xerr.ErrTypeMismatch("concat", value.TypeName(a), "string-able")
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// opReplace implements replace(pat, rep, mode?). mode "first" replaces
// only the first occurrence; anything else (including absent) replaces
// all occurrences.
func opReplace(c Call) (any, error) {
	s, err := value.CastString(c.Pipe)
	if err != nil {
		return nil, xerr.ErrTypeMismatch("replace", value.TypeName(c.Pipe), "string")
	}
	args, err := c.EvalArgs()
	if err != nil {
		return nil, err
	}
	if len(args) < 2 {
		return nil, xerr.ErrValidation("", "", "replace requires (pat, rep, mode?)")
	}
	pat, err := value.CastString(args[0])
	if err != nil {
		return nil, xerr.ErrTypeMismatch("replace", value.TypeName(args[0]), "string pattern")
	}
	rep, err := value.CastString(args[1])
	if err != nil {
		return nil, xerr.ErrTypeMismatch("replace", value.TypeName(args[1]), "string replacement")
	}
	n := -1
	if len(args) >= 3 {
		mode, _ := value.CastString(args[2])
		if mode == "first" {
			n = 1
		}
	}
	return strings.Replace(s, pat, rep, n), nil
}

func opSplit(c Call) (any, error) {
	s, err := value.CastString(c.Pipe)
	if err != nil {
		return nil, xerr.ErrTypeMismatch("split", value.TypeName(c.Pipe), "string")
	}
	delim, err := c.EvalArg(0)
	if err != nil {
		return nil, err
	}
	d, err := value.CastString(delim)
	if err != nil {
		return nil, xerr.ErrTypeMismatch("split", value.TypeName(delim), "string delimiter")
	}
	parts := strings.Split(s, d)
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out, nil
}

func opPadStart(c Call) (any, error) { return pad(c, true) }
func opPadEnd(c Call) (any, error)   { return pad(c, false) }

func pad(c Call, start bool) (any, error) {
	s, err := value.CastString(c.Pipe)
	if err != nil {
		return nil, xerr.ErrTypeMismatch("pad", value.TypeName(c.Pipe), "string")
	}
	nArg, err := c.EvalArg(0)
	if err != nil {
		return nil, err
	}
	n, err := value.CastInt(nArg)
	if err != nil {
		return nil, xerr.ErrTypeMismatch("pad", value.TypeName(nArg), "int width")
	}
	padStr := " "
	if p, err := c.EvalArg(1); err == nil && !value.IsMissing(p) {
		if ps, err := value.CastString(p); err == nil && ps != "" {
			padStr = ps
		}
	}
	for len([]rune(s)) < int(n) {
		if start {
			s = padStr + s
		} else {
			s = s + padStr
		}
	}
	// trim any overshoot from a multi-rune pad string
	runes := []rune(s)
	if len(runes) > int(n) {
		if start {
			s = string(runes[len(runes)-int(n):])
		} else {
			s = string(runes[:n])
		}
	}
	return s, nil
}

package ops

import (
	"strconv"
	"time"

	"github.com/vinhphatfsg/rulemorph/value"
	"github.com/vinhphatfsg/rulemorph/xerr"
)

func init() {
	register([]string{"date_format"}, opDateFormat)
	register([]string{"to_unixtime"}, opToUnixtime)
}

// referenceLayouts maps the small set of format tokens rule documents use
// to Go's reference-time layout strings, the same approach the standard
// library's time package requires since it has no strftime-style verbs.
var referenceLayouts = map[string]string{
	"rfc3339":    time.RFC3339,
	"2006-01-02": "2006-01-02",
	"date":       "2006-01-02",
	"datetime":   "2006-01-02 15:04:05",
	"unix":       "",
}

func resolveLayout(name string) (string, bool) {
	if layout, ok := referenceLayouts[name]; ok {
		return layout, true
	}
	// treat anything else as a literal Go reference-time layout, which
	// lets rule authors pass one directly when the presets don't fit.
	return name, true
}

func loadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, xerr.ErrTypeMismatch("date_format", "string "+strconv.Quote(tz), "IANA timezone name")
	}
	return loc, nil
}

// opDateFormat implements date_format(fmt_in, fmt_out, tz?): parses the
// pipe value (a string) per fmt_in, then renders it per fmt_out in tz
// (default UTC).
func opDateFormat(c Call) (any, error) {
	s, err := value.CastString(c.Pipe)
	if err != nil {
		return nil, xerr.ErrTypeMismatch("date_format", value.TypeName(c.Pipe), "string")
	}
	args, err := c.EvalArgs()
	if err != nil {
		return nil, err
	}
	if len(args) < 2 {
		return nil, xerr.ErrValidation("", "", "date_format requires (fmt_in, fmt_out, tz?)")
	}
	fmtIn, err := value.CastString(args[0])
	if err != nil {
		return nil, xerr.ErrTypeMismatch("date_format", value.TypeName(args[0]), "string format")
	}
	fmtOut, err := value.CastString(args[1])
	if err != nil {
		return nil, xerr.ErrTypeMismatch("date_format", value.TypeName(args[1]), "string format")
	}
	tz := ""
	if len(args) >= 3 {
		tz, _ = value.CastString(args[2])
	}

	loc, err := loadLocation(tz)
	if err != nil {
		return nil, err
	}

	layoutIn, _ := resolveLayout(fmtIn)
	t, err := time.ParseInLocation(layoutIn, s, loc)
	if err != nil {
		return nil, xerr.ErrTypeMismatch("date_format", "string "+strconv.Quote(s), "value matching format "+fmtIn)
	}

	layoutOut, _ := resolveLayout(fmtOut)
	return t.Format(layoutOut), nil
}

// opToUnixtime implements to_unixtime(fmt?, tz?): converts the pipe value
// to epoch seconds. If the pipe value is already an integer (or an
// integral float), it is returned as int64 (assumed already epoch
// seconds); anything else is cast to a string and parsed per fmt
// (default RFC3339) in tz (default UTC).
func opToUnixtime(c Call) (any, error) {
	if n, ok := value.AsInt64(c.Pipe); ok {
		return n, nil
	}

	s, err := value.CastString(c.Pipe)
	if err != nil {
		return nil, xerr.ErrTypeMismatch("to_unixtime", value.TypeName(c.Pipe), "string or numeric timestamp")
	}

	fmtIn := "rfc3339"
	if v, err := c.EvalArg(0); err == nil && !value.IsMissing(v) {
		if f, err := value.CastString(v); err == nil && f != "" {
			fmtIn = f
		}
	}
	tz := ""
	if v, err := c.EvalArg(1); err == nil && !value.IsMissing(v) {
		tz, _ = value.CastString(v)
	}

	loc, err := loadLocation(tz)
	if err != nil {
		return nil, err
	}
	layout, _ := resolveLayout(fmtIn)
	t, err := time.ParseInLocation(layout, s, loc)
	if err != nil {
		return nil, xerr.ErrTypeMismatch("to_unixtime", "string "+strconv.Quote(s), "value matching format "+fmtIn)
	}
	return t.Unix(), nil
}

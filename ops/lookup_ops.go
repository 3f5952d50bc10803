package ops

import (
	"context"
	"time"

	"github.com/vinhphatfsg/rulemorph/cache"
	"github.com/vinhphatfsg/rulemorph/value"
	"github.com/vinhphatfsg/rulemorph/xerr"
)

func init() {
	register([]string{"lookup"}, opLookup)
	register([]string{"lookup_first"}, opLookupFirst)
}

// lookupCache memoizes a lookup's (from, match_key, needle) scan so
// repeated lookups against the same table and needle across records
// don't re-scan the table; keyed by a structural hash of the scan's
// arguments via cache.Key, and bounded since a rule document's lookup
// tables are finite and small relative to the record stream driving it.
var lookupCache = cache.New[[]any](4096)

const lookupCacheTTL = 5 * time.Minute

// opLookup implements `lookup(from?, match_key, needle, get?)`: scans
// `from` (or the pipe value, if `from` is omitted) for every element
// whose `match_key` field equals `needle`, returning an array of either
// the matching elements or, if `get` is given, the named field projected
// out of each match.
func opLookup(c Call) (any, error) {
	table, matchKey, needle, get, err := lookupArgs(c)
	if err != nil {
		return nil, err
	}
	key, err := cache.Key(table, matchKey, needle, get)
	if err != nil {
		return nil, err
	}
	return lookupCache.Get(context.Background(), key, lookupCacheTTL, func(_ context.Context, _ string) ([]any, error) {
		return scanLookup(table, matchKey, needle, get)
	})
}

func opLookupFirst(c Call) (any, error) {
	results, err := opLookup(c)
	if err != nil {
		return nil, err
	}
	arr := results.([]any)
	if len(arr) == 0 {
		return value.Missing, nil
	}
	return arr[0], nil
}

// lookupArgs resolves the optional leading `from` argument: lookup takes
// either (from, match_key, needle, get?) or (match_key, needle, get?),
// disambiguated by whether the first argument evaluates to an array (a
// table) or a string (a field name), since `from` has no separate
// keyword of its own.
func lookupArgs(c Call) (table []any, matchKey string, needle any, get string, err error) {
	args, err := c.EvalArgs()
	if err != nil {
		return nil, "", nil, "", err
	}
	if len(args) < 2 {
		return nil, "", nil, "", xerr.ErrValidation("", "", "lookup requires at least (match_key, needle)")
	}

	rest := args
	if arr, ok := args[0].([]any); ok {
		table = arr
		rest = args[1:]
	} else if pipeArr, ok := c.Pipe.([]any); ok {
		table = pipeArr
	} else {
		return nil, "", nil, "", xerr.ErrTypeMismatch("lookup", value.TypeName(c.Pipe), "array table (pipe value or `from` argument)")
	}

	if len(rest) < 2 {
		return nil, "", nil, "", xerr.ErrValidation("", "", "lookup requires (match_key, needle)")
	}
	matchKey, err = value.CastString(rest[0])
	if err != nil {
		return nil, "", nil, "", xerr.ErrTypeMismatch("lookup", value.TypeName(rest[0]), "string match_key")
	}
	needle = rest[1]
	if len(rest) >= 3 {
		get, err = value.CastString(rest[2])
		if err != nil {
			return nil, "", nil, "", xerr.ErrTypeMismatch("lookup", value.TypeName(rest[2]), "string get field")
		}
	}
	return table, matchKey, needle, get, nil
}

func scanLookup(table []any, matchKey string, needle any, get string) ([]any, error) {
	var out []any
	for _, row := range table {
		obj, ok := value.AsObject(row)
		if !ok {
			continue
		}
		v, ok := obj.Get(matchKey)
		if !ok || !value.Equal(v, needle) {
			continue
		}
		if get == "" {
			out = append(out, row)
			continue
		}
		projected, ok := obj.Get(get)
		if !ok {
			projected = value.Missing
		}
		out = append(out, projected)
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}

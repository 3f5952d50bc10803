package refpath

import (
	"strconv"
	"strings"

	"github.com/vinhphatfsg/rulemorph/xerr"
)

// Parse parses a reference path. A string with no leading '@' and no '.'
// is shorthand for `@input.<s>`; any other leading-'@'-free string is
// parsed as if `@input` had been prepended, so dotted bare names like
// `a.b` still resolve against the input namespace.
func Parse(s string) (*Path, error) {
	raw := s
	if !strings.HasPrefix(s, "@") {
		s = "@input" + leadingDot(s)
	}

	if len(s) < 2 {
		return nil, xerr.ErrParse("", raw, "empty reference path")
	}

	rest := s[1:] // drop '@'
	nsTok, rest := takeIdent(rest)
	if nsTok == "" {
		return nil, xerr.ErrParse("", raw, "reference path missing namespace after '@'")
	}

	p := &Path{raw: raw}
	switch nsTok {
	case "input":
		p.Namespace = NSInput
	case "context":
		p.Namespace = NSContext
	case "out":
		p.Namespace = NSOut
	case "item":
		p.Namespace = NSItem
	default:
		p.Namespace = NSLet
		p.LetName = nsTok
	}

	segs, err := parseSegments(raw, rest)
	if err != nil {
		return nil, err
	}
	p.Segments = segs

	if p.Namespace == NSItem && len(segs) == 1 && segs[0].Kind == SegField && segs[0].Field == "index" {
		p.ItemIndex = true
	}

	return p, nil
}

// leadingDot ensures a bare "id" becomes ".id" so it parses as a single
// field segment the same way "@input.id" would.
func leadingDot(s string) string {
	if s == "" {
		return s
	}
	if strings.HasPrefix(s, ".") || strings.HasPrefix(s, "[") {
		return s
	}
	return "." + s
}

func takeIdent(s string) (ident, rest string) {
	i := 0
	for i < len(s) && isIdentChar(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

func isIdentChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-'
}

func parseSegments(raw, rest string) ([]Segment, error) {
	var segs []Segment
	for len(rest) > 0 {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			ident, r := takeIdent(rest)
			if ident == "" {
				return nil, xerr.ErrParse("", raw, "expected identifier after '.'")
			}
			segs = append(segs, Segment{Kind: SegField, Field: ident})
			rest = r
		case '[':
			seg, r, err := parseBracket(raw, rest)
			if err != nil {
				return nil, err
			}
			segs = append(segs, seg)
			rest = r
		default:
			return nil, xerr.ErrParse("", raw, "unexpected character "+strconv.QuoteRune(rune(rest[0]))+" in reference path")
		}
	}
	return segs, nil
}

// parseBracket parses `[N]`, `["k"]`, or `['k']` starting at rest[0]=='['.
// Inside a quoted bracket, only '\\' and the matching quote may be
// escaped; '[' and ']' are never allowed unescaped.
func parseBracket(raw, rest string) (Segment, string, error) {
	rest = rest[1:] // drop '['
	if rest == "" {
		return Segment{}, "", xerr.ErrParse("", raw, "unterminated '[' in reference path")
	}

	if rest[0] == '"' || rest[0] == '\'' {
		quote := rest[0]
		rest = rest[1:]
		var sb strings.Builder
		closed := false
		i := 0
		for i < len(rest) {
			c := rest[i]
			if c == '\\' && i+1 < len(rest) && (rest[i+1] == quote || rest[i+1] == '\\') {
				sb.WriteByte(rest[i+1])
				i += 2
				continue
			}
			if c == quote {
				i++
				closed = true
				break
			}
			if c == '[' || c == ']' {
				return Segment{}, "", xerr.ErrParse("", raw, "unescaped bracket inside quoted key")
			}
			sb.WriteByte(c)
			i++
		}
		if !closed {
			return Segment{}, "", xerr.ErrParse("", raw, "unterminated quoted key in reference path")
		}
		rest = rest[i:]
		if rest == "" || rest[0] != ']' {
			return Segment{}, "", xerr.ErrParse("", raw, "expected ']' after quoted key")
		}
		return Segment{Kind: SegKey, Field: sb.String()}, rest[1:], nil
	}

	i := 0
	neg := false
	if rest[0] == '-' {
		neg = true
		i++
	}
	start := i
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	if i == start {
		return Segment{}, "", xerr.ErrParse("", raw, "expected integer index or quoted key inside '['")
	}
	n, err := strconv.Atoi(rest[start:i])
	if err != nil {
		return Segment{}, "", xerr.ErrParse("", raw, "invalid integer index")
	}
	if neg {
		n = -n
	}
	if i >= len(rest) || rest[i] != ']' {
		return Segment{}, "", xerr.ErrParse("", raw, "expected ']' after index")
	}
	return Segment{Kind: SegIndex, Index: n}, rest[i+1:], nil
}

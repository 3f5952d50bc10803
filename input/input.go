// Package input turns raw CSV or JSON bytes into the lazy sequence of
// input records the record engine drives one at a time. CSV rows are
// read lazily off the underlying reader; a JSON document is decoded
// once (records_path addresses an arbitrary position in it) and then
// walked through github.com/binaek/gocoll/collection to turn the
// materialized slice into a stream.
package input

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"

	"github.com/binaek/gocoll/collection"

	"github.com/vinhphatfsg/rulemorph/refpath"
	"github.com/vinhphatfsg/rulemorph/ruleast"
	"github.com/vinhphatfsg/rulemorph/value"
	"github.com/vinhphatfsg/rulemorph/xerr"
)

// Stream yields input records one at a time. Next returns (nil, false,
// nil) once exhausted.
type Stream interface {
	Next() (any, bool, error)
}

// Open builds the lazy record Stream spec.Format selects.
func Open(r io.Reader, spec ruleast.InputSpec) (Stream, error) {
	switch spec.Format {
	case ruleast.InputCSV:
		return newCSVStream(r, spec)
	case ruleast.InputJSON:
		return newJSONStream(r, spec)
	default:
		return nil, xerr.ErrValidation("", "", "unknown input format")
	}
}

// --- CSV ---

type csvStream struct {
	r       *csv.Reader
	columns []ruleast.CSVColumn
	header  []string
}

func newCSVStream(r io.Reader, spec ruleast.InputSpec) (*csvStream, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	if spec.Delimiter != "" {
		cr.Comma = rune(spec.Delimiter[0])
	}

	hasHeader := spec.HasHeader == nil || *spec.HasHeader
	s := &csvStream{r: cr, columns: spec.Columns}

	if hasHeader {
		header, err := cr.Read()
		if err != nil {
			if err == io.EOF {
				return s, nil
			}
			return nil, xerr.ErrParse("", "", "cannot read CSV header: "+err.Error())
		}
		s.header = header
	}
	return s, nil
}

func (s *csvStream) Next() (any, bool, error) {
	row, err := s.r.Read()
	if err == io.EOF {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, xerr.ErrParse("", "", "cannot read CSV row: "+err.Error())
	}

	obj := value.NewObject()
	for i, cell := range row {
		name, typ := s.columnAt(i)
		if name == "" {
			continue
		}
		v, err := castColumn(typ, cell)
		if err != nil {
			return nil, false, err
		}
		obj.Set(name, v)
	}
	return obj, true, nil
}

func (s *csvStream) columnAt(i int) (name, typ string) {
	if len(s.columns) > i {
		return s.columns[i].Name, s.columns[i].Type
	}
	if len(s.header) > i {
		return s.header[i], "string"
	}
	return "", ""
}

func castColumn(typ, raw string) (any, error) {
	switch typ {
	case "int":
		return value.CastInt(raw)
	case "float":
		return value.CastFloat(raw)
	case "bool":
		return value.CastBool(raw)
	default:
		return raw, nil
	}
}

// --- JSON ---

type jsonStream struct {
	records []any
	items   []any
	pos     int
}

func newJSONStream(r io.Reader, spec ruleast.InputSpec) (*jsonStream, error) {
	var root any
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&root); err != nil {
		if err == io.EOF {
			return &jsonStream{}, nil
		}
		return nil, xerr.ErrParse("", "", "cannot parse JSON input: "+err.Error())
	}
	root = normalizeJSON(root)

	records := root
	if spec.RecordsPath != "" {
		p, err := refpath.Parse(spec.RecordsPath)
		if err != nil {
			return nil, xerr.ErrParse("", "", "bad records_path: "+err.Error())
		}
		records = refpath.WalkSegments(root, p)
	}

	arr, ok := records.([]any)
	if !ok {
		return nil, xerr.ErrTypeMismatch("input.json.records_path", value.TypeName(records), "array")
	}
	items := collection.Map(collection.From(arr...), func(v any) any { return v }).ToSlice()
	return &jsonStream{records: arr, items: items}, nil
}

func (s *jsonStream) Next() (any, bool, error) {
	if s.pos >= len(s.items) {
		return nil, false, nil
	}
	v := s.items[s.pos]
	s.pos++
	return v, true, nil
}

// normalizeJSON converts json.Number and nested maps/slices into the
// value model's Object/array-of-any shape so a JSON input record looks
// exactly like a pipe/refpath-resolved value.
func normalizeJSON(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		obj := value.NewObject()
		for _, k := range sortedKeys(t) {
			obj.Set(k, normalizeJSON(t[k]))
		}
		return obj
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeJSON(e)
		}
		return out
	default:
		return t
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Package loader parses rule documents into ruleast.Rule, statically
// validates them, and recursively loads the rule files they reference,
// rejecting cycles in the resulting call graph.
package loader

import (
	"fmt"

	"github.com/vinhphatfsg/rulemorph/ruleast"
	"github.com/vinhphatfsg/rulemorph/xerr"
	"gopkg.in/yaml.v3"
)

func pos(n *yaml.Node) ruleast.Position { return ruleast.Position{Line: n.Line, Column: n.Column} }

func mappingPairs(path string, n *yaml.Node) (keys []string, vals []*yaml.Node, err error) {
	if n.Kind != yaml.MappingNode {
		return nil, nil, xerr.ErrParse(path, pos(n).String(), "expected a YAML mapping")
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		var k string
		if err := n.Content[i].Decode(&k); err != nil {
			return nil, nil, err
		}
		keys = append(keys, k)
		vals = append(vals, n.Content[i+1])
	}
	return keys, vals, nil
}

func keyIndex(keys []string, name string) int {
	for i, k := range keys {
		if k == name {
			return i
		}
	}
	return -1
}

// ParseRule decodes a single rule document's YAML text. path identifies
// the document for error messages; it is not read from disk here (see
// Load for recursive file loading).
func ParseRule(data []byte, path string) (*ruleast.Rule, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, xerr.ErrParse(path, "?", err.Error())
	}
	if len(doc.Content) == 0 {
		return nil, xerr.ErrParse(path, "?", "empty rule document")
	}
	root := doc.Content[0]

	keys, vals, err := mappingPairs(path, root)
	if err != nil {
		return nil, err
	}

	rule := &ruleast.Rule{Path: path, Type: ruleast.RuleNormal, Version: 2}

	for i, k := range keys {
		switch k {
		case "version":
			if err := vals[i].Decode(&rule.Version); err != nil {
				return nil, xerr.ErrParse(path, pos(vals[i]).String(), "version must be an integer")
			}
		case "type":
			var t string
			if err := vals[i].Decode(&t); err != nil {
				return nil, xerr.ErrParse(path, pos(vals[i]).String(), "type must be a string")
			}
			rule.Type = ruleast.RuleType(t)
		case "engine":
			if err := vals[i].Decode(&rule.Engine); err != nil {
				return nil, xerr.ErrParse(path, pos(vals[i]).String(), "engine must be a string")
			}
		}
	}

	switch rule.Type {
	case "", ruleast.RuleNormal:
		rule.Type = ruleast.RuleNormal
		n, err := parseNormalRule(path, keys, vals)
		if err != nil {
			return nil, err
		}
		rule.Normal = n
	case ruleast.RuleEndpoint:
		e, err := parseEndpointRule(path, keys, vals)
		if err != nil {
			return nil, err
		}
		rule.Endpoint = e
	case ruleast.RuleNetwork:
		net, err := parseNetworkRule(path, keys, vals)
		if err != nil {
			return nil, err
		}
		rule.Network = net
	default:
		return nil, xerr.ErrValidation(path, "type", fmt.Sprintf("unknown rule type %q", rule.Type))
	}

	return rule, nil
}

func parseNormalRule(path string, keys []string, vals []*yaml.Node) (*ruleast.NormalRule, error) {
	n := &ruleast.NormalRule{}
	for i, k := range keys {
		switch k {
		case "input":
			in, err := parseInputSpec(path, vals[i])
			if err != nil {
				return nil, err
			}
			n.Input = in
		case "mappings":
			ms, err := parseMappingsList(path, vals[i])
			if err != nil {
				return nil, err
			}
			n.Mappings = ms
		case "steps":
			ss, err := parseRecordSteps(path, vals[i])
			if err != nil {
				return nil, err
			}
			n.Steps = ss
		case "record_when":
			var c ruleast.Condition
			if err := c.UnmarshalYAML(vals[i]); err != nil {
				return nil, err
			}
			n.RecordWhen = &c
		case "finalize":
			var f ruleast.Finalize
			if err := f.UnmarshalYAML(vals[i]); err != nil {
				return nil, err
			}
			n.Finalize = &f
		}
	}
	return n, nil
}

func parseEndpointRule(path string, keys []string, vals []*yaml.Node) (*ruleast.EndpointRule, error) {
	e := &ruleast.EndpointRule{}
	for i, k := range keys {
		switch k {
		case "method":
			_ = vals[i].Decode(&e.Method)
		case "path":
			_ = vals[i].Decode(&e.Path)
		case "input":
			in, err := parseInputSpec(path, vals[i])
			if err != nil {
				return nil, err
			}
			e.Input = in
		case "steps":
			ss, err := parseRecordSteps(path, vals[i])
			if err != nil {
				return nil, err
			}
			e.Steps = ss
		case "catch":
			c, err := parseCatchMap(vals[i])
			if err != nil {
				return nil, err
			}
			e.Catch = c
		case "reply":
			rKeys, rVals, err := mappingPairs(path, vals[i])
			if err != nil {
				return nil, err
			}
			reply := &ruleast.ReplySpec{}
			for j, rk := range rKeys {
				switch rk {
				case "status":
					_ = rVals[j].Decode(&reply.Status)
				case "body":
					var p ruleast.Pipeline
					if err := p.UnmarshalYAML(rVals[j]); err != nil {
						return nil, err
					}
					reply.Body = &p
				}
			}
			e.Reply = reply
		}
	}
	return e, nil
}

func parseNetworkRule(path string, keys []string, vals []*yaml.Node) (*ruleast.NetworkRule, error) {
	net := &ruleast.NetworkRule{}
	for i, k := range keys {
		switch k {
		case "request":
			req, err := parseNetworkRequest(path, vals[i])
			if err != nil {
				return nil, err
			}
			net.Request = req
		case "select":
			_ = vals[i].Decode(&net.Select)
		case "catch":
			c, err := parseCatchMap(vals[i])
			if err != nil {
				return nil, err
			}
			net.Catch = c
		}
	}
	return net, nil
}

func parseNetworkRequest(path string, n *yaml.Node) (ruleast.NetworkRequest, error) {
	req := ruleast.NetworkRequest{}
	keys, vals, err := mappingPairs(path, n)
	if err != nil {
		return req, err
	}
	bodyKeys := 0
	for i, k := range keys {
		switch k {
		case "method":
			_ = vals[i].Decode(&req.Method)
		case "url":
			if err := req.URL.UnmarshalYAML(vals[i]); err != nil {
				return req, err
			}
		case "headers":
			var h map[string]string
			if err := vals[i].Decode(&h); err != nil {
				return req, err
			}
			req.Headers = h
		case "body":
			var v any
			if err := vals[i].Decode(&v); err != nil {
				return req, err
			}
			req.BodyKind = ruleast.BodyLiteral
			req.Body = v
			bodyKeys++
		case "body_map":
			var m map[string]any
			if err := vals[i].Decode(&m); err != nil {
				return req, err
			}
			req.BodyKind = ruleast.BodyMap
			req.BodyMap = m
			bodyKeys++
		case "body_rule":
			_ = vals[i].Decode(&req.BodyRuleRef)
			req.BodyKind = ruleast.BodyRule
			bodyKeys++
		case "timeout":
			_ = vals[i].Decode(&req.Timeout)
		case "retry":
			rKeys, rVals, err := mappingPairs(path, vals[i])
			if err != nil {
				return req, err
			}
			retry := &ruleast.RetrySpec{}
			for j, rk := range rKeys {
				switch rk {
				case "max":
					_ = rVals[j].Decode(&retry.Max)
				case "backoff":
					_ = rVals[j].Decode(&retry.Backoff)
				case "initial_delay":
					_ = rVals[j].Decode(&retry.InitialDelay)
				}
			}
			req.Retry = retry
		}
	}
	if bodyKeys > 1 {
		return req, xerr.ErrValidation(path, "request", "body, body_map, and body_rule are mutually exclusive")
	}
	return req, nil
}

func parseCatchMap(n *yaml.Node) (map[string]string, error) {
	var m map[string]string
	if err := n.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

func parseInputSpec(path string, n *yaml.Node) (ruleast.InputSpec, error) {
	spec := ruleast.InputSpec{Format: ruleast.InputJSON, Delimiter: ","}
	keys, vals, err := mappingPairs(path, n)
	if err != nil {
		return spec, err
	}
	for i, k := range keys {
		switch k {
		case "format":
			var f string
			_ = vals[i].Decode(&f)
			spec.Format = ruleast.InputFormat(f)
		case "has_header":
			var b bool
			if err := vals[i].Decode(&b); err != nil {
				return spec, err
			}
			spec.HasHeader = &b
		case "columns":
			var cols []ruleast.CSVColumn
			if err := vals[i].Decode(&cols); err != nil {
				return spec, err
			}
			spec.Columns = cols
		case "delimiter":
			_ = vals[i].Decode(&spec.Delimiter)
		case "records_path":
			_ = vals[i].Decode(&spec.RecordsPath)
		}
	}
	return spec, nil
}

func parseMappingsList(path string, n *yaml.Node) ([]ruleast.Mapping, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, xerr.ErrParse(path, pos(n).String(), "mappings must be a list")
	}
	out := make([]ruleast.Mapping, 0, len(n.Content))
	for _, c := range n.Content {
		var m ruleast.Mapping
		if err := m.UnmarshalYAML(c); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func parseRecordSteps(path string, n *yaml.Node) ([]ruleast.RecordStep, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, xerr.ErrParse(path, pos(n).String(), "steps must be a list")
	}
	out := make([]ruleast.RecordStep, 0, len(n.Content))
	for _, c := range n.Content {
		var s ruleast.RecordStep
		if err := s.UnmarshalYAML(c); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

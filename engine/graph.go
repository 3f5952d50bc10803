package engine

import (
	"path/filepath"

	"github.com/vinhphatfsg/rulemorph/loader"
	"github.com/vinhphatfsg/rulemorph/ruleast"
)

// GraphOp is one entry of a GraphNode's Ops list: a human-readable
// summary of one step/mapping the rule document performs, consumed by
// the UI's architecture view.
type GraphOp struct {
	Label  string
	Detail string   `json:",omitempty"`
	Refs   []string `json:",omitempty"`
}

// GraphNode is one rule file in the call graph.
type GraphNode struct {
	ID    string
	Label string
	Kind  string
	Path  string
	Ops   []GraphOp
}

// GraphEdge is a directed reference from one rule file to another.
type GraphEdge struct {
	Source string
	Target string
	Label  string `json:",omitempty"`
	Kind   string // step, branch, body_rule, ref
}

// GraphDocument is the call-graph document returned by build_call_graph.
type GraphDocument struct {
	Nodes []GraphNode
	Edges []GraphEdge
}

// BuildCallGraph walks a loaded rule graph into the exported node/edge
// document; nodes are emitted in the graph's topological load order
// (dependencies first). Rule files with no reference path between them
// have no fixed relative order from one run to the next.
func BuildCallGraph(g *loader.Graph) GraphDocument {
	doc := GraphDocument{}
	for _, path := range g.Order() {
		rule := g.Rule(path)
		if rule == nil {
			continue
		}
		doc.Nodes = append(doc.Nodes, graphNodeOf(path, rule))
		doc.Edges = append(doc.Edges, graphEdgesOf(path, rule)...)
	}
	return doc
}

func graphNodeOf(path string, rule *ruleast.Rule) GraphNode {
	return GraphNode{
		ID:    path,
		Label: filepath.Base(path),
		Kind:  string(rule.Type),
		Path:  path,
		Ops:   graphOpsOf(rule),
	}
}

func graphOpsOf(rule *ruleast.Rule) []GraphOp {
	switch rule.Type {
	case ruleast.RuleNormal:
		if rule.Normal == nil {
			return nil
		}
		if len(rule.Normal.Mappings) > 0 {
			return mappingOps(rule.Normal.Mappings)
		}
		return stepOps(rule.Normal.Steps)
	case ruleast.RuleEndpoint:
		if rule.Endpoint == nil {
			return nil
		}
		ops := []GraphOp{{Label: "route", Detail: rule.Endpoint.Method + " " + rule.Endpoint.Path}}
		return append(ops, stepOps(rule.Endpoint.Steps)...)
	case ruleast.RuleNetwork:
		if rule.Network == nil {
			return nil
		}
		return []GraphOp{{Label: "request", Detail: rule.Network.Request.Method}}
	default:
		return nil
	}
}

func mappingOps(mappings []ruleast.Mapping) []GraphOp {
	ops := make([]GraphOp, 0, len(mappings))
	for _, m := range mappings {
		ops = append(ops, GraphOp{Label: "mapping", Detail: m.Target})
	}
	return ops
}

func stepOps(steps []ruleast.RecordStep) []GraphOp {
	ops := make([]GraphOp, 0, len(steps))
	for _, s := range steps {
		switch s.Kind {
		case ruleast.RecordMappings:
			ops = append(ops, GraphOp{Label: "mappings", Refs: mappingTargets(s.Mappings)})
		case ruleast.RecordWhen:
			ops = append(ops, GraphOp{Label: "record_when"})
		case ruleast.RecordAsserts:
			ops = append(ops, GraphOp{Label: "asserts"})
		case ruleast.RecordBranch:
			var refs []string
			if s.Branch.Then != "" {
				refs = append(refs, s.Branch.Then)
			}
			if s.Branch.Else != "" {
				refs = append(refs, s.Branch.Else)
			}
			ops = append(ops, GraphOp{Label: "branch", Refs: refs})
		}
	}
	return ops
}

func mappingTargets(mappings []ruleast.Mapping) []string {
	targets := make([]string, len(mappings))
	for i, m := range mappings {
		targets[i] = m.Target
	}
	return targets
}

func graphEdgesOf(path string, rule *ruleast.Rule) []GraphEdge {
	var edges []GraphEdge
	addBranchEdges := func(steps []ruleast.RecordStep) {
		for _, s := range steps {
			if s.Kind != ruleast.RecordBranch || s.Branch == nil {
				continue
			}
			if s.Branch.Then != "" {
				edges = append(edges, GraphEdge{Source: path, Target: resolveRulePath(path, s.Branch.Then), Label: "branch: then", Kind: "branch"})
			}
			if s.Branch.Else != "" {
				edges = append(edges, GraphEdge{Source: path, Target: resolveRulePath(path, s.Branch.Else), Label: "branch: else", Kind: "branch"})
			}
		}
	}
	addCatchEdges := func(catch map[string]string) {
		for key, ref := range catch {
			if ref == "" {
				continue
			}
			edges = append(edges, GraphEdge{Source: path, Target: resolveRulePath(path, ref), Label: "catch: " + key, Kind: "ref"})
		}
	}

	switch rule.Type {
	case ruleast.RuleNormal:
		if rule.Normal != nil {
			addBranchEdges(rule.Normal.Steps)
		}
	case ruleast.RuleEndpoint:
		if rule.Endpoint != nil {
			addBranchEdges(rule.Endpoint.Steps)
			addCatchEdges(rule.Endpoint.Catch)
		}
	case ruleast.RuleNetwork:
		if rule.Network != nil {
			if rule.Network.Request.BodyKind == ruleast.BodyRule && rule.Network.Request.BodyRuleRef != "" {
				edges = append(edges, GraphEdge{
					Source: path,
					Target: resolveRulePath(path, rule.Network.Request.BodyRuleRef),
					Label:  "body_rule",
					Kind:   "body_rule",
				})
			}
			addCatchEdges(rule.Network.Catch)
		}
	}
	return edges
}

package loader

import (
	"os"
	"path/filepath"

	"github.com/vinhphatfsg/rulemorph/dag"
	"github.com/vinhphatfsg/rulemorph/ruleast"
	"github.com/vinhphatfsg/rulemorph/xerr"
)

// ruleNode adapts a file path to dag.G's fmt.Stringer node constraint.
type ruleNode string

func (n ruleNode) String() string { return string(n) }

// Graph is the fully loaded, cycle-checked set of rule documents
// transitively reachable from an entry rule file.
type Graph struct {
	Entry string
	Rules map[string]*ruleast.Rule
	order []string
}

// Rule returns the loaded document at path, or nil if path was never
// reached from Entry.
func (g *Graph) Rule(path string) *ruleast.Rule { return g.Rules[path] }

// Load parses entryPath and every rule file it transitively references
// (via branch.then/else, network.body_rule, and catch targets),
// statically validating each one and rejecting cycles in the resulting
// call graph.
func Load(entryPath string) (*Graph, error) {
	entryPath = filepath.Clean(entryPath)
	g := dag.New[ruleNode]()
	rules := map[string]*ruleast.Rule{}

	var loadOne func(path string) error
	loadOne = func(path string) error {
		if _, ok := rules[path]; ok {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return xerr.ErrParse(path, "", "cannot read rule file: "+err.Error())
		}
		rule, err := ParseRule(data, path)
		if err != nil {
			return err
		}
		if err := Validate(rule); err != nil {
			return err
		}
		rules[path] = rule
		g.AddNode(ruleNode(path))

		for _, ref := range referencedRules(rule) {
			refPath := resolveRef(path, ref)
			if err := g.AddEdge(ruleNode(path), ruleNode(refPath)); err != nil {
				return xerr.ErrValidation(path, "", err.Error())
			}
			if err := loadOne(refPath); err != nil {
				return err
			}
		}
		return nil
	}

	if err := loadOne(entryPath); err != nil {
		return nil, err
	}

	if cycle := g.DetectFirstCycle(); len(cycle) > 0 {
		names := make([]string, len(cycle))
		for i, n := range cycle {
			names[i] = n.String()
		}
		return nil, xerr.ErrCycle(names)
	}

	order, err := g.TopoSort()
	if err != nil {
		return nil, xerr.ErrValidation(entryPath, "", err.Error())
	}
	// TopoSort lists a referencing rule before the rules it references;
	// Order reports the reverse, so dependencies come first.
	names := make([]string, len(order))
	for i, n := range order {
		names[len(order)-1-i] = n.String()
	}

	return &Graph{Entry: entryPath, Rules: rules, order: names}, nil
}

// Order returns rule file paths in topological order (dependencies
// before dependents), the order engine.BuildCallGraph's node list uses.
func (g *Graph) Order() []string { return g.order }

func resolveRef(fromPath, ref string) string {
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref)
	}
	return filepath.Clean(filepath.Join(filepath.Dir(fromPath), ref))
}

func referencedRules(rule *ruleast.Rule) []string {
	var refs []string
	switch rule.Type {
	case ruleast.RuleNormal:
		if rule.Normal != nil {
			refs = append(refs, stepsRefs(rule.Normal.Steps)...)
		}
	case ruleast.RuleEndpoint:
		if rule.Endpoint != nil {
			refs = append(refs, stepsRefs(rule.Endpoint.Steps)...)
			refs = append(refs, catchRefs(rule.Endpoint.Catch)...)
		}
	case ruleast.RuleNetwork:
		if rule.Network != nil {
			if rule.Network.Request.BodyKind == ruleast.BodyRule && rule.Network.Request.BodyRuleRef != "" {
				refs = append(refs, rule.Network.Request.BodyRuleRef)
			}
			refs = append(refs, catchRefs(rule.Network.Catch)...)
		}
	}
	return refs
}

func stepsRefs(steps []ruleast.RecordStep) []string {
	var refs []string
	for _, s := range steps {
		if s.Kind == ruleast.RecordBranch && s.Branch != nil {
			if s.Branch.Then != "" {
				refs = append(refs, s.Branch.Then)
			}
			if s.Branch.Else != "" {
				refs = append(refs, s.Branch.Else)
			}
		}
	}
	return refs
}

func catchRefs(catch map[string]string) []string {
	refs := make([]string, 0, len(catch))
	for _, v := range catch {
		if v != "" {
			refs = append(refs, v)
		}
	}
	return refs
}

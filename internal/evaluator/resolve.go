package evaluator

import (
	"fmt"
	"strings"

	"github.com/esungul/UniveralValidator/internal/hierarchy"
	"github.com/esungul/UniveralValidator/internal/ir"
	"github.com/esungul/UniveralValidator/internal/rules"
)

// candidate is one place a target resolved to. value is nil when the
// candidate exists but does not carry the field.
type candidate struct {
	value ir.Value
	asset *ir.Asset // source asset for hierarchy targets
}

// source names where the value was read from, for failure reasons.
func (c candidate) source() string {
	if c.asset != nil {
		return "asset " + c.asset.ID
	}
	return ""
}

// resolution is every candidate a target produced.
type resolution struct {
	candidates []candidate
	broken     []ir.Asset // dangling roots met by an upward role
}

type resolver func(order ir.Order, tree *hierarchy.Tree, target rules.Target) resolution

// resolvers is the closed dispatch table of target kinds.
var resolvers = map[rules.TargetKind]resolver{
	rules.TargetOrderField:    resolveOrderField,
	rules.TargetHierarchyRole: resolveHierarchyRole,
	rules.TargetLiteral:       resolveLiteral,
}

func resolveOrderField(order ir.Order, _ *hierarchy.Tree, target rules.Target) resolution {
	v, ok := order.Field(target.Field)
	if !ok || isNull(v) {
		return resolution{}
	}
	return resolution{candidates: []candidate{{value: v}}}
}

func resolveHierarchyRole(_ ir.Order, tree *hierarchy.Tree, target rules.Target) resolution {
	if tree == nil {
		return resolution{}
	}
	res := hierarchy.ResolveFromAnchors(tree, target.Role)
	out := resolution{broken: res.Broken}
	for i := range res.Matches {
		a := res.Matches[i]
		c := candidate{asset: &a}
		if v, ok := a.Field(target.Field); ok && !isNull(v) {
			c.value = v
		}
		out.candidates = append(out.candidates, c)
	}
	return out
}

func resolveLiteral(_ ir.Order, _ *hierarchy.Tree, target rules.Target) resolution {
	if isNull(target.Literal) {
		return resolution{}
	}
	return resolution{candidates: []candidate{{value: target.Literal}}}
}

func resolve(order ir.Order, tree *hierarchy.Tree, target rules.Target) (resolution, error) {
	fn, ok := resolvers[target.Kind]
	if !ok {
		return resolution{}, fmt.Errorf("unsupported target kind %q", target.Kind)
	}
	return fn(order, tree, target), nil
}

func isNull(v ir.Value) bool {
	if v == nil {
		return true
	}
	_, null := v.(ir.Null)
	return null
}

// present keeps the candidates that carry a value.
func (r resolution) present() []candidate {
	out := make([]candidate, 0, len(r.candidates))
	for _, c := range r.candidates {
		if c.value != nil {
			out = append(out, c)
		}
	}
	return out
}

// missingParent describes the dangling roots that cut an upward walk short.
func (r resolution) missingParent() string {
	refs := make([]string, len(r.broken))
	for i, a := range r.broken {
		refs[i] = a.ParentID
	}
	return "missing parent " + strings.Join(refs, ", ")
}

func assetIDs(cs []candidate) string {
	ids := make([]string, 0, len(cs))
	for _, c := range cs {
		if c.asset != nil {
			ids = append(ids, c.asset.ID)
		}
	}
	return strings.Join(ids, ", ")
}

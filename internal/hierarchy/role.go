package hierarchy

import "github.com/esungul/UniveralValidator/internal/ir"

// Relation is a direction of travel from a reference asset.
type Relation string

const (
	RelationSelf        Relation = "self"
	RelationParent      Relation = "parent"
	RelationChildren    Relation = "children"
	RelationAncestors   Relation = "ancestors"
	RelationDescendants Relation = "descendants"
	RelationRoot        Relation = "root"
	RelationSiblings    Relation = "siblings"
)

// Relations returns every supported relation.
func Relations() []Relation {
	return []Relation{
		RelationSelf, RelationParent, RelationChildren, RelationAncestors,
		RelationDescendants, RelationRoot, RelationSiblings,
	}
}

// Valid reports whether r is a supported relation.
func (r Relation) Valid() bool {
	for _, known := range Relations() {
		if r == known {
			return true
		}
	}
	return false
}

// Upward reports whether r walks toward the root, and so can run into a
// dangling parent reference.
func (r Relation) Upward() bool {
	return r == RelationParent || r == RelationAncestors || r == RelationRoot
}

// Role is a named relationship such as "parent device": starting from each
// asset of type Anchor, follow Relation and keep assets of type Type.
type Role struct {
	Name     string   `json:"name"`
	Anchor   string   `json:"anchor"`
	Relation Relation `json:"relation"`
	Type     string   `json:"type,omitempty"` // empty keeps every type
}

// ResolveRole follows role from the asset fromID. It returns every match,
// possibly none or several, so callers can detect ambiguity instead of the
// resolver picking one.
func ResolveRole(t *Tree, role Role, fromID string) []ir.Asset {
	var candidates []ir.Asset
	switch role.Relation {
	case RelationSelf:
		if a, ok := t.Asset(fromID); ok {
			candidates = []ir.Asset{a}
		}
	case RelationParent:
		if a, ok := t.Parent(fromID); ok {
			candidates = []ir.Asset{a}
		}
	case RelationChildren:
		candidates = t.Children(fromID)
	case RelationAncestors:
		candidates = t.Ancestors(fromID)
	case RelationDescendants:
		candidates = t.Descendants(fromID)
	case RelationRoot:
		if a, ok := t.Root(fromID); ok {
			candidates = []ir.Asset{a}
		}
	case RelationSiblings:
		candidates = t.Siblings(fromID)
	}

	out := make([]ir.Asset, 0, len(candidates))
	for _, a := range candidates {
		if role.Type == "" || a.Type == role.Type {
			out = append(out, a)
		}
	}
	return out
}

// Resolution is the result of resolving a role from every anchor asset.
type Resolution struct {
	Anchors []ir.Asset // assets of the anchor type, input order
	Matches []ir.Asset // union of matches, first-seen order, no duplicates
	Broken  []ir.Asset // dangling roots met while walking upward
}

// ResolveFromAnchors applies role to every asset of type role.Anchor.
func ResolveFromAnchors(t *Tree, role Role) Resolution {
	res := Resolution{
		Anchors: t.OfType(role.Anchor),
		Matches: make([]ir.Asset, 0),
	}
	seen := make(map[string]bool)
	for _, anchor := range res.Anchors {
		for _, m := range ResolveRole(t, role, anchor.ID) {
			if !seen[m.ID] {
				seen[m.ID] = true
				res.Matches = append(res.Matches, m)
			}
		}
		if role.Relation.Upward() {
			if broken, ok := t.BrokenChain(anchor.ID); ok {
				res.Broken = append(res.Broken, broken)
			}
		}
	}
	return res
}

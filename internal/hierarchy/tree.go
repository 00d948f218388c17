package hierarchy

import (
	"github.com/esungul/UniveralValidator/internal/ir"
)

const noParent = -1

// node is one asset in the tree. Links are indexes into Tree.nodes, never
// pointers, so a corrupted parent chain cannot create reference cycles.
type node struct {
	asset    ir.Asset
	parent   int // noParent for roots and dangling roots
	children []int
	dangling bool
}

// Tree is the parent/child forest of one subscriber's assets.
// A Tree is immutable after Build; rebuild to reflect new assets.
type Tree struct {
	nodes    []node
	index    map[string]int
	roots    []int
	dangling []int
}

// Build reconstructs the forest implied by the assets' parent references.
//
// Pass one indexes assets by identifier; pass two links each asset to its
// parent. An asset whose parent reference does not resolve becomes a
// dangling root: it is kept and reported, never dropped or promoted to a
// true root. Any parent chain that revisits an asset fails the whole tree
// with a HierarchyCycleError.
func Build(assets []ir.Asset) (*Tree, error) {
	t := &Tree{
		nodes: make([]node, len(assets)),
		index: make(map[string]int, len(assets)),
	}

	for i, a := range assets {
		if a.ID == "" {
			return nil, &InvalidAssetError{Index: i, Reason: "asset id is empty"}
		}
		if _, dup := t.index[a.ID]; dup {
			return nil, &InvalidAssetError{Index: i, ID: a.ID, Reason: "duplicate asset id"}
		}
		t.index[a.ID] = i
		t.nodes[i] = node{asset: a, parent: noParent}
	}

	for i := range t.nodes {
		ref := t.nodes[i].asset.ParentID
		switch parent, ok := t.index[ref]; {
		case ref == "":
			t.roots = append(t.roots, i)
		case !ok:
			t.nodes[i].dangling = true
			t.dangling = append(t.dangling, i)
		default:
			t.nodes[i].parent = parent
			t.nodes[parent].children = append(t.nodes[parent].children, i)
		}
	}

	if err := t.checkCycles(); err != nil {
		return nil, err
	}
	return t, nil
}

// checkCycles walks every parent chain once. Nodes are marked in-progress
// during a walk and done afterwards, so the total work is linear in the
// number of assets.
func (t *Tree) checkCycles() error {
	const (
		unvisited = iota
		walking
		done
	)
	state := make([]uint8, len(t.nodes))

	for i := range t.nodes {
		if state[i] != unvisited {
			continue
		}
		var path []int
		j := i
		for j != noParent && state[j] == unvisited {
			state[j] = walking
			path = append(path, j)
			j = t.nodes[j].parent
		}
		if j != noParent && state[j] == walking {
			return t.cycleError(path, j)
		}
		for _, k := range path {
			state[k] = done
		}
	}
	return nil
}

func (t *Tree) cycleError(path []int, start int) error {
	var ids []string
	for k := len(path) - 1; k >= 0; k-- {
		ids = append([]string{t.nodes[path[k]].asset.ID}, ids...)
		if path[k] == start {
			break
		}
	}
	ids = append(ids, t.nodes[start].asset.ID)
	return &HierarchyCycleError{Cycle: ids}
}

// Len returns the number of assets in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Asset returns the asset with the given id.
func (t *Tree) Asset(id string) (ir.Asset, bool) {
	i, ok := t.index[id]
	if !ok {
		return ir.Asset{}, false
	}
	return t.nodes[i].asset, true
}

// Assets returns all assets in input order.
func (t *Tree) Assets() []ir.Asset {
	out := make([]ir.Asset, len(t.nodes))
	for i, n := range t.nodes {
		out[i] = n.asset
	}
	return out
}

// OfType returns the assets with the given type tag in input order.
func (t *Tree) OfType(assetType string) []ir.Asset {
	out := make([]ir.Asset, 0)
	for _, n := range t.nodes {
		if n.asset.Type == assetType {
			out = append(out, n.asset)
		}
	}
	return out
}

// Roots returns the true roots: assets that declare no parent.
func (t *Tree) Roots() []ir.Asset {
	return t.collect(t.roots)
}

// Dangling returns assets whose parent reference did not resolve.
func (t *Tree) Dangling() []ir.Asset {
	return t.collect(t.dangling)
}

// IsDangling reports whether id names a dangling root.
func (t *Tree) IsDangling(id string) bool {
	i, ok := t.index[id]
	return ok && t.nodes[i].dangling
}

// Parent returns the resolved parent of id.
func (t *Tree) Parent(id string) (ir.Asset, bool) {
	i, ok := t.index[id]
	if !ok || t.nodes[i].parent == noParent {
		return ir.Asset{}, false
	}
	return t.nodes[t.nodes[i].parent].asset, true
}

// Children returns the children of id in input order.
func (t *Tree) Children(id string) []ir.Asset {
	i, ok := t.index[id]
	if !ok {
		return []ir.Asset{}
	}
	return t.collect(t.nodes[i].children)
}

// Siblings returns the other children of id's parent.
func (t *Tree) Siblings(id string) []ir.Asset {
	i, ok := t.index[id]
	if !ok || t.nodes[i].parent == noParent {
		return []ir.Asset{}
	}
	out := make([]ir.Asset, 0)
	for _, c := range t.nodes[t.nodes[i].parent].children {
		if c != i {
			out = append(out, t.nodes[c].asset)
		}
	}
	return out
}

// Ancestors returns the parent chain of id, nearest first. The chain has
// at most Len()-1 entries because Build rejects cycles.
func (t *Tree) Ancestors(id string) []ir.Asset {
	out := make([]ir.Asset, 0)
	i, ok := t.index[id]
	if !ok {
		return out
	}
	for p := t.nodes[i].parent; p != noParent; p = t.nodes[p].parent {
		out = append(out, t.nodes[p].asset)
	}
	return out
}

// Descendants returns every asset below id in depth-first pre-order.
func (t *Tree) Descendants(id string) []ir.Asset {
	out := make([]ir.Asset, 0)
	i, ok := t.index[id]
	if !ok {
		return out
	}
	stack := make([]int, 0, len(t.nodes[i].children))
	for k := len(t.nodes[i].children) - 1; k >= 0; k-- {
		stack = append(stack, t.nodes[i].children[k])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, t.nodes[n].asset)
		for k := len(t.nodes[n].children) - 1; k >= 0; k-- {
			stack = append(stack, t.nodes[n].children[k])
		}
	}
	return out
}

// Root returns the top of id's parent chain. The boolean is false when the
// chain ends at a dangling root, because the real root is unknown.
func (t *Tree) Root(id string) (ir.Asset, bool) {
	i, ok := t.index[id]
	if !ok {
		return ir.Asset{}, false
	}
	for t.nodes[i].parent != noParent {
		i = t.nodes[i].parent
	}
	return t.nodes[i].asset, !t.nodes[i].dangling
}

// BrokenChain returns the dangling asset at the top of id's parent chain,
// if any. Hierarchy rules use it to report a missing parent explicitly.
func (t *Tree) BrokenChain(id string) (ir.Asset, bool) {
	top, ok := t.Root(id)
	if ok {
		return ir.Asset{}, false
	}
	if _, known := t.index[id]; !known {
		return ir.Asset{}, false
	}
	return top, true
}

func (t *Tree) collect(idx []int) []ir.Asset {
	out := make([]ir.Asset, len(idx))
	for k, i := range idx {
		out[k] = t.nodes[i].asset
	}
	return out
}

package hierarchy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esungul/UniveralValidator/internal/ir"
)

func asset(id, typ, parent string) ir.Asset {
	return ir.Asset{ID: id, Subscriber: "12218071145", Type: typ, ParentID: parent}
}

func ids(assets []ir.Asset) []string {
	out := make([]string, len(assets))
	for i, a := range assets {
		out[i] = a.ID
	}
	return out
}

func TestBuild_LinksParentsAndChildren(t *testing.T) {
	tree, err := Build([]ir.Asset{
		asset("A1", "line", ""),
		asset("A2", "device", "A1"),
		asset("A3", "sim", "A1"),
		asset("A4", "addon", "A3"),
	})
	require.NoError(t, err)

	assert.Equal(t, 4, tree.Len())
	assert.Equal(t, []string{"A1"}, ids(tree.Roots()))
	assert.Empty(t, tree.Dangling())
	assert.Equal(t, []string{"A2", "A3"}, ids(tree.Children("A1")))

	parent, ok := tree.Parent("A4")
	require.True(t, ok)
	assert.Equal(t, "A3", parent.ID)

	assert.Equal(t, []string{"A3", "A1"}, ids(tree.Ancestors("A4")))
	assert.Equal(t, []string{"A2", "A3", "A4"}, ids(tree.Descendants("A1")))
	assert.Equal(t, []string{"A3"}, ids(tree.Siblings("A2")))

	root, ok := tree.Root("A4")
	require.True(t, ok)
	assert.Equal(t, "A1", root.ID)
}

func TestBuild_DanglingRootIsKept(t *testing.T) {
	tree, err := Build([]ir.Asset{
		asset("A1", "line", ""),
		asset("A2", "device", "MISSING"),
		asset("A3", "addon", "A2"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"A1"}, ids(tree.Roots()), "dangling root is not a true root")
	assert.Equal(t, []string{"A2"}, ids(tree.Dangling()))
	assert.True(t, tree.IsDangling("A2"))
	assert.False(t, tree.IsDangling("A3"))

	_, ok := tree.Root("A3")
	assert.False(t, ok)

	broken, ok := tree.BrokenChain("A3")
	require.True(t, ok)
	assert.Equal(t, "A2", broken.ID)

	_, ok = tree.BrokenChain("A1")
	assert.False(t, ok)
}

func TestBuild_CycleFails(t *testing.T) {
	_, err := Build([]ir.Asset{
		asset("A1", "line", "A3"),
		asset("A2", "device", "A1"),
		asset("A3", "sim", "A2"),
	})
	require.Error(t, err)
	assert.True(t, IsHierarchyCycle(err))

	var cycleErr *HierarchyCycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"A1", "A3", "A2", "A1"}, cycleErr.Cycle)
}

func TestBuild_SelfParentIsCycle(t *testing.T) {
	_, err := Build([]ir.Asset{asset("A1", "line", "A1")})
	require.Error(t, err)
	assert.True(t, IsHierarchyCycle(err))
}

func TestBuild_CycleBelowHealthyRoot(t *testing.T) {
	_, err := Build([]ir.Asset{
		asset("R", "line", ""),
		asset("X", "device", "Y"),
		asset("Y", "device", "X"),
		asset("Z", "addon", "X"),
	})
	require.Error(t, err)
	assert.True(t, IsHierarchyCycle(err))
}

func TestBuild_DuplicateAndEmptyIDs(t *testing.T) {
	_, err := Build([]ir.Asset{asset("A1", "line", ""), asset("A1", "device", "")})
	var invalid *InvalidAssetError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "A1", invalid.ID)

	_, err = Build([]ir.Asset{asset("", "line", "")})
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 0, invalid.Index)
}

func TestBuild_Empty(t *testing.T) {
	tree, err := Build(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, tree.Len())
	assert.Empty(t, tree.Roots())
	assert.Empty(t, tree.Children("nope"))
}

// Every non-dangling asset reaches a true root in at most N steps.
func TestBuild_AncestorChainsTerminate(t *testing.T) {
	const n = 200
	assets := make([]ir.Asset, n)
	for i := 0; i < n; i++ {
		parent := ""
		if i > 0 {
			parent = fmt.Sprintf("N%d", (i-1)/2)
		}
		assets[i] = asset(fmt.Sprintf("N%d", i), "node", parent)
	}
	tree, err := Build(assets)
	require.NoError(t, err)

	for _, a := range assets {
		chain := tree.Ancestors(a.ID)
		assert.LessOrEqual(t, len(chain), n)
		root, ok := tree.Root(a.ID)
		require.True(t, ok)
		assert.Equal(t, "N0", root.ID)
	}
}

// A long ring must be reported, not walked forever.
func TestBuild_LongRingTerminates(t *testing.T) {
	const n = 500
	assets := make([]ir.Asset, n)
	for i := 0; i < n; i++ {
		assets[i] = asset(fmt.Sprintf("N%d", i), "node", fmt.Sprintf("N%d", (i+1)%n))
	}
	_, err := Build(assets)
	require.Error(t, err)
	var cycleErr *HierarchyCycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Len(t, cycleErr.Cycle, n+1)
}

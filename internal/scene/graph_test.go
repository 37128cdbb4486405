package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_NewNode_ChildrenOrder(t *testing.T) {
	g := NewGraph()
	root := g.NewNode("root", InvalidHandle)
	a := g.NewNode("a", root)
	b := g.NewNode("b", root)
	c := g.NewNode("c", root)

	require.NotNil(t, g.Node(root))
	assert.Equal(t, []Handle{a, b, c}, g.Node(root).Children, "children must keep insertion order")
}

func TestGraph_DestroyNode_RemovesSubtree(t *testing.T) {
	g := NewGraph()
	root := g.NewNode("root", InvalidHandle)
	child := g.NewNode("child", root)
	grand := g.NewNode("grand", child)

	g.DestroyNode(child)

	assert.True(t, g.Alive(root))
	assert.False(t, g.Alive(child))
	assert.False(t, g.Alive(grand))
	assert.Empty(t, g.Node(root).Children)
}

func TestGraph_HandlesNeverReused(t *testing.T) {
	g := NewGraph()
	a := g.NewNode("a", InvalidHandle)
	g.DestroyNode(a)
	b := g.NewNode("b", InvalidHandle)

	assert.NotEqual(t, a, b)
	assert.Nil(t, g.Node(a), "stale handle must resolve to nothing")
}

func TestGraph_WorldTransform_Composes(t *testing.T) {
	g := NewGraph()
	root := g.NewNode("root", InvalidHandle)
	child := g.NewNode("child", root)

	rt := IdentityTransform()
	rt.Position = mgl32.Vec3{1, 2, 3}
	g.SetLocal(root, rt)

	ct := IdentityTransform()
	ct.Position = mgl32.Vec3{1, 0, 0}
	g.SetLocal(child, ct)

	world := g.WorldTransform(child)
	assert.InDelta(t, 2, world.Position.X(), 1e-6)
	assert.InDelta(t, 2, world.Position.Y(), 1e-6)
	assert.InDelta(t, 3, world.Position.Z(), 1e-6)
}

func TestGraph_ActiveInHierarchy(t *testing.T) {
	g := NewGraph()
	root := g.NewNode("root", InvalidHandle)
	child := g.NewNode("child", root)

	assert.True(t, g.ActiveInHierarchy(child))
	g.SetActive(root, false)
	assert.False(t, g.ActiveInHierarchy(child), "inactive ancestor deactivates the subtree")
}

func TestGraph_CloneSubtree_CopiesTopologyAndCapabilities(t *testing.T) {
	g := NewGraph()
	src := g.NewNode("src", InvalidHandle)
	child := g.NewNode("child", src)
	g.AttachCapability(child, &Visual{
		Geometry:  &Geometry{Name: "mesh"},
		Materials: []*Material{{Name: "mat"}},
	})

	dup := g.CloneSubtree(src, InvalidHandle)
	require.True(t, dup.Valid())

	dn := g.Node(dup)
	require.Len(t, dn.Children, 1)
	dupChild := g.Node(dn.Children[0])
	assert.Equal(t, "child", dupChild.Name)

	v, ok := dupChild.CapabilityByKind(KindVisual).(*Visual)
	require.True(t, ok)
	srcV := g.Node(child).CapabilityByKind(KindVisual).(*Visual)
	assert.NotSame(t, srcV.Geometry, v.Geometry, "geometry is copied eagerly")
	assert.Same(t, srcV.Materials[0], v.Materials[0], "materials are read-shared")
}

type depCap struct {
	kind     CapabilityKind
	requires []CapabilityKind
}

func (c *depCap) Kind() CapabilityKind       { return c.kind }
func (c *depCap) Clone() Capability          { cp := *c; return &cp }
func (c *depCap) Requires() []CapabilityKind { return c.requires }

func TestGraph_RemoveCapability_BlockedByDependent(t *testing.T) {
	g := NewGraph()
	n := g.NewNode("n", InvalidHandle)
	base := &depCap{kind: "base"}
	dependent := &depCap{kind: "dependent", requires: []CapabilityKind{"base"}}
	g.AttachCapability(n, base)
	g.AttachCapability(n, dependent)

	assert.False(t, g.RemoveCapability(n, base), "base removal blocked while dependent attached")
	assert.True(t, g.RemoveCapability(n, dependent))
	assert.True(t, g.RemoveCapability(n, base), "base removable after dependent gone")
	assert.Empty(t, g.Node(n).Capabilities())
}

func TestGraph_UniqueSiblingNames(t *testing.T) {
	g := NewGraph()
	root := g.NewNode("root", InvalidHandle)
	a := g.NewNode("arm", root)
	b := g.NewNode("arm", root)
	c := g.NewNode("arm", root)

	g.UniqueSiblingNames(root)

	assert.Equal(t, "arm", g.Node(a).Name, "first holder keeps its name")
	assert.Equal(t, "arm (1)", g.Node(b).Name)
	assert.Equal(t, "arm (2)", g.Node(c).Name)

	// Repeated application is a no-op.
	g.UniqueSiblingNames(root)
	assert.Equal(t, "arm (1)", g.Node(b).Name)
}

func TestGraph_PathRoundTrip(t *testing.T) {
	g := NewGraph()
	root := g.NewNode("root", InvalidHandle)
	arm := g.NewNode("arm", root)
	hand := g.NewNode("hand", arm)

	path, ok := g.PathTo(root, hand)
	require.True(t, ok)
	assert.Equal(t, "arm/hand", path)
	assert.Equal(t, hand, g.ResolvePath(root, path))
	assert.Equal(t, root, g.ResolvePath(root, ""))
	assert.False(t, g.ResolvePath(root, "arm/missing").Valid())
}

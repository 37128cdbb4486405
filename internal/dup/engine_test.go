package dup

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/scene"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubCap is a removable test capability with optional dependencies.
type stubCap struct {
	kind     scene.CapabilityKind
	requires []scene.CapabilityKind
	enabled  bool
}

func newStubCap(kind scene.CapabilityKind, requires ...scene.CapabilityKind) *stubCap {
	return &stubCap{kind: kind, requires: requires, enabled: true}
}

func (c *stubCap) Kind() scene.CapabilityKind       { return c.kind }
func (c *stubCap) Clone() scene.Capability          { cp := *c; return &cp }
func (c *stubCap) Requires() []scene.CapabilityKind { return c.requires }
func (c *stubCap) SetEnabled(enabled bool)          { c.enabled = enabled }

func visualNode(g *scene.Graph, name string, parent scene.Handle) scene.Handle {
	h := g.NewNode(name, parent)
	g.AttachCapability(h, &scene.Visual{
		Geometry:  &scene.Geometry{Name: name + "-mesh"},
		Materials: []*scene.Material{{Name: name + "-mat"}},
	})
	return h
}

func countNodes(g *scene.Graph, root scene.Handle) int {
	count := 0
	g.Walk(root, func(scene.Handle, *scene.Node) bool {
		count++
		return true
	})
	return count
}

func TestDuplicate_CloneStrategy(t *testing.T) {
	g := scene.NewGraph()
	container := g.NewNode("container", scene.InvalidHandle)
	src := visualNode(g, "npc", scene.InvalidHandle)
	visualNode(g, "arm", src)
	g.AttachCapability(src, newStubCap("physics"))

	e := NewEngine(g, quietLogger())
	res := e.Duplicate(src, container)

	require.NotNil(t, res)
	assert.Equal(t, StrategyClone, res.Strategy)
	assert.Equal(t, 2, countNodes(g, res.Root))
	assert.Nil(t, g.Node(res.Root).CapabilityByKind("physics"),
		"disallowed capability is eliminated from the duplicate")
	assert.NotNil(t, g.Node(src).CapabilityByKind("physics"),
		"the source keeps its capabilities")
	assert.Len(t, res.Follows, 2, "every animated cloned node mirrors its source")
}

func TestDuplicate_Deterministic(t *testing.T) {
	build := func() (*scene.Graph, scene.Handle, scene.Handle) {
		g := scene.NewGraph()
		container := g.NewNode("container", scene.InvalidHandle)
		src := visualNode(g, "npc", scene.InvalidHandle)
		visualNode(g, "arm", src)
		g.AttachCapability(src, newStubCap("physics"))
		return g, src, container
	}

	g1, src1, c1 := build()
	res1 := NewEngine(g1, quietLogger()).Duplicate(src1, c1)
	g2, src2, c2 := build()
	res2 := NewEngine(g2, quietLogger()).Duplicate(src2, c2)

	require.NotNil(t, res1)
	require.NotNil(t, res2)
	assert.Equal(t, res1.Strategy, res2.Strategy, "strategy choice is deterministic")
	assert.Equal(t, countNodes(g1, res1.Root), countNodes(g2, res2.Root))
	assert.Len(t, g1.Node(res1.Root).Capabilities(), len(g2.Node(res2.Root).Capabilities()))
}

func TestEliminate_DependencyChainResolvesByRetry(t *testing.T) {
	g := scene.NewGraph()
	container := g.NewNode("container", scene.InvalidHandle)
	src := visualNode(g, "npc", scene.InvalidHandle)
	// Chain: b requires a, c requires b. In attempt order only the tail
	// is removable each round, so elimination needs one round per link.
	g.AttachCapability(src, newStubCap("a"))
	g.AttachCapability(src, newStubCap("b", "a"))
	g.AttachCapability(src, newStubCap("c", "b"))

	e := NewEngine(g, quietLogger())
	res := e.Duplicate(src, container)

	require.NotNil(t, res)
	assert.Equal(t, StrategyClone, res.Strategy)
	for _, kind := range []scene.CapabilityKind{"a", "b", "c"} {
		assert.Nil(t, g.Node(res.Root).CapabilityByKind(kind))
	}
}

func TestEliminate_CycleFailsOverToRebuild(t *testing.T) {
	g := scene.NewGraph()
	container := g.NewNode("container", scene.InvalidHandle)
	src := visualNode(g, "npc", scene.InvalidHandle)
	// Mutual dependency: neither is ever removable.
	g.AttachCapability(src, newStubCap("a", "b"))
	g.AttachCapability(src, newStubCap("b", "a"))

	e := NewEngine(g, quietLogger())
	res := e.Duplicate(src, container)

	require.NotNil(t, res, "rebuild-minimal recovers from the failed clone")
	assert.Equal(t, StrategyRebuild, res.Strategy)
	require.Len(t, res.Follows, 1)
	assert.Equal(t, src, res.Follows[0].Behavior.Source,
		"the follow-behavior binds to the original node")
}

func TestCleanupProvider_DisablesInsteadOfRemoves(t *testing.T) {
	g := scene.NewGraph()
	container := g.NewNode("container", scene.InvalidHandle)
	src := visualNode(g, "npc", scene.InvalidHandle)
	g.AttachCapability(src, newStubCap("particles"))

	e := NewEngine(g, quietLogger())
	e.RegisterCleanupProvider(disableKinds{"particles"})
	res := e.Duplicate(src, container)

	require.NotNil(t, res)
	require.Equal(t, StrategyClone, res.Strategy)
	kept, ok := g.Node(res.Root).CapabilityByKind("particles").(*stubCap)
	require.True(t, ok, "marked capability survives on the duplicate")
	assert.False(t, kept.enabled, "but is disabled in place")
}

type disableKinds []scene.CapabilityKind

func (d disableKinds) DisableKinds() []scene.CapabilityKind { return d }

func TestDuplicate_StripsExcludedSubtrees(t *testing.T) {
	g := scene.NewGraph()
	container := g.NewNode("container", scene.InvalidHandle)
	src := visualNode(g, "npc", scene.InvalidHandle)
	skipped := visualNode(g, "skipped", src)
	nested := visualNode(g, "nested", src)

	cfg := scene.NewNodeConfig()
	cfg.Tighten(true, false)
	g.Node(skipped).Config = cfg

	nestedCfg := scene.NewNodeConfig()
	nestedCfg.Escalate()
	g.Node(nested).Config = nestedCfg

	res := NewEngine(g, quietLogger()).Duplicate(src, container)

	require.NotNil(t, res)
	assert.Equal(t, 1, countNodes(g, res.Root),
		"not-recorded and nested independent-root subtrees are stripped")
}

func TestDuplicate_OmitsWhenNothingRecordable(t *testing.T) {
	g := scene.NewGraph()
	container := g.NewNode("container", scene.InvalidHandle)
	src := g.NewNode("empty", scene.InvalidHandle) // no visual anywhere

	res := NewEngine(g, quietLogger()).Duplicate(src, container)

	assert.Nil(t, res, "a subtree yielding no duplicate is omitted, not an error")
	assert.Empty(t, g.Node(container).Children, "no stray wrapper nodes remain")
}

func TestDuplicate_NotRecordedSourceSkipped(t *testing.T) {
	g := scene.NewGraph()
	container := g.NewNode("container", scene.InvalidHandle)
	src := visualNode(g, "npc", scene.InvalidHandle)
	cfg := scene.NewNodeConfig()
	cfg.Tighten(true, false)
	g.Node(src).Config = cfg

	res := NewEngine(g, quietLogger()).Duplicate(src, container)
	assert.Nil(t, res)
}

func TestDuplicate_RenamesSiblingCollisions(t *testing.T) {
	g := scene.NewGraph()
	container := g.NewNode("container", scene.InvalidHandle)
	src := visualNode(g, "npc", scene.InvalidHandle)
	visualNode(g, "arm", src)
	visualNode(g, "arm", src)

	res := NewEngine(g, quietLogger()).Duplicate(src, container)
	require.NotNil(t, res)

	children := g.Node(res.Root).Children
	require.Len(t, children, 2)
	assert.Equal(t, "arm", g.Node(children[0]).Name)
	assert.Equal(t, "arm (1)", g.Node(children[1]).Name)
}

// trackingExt records which lifecycle points fired.
type trackingExt struct {
	BaseExtension
	calls *[]string
}

func (e *trackingExt) Kind() scene.CapabilityKind { return "tracking-ext" }
func (e *trackingExt) Clone() scene.Capability    { return &trackingExt{calls: e.calls} }

func (e *trackingExt) BeforeDuplication(*scene.Graph, scene.Handle) {
	*e.calls = append(*e.calls, "before-duplication")
}

func (e *trackingExt) AfterDuplication(*scene.Graph, scene.Handle) {
	*e.calls = append(*e.calls, "after-duplication")
}

func (e *trackingExt) CopyToDuplicate(g *scene.Graph, source, duplicate scene.Handle) Extension {
	*e.calls = append(*e.calls, "copy-to-duplicate")
	return &trackingExt{calls: e.calls}
}

func TestExtension_ClonePathFiresAfterDuplication(t *testing.T) {
	g := scene.NewGraph()
	container := g.NewNode("container", scene.InvalidHandle)
	src := visualNode(g, "npc", scene.InvalidHandle)
	var calls []string
	g.AttachCapability(src, &trackingExt{calls: &calls})

	res := NewEngine(g, quietLogger()).Duplicate(src, container)

	require.NotNil(t, res)
	require.Equal(t, StrategyClone, res.Strategy)
	assert.Equal(t, []string{"before-duplication", "after-duplication"}, calls,
		"copy-to-duplicate must not fire on the clone path")
	require.Len(t, res.Extensions, 1)
}

func TestExtension_RebuildPathFiresCopyToDuplicate(t *testing.T) {
	g := scene.NewGraph()
	container := g.NewNode("container", scene.InvalidHandle)
	src := g.NewNode("npc", scene.InvalidHandle) // no visual: rebuild path
	child := visualNode(g, "body", src)
	var calls []string
	g.AttachCapability(child, &trackingExt{calls: &calls})

	res := NewEngine(g, quietLogger()).Duplicate(src, container)

	require.NotNil(t, res)
	require.Equal(t, StrategyRebuild, res.Strategy)
	assert.Equal(t, []string{"before-duplication", "copy-to-duplicate"}, calls,
		"after-duplication must not fire on the rebuild path")
	require.Len(t, res.Extensions, 1)
}

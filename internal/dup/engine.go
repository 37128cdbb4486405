package dup

import (
	"log/slog"

	"github.com/roach88/rewind/internal/scene"
)

// Strategy identifies which duplication path produced a duplicate.
type Strategy string

const (
	// StrategyClone is clone-with-cleanup: structural deep copy followed
	// by exclusion stripping and fixed-point capability elimination.
	StrategyClone Strategy = "clone-with-cleanup"

	// StrategyRebuild is rebuild-minimal: bare nodes carrying only a
	// copied visual plus a follow-behavior bound to the live source.
	StrategyRebuild Strategy = "rebuild-minimal"
)

// FollowRef pairs a duplicate node with the follow-behavior driving it.
type FollowRef struct {
	Node     scene.Handle
	Behavior *FollowBehavior
}

// ExtensionRef pairs a duplicate node with an extension attached to it.
type ExtensionRef struct {
	Node scene.Handle
	Ext  Extension
}

// Result describes one successful duplication.
type Result struct {
	Root       scene.Handle
	Strategy   Strategy
	Follows    []FollowRef
	Extensions []ExtensionRef
}

// Engine duplicates source subtrees into detached, recordable copies.
//
// Strategy order is deterministic: clone-with-cleanup when the entry
// node carries a clonable visual representation, rebuild-minimal as the
// fallback and for entry nodes without one. If neither strategy yields a
// node, the subtree is omitted from the recording; this is an accepted
// outcome, not an error.
type Engine struct {
	graph     *scene.Graph
	allow     map[scene.CapabilityKind]bool
	providers []CleanupProvider
	logger    *slog.Logger
}

// NewEngine creates a duplication engine over g.
func NewEngine(g *scene.Graph, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		graph:  g,
		allow:  make(map[scene.CapabilityKind]bool),
		logger: logger,
	}
}

// AllowKinds extends the clone-with-cleanup allow-list (normally from
// the recording profile).
func (e *Engine) AllowKinds(kinds ...scene.CapabilityKind) {
	for _, k := range kinds {
		e.allow[k] = true
	}
}

// RegisterCleanupProvider installs a disable-instead-of-destroy marker
// provider.
func (e *Engine) RegisterCleanupProvider(p CleanupProvider) {
	e.providers = append(e.providers, p)
}

// Duplicate produces a detached duplicate of the subtree rooted at src,
// parented under container. Returns nil when the subtree yields nothing
// recordable.
func (e *Engine) Duplicate(src, container scene.Handle) *Result {
	n := e.graph.Node(src)
	if n == nil {
		return nil
	}
	if n.Config != nil && !n.Config.Recorded {
		return nil
	}

	// The capture mechanism binds by name within a sibling scope, so
	// collisions must be renamed before any copy exists.
	e.graph.UniqueSiblingNames(n.Parent)
	e.graph.UniqueNamesRecursive(src)

	e.graph.Walk(src, func(h scene.Handle, node *scene.Node) bool {
		for _, ext := range extensionsOn(node) {
			ext.BeforeDuplication(e.graph, h)
		}
		return true
	})

	if e.cloneViable(src) {
		if res := e.cloneWithCleanup(src, container); res != nil {
			return res
		}
		e.logger.Warn("clone-with-cleanup failed, falling back to rebuild-minimal",
			slog.String("node", n.Name))
	}
	return e.rebuildMinimal(src, container)
}

// cloneViable reports whether the entry node carries a clonable visual
// representation: a visual capability with an instantiable geometry.
// Subtrees without one always take the rebuild-minimal path.
func (e *Engine) cloneViable(src scene.Handle) bool {
	n := e.graph.Node(src)
	if n == nil {
		return false
	}
	v, ok := n.CapabilityByKind(scene.KindVisual).(*scene.Visual)
	return ok && v.Geometry != nil
}

func (e *Engine) cloneWithCleanup(src, container scene.Handle) *Result {
	dup := e.graph.CloneSubtree(src, container)
	if !dup.Valid() {
		return nil
	}

	// Strip excluded child subtrees: not-recorded, and independent roots
	// below the entry point (those become their own duplication passes).
	e.graph.Walk(dup, func(h scene.Handle, node *scene.Node) bool {
		if h == dup || node.Config == nil {
			return true
		}
		if !node.Config.Recorded || node.Config.IndependentRoot {
			e.graph.DestroyNode(h)
			return false
		}
		return true
	})

	if !e.eliminate(dup) {
		e.graph.DestroyNode(dup)
		return nil
	}

	res := &Result{Root: dup, Strategy: StrategyClone}
	e.graph.Walk(dup, func(h scene.Handle, node *scene.Node) bool {
		for _, ext := range extensionsOn(node) {
			ext.AfterDuplication(e.graph, h)
			res.Extensions = append(res.Extensions, ExtensionRef{Node: h, Ext: ext})
		}
		return true
	})
	e.wireFollows(src, dup, res)
	return res
}

// wireFollows attaches a follow-behavior to every animated node of a
// cloned duplicate, mirroring its source counterpart. The clone is a
// frozen copy; without a motion source the capture would record a static
// pose. Duplicate and source pair up by name path, which is exact
// because names were uniqued before the copy and cloning preserves them.
func (e *Engine) wireFollows(src, dup scene.Handle, res *Result) {
	e.graph.Walk(dup, func(h scene.Handle, node *scene.Node) bool {
		if node.Config != nil && !node.Config.Animated {
			return true // static by configuration; keep the clone pose
		}
		path, ok := e.graph.PathTo(dup, h)
		if !ok {
			return true
		}
		source := e.graph.ResolvePath(src, path)
		if !source.Valid() {
			return true
		}
		follow := &FollowBehavior{Source: source}
		e.graph.AttachCapability(h, follow)
		res.Follows = append(res.Follows, FollowRef{Node: h, Behavior: follow})
		return true
	})
}

func (e *Engine) rebuildMinimal(src, container scene.Handle) *Result {
	srcNode := e.graph.Node(src)
	root := e.graph.NewNode(srcNode.Name, container)
	res := &Result{Root: root, Strategy: StrategyRebuild}

	e.rebuildRec(src, src, root, res)

	if len(res.Follows) == 0 {
		// Nothing in the subtree carried geometry; omit it entirely.
		e.graph.DestroyNode(root)
		return nil
	}
	return res
}

func (e *Engine) rebuildRec(entry, src, dupParent scene.Handle, res *Result) {
	n := e.graph.Node(src)
	if n == nil {
		return
	}
	if src != entry && n.Config != nil && (!n.Config.Recorded || n.Config.IndependentRoot) {
		return // same exclusion rules as clone-with-cleanup
	}

	childParent := dupParent
	v, hasVisual := n.CapabilityByKind(scene.KindVisual).(*scene.Visual)
	if hasVisual && v.Geometry != nil {
		dup := e.graph.NewNode(n.Name, dupParent)
		e.graph.AttachCapability(dup, scene.CopyVisual(v))

		follow := &FollowBehavior{Source: src}
		e.graph.AttachCapability(dup, follow)
		follow.Apply(e.graph, dup)
		res.Follows = append(res.Follows, FollowRef{Node: dup, Behavior: follow})

		for _, ext := range extensionsOn(n) {
			if copied := ext.CopyToDuplicate(e.graph, src, dup); copied != nil {
				e.graph.AttachCapability(dup, copied)
				res.Extensions = append(res.Extensions, ExtensionRef{Node: dup, Ext: copied})
			}
		}
		childParent = dup
	}

	for _, c := range n.Children {
		e.rebuildRec(entry, c, childParent, res)
	}
}

func extensionsOn(n *scene.Node) []Extension {
	var out []Extension
	for _, c := range n.Capabilities() {
		if ext, ok := c.(Extension); ok {
			out = append(out, ext)
		}
	}
	return out
}

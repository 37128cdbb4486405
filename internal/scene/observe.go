package scene

import (
	"log/slog"
	"sort"
)

// PassRegistry is the set of currently active recording passes that new
// nodes must be post-registered into. Implemented by the record
// coordinator; the observer only knows this narrow surface so the scene
// package stays free of recording dependencies.
type PassRegistry interface {
	// PostRegisterAll registers the node with every active pass.
	PostRegisterAll(h Handle)
}

// Observer tracks per-node recording configuration and propagates it
// through the hierarchy.
//
// Configure is idempotent: once a node carries a configuration, inherited
// flags only ever tighten it (recorded → not recorded, animated → not
// animated), never loosen it. IndependentRoot can always be escalated and
// restarts inheritance for the subtree below the escalated node.
type Observer struct {
	graph  *Graph
	passes PassRegistry // nil until a recording coordinator attaches
	roots  map[Handle]bool
	logger *slog.Logger
}

// NewObserver creates an observer and registers it for structural
// mutation notifications on the graph.
func NewObserver(g *Graph, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Observer{
		graph:  g,
		roots:  make(map[Handle]bool),
		logger: logger,
	}
	g.AddListener(o)
	return o
}

// SetPassRegistry attaches the active-pass registry used for late
// registration. Until one is attached, structural mutations still
// configure new nodes but cannot join them to a recording.
func (o *Observer) SetPassRegistry(p PassRegistry) {
	o.passes = p
}

// Configure attaches or tightens a node's recording configuration and
// propagates the effective flags to all direct children.
//
// A child that has itself been escalated to IndependentRoot is not
// tightened by the ancestor's flags; inheritance restarts from that child
// with its own effective configuration.
func (o *Observer) Configure(h Handle, asIndependentRoot, inheritedNotRecorded, inheritedNotAnimated bool) {
	n := o.graph.Node(h)
	if n == nil {
		return
	}
	if n.Config == nil {
		n.Config = NewNodeConfig()
	}
	cfg := n.Config
	if asIndependentRoot {
		cfg.Escalate()
	}
	if cfg.IndependentRoot {
		o.roots[h] = true
	} else {
		cfg.Tighten(inheritedNotRecorded, inheritedNotAnimated)
	}
	for _, c := range n.Children {
		o.Configure(c, false, !cfg.Recorded, !cfg.Animated)
	}
}

// IndependentRoots returns the registered independent roots in handle
// order (deterministic pass ordering).
func (o *Observer) IndependentRoots() []Handle {
	out := make([]Handle, 0, len(o.roots))
	for h := range o.roots {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ChildAdded implements MutationListener. A new child under a tracked,
// still-recorded node inherits a synthesized configuration and is
// post-registered into every active recording pass.
func (o *Observer) ChildAdded(g *Graph, parent, child Handle) {
	p := g.Node(parent)
	if p == nil || p.Config == nil {
		return // untracked parent; nothing to inherit
	}
	if !p.Config.Recorded {
		return
	}
	o.Configure(child, false, !p.Config.Recorded, !p.Config.Animated)
	if o.passes != nil {
		o.passes.PostRegisterAll(child)
	}
}

// NodeDestroyed implements MutationListener. Destroying a node that held
// IndependentRoot unregisters it from the root-level registry.
func (o *Observer) NodeDestroyed(g *Graph, h Handle) {
	delete(o.roots, h)
}

package scene

import (
	"log/slog"

	"github.com/google/uuid"
)

// MutationListener receives synchronous structural-mutation notifications.
//
// The environment must deliver ChildAdded before the next frame tick so
// that post-registration of new nodes stays consistent with the frame
// lock-step. The Graph calls listeners inline from NewNode/SetParent;
// there is no deferred delivery.
type MutationListener interface {
	ChildAdded(g *Graph, parent, child Handle)
	NodeDestroyed(g *Graph, h Handle)
}

// Graph is the node arena. All structural mutation goes through Graph
// methods; Node fields are read-only to callers outside this package
// except through the accessors provided.
//
// Thread-safety: none. The whole recording pipeline is single-threaded
// and frame-driven; the one concurrent-looking interaction (structural
// mutation during an active recording) is synchronous by construction.
type Graph struct {
	nodes     map[Handle]*Node
	next      Handle
	listeners []MutationListener
	logger    *slog.Logger
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:  make(map[Handle]*Node),
		next:   1,
		logger: slog.Default(),
	}
}

// SetLogger overrides the default logger.
func (g *Graph) SetLogger(l *slog.Logger) {
	if l != nil {
		g.logger = l
	}
}

// AddListener registers a structural-mutation listener.
func (g *Graph) AddListener(l MutationListener) {
	g.listeners = append(g.listeners, l)
}

// NewNode creates a node under parent (InvalidHandle for a top-level
// node). The name is NFC-normalized. Listeners are notified when the
// node is created under a live parent.
func (g *Graph) NewNode(name string, parent Handle) Handle {
	h := g.next
	g.next++
	n := &Node{
		ID:     uuid.NewString(),
		Name:   NormalizeName(name),
		Parent: parent,
		Local:  IdentityTransform(),
		Active: true,
	}
	g.nodes[h] = n
	if p, ok := g.nodes[parent]; ok {
		p.Children = append(p.Children, h)
		for _, l := range g.listeners {
			l.ChildAdded(g, parent, h)
		}
	}
	return h
}

// newNodeQuiet creates a node without notifying mutation listeners.
// Used internally by duplication so that building a duplicate subtree
// does not post-register the duplicates themselves.
func (g *Graph) newNodeQuiet(name string, parent Handle) Handle {
	h := g.next
	g.next++
	n := &Node{
		ID:     uuid.NewString(),
		Name:   NormalizeName(name),
		Parent: parent,
		Local:  IdentityTransform(),
		Active: true,
	}
	g.nodes[h] = n
	if p, ok := g.nodes[parent]; ok {
		p.Children = append(p.Children, h)
	}
	return h
}

// Node resolves a handle. Returns nil for destroyed or invalid handles.
func (g *Graph) Node(h Handle) *Node {
	return g.nodes[h]
}

// Alive reports whether the handle refers to a live node.
func (g *Graph) Alive(h Handle) bool {
	_, ok := g.nodes[h]
	return ok
}

// Rename sets a node's display name (NFC-normalized).
func (g *Graph) Rename(h Handle, name string) {
	if n := g.nodes[h]; n != nil {
		n.Name = NormalizeName(name)
	}
}

// SetActive toggles a node. An inactive node keeps its subtree but is
// excluded from rendering and per-frame update by the host.
func (g *Graph) SetActive(h Handle, active bool) {
	if n := g.nodes[h]; n != nil {
		n.Active = active
	}
}

// ActiveInHierarchy reports whether the node and all its ancestors are
// active.
func (g *Graph) ActiveInHierarchy(h Handle) bool {
	for h.Valid() {
		n := g.nodes[h]
		if n == nil || !n.Active {
			return false
		}
		h = n.Parent
	}
	return true
}

// SetLocal replaces a node's local transform.
func (g *Graph) SetLocal(h Handle, t Transform) {
	if n := g.nodes[h]; n != nil {
		n.Local = t
	}
}

// WorldTransform composes the node's transform with all ancestors.
// Returns the identity transform for dead handles.
func (g *Graph) WorldTransform(h Handle) Transform {
	n := g.nodes[h]
	if n == nil {
		return IdentityTransform()
	}
	if !n.Parent.Valid() {
		return n.Local
	}
	return g.WorldTransform(n.Parent).Compose(n.Local)
}

// SetParent reparents a node, preserving the child's position at the end
// of the new parent's children list. Listeners are notified.
func (g *Graph) SetParent(h, parent Handle) {
	n := g.nodes[h]
	if n == nil {
		return
	}
	g.detach(h)
	n.Parent = parent
	if p, ok := g.nodes[parent]; ok {
		p.Children = append(p.Children, h)
		for _, l := range g.listeners {
			l.ChildAdded(g, parent, h)
		}
	}
}

func (g *Graph) detach(h Handle) {
	n := g.nodes[h]
	if n == nil || !n.Parent.Valid() {
		return
	}
	if p, ok := g.nodes[n.Parent]; ok {
		for i, c := range p.Children {
			if c == h {
				p.Children = append(p.Children[:i], p.Children[i+1:]...)
				break
			}
		}
	}
	n.Parent = InvalidHandle
}

// DestroyNode removes a node and its entire subtree from the arena.
// Handles into the destroyed subtree become dead; they are never reused.
func (g *Graph) DestroyNode(h Handle) {
	n := g.nodes[h]
	if n == nil {
		return
	}
	g.detach(h)
	g.destroyRec(h)
}

func (g *Graph) destroyRec(h Handle) {
	n := g.nodes[h]
	if n == nil {
		return
	}
	for _, c := range n.Children {
		g.destroyRec(c)
	}
	delete(g.nodes, h)
	for _, l := range g.listeners {
		l.NodeDestroyed(g, h)
	}
}

// AttachCapability appends a capability to the node's ordered set.
func (g *Graph) AttachCapability(h Handle, c Capability) {
	if n := g.nodes[h]; n != nil {
		n.capabilities = append(n.capabilities, c)
	}
}

// RemoveCapability attempts to detach one capability instance.
//
// Removal fails (returns false) while another capability attached to the
// same node declares, via Dependent, that it requires the target's kind.
// The caller is expected to retry after removing the dependent; the
// duplication engine does exactly that in its fixed-point loop.
func (g *Graph) RemoveCapability(h Handle, target Capability) bool {
	n := g.nodes[h]
	if n == nil {
		return false
	}
	for _, c := range n.capabilities {
		if c == target {
			continue
		}
		dep, ok := c.(Dependent)
		if !ok {
			continue
		}
		for _, req := range dep.Requires() {
			if req == target.Kind() {
				return false
			}
		}
	}
	for i, c := range n.capabilities {
		if c == target {
			n.capabilities = append(n.capabilities[:i], n.capabilities[i+1:]...)
			return true
		}
	}
	return false
}

// Walk visits h and every descendant in depth-first, children-in-order
// sequence. The visit function returning false prunes descent into that
// node's children.
func (g *Graph) Walk(h Handle, visit func(Handle, *Node) bool) {
	n := g.nodes[h]
	if n == nil {
		return
	}
	if !visit(h, n) {
		return
	}
	// Children may be mutated by the visit; iterate over a copy.
	children := append([]Handle(nil), n.Children...)
	for _, c := range children {
		g.Walk(c, visit)
	}
}

// CloneSubtree deep-copies the subtree rooted at h under newParent.
// Topology, names, transforms, active flags and all capabilities (via
// their Clone method) are copied; recording configuration is shared by
// reference because it describes the source node's intent, not per-copy
// state. Mutation listeners are not notified for the copies.
func (g *Graph) CloneSubtree(h, newParent Handle) Handle {
	src := g.nodes[h]
	if src == nil {
		return InvalidHandle
	}
	dup := g.newNodeQuiet(src.Name, newParent)
	dn := g.nodes[dup]
	dn.Local = src.Local
	dn.Active = src.Active
	dn.Config = src.Config
	for _, c := range src.capabilities {
		dn.capabilities = append(dn.capabilities, c.Clone())
	}
	for _, c := range src.Children {
		g.CloneSubtree(c, dup)
	}
	return dup
}

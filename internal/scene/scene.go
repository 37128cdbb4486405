// Package scene implements the arena-backed scene graph that recording
// passes observe and duplicate.
//
// Nodes live in a Graph arena and are addressed by opaque Handles. The
// parent reference is navigational only; a node's children list is the
// owning side of the hierarchy and preserves insertion order.
//
// INVARIANTS:
//   - Every live node except declared independent roots has exactly one parent.
//   - Children order is insertion order and survives duplication.
//   - Handles are never reused within one Graph.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Handle is an opaque reference to a node in a Graph arena.
//
// Handles are stable for the lifetime of the node and never reused, so a
// stale handle after DestroyNode simply resolves to nothing rather than to
// an unrelated node.
type Handle int32

// InvalidHandle is the zero-value "no node" handle.
const InvalidHandle Handle = 0

// Valid reports whether the handle could refer to a node.
// It does not check liveness; use Graph.Alive for that.
func (h Handle) Valid() bool { return h != InvalidHandle }

// Transform is a local TRS transform relative to the parent node.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// IdentityTransform returns a transform with zero translation, identity
// rotation and unit scale.
func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Compose applies a child transform on top of a parent world transform.
//
// Scale composes component-wise. This is the usual game-engine
// approximation: shear introduced by rotated non-uniform scale is not
// represented.
func (p Transform) Compose(child Transform) Transform {
	scaled := mgl32.Vec3{
		p.Scale.X() * child.Position.X(),
		p.Scale.Y() * child.Position.Y(),
		p.Scale.Z() * child.Position.Z(),
	}
	return Transform{
		Position: p.Position.Add(p.Rotation.Rotate(scaled)),
		Rotation: p.Rotation.Mul(child.Rotation),
		Scale: mgl32.Vec3{
			p.Scale.X() * child.Scale.X(),
			p.Scale.Y() * child.Scale.Y(),
			p.Scale.Z() * child.Scale.Z(),
		},
	}
}

// Node is one element of the hierarchy.
//
// Fields are mutated only through Graph methods so that structural
// bookkeeping (children order, observer notification) stays consistent.
type Node struct {
	ID       string // stable unique id (UUID), independent of the display name
	Name     string // display name, NFC-normalized; unique among siblings only after UniqueSiblingNames
	Parent   Handle
	Children []Handle
	Local    Transform
	Active   bool

	// Config is the recording configuration attached when the node is
	// first observed. Nil until then.
	Config *NodeConfig

	capabilities []Capability
}

// Capabilities returns the node's attached capabilities in attach order.
// The returned slice must not be mutated.
func (n *Node) Capabilities() []Capability {
	return n.capabilities
}

// CapabilityByKind returns the first attached capability with the given
// kind tag, or nil.
func (n *Node) CapabilityByKind(kind CapabilityKind) Capability {
	for _, c := range n.capabilities {
		if c.Kind() == kind {
			return c
		}
	}
	return nil
}

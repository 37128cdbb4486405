package dup

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/roach88/rewind/internal/scene"
)

// FollowBehavior copies a live source node's world transform onto its
// duplicate every tick. It is the motion source for rebuild-minimal
// duplicates, which have no structural link to the original.
//
// The duplicate collapses to zero scale when the source is inactive or
// destroyed, or while ForceCollapse is set. Late registration uses
// ForceCollapse to bracket an object's appearance in two adjacent
// samples so interpolated playback never shows it growing from nothing.
type FollowBehavior struct {
	Source        scene.Handle
	ForceCollapse bool
}

// Kind implements scene.Capability.
func (f *FollowBehavior) Kind() scene.CapabilityKind { return scene.KindFollow }

// Clone implements scene.Capability.
func (f *FollowBehavior) Clone() scene.Capability {
	c := *f
	return &c
}

// Apply updates the duplicate's local transform from the source's world
// transform, expressed relative to the duplicate's parent.
func (f *FollowBehavior) Apply(g *scene.Graph, duplicate scene.Handle) {
	dn := g.Node(duplicate)
	if dn == nil {
		return
	}
	if f.ForceCollapse || !g.Alive(f.Source) || !g.ActiveInHierarchy(f.Source) {
		local := dn.Local
		local.Scale = mgl32.Vec3{}
		g.SetLocal(duplicate, local)
		return
	}
	srcWorld := g.WorldTransform(f.Source)
	parentWorld := scene.IdentityTransform()
	if dn.Parent.Valid() {
		parentWorld = g.WorldTransform(dn.Parent)
	}
	g.SetLocal(duplicate, relativeTo(parentWorld, srcWorld))
}

// relativeTo expresses a world transform in a parent's local space,
// inverting the Compose convention. Zero parent scale components map to
// zero (the parent collapsed the axis anyway).
func relativeTo(parent, world scene.Transform) scene.Transform {
	invRot := parent.Rotation.Inverse()
	delta := invRot.Rotate(world.Position.Sub(parent.Position))
	return scene.Transform{
		Position: mgl32.Vec3{
			safeDiv(delta.X(), parent.Scale.X()),
			safeDiv(delta.Y(), parent.Scale.Y()),
			safeDiv(delta.Z(), parent.Scale.Z()),
		},
		Rotation: invRot.Mul(world.Rotation),
		Scale: mgl32.Vec3{
			safeDiv(world.Scale.X(), parent.Scale.X()),
			safeDiv(world.Scale.Y(), parent.Scale.Y()),
			safeDiv(world.Scale.Z(), parent.Scale.Z()),
		},
	}
}

func safeDiv(a, b float32) float32 {
	if b == 0 {
		return 0
	}
	return a / b
}

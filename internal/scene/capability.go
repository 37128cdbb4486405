package scene

// CapabilityKind tags a capability with its closed-world variant.
//
// The duplication engine's allow-list check and the extension lifecycle
// iterate over these tags instead of doing open-ended type introspection.
type CapabilityKind string

// Built-in capability kinds. Extension packages declare their own kinds;
// the registry stays closed because every kind must be named in a
// recording profile's allow-list (or be one of the built-ins) to survive
// clone-with-cleanup.
const (
	KindVisual CapabilityKind = "visual"
	KindFollow CapabilityKind = "follow"
)

// Capability is a pluggable behavior attached to a node.
//
// Clone performs the field-by-field copy for the deep-copy duplication
// path. Implementations copy owned state and share read-only resources
// (materials); they must not retain references to mutable per-node state
// of the source.
type Capability interface {
	Kind() CapabilityKind
	Clone() Capability
}

// Dependent is implemented by capabilities that other capabilities rely
// on. A capability whose kind appears in another attached capability's
// Requires list cannot be removed until that dependent is gone. The
// duplication engine's fixed-point elimination resolves removal order
// through retry rather than by computing the dependency graph.
type Dependent interface {
	Requires() []CapabilityKind
}

// Disableable is implemented by capabilities that a cleanup provider may
// mark disabled-in-place instead of destroyed during clone-with-cleanup.
type Disableable interface {
	SetEnabled(enabled bool)
}

// Material is a surface material shared between live and duplicated
// nodes. Materials are read-shared after duplication; nothing in the
// recording pipeline mutates one in place.
type Material struct {
	Name   string
	Shader string
}

// Geometry is a renderable mesh resource. Duplication copies geometry
// eagerly (independent instance) so recorded state cannot cross-talk with
// the live graph.
type Geometry struct {
	Name        string
	VertexCount int
}

// Visual is the renderable capability: one geometry instance plus the
// ordered materials applied to it.
type Visual struct {
	Geometry  *Geometry
	Materials []*Material
}

// Kind implements Capability.
func (v *Visual) Kind() CapabilityKind { return KindVisual }

// Clone implements Capability: independent geometry instance, shared
// material references.
func (v *Visual) Clone() Capability {
	return CopyVisual(v)
}

// CopyVisual is the visual-component copy primitive: an independent
// duplicate of the geometry and a shared reference to the materials,
// suitable for attachment to a duplicate node.
func CopyVisual(src *Visual) *Visual {
	dup := &Visual{
		Materials: append([]*Material(nil), src.Materials...),
	}
	if src.Geometry != nil {
		g := *src.Geometry
		dup.Geometry = &g
	}
	return dup
}

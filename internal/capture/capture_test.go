package capture

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/scene"
)

func moveX(g *scene.Graph, h scene.Handle, dx float32) {
	n := g.Node(h)
	local := n.Local
	local.Position = local.Position.Add(mgl32.Vec3{dx, 0, 0})
	g.SetLocal(h, local)
}

func TestRecorder_Bind_DeadNode(t *testing.T) {
	g := scene.NewGraph()
	n := g.NewNode("n", scene.InvalidHandle)
	g.DestroyNode(n)

	_, err := NewRecorder(g).Bind(n)
	assert.Error(t, err)
}

func TestRecorder_SampleFailsAfterDestroy(t *testing.T) {
	g := scene.NewGraph()
	n := g.NewNode("n", scene.InvalidHandle)
	session, err := NewRecorder(g).Bind(n)
	require.NoError(t, err)

	require.NoError(t, session.Sample(0.1))
	g.DestroyNode(n)

	assert.ErrorIs(t, session.Sample(0.1), ErrBindingInvalid)
	assert.ErrorIs(t, session.Sample(0.1), ErrBindingInvalid, "a dead binding stays dead")
}

func TestRecorder_StaticNodeReducesToTwoKeys(t *testing.T) {
	g := scene.NewGraph()
	n := g.NewNode("n", scene.InvalidHandle)
	session, err := NewRecorder(g).Bind(n)
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		require.NoError(t, session.Sample(0.25))
	}
	md, err := session.Finalize(4, DefaultTolerance())
	require.NoError(t, err)

	assert.InDelta(t, 2.0, md.Length, 1e-6)
	require.Len(t, md.Tracks, 1)
	track := md.Tracks[0]
	assert.Equal(t, "", track.Path)
	require.Len(t, track.Times, 2, "a static pose reduces to first and last key")
	assert.InDelta(t, 0.25, track.Times[0], 1e-6)
	assert.InDelta(t, 2.0, track.Times[1], 1e-6)
}

func TestRecorder_ReductionKeepsMovingKeysWithinTolerance(t *testing.T) {
	g := scene.NewGraph()
	n := g.NewNode("n", scene.InvalidHandle)
	session, err := NewRecorder(g).Bind(n)
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		moveX(g, n, 0.25)
		require.NoError(t, session.Sample(0.25))
	}
	md, err := session.Finalize(4, DefaultTolerance())
	require.NoError(t, err)

	track := md.Tracks[0]
	// Perfectly linear motion is reconstructible from the end keys, but
	// whatever keys survive must reproduce the line.
	for _, tt := range []float32{0.25, 1.0, 2.0} {
		pose := track.At(tt)
		assert.InDelta(t, tt, pose.Position.X(), 0.01, "pose at t=%v", tt)
	}
}

func TestRecorder_AnimatedFlagSkipsTrack(t *testing.T) {
	g := scene.NewGraph()
	root := g.NewNode("root", scene.InvalidHandle)
	child := g.NewNode("child", root)
	cfg := scene.NewNodeConfig()
	cfg.Tighten(false, true) // not animated
	g.Node(child).Config = cfg

	session, err := NewRecorder(g).Bind(root)
	require.NoError(t, err)
	require.NoError(t, session.Sample(0.1))
	md, err := session.Finalize(10, DefaultTolerance())
	require.NoError(t, err)

	require.Len(t, md.Tracks, 1, "only the animated root gets a track")
	assert.Equal(t, "", md.Tracks[0].Path)
}

func TestMotionData_SampleAt_ClampIdempotence(t *testing.T) {
	g := scene.NewGraph()
	n := g.NewNode("n", scene.InvalidHandle)
	session, err := NewRecorder(g).Bind(n)
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		moveX(g, n, 0.25)
		require.NoError(t, session.Sample(0.25))
	}
	md, err := session.Finalize(4, DefaultTolerance())
	require.NoError(t, err)

	md.SampleAt(g, n, md.Length)
	atEnd := g.Node(n).Local.Position

	md.SampleAt(g, n, md.Length+5)
	beyondEnd := g.Node(n).Local.Position

	assert.Equal(t, atEnd, beyondEnd, "lookup beyond the end behaves exactly like the end")
}

func TestMotionData_SampleAt_Interpolates(t *testing.T) {
	track := &Track{
		Times: []float32{0, 1},
		Keys: []scene.Transform{
			poseAtX(0),
			poseAtX(10),
		},
	}
	pose := track.At(0.5)
	assert.InDelta(t, 5, pose.Position.X(), 1e-5)
}

func poseAtX(x float32) scene.Transform {
	p := scene.IdentityTransform()
	p.Position = mgl32.Vec3{x, 0, 0}
	return p
}

func TestUnrollRotations_FixesSignFlips(t *testing.T) {
	a := scene.IdentityTransform()
	b := scene.IdentityTransform()
	b.Rotation = mgl32.Quat{W: -1} // same rotation, flipped sign

	keys := []scene.Transform{a, b}
	unrollRotations(keys)

	assert.InDelta(t, 1, float64(keys[1].Rotation.W), 1e-6, "flipped quaternion is unrolled")
}

func TestFinalize_RejectsInvalidFrameRate(t *testing.T) {
	g := scene.NewGraph()
	n := g.NewNode("n", scene.InvalidHandle)
	session, err := NewRecorder(g).Bind(n)
	require.NoError(t, err)

	_, err = session.Finalize(0, DefaultTolerance())
	assert.Error(t, err)
}

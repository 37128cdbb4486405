package capture

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/roach88/rewind/internal/scene"
)

// Track is the compacted motion of one node, addressed by its name path
// relative to the bound root ("" for the root itself).
//
// Times is strictly increasing; Keys[i] is the pose at Times[i].
type Track struct {
	Path  string
	Times []float32
	Keys  []scene.Transform
}

// MotionData is the finalized, replayable output of a capture session.
//
// Tracks are ordered by first appearance during capture (depth-first walk
// of the bound subtree), which makes serialized traces deterministic.
type MotionData struct {
	Length    float32
	FrameRate float32
	Tracks    []*Track
}

// SampleAt applies the recorded pose at timeSeconds to the transform tree
// below root. The time is clamped to [0, Length]; lookups at or beyond
// the end return the end pose, never extrapolate. Tracks whose path no
// longer resolves under root are skipped.
func (m *MotionData) SampleAt(g *scene.Graph, root scene.Handle, timeSeconds float32) {
	t := clamp(timeSeconds, 0, m.Length)
	for _, track := range m.Tracks {
		if len(track.Times) == 0 {
			continue
		}
		h := g.ResolvePath(root, track.Path)
		if !h.Valid() {
			continue
		}
		g.SetLocal(h, track.At(t))
	}
}

// At returns the interpolated pose at time t (clamped to the track's
// recorded range). Positions and scales interpolate linearly, rotations
// by normalized spherical lerp.
func (tr *Track) At(t float32) scene.Transform {
	n := len(tr.Times)
	if n == 0 {
		return scene.IdentityTransform()
	}
	if t <= tr.Times[0] {
		return tr.Keys[0]
	}
	if t >= tr.Times[n-1] {
		return tr.Keys[n-1]
	}
	// First index with time > t; the segment is [i-1, i].
	i := sort.Search(n, func(k int) bool { return tr.Times[k] > t })
	a, b := tr.Keys[i-1], tr.Keys[i]
	span := tr.Times[i] - tr.Times[i-1]
	f := float32(0)
	if span > 0 {
		f = (t - tr.Times[i-1]) / span
	}
	return scene.Transform{
		Position: lerpVec(a.Position, b.Position, f),
		Rotation: mgl32.QuatNlerp(a.Rotation, b.Rotation, f),
		Scale:    lerpVec(a.Scale, b.Scale, f),
	}
}

func lerpVec(a, b mgl32.Vec3, f float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(f))
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// compactTrack turns raw samples into a Track, applying rotation
// unrolling and greedy keyframe reduction per the tolerance config.
func compactTrack(raw *rawTrack, tol ToleranceConfig) *Track {
	keys := append([]scene.Transform(nil), raw.pos...)
	times := append([]float32(nil), raw.times...)

	if tol.RotationUnroll {
		unrollRotations(keys)
	}
	if tol.KeyframeReduction && len(keys) > 2 {
		times, keys = reduceKeys(times, keys, tol)
	}
	return &Track{Path: raw.path, Times: times, Keys: keys}
}

// unrollRotations flips quaternion signs so consecutive keys stay on the
// same hemisphere. q and -q encode the same rotation, but interpolating
// across a sign flip takes the long way around.
func unrollRotations(keys []scene.Transform) {
	for i := 1; i < len(keys); i++ {
		if keys[i-1].Rotation.Dot(keys[i].Rotation) < 0 {
			q := keys[i].Rotation
			keys[i].Rotation = mgl32.Quat{W: -q.W, V: q.V.Mul(-1)}
		}
	}
}

// reduceKeys drops interior keys that linear interpolation between their
// kept neighbor and the following key reproduces within tolerance. The
// first and last keys are always kept so clamped end lookups stay exact.
func reduceKeys(times []float32, keys []scene.Transform, tol ToleranceConfig) ([]float32, []scene.Transform) {
	n := len(keys)
	outT := []float32{times[0]}
	outK := []scene.Transform{keys[0]}
	for i := 1; i < n-1; i++ {
		prevT, prevK := outT[len(outT)-1], outK[len(outK)-1]
		nextT, nextK := times[i+1], keys[i+1]
		span := nextT - prevT
		f := float32(0)
		if span > 0 {
			f = (times[i] - prevT) / span
		}
		interp := scene.Transform{
			Position: lerpVec(prevK.Position, nextK.Position, f),
			Rotation: mgl32.QuatNlerp(prevK.Rotation, nextK.Rotation, f),
			Scale:    lerpVec(prevK.Scale, nextK.Scale, f),
		}
		if withinTolerance(keys[i], interp, tol) {
			continue
		}
		outT = append(outT, times[i])
		outK = append(outK, keys[i])
	}
	outT = append(outT, times[n-1])
	outK = append(outK, keys[n-1])
	return outT, outK
}

func withinTolerance(actual, approx scene.Transform, tol ToleranceConfig) bool {
	return maxAbsDiff(actual.Position, approx.Position) <= tol.Position &&
		maxAbsDiff(actual.Scale, approx.Scale) <= tol.Scale &&
		quatAbsDiff(actual.Rotation, approx.Rotation) <= tol.Rotation
}

func maxAbsDiff(a, b mgl32.Vec3) float32 {
	m := abs(a.X() - b.X())
	if d := abs(a.Y() - b.Y()); d > m {
		m = d
	}
	if d := abs(a.Z() - b.Z()); d > m {
		m = d
	}
	return m
}

func quatAbsDiff(a, b mgl32.Quat) float32 {
	m := abs(a.W - b.W)
	for i := 0; i < 3; i++ {
		if d := abs(a.V[i] - b.V[i]); d > m {
			m = d
		}
	}
	return m
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

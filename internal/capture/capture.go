// Package capture defines the frame-sampling mechanism that turns raw
// per-frame transform samples into compact, replayable motion data, plus
// the built-in in-memory implementation of it.
//
// The recording pipeline treats the mechanism as an external
// collaborator: it only depends on the Mechanism/Session contract, never
// on Recorder directly, so a host with its own curve-fitting backend can
// substitute one without touching the pipeline.
package capture

import (
	"errors"
	"fmt"

	"github.com/roach88/rewind/internal/scene"
)

// ToleranceConfig controls keyframe compaction at finalize time.
//
// Error thresholds are absolute, per channel. Both switches default to
// enabled; disabling KeyframeReduction keeps every raw sample, disabling
// RotationUnroll skips quaternion sign-continuity correction.
type ToleranceConfig struct {
	Position float32
	Rotation float32
	Scale    float32
	Float    float32

	KeyframeReduction bool
	RotationUnroll    bool
}

// DefaultTolerance is the configuration used by the recording pipeline:
// 0.001 absolute error on every channel, both switches enabled.
func DefaultTolerance() ToleranceConfig {
	return ToleranceConfig{
		Position:          0.001,
		Rotation:          0.001,
		Scale:             0.001,
		Float:             0.001,
		KeyframeReduction: true,
		RotationUnroll:    true,
	}
}

// ErrBindingInvalid is returned by Session.Sample when the bound node is
// no longer valid (destroyed mid-capture). Callers must stop sampling the
// session permanently; retrying is guaranteed to fail again.
var ErrBindingInvalid = errors.New("capture: bound node is no longer valid")

// Session is one live capture over a bound node's transform subtree.
type Session interface {
	// Sample advances the session clock by deltaSeconds and records the
	// current pose of every animated node in the bound subtree. A
	// non-nil error (ErrBindingInvalid) means the binding is dead and
	// the session must not be sampled again.
	Sample(deltaSeconds float32) error

	// Finalize converts the accumulated samples into motion data at the
	// given target frame rate, releasing the live capture resources.
	Finalize(targetFrameRate float32, tol ToleranceConfig) (*MotionData, error)
}

// Mechanism creates capture sessions. Bind registers a node's transform
// subtree for sampling; no sample is taken until the first Sample call,
// so a session joining a recording late has no keys before its first
// forwarded frame.
type Mechanism interface {
	Bind(node scene.Handle) (Session, error)
}

// Recorder is the built-in in-memory Mechanism over a scene graph.
//
// It identifies nodes by their name path relative to the bound root,
// which is why duplication must unique sibling names before binding: two
// siblings sharing a name would alias one motion track.
type Recorder struct {
	graph *scene.Graph
}

// NewRecorder creates a Mechanism sampling from g.
func NewRecorder(g *scene.Graph) *Recorder {
	return &Recorder{graph: g}
}

// Bind implements Mechanism.
func (r *Recorder) Bind(node scene.Handle) (Session, error) {
	if !r.graph.Alive(node) {
		return nil, fmt.Errorf("capture: cannot bind dead node %d", node)
	}
	s := &recorderSession{
		graph:  r.graph,
		root:   node,
		tracks: make(map[string]*rawTrack),
	}
	return s, nil
}

// rawTrack holds uncompacted per-frame samples for one node path.
type rawTrack struct {
	path  string
	times []float32
	pos   []scene.Transform
}

type recorderSession struct {
	graph *scene.Graph
	root  scene.Handle

	now    float32
	order  []string // track creation order, for deterministic output
	tracks map[string]*rawTrack
	dead   bool
}

// Sample implements Session.
func (s *recorderSession) Sample(deltaSeconds float32) error {
	if s.dead {
		return ErrBindingInvalid
	}
	if !s.graph.Alive(s.root) {
		s.dead = true
		return ErrBindingInvalid
	}
	s.now += deltaSeconds
	s.sampleNow()
	return nil
}

func (s *recorderSession) sampleNow() {
	s.graph.Walk(s.root, func(h scene.Handle, n *scene.Node) bool {
		if n.Config != nil && !n.Config.Animated {
			// Static node: keep the duplicate's pose, no track.
			return true
		}
		path, ok := s.graph.PathTo(s.root, h)
		if !ok {
			return true
		}
		tr := s.tracks[path]
		if tr == nil {
			tr = &rawTrack{path: path}
			s.tracks[path] = tr
			s.order = append(s.order, path)
		}
		tr.times = append(tr.times, s.now)
		tr.pos = append(tr.pos, n.Local)
		return true
	})
}

// Finalize implements Session.
func (s *recorderSession) Finalize(targetFrameRate float32, tol ToleranceConfig) (*MotionData, error) {
	if targetFrameRate <= 0 {
		return nil, fmt.Errorf("capture: invalid target frame rate %v", targetFrameRate)
	}
	md := &MotionData{Length: s.now, FrameRate: targetFrameRate}
	for _, path := range s.order {
		raw := s.tracks[path]
		track := compactTrack(raw, tol)
		md.Tracks = append(md.Tracks, track)
	}
	// Release the raw sample buffers; the session is spent.
	s.tracks = nil
	s.order = nil
	s.dead = true
	return md, nil
}

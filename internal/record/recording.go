// Package record implements timed-capture orchestration: per-node
// capture sessions driven in lock-step across a frame loop, finalized
// into replayable motion data and wrapped in replay sessions.
//
// Everything here is single-threaded and frame-driven. All operations
// run to completion inside the caller's per-frame update; structural
// mutation of the source graph during an active pass arrives through the
// synchronous post-registration path, so no locking is needed.
package record

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/roach88/rewind/internal/capture"
	"github.com/roach88/rewind/internal/dup"
	"github.com/roach88/rewind/internal/scene"
)

// NodeRecording owns the capture session for exactly one duplicated
// node. It is owned by the Orchestrator that created it until handed to
// a ReplaySession.
//
// Error absorption: a capture failure (the bound node destroyed
// mid-recording) permanently disables forwarding for this session only
// and is logged once. Retrying a dead binding is guaranteed to fail, so
// the session keeps accumulating time and firing extension callbacks but
// never samples again.
type NodeRecording struct {
	graph      *scene.Graph
	node       scene.Handle
	session    capture.Session
	motion     *capture.MotionData
	elapsed    float32
	ready      bool
	sampleDead bool
	materials  []*scene.Material
	follows    []dup.FollowRef
	extensions []dup.ExtensionRef
	logger     *slog.Logger
}

func newNodeRecording(g *scene.Graph, res *dup.Result, mech capture.Mechanism, logger *slog.Logger) *NodeRecording {
	rec := &NodeRecording{
		graph:      g,
		node:       res.Root,
		follows:    res.Follows,
		extensions: res.Extensions,
		logger:     logger,
	}
	session, err := mech.Bind(res.Root)
	if err != nil {
		logger.Warn("capture bind failed; recording will hold a static pose",
			slog.String("error", err.Error()))
	} else {
		rec.session = session
	}
	for _, e := range rec.extensions {
		e.Ext.BeforeRecording(g, e.Node)
	}
	return rec
}

// Node returns the duplicated node this recording owns.
func (r *NodeRecording) Node() scene.Handle { return r.node }

// Elapsed returns the accumulated recording time in seconds.
func (r *NodeRecording) Elapsed() float32 { return r.elapsed }

// Motion returns the finalized motion data, nil until finalize.
func (r *NodeRecording) Motion() *capture.MotionData { return r.motion }

// Materials returns the surface materials snapshotted at finalize time.
func (r *NodeRecording) Materials() []*scene.Material { return r.materials }

// IsReady reports finalize completion.
func (r *NodeRecording) IsReady() bool { return r.ready }

// Tick advances the session by deltaSeconds: accumulate elapsed time,
// update follow-behaviors, fire per-frame recording callbacks, then
// forward the sample to the capture session. No-op once finalized.
func (r *NodeRecording) Tick(deltaSeconds float32) {
	if r.ready {
		return
	}
	r.elapsed += deltaSeconds
	for _, f := range r.follows {
		f.Behavior.Apply(r.graph, f.Node)
	}
	for _, e := range r.extensions {
		e.Ext.RecordFrame(r.graph, e.Node, deltaSeconds)
	}
	if r.session == nil || r.sampleDead {
		return
	}
	if err := r.session.Sample(deltaSeconds); err != nil {
		r.sampleDead = true
		r.logger.Warn("capture sample failed; disabling further sampling for this session",
			slog.String("error", err.Error()))
	}
}

// Finalize converts the live capture session into motion data, fires the
// pre-playback extension callbacks and snapshots the duplicated
// subtree's surface materials (after any extension-driven substitution).
// Idempotent; only the live capture sub-resource is released.
func (r *NodeRecording) Finalize(targetFrameRate float32, tol capture.ToleranceConfig) {
	if r.ready {
		return
	}
	if r.session != nil {
		motion, err := r.session.Finalize(targetFrameRate, tol)
		if err != nil {
			r.logger.Warn("capture finalize failed; replay will hold the last pose",
				slog.String("error", err.Error()))
		} else {
			r.motion = motion
		}
		r.session = nil
	}
	r.ready = true
	for _, e := range r.extensions {
		e.Ext.BeforePlayback(r.graph, e.Node)
	}
	r.materials = r.collectMaterials()
}

func (r *NodeRecording) collectMaterials() []*scene.Material {
	seen := make(map[*scene.Material]bool)
	var out []*scene.Material
	collect := func(h scene.Handle, n *scene.Node) bool {
		if v, ok := n.CapabilityByKind(scene.KindVisual).(*scene.Visual); ok {
			for _, m := range v.Materials {
				if !seen[m] {
					seen[m] = true
					out = append(out, m)
				}
			}
		}
		return true
	}
	r.graph.Walk(r.node, collect)
	for _, e := range r.extensions {
		for _, aux := range e.Ext.AuxiliaryNodes() {
			r.graph.Walk(aux, collect)
		}
	}
	return out
}

// LoadSnapshot applies the recorded pose at atSeconds (clamped to
// [0, elapsed]) to the duplicated node's transform tree, then fires the
// per-frame playback callbacks with the same timestamp. A logged no-op
// before readiness or after the duplicate was destroyed.
func (r *NodeRecording) LoadSnapshot(atSeconds float32) {
	if !r.ready {
		r.logger.Warn("snapshot requested before finalize; ignoring")
		return
	}
	if !r.graph.Alive(r.node) {
		r.logger.Warn("snapshot requested after duplicate destroyed; ignoring")
		return
	}
	t := atSeconds
	if t < 0 {
		t = 0
	}
	if t > r.elapsed {
		t = r.elapsed
	}
	if r.motion != nil {
		r.motion.SampleAt(r.graph, r.node, t)
	}
	for _, e := range r.extensions {
		e.Ext.PlaybackFrame(r.graph, e.Node, t)
	}
}

// forceCollapse toggles zero-scale visibility suppression used by late
// registration. Rebuilt duplicates collapse through their
// follow-behavior's flag; cloned duplicates have no follow, so the root
// scale is swapped out directly.
func (r *NodeRecording) forceCollapse(collapsed bool, savedScale *scene.Transform) {
	if len(r.follows) > 0 {
		for _, f := range r.follows {
			f.Behavior.ForceCollapse = collapsed
			f.Behavior.Apply(r.graph, f.Node)
		}
		return
	}
	n := r.graph.Node(r.node)
	if n == nil {
		return
	}
	if collapsed {
		*savedScale = n.Local
		local := n.Local
		local.Scale = mgl32.Vec3{}
		r.graph.SetLocal(r.node, local)
	} else {
		r.graph.SetLocal(r.node, *savedScale)
	}
}

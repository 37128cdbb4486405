package record

import (
	"log/slog"

	"github.com/roach88/rewind/internal/capture"
	"github.com/roach88/rewind/internal/dup"
	"github.com/roach88/rewind/internal/scene"
)

// Epsilon is the bracketing offset for late registration, in seconds.
// A node joining at elapsed time L gets one collapsed sample at L−ε and
// one restored sample at L+ε, so interpolated playback reveals the
// object between two adjacent, near-identical timestamps instead of
// growing it from zero over the preceding duration.
const Epsilon = 1e-5

// State is the orchestrator lifecycle.
//
// The active → ended transition is one-way and irreversible; ready is
// reached once every owned NodeRecording has finalized.
type State int

const (
	StateActive State = iota + 1
	StateEnded
	StateReady
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Orchestrator owns the NodeRecordings of one coherent recording pass.
//
// Every owned recording receives the same deltaSeconds per tick and the
// same timestamp per snapshot, guaranteeing lock-step playback across
// all duplicated nodes of the pass.
type Orchestrator struct {
	token      string
	graph      *scene.Graph
	engine     *dup.Engine
	mech       capture.Mechanism
	frameRate  float32
	tol        capture.ToleranceConfig
	container  scene.Handle
	recordings []*NodeRecording
	elapsed    float32
	state      State
	replay     *ReplaySession
	onEnd      func(*Orchestrator)
	logger     *slog.Logger
}

func newOrchestrator(token string, g *scene.Graph, engine *dup.Engine, mech capture.Mechanism,
	frameRate float32, tol capture.ToleranceConfig, logger *slog.Logger) *Orchestrator {

	container := g.NewNode("recording-"+token, scene.InvalidHandle)
	// Duplicates stay hidden until the pass is replayable.
	g.SetActive(container, false)

	return &Orchestrator{
		token:     token,
		graph:     g,
		engine:    engine,
		mech:      mech,
		frameRate: frameRate,
		tol:       tol,
		container: container,
		state:     StateActive,
		logger:    logger.With(slog.String("pass", token)),
	}
}

// Token returns the pass correlation token.
func (o *Orchestrator) Token() string { return o.token }

// State returns the current lifecycle state.
func (o *Orchestrator) State() State { return o.state }

// Elapsed returns the pass length so far in seconds.
func (o *Orchestrator) Elapsed() float32 { return o.elapsed }

// Recordings returns the owned NodeRecordings in registration order.
func (o *Orchestrator) Recordings() []*NodeRecording { return o.recordings }

// Register duplicates a tracked node into the pass. A subtree that
// yields nothing from either duplication strategy is omitted from the
// recording; that is an accepted outcome, not an error.
func (o *Orchestrator) Register(h scene.Handle) *NodeRecording {
	if o.state != StateActive {
		o.logger.Warn("register on inactive pass ignored", slog.String("state", o.state.String()))
		return nil
	}
	res := o.engine.Duplicate(h, o.container)
	if res == nil {
		if n := o.graph.Node(h); n != nil {
			o.logger.Info("subtree omitted from recording", slog.String("node", n.Name))
		}
		return nil
	}
	// The capture mechanism binds by name in sibling scope; duplicates
	// of distinct sources may still collide under the shared container.
	o.graph.UniqueSiblingNames(o.container)

	rec := newNodeRecording(o.graph, res, o.mech, o.logger)
	o.recordings = append(o.recordings, rec)
	return rec
}

// Tick advances the pass one frame: every owned recording receives the
// same deltaSeconds, then the pass clock advances.
func (o *Orchestrator) Tick(deltaSeconds float32) {
	if o.state != StateActive {
		return
	}
	for _, rec := range o.recordings {
		rec.Tick(deltaSeconds)
	}
	o.elapsed += deltaSeconds
}

// PostRegister adds a node discovered mid-pass, bracketing its
// appearance: one collapsed sample at elapsed−ε, one restored sample at
// elapsed+ε. The recording's session contains no sample before the
// collapsed one.
func (o *Orchestrator) PostRegister(h scene.Handle) *NodeRecording {
	if o.state != StateActive {
		o.logger.Warn("post-register on inactive pass ignored", slog.String("state", o.state.String()))
		return nil
	}
	rec := o.Register(h)
	if rec == nil {
		return nil
	}

	before := o.elapsed - Epsilon
	if before < 0 {
		before = 0
	}
	var saved scene.Transform
	rec.forceCollapse(true, &saved)
	rec.Tick(before)
	rec.forceCollapse(false, &saved)
	rec.Tick(o.elapsed + Epsilon - before)
	return rec
}

// End finalizes the pass: active → ended, one-way. Every owned recording
// finalizes synchronously before End returns; for large recordings this
// blocks the calling frame, a stated limitation of the design.
func (o *Orchestrator) End() {
	if o.state != StateActive {
		return
	}
	o.state = StateEnded
	for _, rec := range o.recordings {
		rec.Finalize(o.frameRate, o.tol)
	}
	if o.onEnd != nil {
		o.onEnd(o)
	}
	o.logger.Info("recording ended",
		slog.Int("recordings", len(o.recordings)),
		slog.Float64("length", float64(o.elapsed)))
}

// TryGetReplay returns the pass's ReplaySession once every owned
// recording is ready, constructing it exactly once. While any recording
// is unfinalized it returns (nil, false); poll again later.
func (o *Orchestrator) TryGetReplay() (*ReplaySession, bool) {
	if o.state == StateActive {
		return nil, false
	}
	for _, rec := range o.recordings {
		if !rec.IsReady() {
			return nil, false
		}
	}
	if o.replay == nil {
		o.graph.SetActive(o.container, true)
		// Ownership of the recordings transfers to the replay session.
		o.replay = newReplaySession(o.graph, o.container, o.recordings, o.logger)
		o.state = StateReady
	}
	return o.replay, true
}

package record

import (
	"log/slog"

	"github.com/roach88/rewind/internal/capture"
	"github.com/roach88/rewind/internal/dup"
	"github.com/roach88/rewind/internal/scene"
)

// Root is the recording coordinator for one recording-capable graph: the
// registry of tracked root-level nodes, the set of active recording
// passes, and the duplication engine with its installed
// cleanup-capability providers.
//
// There is deliberately no package-level singleton; create one Root per
// graph and pass it where it is needed. Its lifetime is tied to the
// graph's.
type Root struct {
	graph    *scene.Graph
	observer *scene.Observer
	engine   *dup.Engine
	mech     capture.Mechanism

	frameRate float32
	tol       capture.ToleranceConfig
	tokens    TokenGenerator

	tracked []scene.Handle
	active  []*Orchestrator
	logger  *slog.Logger
}

// NewRoot wires a coordinator over the graph. The observer's
// late-registration path is attached here: structural mutations the
// observer sees are post-registered into every active pass.
func NewRoot(g *scene.Graph, observer *scene.Observer, mech capture.Mechanism, logger *slog.Logger) *Root {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Root{
		graph:     g,
		observer:  observer,
		engine:    dup.NewEngine(g, logger),
		mech:      mech,
		frameRate: 30,
		tol:       capture.DefaultTolerance(),
		tokens:    UUIDv7Generator{},
		logger:    logger,
	}
	observer.SetPassRegistry(r)
	return r
}

// SetTokenGenerator overrides pass-token generation (tests use a fixed
// generator for deterministic logs and container names).
func (r *Root) SetTokenGenerator(g TokenGenerator) {
	if g != nil {
		r.tokens = g
	}
}

// SetCaptureConfig sets the target frame rate and tolerance used when
// finalizing passes created after the call.
func (r *Root) SetCaptureConfig(frameRate float32, tol capture.ToleranceConfig) {
	r.frameRate = frameRate
	r.tol = tol
}

// AllowKinds extends the duplication allow-list (normally from a
// recording profile).
func (r *Root) AllowKinds(kinds ...scene.CapabilityKind) {
	r.engine.AllowKinds(kinds...)
}

// RegisterCleanupProvider installs a disable-instead-of-destroy marker
// provider for clone-with-cleanup.
func (r *Root) RegisterCleanupProvider(p dup.CleanupProvider) {
	r.engine.RegisterCleanupProvider(p)
}

// Track registers a root-level node for recording and configures its
// subtree. Tracking is idempotent.
func (r *Root) Track(h scene.Handle) {
	for _, t := range r.tracked {
		if t == h {
			return
		}
	}
	r.observer.Configure(h, false, false, false)
	r.tracked = append(r.tracked, h)
}

// CreateNewSceneRecording starts a recording pass over every tracked
// node and every registered independent root. Returns nil (a logged
// no-op) when no capture mechanism is configured.
func (r *Root) CreateNewSceneRecording() *Orchestrator {
	if r.mech == nil {
		r.logger.Warn("no capture mechanism configured; recording not started")
		return nil
	}
	o := newOrchestrator(r.tokens.Generate(), r.graph, r.engine, r.mech, r.frameRate, r.tol, r.logger)
	o.onEnd = r.unregister

	for _, h := range r.tracked {
		o.Register(h)
	}
	for _, h := range r.observer.IndependentRoots() {
		if r.isTracked(h) {
			continue
		}
		o.Register(h)
	}

	r.active = append(r.active, o)
	r.logger.Info("recording started", slog.String("pass", o.Token()),
		slog.Int("recordings", len(o.Recordings())))
	return o
}

// Active returns the currently active passes.
func (r *Root) Active() []*Orchestrator { return r.active }

// PostRegisterAll implements scene.PassRegistry: a node discovered
// mid-recording joins every active pass.
func (r *Root) PostRegisterAll(h scene.Handle) {
	for _, o := range r.active {
		o.PostRegister(h)
	}
}

func (r *Root) isTracked(h scene.Handle) bool {
	for _, t := range r.tracked {
		if t == h {
			return true
		}
	}
	return false
}

func (r *Root) unregister(o *Orchestrator) {
	for i, a := range r.active {
		if a == o {
			r.active = append(r.active[:i], r.active[i+1:]...)
			return
		}
	}
}

package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/roach88/rewind/internal/capture"
	"github.com/roach88/rewind/internal/record"
	"github.com/roach88/rewind/internal/scene"
	"github.com/roach88/rewind/internal/testutil"
)

// Result is the outcome of one scenario execution. The graph, the ended
// orchestrator and the replay session stay accessible for golden
// snapshotting and further inspection.
type Result struct {
	Scenario     *Scenario
	Passed       bool
	Failures     []string
	Graph        *scene.Graph
	Orchestrator *record.Orchestrator
	Replay       *record.ReplaySession
}

// Run executes a scenario: build the scripted scene, record it with a
// fixed frame delta, replay, and evaluate every check. Scenario logs are
// suppressed; each run gets a fresh graph for isolation.
func Run(s *Scenario) (*Result, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	g := scene.NewGraph()
	g.SetLogger(logger)
	observer := scene.NewObserver(g, logger)

	byPath := make(map[string]scene.Handle)
	for i := range s.Scene {
		if _, err := buildNode(g, &s.Scene[i], byPath); err != nil {
			return nil, fmt.Errorf("scene node %q: %w", s.Scene[i].Name, err)
		}
	}

	root := record.NewRoot(g, observer, capture.NewRecorder(g), logger)
	root.SetTokenGenerator(testutil.NewFixedTokenGenerator(s.PassToken))
	root.SetCaptureConfig(s.Record.SamplesPerSecond, capture.DefaultTolerance())

	// Escalations first: an independent root must restart inheritance
	// before an ancestor's not-recorded flag is tightened through it.
	for _, spec := range s.Scene {
		if spec.IndependentRoot {
			observer.Configure(byPath[nodePath(&spec)], true, false, false)
		}
	}
	for _, spec := range s.Scene {
		if spec.Parent == "" {
			root.Track(byPath[nodePath(&spec)])
		}
	}
	for _, spec := range s.Scene {
		if spec.NotRecorded || spec.NotAnimated {
			observer.Configure(byPath[nodePath(&spec)], false, spec.NotRecorded, spec.NotAnimated)
		}
	}

	orch := root.CreateNewSceneRecording()
	if orch == nil {
		return nil, fmt.Errorf("recording pass did not start")
	}

	delta := 1 / s.Record.SamplesPerSecond
	steps := int(s.Record.Seconds*s.Record.SamplesPerSecond + 0.5)
	stepper := testutil.NewFrameStepper(delta)

	mutIdx := 0
	stepper.Step(steps, func(dt float32) {
		for mutIdx < len(s.Mutations) && s.Mutations[mutIdx].AtSeconds <= orch.Elapsed() {
			spec := s.Mutations[mutIdx].Add
			if _, err := buildNode(g, &spec, byPath); err != nil {
				// Scenario authoring error; surfaces as a failed check.
				byPath[nodePath(&spec)] = scene.InvalidHandle
			}
			mutIdx++
		}
		for _, m := range s.Motions {
			h, ok := byPath[m.Node]
			if !ok || !g.Alive(h) {
				continue
			}
			n := g.Node(h)
			local := n.Local
			local.Position = local.Position.Add(mgl32.Vec3(m.Velocity).Mul(dt))
			g.SetLocal(h, local)
		}
		orch.Tick(dt)
	})

	orch.End()
	replay, ok := orch.TryGetReplay()
	if !ok {
		return nil, fmt.Errorf("replay not ready after synchronous finalize")
	}

	res := &Result{
		Scenario:     s,
		Graph:        g,
		Orchestrator: orch,
		Replay:       replay,
	}
	for i := range s.Checks {
		if msg := evalCheck(g, replay, &s.Checks[i]); msg != "" {
			res.Failures = append(res.Failures, msg)
		}
	}
	res.Passed = len(res.Failures) == 0
	return res, nil
}

func nodePath(spec *NodeSpec) string {
	if spec.Parent == "" {
		return spec.Name
	}
	return spec.Parent + "/" + spec.Name
}

func buildNode(g *scene.Graph, spec *NodeSpec, byPath map[string]scene.Handle) (scene.Handle, error) {
	parent := scene.InvalidHandle
	if spec.Parent != "" {
		p, ok := byPath[spec.Parent]
		if !ok {
			return scene.InvalidHandle, fmt.Errorf("unknown parent %q", spec.Parent)
		}
		parent = p
	}
	// Build detached and parent last: reparenting is what notifies the
	// observer, and post-registration must see the node fully assembled.
	h := g.NewNode(spec.Name, scene.InvalidHandle)
	local := scene.IdentityTransform()
	local.Position = mgl32.Vec3(spec.Position)
	if spec.Scale != nil {
		local.Scale = mgl32.Vec3(*spec.Scale)
	}
	g.SetLocal(h, local)

	if spec.Geometry != "" {
		v := &scene.Visual{Geometry: &scene.Geometry{Name: spec.Geometry}}
		if spec.Material != "" {
			v.Materials = []*scene.Material{{Name: spec.Material}}
		}
		g.AttachCapability(h, v)
	}
	if parent.Valid() {
		g.SetParent(h, parent)
	}
	byPath[nodePath(spec)] = h
	return h, nil
}

func evalCheck(g *scene.Graph, replay *record.ReplaySession, c *CheckSpec) string {
	tol := c.Tolerance
	if tol == 0 {
		tol = 0.005
	}
	replay.SetTime(c.At)
	h := g.ResolvePath(replay.Root(), c.Node)
	if !h.Valid() {
		return fmt.Sprintf("check at t=%v: node %q not found in replay", c.At, c.Node)
	}
	n := g.Node(h)
	if c.Position != nil {
		if msg := compareVec("position", n.Local.Position, *c.Position, tol, c); msg != "" {
			return msg
		}
	}
	if c.Scale != nil {
		if msg := compareVec("scale", n.Local.Scale, *c.Scale, tol, c); msg != "" {
			return msg
		}
	}
	return ""
}

func compareVec(channel string, got mgl32.Vec3, want [3]float32, tol float32, c *CheckSpec) string {
	for i := 0; i < 3; i++ {
		d := got[i] - want[i]
		if d < 0 {
			d = -d
		}
		if d > tol {
			return fmt.Sprintf("check at t=%v node %q: %s = %v, want %v (±%v)",
				c.At, c.Node, channel, got, want, tol)
		}
	}
	return ""
}

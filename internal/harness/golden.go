package harness

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/rewind/internal/record"
	"github.com/roach88/rewind/internal/scene"
)

// TraceSnapshot captures the complete finalized motion output of a
// scenario execution for golden-file comparison. Field order is fixed by
// the struct definitions, recordings appear in registration order and
// tracks in capture order, so serialization is deterministic.
type TraceSnapshot struct {
	ScenarioName string           `json:"scenario_name"`
	PassToken    string           `json:"pass_token"`
	Recordings   []RecordingTrace `json:"recordings"`
}

// RecordingTrace is one NodeRecording's finalized output.
type RecordingTrace struct {
	Node      string       `json:"node"`
	Length    float32      `json:"length"`
	Materials []string     `json:"materials,omitempty"`
	Tracks    []TrackTrace `json:"tracks"`
}

// TrackTrace is one compacted motion track.
type TrackTrace struct {
	Path  string     `json:"path"`
	Times []float32  `json:"times"`
	Keys  []KeyTrace `json:"keys"`
}

// KeyTrace is one keyframe pose. Rotation is [w, x, y, z].
type KeyTrace struct {
	Position [3]float32 `json:"position"`
	Rotation [4]float32 `json:"rotation"`
	Scale    [3]float32 `json:"scale"`
}

// Snapshot builds the trace snapshot from an executed scenario.
func Snapshot(res *Result) *TraceSnapshot {
	snap := &TraceSnapshot{
		ScenarioName: res.Scenario.Name,
		PassToken:    res.Scenario.PassToken,
	}
	for _, rec := range res.Orchestrator.Recordings() {
		snap.Recordings = append(snap.Recordings, recordingTrace(res.Graph, rec))
	}
	return snap
}

func recordingTrace(g *scene.Graph, rec *record.NodeRecording) RecordingTrace {
	rt := RecordingTrace{Length: rec.Elapsed()}
	if n := g.Node(rec.Node()); n != nil {
		rt.Node = n.Name
	}
	for _, m := range rec.Materials() {
		rt.Materials = append(rt.Materials, m.Name)
	}
	motion := rec.Motion()
	if motion == nil {
		return rt
	}
	for _, track := range motion.Tracks {
		tt := TrackTrace{Path: track.Path, Times: track.Times}
		for _, k := range track.Keys {
			tt.Keys = append(tt.Keys, KeyTrace{
				Position: k.Position,
				Rotation: [4]float32{k.Rotation.W, k.Rotation.V[0], k.Rotation.V[1], k.Rotation.V[2]},
				Scale:    k.Scale,
			})
		}
		rt.Tracks = append(rt.Tracks, tt)
	}
	return rt
}

// RunWithGolden executes a scenario, fails the test on any failed check,
// and compares the trace snapshot against testdata/{scenario.Name}.golden.
//
// Regenerate golden files with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	res, err := Run(scenario)
	if err != nil {
		t.Fatalf("scenario %q failed to run: %v", scenario.Name, err)
	}
	for _, f := range res.Failures {
		t.Errorf("scenario %q: %s", scenario.Name, f)
	}

	data, err := json.MarshalIndent(Snapshot(res), "", "  ")
	if err != nil {
		t.Fatalf("scenario %q: marshal trace: %v", scenario.Name, err)
	}
	g := goldie.New(t)
	g.Assert(t, scenario.Name, append(data, '\n'))
	return res
}

// Report renders a human-readable pass/fail summary (used by the CLI
// test command).
func Report(res *Result) string {
	if res.Passed {
		return fmt.Sprintf("PASS %s (%d recordings, length %.3fs)\n",
			res.Scenario.Name, len(res.Orchestrator.Recordings()), res.Replay.Length())
	}
	out := fmt.Sprintf("FAIL %s\n", res.Scenario.Name)
	for _, f := range res.Failures {
		out += "  " + f + "\n"
	}
	return out
}

// Package harness provides a conformance testing framework for the
// recording pipeline: YAML scenarios describe a scripted scene, a
// recording pass over it, and assertions over the replayed poses, with
// golden-file comparison of the finalized motion traces.
package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario: a scripted scene, one
// recording pass driven with a fixed frame delta, and checks evaluated
// against the replay.
type Scenario struct {
	// Name uniquely identifies this scenario; it is also the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// PassToken is the fixed pass token for deterministic container
	// names and traces. Defaults to "test-pass-default".
	PassToken string `yaml:"pass_token,omitempty"`

	// Scene lists the nodes to build, parents before children.
	Scene []NodeSpec `yaml:"scene"`

	// Motions are constant-velocity translations applied to live nodes
	// every frame before the tick.
	Motions []MotionSpec `yaml:"motions,omitempty"`

	// Record configures the recording pass.
	Record RecordSpec `yaml:"record"`

	// Mutations add nodes to the live graph mid-recording (exercising
	// late registration).
	Mutations []MutationSpec `yaml:"mutations,omitempty"`

	// Checks are pose assertions evaluated against the replay.
	Checks []CheckSpec `yaml:"checks,omitempty"`
}

// NodeSpec describes one scene node. Parent is the '/'-joined name path
// of an earlier node; empty for a top-level node.
type NodeSpec struct {
	Name     string      `yaml:"name"`
	Parent   string      `yaml:"parent,omitempty"`
	Position [3]float32  `yaml:"position,omitempty"`
	Scale    *[3]float32 `yaml:"scale,omitempty"` // nil means unit scale

	// Geometry names a mesh resource; a node with one gets a visual
	// capability. Material optionally names its surface material.
	Geometry string `yaml:"geometry,omitempty"`
	Material string `yaml:"material,omitempty"`

	NotRecorded     bool `yaml:"not_recorded,omitempty"`
	NotAnimated     bool `yaml:"not_animated,omitempty"`
	IndependentRoot bool `yaml:"independent_root,omitempty"`
}

// MotionSpec moves a live node at constant velocity (units per second).
type MotionSpec struct {
	Node     string     `yaml:"node"`
	Velocity [3]float32 `yaml:"velocity"`
}

// RecordSpec drives the pass: Seconds of recording at SamplesPerSecond
// fixed-delta frames.
type RecordSpec struct {
	Seconds          float32 `yaml:"seconds"`
	SamplesPerSecond float32 `yaml:"samples_per_second"`
}

// MutationSpec adds a node once the pass clock reaches AtSeconds.
type MutationSpec struct {
	AtSeconds float32  `yaml:"at_seconds"`
	Add       NodeSpec `yaml:"add"`
}

// CheckSpec asserts a duplicated node's local pose at a replay time.
// Node is the name path under the replay container. Tolerance defaults
// to 0.005.
type CheckSpec struct {
	At        float32     `yaml:"at"`
	Node      string      `yaml:"node"`
	Position  *[3]float32 `yaml:"position,omitempty"`
	Scale     *[3]float32 `yaml:"scale,omitempty"`
	Tolerance float32     `yaml:"tolerance,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Scene) == 0 {
		return fmt.Errorf("scene must declare at least one node")
	}
	if s.Record.Seconds <= 0 {
		return fmt.Errorf("record.seconds must be positive")
	}
	if s.Record.SamplesPerSecond <= 0 {
		return fmt.Errorf("record.samples_per_second must be positive")
	}
	if s.PassToken == "" {
		s.PassToken = "test-pass-default"
	}
	return nil
}

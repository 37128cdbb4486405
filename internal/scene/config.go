package scene

// NodeConfig is the per-node recording configuration.
//
// Flags are inherited top-down when a node is first observed. Inheritance
// only ever tightens Recorded and Animated (true → false), never loosens
// them; IndependentRoot only ever escalates (false → true) and restarts
// inheritance for the subtree below it.
//
// Mutation after a recording pass that includes the node has started is
// undefined and ignored by the pass.
type NodeConfig struct {
	Recorded        bool
	Animated        bool
	IndependentRoot bool
}

// NewNodeConfig returns the default configuration: recorded and animated,
// not an independent root.
func NewNodeConfig() *NodeConfig {
	return &NodeConfig{Recorded: true, Animated: true}
}

// Tighten applies inherited flags. Recorded/Animated can only move toward
// false; IndependentRoot is untouched (escalation is explicit, via
// Escalate).
func (c *NodeConfig) Tighten(notRecorded, notAnimated bool) {
	if notRecorded {
		c.Recorded = false
	}
	if notAnimated {
		c.Animated = false
	}
}

// Escalate marks the node as an independent root. There is no way back.
func (c *NodeConfig) Escalate() {
	c.IndependentRoot = true
}

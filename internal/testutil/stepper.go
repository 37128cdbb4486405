package testutil

// FrameStepper drives a frame loop with a fixed delta, replacing
// wall-clock frame timing in tests and the harness. A fixed delta keeps
// every recorded sample at an exact, reproducible timestamp.
type FrameStepper struct {
	delta   float32
	elapsed float32
}

// NewFrameStepper creates a stepper producing the given fixed delta per
// frame (e.g. 0.2 for 5 samples per second).
func NewFrameStepper(delta float32) *FrameStepper {
	return &FrameStepper{delta: delta}
}

// Delta returns the fixed per-frame delta in seconds.
func (s *FrameStepper) Delta() float32 { return s.delta }

// Elapsed returns the total time stepped so far.
func (s *FrameStepper) Elapsed() float32 { return s.elapsed }

// Step runs frame n times, passing the fixed delta each time.
func (s *FrameStepper) Step(n int, frame func(delta float32)) {
	for i := 0; i < n; i++ {
		frame(s.delta)
		s.elapsed += s.delta
	}
}

// Reset zeroes the elapsed counter for scenario reuse.
func (s *FrameStepper) Reset() {
	s.elapsed = 0
}

package record

import (
	"log/slog"

	"github.com/roach88/rewind/internal/scene"
)

// ReplaySession wraps a finished recording pass: a time cursor and a
// visibility toggle over all contained NodeRecordings. It owns the
// recordings from construction on.
//
// Length is the elapsed time of any one owned recording; a single pass
// ticks all of them in lock-step, so all report equal length (late
// registrations differ by at most the bracketing epsilon).
type ReplaySession struct {
	graph      *scene.Graph
	root       scene.Handle
	recordings []*NodeRecording
	cursor     float32
	visible    bool
	logger     *slog.Logger
}

func newReplaySession(g *scene.Graph, root scene.Handle, recs []*NodeRecording, logger *slog.Logger) *ReplaySession {
	return &ReplaySession{
		graph:      g,
		root:       root,
		recordings: recs,
		visible:    true,
		logger:     logger,
	}
}

// Root returns the replayed subtree's container node. Duplicated roots
// are its direct children, in registration order.
func (s *ReplaySession) Root() scene.Handle { return s.root }

// Length returns the recording length in seconds.
func (s *ReplaySession) Length() float32 {
	if len(s.recordings) == 0 {
		return 0
	}
	return s.recordings[0].Elapsed()
}

// Cursor returns the current replay time.
func (s *ReplaySession) Cursor() float32 { return s.cursor }

// Visible reports whether the replayed subtree is rendered and updated.
func (s *ReplaySession) Visible() bool { return s.visible }

// SetTime moves the cursor to t, clamped to [0, length], and applies the
// snapshot at that time to every owned recording with the same
// timestamp. While invisible, only the cursor moves; an invisible replay
// consumes no per-frame update cost.
func (s *ReplaySession) SetTime(t float32) {
	length := s.Length()
	if t < 0 {
		t = 0
	}
	if t > length {
		t = length
	}
	s.cursor = t
	if !s.visible {
		return
	}
	for _, rec := range s.recordings {
		rec.LoadSnapshot(t)
	}
}

// Advance moves the cursor by deltaSeconds with the same clamp as
// SetTime.
func (s *ReplaySession) Advance(deltaSeconds float32) {
	s.SetTime(s.cursor + deltaSeconds)
}

// SetVisible toggles rendering and per-frame update of the duplicated
// subtree. Turning visibility back on re-applies the snapshot at the
// current cursor so the pose is never stale.
func (s *ReplaySession) SetVisible(visible bool) {
	if s.visible == visible {
		return
	}
	s.visible = visible
	s.graph.SetActive(s.root, visible)
	if visible {
		s.SetTime(s.cursor)
	}
}

package dup

import (
	"log/slog"

	"github.com/roach88/rewind/internal/scene"
)

// CleanupProvider lets an installed extension module mark capability
// kinds to be disabled in place rather than destroyed during
// clone-with-cleanup. Disabled capabilities bypass the elimination loop
// entirely.
type CleanupProvider interface {
	DisableKinds() []scene.CapabilityKind
}

// pendingRemoval is one capability awaiting elimination from a cloned
// subtree.
type pendingRemoval struct {
	node scene.Handle
	cap  scene.Capability
}

// eliminate strips every disallowed capability from the duplicate
// subtree using iterative fixed-point removal.
//
// Each round attempts removal of all remaining disallowed capabilities;
// removals that fail because of cross-capability dependencies are
// retried in the next round, by which point their dependents may be
// gone. The loop terminates successfully when nothing remains, and fails
// when a round removes strictly fewer capabilities than it attempted
// while leaving the remaining count unchanged from the previous round —
// a cyclic or external dependency that retrying cannot resolve.
//
// Worst case is one round per disallowed capability (a pure dependency
// chain removed one link at a time).
func (e *Engine) eliminate(dupRoot scene.Handle) bool {
	disable := make(map[scene.CapabilityKind]bool)
	for _, p := range e.providers {
		for _, k := range p.DisableKinds() {
			disable[k] = true
		}
	}

	var pending []pendingRemoval
	e.graph.Walk(dupRoot, func(h scene.Handle, n *scene.Node) bool {
		for _, c := range n.Capabilities() {
			if e.allowed(c) {
				continue
			}
			if disable[c.Kind()] {
				if d, ok := c.(scene.Disableable); ok {
					d.SetEnabled(false)
				}
				continue
			}
			pending = append(pending, pendingRemoval{node: h, cap: c})
		}
		return true
	})

	prevRemaining := len(pending)
	for len(pending) > 0 {
		attempted := len(pending)
		var next []pendingRemoval
		for _, p := range pending {
			if !e.graph.RemoveCapability(p.node, p.cap) {
				next = append(next, p)
			}
		}
		removed := attempted - len(next)
		if removed < attempted && len(next) == prevRemaining {
			e.logger.Warn("capability elimination made no progress",
				slog.Int("remaining", len(next)))
			return false
		}
		prevRemaining = len(next)
		pending = next
	}
	return true
}

// allowed reports whether a capability survives clone-with-cleanup:
// the fixed allow-list (visual, follow), recognized extension
// capabilities, and any kind named by the recording profile.
func (e *Engine) allowed(c scene.Capability) bool {
	switch c.Kind() {
	case scene.KindVisual, scene.KindFollow:
		return true
	}
	if _, ok := c.(Extension); ok {
		return true
	}
	return e.allow[c.Kind()]
}

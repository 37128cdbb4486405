// Package dup implements the duplication engine: producing a detached,
// recordable copy of a scene subtree via clone-with-cleanup with a
// deterministic fallback to rebuild-minimal.
package dup

import (
	"github.com/roach88/rewind/internal/scene"
)

// Extension is the capability lifecycle contract for optional per-node
// behaviors that participate in duplication, recording and playback.
//
// Lifecycle points, in order:
//
//	BeforeDuplication   source-side, once, before any strategy runs
//	AfterDuplication    duplicate-side, clone-with-cleanup path only
//	CopyToDuplicate     rebuild-minimal path only; the extension builds
//	                    its own field-by-field copy for the duplicate
//	BeforeRecording     duplicate-side, once, before the first tick
//	RecordFrame         duplicate-side, every recording tick
//	BeforePlayback      duplicate-side, once, after finalize
//	PlaybackFrame       duplicate-side, every snapshot load
//
// AfterDuplication and CopyToDuplicate are mutually exclusive on a given
// pass: exactly one fires depending on which strategy produced the
// duplicate. AuxiliaryNodes reports any nodes the extension instantiated
// itself so downstream material post-processing can reach them.
type Extension interface {
	scene.Capability

	BeforeDuplication(g *scene.Graph, source scene.Handle)
	AfterDuplication(g *scene.Graph, duplicate scene.Handle)
	CopyToDuplicate(g *scene.Graph, source, duplicate scene.Handle) Extension
	BeforeRecording(g *scene.Graph, duplicate scene.Handle)
	RecordFrame(g *scene.Graph, duplicate scene.Handle, deltaSeconds float32)
	BeforePlayback(g *scene.Graph, duplicate scene.Handle)
	PlaybackFrame(g *scene.Graph, duplicate scene.Handle, timeSeconds float32)
	AuxiliaryNodes() []scene.Handle
}

// BaseExtension provides no-op implementations of every lifecycle point
// except Kind, Clone and CopyToDuplicate, which concrete extensions must
// supply. Embed it to implement only the points an extension cares about.
type BaseExtension struct{}

func (BaseExtension) BeforeDuplication(*scene.Graph, scene.Handle) {}

func (BaseExtension) AfterDuplication(*scene.Graph, scene.Handle) {}

func (BaseExtension) BeforeRecording(*scene.Graph, scene.Handle) {}

func (BaseExtension) RecordFrame(*scene.Graph, scene.Handle, float32) {}

func (BaseExtension) BeforePlayback(*scene.Graph, scene.Handle) {}

func (BaseExtension) PlaybackFrame(*scene.Graph, scene.Handle, float32) {}

func (BaseExtension) AuxiliaryNodes() []scene.Handle { return nil }

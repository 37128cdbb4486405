// Package profile compiles CUE recording profiles into capture and
// duplication configuration.
//
// A profile names the finalize tolerances, the target frame rate, and
// the capability kinds allowed to survive clone-with-cleanup:
//
//	profile: {
//		frame_rate: 30
//		tolerance: {
//			position: 0.001
//			rotation: 0.001
//			scale:    0.001
//			float:    0.001
//			keyframe_reduction: true
//			rotation_unroll:    true
//		}
//		allow: ["particle-trail"]
//	}
//
// Every field is optional; omitted fields take the defaults above.
package profile

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/rewind/internal/capture"
	"github.com/roach88/rewind/internal/scene"
)

// Profile is a compiled recording profile.
type Profile struct {
	FrameRate float32
	Tolerance capture.ToleranceConfig
	Allow     []scene.CapabilityKind
}

// Default returns the built-in profile: 30 fps, default tolerances, no
// extra allowed kinds.
func Default() *Profile {
	return &Profile{
		FrameRate: 30,
		Tolerance: capture.DefaultTolerance(),
	}
}

// CompileError is a structured profile compilation error with source
// position when available.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads and compiles a profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return Compile(v)
}

// Compile parses a CUE value into a Profile. The profile struct may sit
// at the root or under a top-level "profile" field.
func Compile(v cue.Value) (*Profile, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if nested := v.LookupPath(cue.ParsePath("profile")); nested.Exists() {
		v = nested
	}

	p := Default()

	fr, err := floatField(v, "frame_rate", float64(p.FrameRate))
	if err != nil {
		return nil, err
	}
	if fr <= 0 {
		return nil, &CompileError{
			Field:   "frame_rate",
			Message: fmt.Sprintf("must be positive, got %v", fr),
			Pos:     v.Pos(),
		}
	}
	p.FrameRate = float32(fr)

	tolVal := v.LookupPath(cue.ParsePath("tolerance"))
	if tolVal.Exists() {
		if p.Tolerance, err = compileTolerance(tolVal); err != nil {
			return nil, err
		}
	}

	allowVal := v.LookupPath(cue.ParsePath("allow"))
	if allowVal.Exists() {
		iter, err := allowVal.List()
		if err != nil {
			return nil, &CompileError{Field: "allow", Message: "must be a list of strings", Pos: allowVal.Pos()}
		}
		for iter.Next() {
			s, err := iter.Value().String()
			if err != nil {
				return nil, &CompileError{Field: "allow", Message: "must be a list of strings", Pos: iter.Value().Pos()}
			}
			p.Allow = append(p.Allow, scene.CapabilityKind(s))
		}
	}

	return p, nil
}

func compileTolerance(v cue.Value) (capture.ToleranceConfig, error) {
	tol := capture.DefaultTolerance()

	fields := []struct {
		name string
		dst  *float32
	}{
		{"position", &tol.Position},
		{"rotation", &tol.Rotation},
		{"scale", &tol.Scale},
		{"float", &tol.Float},
	}
	for _, f := range fields {
		val, err := floatField(v, f.name, float64(*f.dst))
		if err != nil {
			return tol, err
		}
		if val < 0 {
			return tol, &CompileError{
				Field:   "tolerance." + f.name,
				Message: fmt.Sprintf("must be non-negative, got %v", val),
				Pos:     v.Pos(),
			}
		}
		*f.dst = float32(val)
	}

	var err error
	if tol.KeyframeReduction, err = boolField(v, "keyframe_reduction", tol.KeyframeReduction); err != nil {
		return tol, err
	}
	if tol.RotationUnroll, err = boolField(v, "rotation_unroll", tol.RotationUnroll); err != nil {
		return tol, err
	}
	return tol, nil
}

func floatField(v cue.Value, name string, def float64) (float64, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return def, nil
	}
	f, err := fv.Float64()
	if err != nil {
		return 0, &CompileError{Field: name, Message: "must be a number", Pos: fv.Pos()}
	}
	return f, nil
}

func boolField(v cue.Value, name string, def bool) (bool, error) {
	bv := v.LookupPath(cue.ParsePath(name))
	if !bv.Exists() {
		return def, nil
	}
	b, err := bv.Bool()
	if err != nil {
		return false, &CompileError{Field: name, Message: "must be a bool", Pos: bv.Pos()}
	}
	return b, nil
}

// formatCUEError flattens a CUE error list into one error value.
func formatCUEError(err error) error {
	if list := cueerrors.Errors(err); len(list) > 0 {
		return fmt.Errorf("profile: %s", cueerrors.Details(err, nil))
	}
	return fmt.Errorf("profile: %w", err)
}

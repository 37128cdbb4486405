package profile

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/scene"
)

func compileSrc(t *testing.T, src string) (*Profile, error) {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return Compile(v)
}

func TestCompile_EmptyProfileIsDefault(t *testing.T) {
	p, err := compileSrc(t, "")
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.FrameRate, p.FrameRate)
	assert.Equal(t, def.Tolerance, p.Tolerance)
	assert.Empty(t, p.Allow)
}

func TestCompile_Overrides(t *testing.T) {
	p, err := compileSrc(t, `
profile: {
	frame_rate: 60
	tolerance: {
		position: 0.01
		keyframe_reduction: false
	}
	allow: ["particle-trail", "audio-emitter"]
}
`)
	require.NoError(t, err)

	assert.InDelta(t, 60, p.FrameRate, 1e-6)
	assert.InDelta(t, 0.01, p.Tolerance.Position, 1e-6)
	assert.InDelta(t, 0.001, p.Tolerance.Rotation, 1e-6, "unset fields keep defaults")
	assert.False(t, p.Tolerance.KeyframeReduction)
	assert.True(t, p.Tolerance.RotationUnroll)
	assert.Equal(t, []scene.CapabilityKind{"particle-trail", "audio-emitter"}, p.Allow)
}

func TestCompile_TopLevelFieldsWithoutWrapper(t *testing.T) {
	p, err := compileSrc(t, `frame_rate: 24`)
	require.NoError(t, err)
	assert.InDelta(t, 24, p.FrameRate, 1e-6)
}

func TestCompile_RejectsNonPositiveFrameRate(t *testing.T) {
	_, err := compileSrc(t, `frame_rate: 0`)
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "frame_rate", ce.Field)
}

func TestCompile_RejectsNegativeTolerance(t *testing.T) {
	_, err := compileSrc(t, `tolerance: position: -1`)
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "tolerance.position", ce.Field)
}

func TestCompile_RejectsWrongTypes(t *testing.T) {
	for name, src := range map[string]string{
		"frame rate string": `frame_rate: "fast"`,
		"allow scalar":      `allow: 3`,
		"allow non-strings": `allow: [1, 2]`,
		"reduction string":  `tolerance: keyframe_reduction: "yes"`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := compileSrc(t, src)
			var ce *CompileError
			assert.ErrorAs(t, err, &ce, "source: %s", src)
		})
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.cue")
	require.NoError(t, os.WriteFile(path, []byte(`
profile: {
	frame_rate: 12
	allow: ["ragdoll"]
}
`), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 12, p.FrameRate, 1e-6)
	assert.Equal(t, []scene.CapabilityKind{"ragdoll"}, p.Allow)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cue"))
	assert.Error(t, err)
}

func TestLoad_SyntaxError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(path, []byte(`profile: {`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile:")
}

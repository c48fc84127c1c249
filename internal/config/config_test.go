package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into dir for the test so Load does not pick up a stray .env.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg := Load()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "0", cfg.CameraDevice)
	assert.Equal(t, 0.5, cfg.ConfidenceMinimum)
	assert.Equal(t, 5.0, cfg.DepthConstant)
	assert.True(t, cfg.Smoothing)
	assert.False(t, cfg.FlipHorizontal)
	assert.Equal(t, CameraModeOverlay, cfg.CameraMode)
	assert.Equal(t, 30, cfg.TargetFPS)
	assert.Zero(t, cfg.MaxFrames)
}

func TestLoad_Environment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "9000")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.65")
	t.Setenv("FLIP_HORIZONTAL", "true")
	t.Setenv("CAMERA_MODE", "ORBIT")
	t.Setenv("TARGET_FPS", "not-a-number")

	cfg := Load()
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 0.65, cfg.ConfidenceMinimum)
	assert.True(t, cfg.FlipHorizontal)
	assert.Equal(t, CameraModeOrbit, cfg.CameraMode)
	assert.Equal(t, 30, cfg.TargetFPS, "invalid values fall back to the default")
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MAX_FRAMES=120\nSHOW_LANDMARKS=1\n"), 0644))
	chdir(t, dir)
	t.Cleanup(func() {
		os.Unsetenv("MAX_FRAMES")
		os.Unsetenv("SHOW_LANDMARKS")
	})

	cfg := Load()
	assert.Equal(t, 120, cfg.MaxFrames)
	assert.True(t, cfg.ShowLandmarks)
}

func TestDefaultOverlays_Valid(t *testing.T) {
	defs := DefaultOverlays()
	require.Len(t, defs, 2)
	for _, def := range defs {
		assert.NoError(t, def.Validate(), def.Name)
	}
	assert.Equal(t, "head", defs[0].Name)
	assert.Equal(t, 0.4, defs[0].ScaleFactor)
	assert.Equal(t, "torso", defs[1].Name)
	assert.Equal(t, 0.6, defs[1].ScaleFactor)
}

func TestParseOverlays(t *testing.T) {
	doc := []byte(`
overlays:
  - name: hand
    landmarks: [15, 13]
    from: [15]
    to: [13]
    scale_factor: 0.5
    offset: [0, 10, 0]
    mesh: pebble.stl
    material:
      color: "#aabbcc"
`)
	defs, err := ParseOverlays(doc)
	require.NoError(t, err)
	require.Len(t, defs, 1)

	hand := defs[0]
	assert.Equal(t, []int{15, 13}, hand.Anchor, "anchor defaults to landmarks")
	assert.Equal(t, [3]float64{0, 10, 0}, hand.Offset)
	assert.Equal(t, "pebble.stl", hand.Mesh)
}

func TestParseOverlays_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", `overlays: []`},
		{"not yaml", `overlays: [`},
		{"no landmarks", `overlays: [{name: a, from: [0], to: [11], scale_factor: 1}]`},
		{"zero factor", `overlays: [{name: a, landmarks: [0, 11], from: [0], to: [11], scale_factor: 0}]`},
		{"negative factor", `overlays: [{name: a, landmarks: [0, 11], from: [0], to: [11], scale_factor: -1}]`},
		{"empty to", `overlays: [{name: a, landmarks: [0, 11], from: [0], scale_factor: 1}]`},
		{"out of range", `overlays: [{name: a, landmarks: [0, 40], from: [0], to: [40], scale_factor: 1}]`},
		{"unlisted landmark", `overlays: [{name: a, landmarks: [0], from: [0], to: [11], scale_factor: 1}]`},
		{"shininess above range", `overlays: [{name: a, landmarks: [0, 11], from: [0], to: [11], scale_factor: 1, material: {shininess: 8}}]`},
		{"bad color", `overlays: [{name: a, landmarks: [0, 11], from: [0], to: [11], scale_factor: 1, material: {color: red}}]`},
		{"duplicate", `overlays: [{name: a, landmarks: [0, 11], from: [0], to: [11], scale_factor: 1}, {name: a, landmarks: [0, 11], from: [0], to: [11], scale_factor: 1}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOverlays([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadOverlays(t *testing.T) {
	defs, err := LoadOverlays("")
	require.NoError(t, err)
	assert.Equal(t, DefaultOverlays(), defs)

	_, err = LoadOverlays(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseHexColor(t *testing.T) {
	rgb, err := ParseHexColor("#8a8178")
	require.NoError(t, err)
	assert.Equal(t, [3]uint8{0x8a, 0x81, 0x78}, rgb)

	for _, bad := range []string{"", "8a8178", "#8a81", "#zzzzzz"} {
		_, err := ParseHexColor(bad)
		assert.Error(t, err, bad)
	}
}

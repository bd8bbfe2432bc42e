package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gekko3d/grassfur/furrt/rt/core"
	"github.com/gekko3d/grassfur/furrt/rt/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height)
	assert.Equal(t, core.DefaultDensity, cfg.Fur.Density)
	assert.Equal(t, float32(core.DefaultOffset), cfg.Fur.Offset)
	assert.True(t, cfg.Effects.Tracking)
	assert.False(t, cfg.Downsample.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
window:
  width: 1920
  title: "meadow"
fur:
  density: 64
  offset: 0.5
  mask_texture: "mask.png"
effects:
  explosions: false
  invert_uv: true
downsample:
  enabled: true
  factor: 4
logging:
  level: "debug"
  log_file: "fur.log"
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0644))

	cfg := Default()
	require.NoError(t, loadFromFile(cfg, path))

	assert.Equal(t, 1920, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height, "unset fields keep their defaults")
	assert.Equal(t, "meadow", cfg.Window.Title)
	assert.Equal(t, 64, cfg.Fur.Density)
	assert.Equal(t, float32(0.5), cfg.Fur.Offset)
	assert.Equal(t, "mask.png", cfg.Fur.MaskTexture)
	assert.True(t, cfg.Effects.Tracking)
	assert.False(t, cfg.Effects.Explosions)
	assert.True(t, cfg.Effects.InvertUV)
	assert.Equal(t, 4, cfg.Downsample.Factor)
	assert.Equal(t, "fur.log", cfg.Logging.LogFile)

	assert.Equal(t, []shell.Feature{shell.FeatureTracking, shell.FeatureDownsample}, cfg.Features())
	assert.True(t, cfg.Modifiers().InvertUV)
}

func TestLoadFromFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fur:\n  density: many\n  bad syntax\n"), 0644))

	assert.Error(t, loadFromFile(Default(), path))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fur:\n  density: 8\n"), 0644))

	*flagDensity = 100
	*flagDownsample = 2
	t.Cleanup(func() {
		*flagDensity = 0
		*flagDownsample = 0
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Fur.Density)
	assert.True(t, cfg.Downsample.Enabled)
	assert.Equal(t, 2, cfg.Downsample.Factor)
}

func TestValidate_Clamps(t *testing.T) {
	cfg := Default()
	cfg.Fur.Density = 500
	cfg.Fur.Offset = 0
	cfg.Fur.MotionIntensity = -4
	cfg.Effects.TrackingRadiusMultiplier = 40
	cfg.Downsample.Factor = 0

	clamped := cfg.Validate()
	assert.ElementsMatch(t, []string{
		"fur.density=128",
		"fur.offset=1e-05",
		"fur.motion_intensity=4",
		"effects.tracking_radius_multiplier=16",
		"downsample.factor=1",
	}, clamped)
	assert.Equal(t, core.MaxDensity, cfg.Fur.Density)
	assert.Empty(t, cfg.Validate())

	p := cfg.ShellParameters()
	assert.Equal(t, 128, p.Density())
	assert.Equal(t, float32(4), p.MotionIntensity())
}

func TestSaveTo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Fur.Density = 12
	require.NoError(t, cfg.SaveTo(path))

	loaded := Default()
	require.NoError(t, loadFromFile(loaded, path))
	assert.Equal(t, cfg, loaded)
}

// Package config loads the settings of the fur demo and its renderers.
package config

import (
	"fmt"

	"github.com/gekko3d/grassfur/furrt/rt/core"
	"github.com/gekko3d/grassfur/furrt/rt/shell"
)

type Config struct {
	Window     WindowConfig     `yaml:"window"`
	Fur        FurConfig        `yaml:"fur"`
	Effects    EffectsConfig    `yaml:"effects"`
	Downsample DownsampleConfig `yaml:"downsample"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type WindowConfig struct {
	Width      int        `yaml:"width"`
	Height     int        `yaml:"height"`
	Title      string     `yaml:"title"`
	ClearColor [4]float64 `yaml:"clear_color"`
}

// FurConfig holds the shell parameters and the demo surface.
type FurConfig struct {
	Density              int     `yaml:"density"`
	Offset               float32 `yaml:"offset"`
	MotionShellInfluence float32 `yaml:"motion_shell_influence"`
	MotionIntensity      float32 `yaml:"motion_intensity"`
	SkinScale            float32 `yaml:"skin_scale"`
	SkinMotionVectors    bool    `yaml:"skin_motion_vectors"`

	// GridSize is half the edge of one grid quad.
	GridHalfCount int     `yaml:"grid_half_count"`
	GridSize      float32 `yaml:"grid_size"`

	MaskTexture  string `yaml:"mask_texture"`
	ColorTexture string `yaml:"color_texture"`
	StyleTexture string `yaml:"style_texture"`
}

type EffectsConfig struct {
	Tracking                     bool    `yaml:"tracking"`
	Explosions                   bool    `yaml:"explosions"`
	InvertUV                     bool    `yaml:"invert_uv"`
	TrackingRadiusMultiplier     float32 `yaml:"tracking_radius_multiplier"`
	ExplosionIntensityMultiplier float32 `yaml:"explosion_intensity_multiplier"`
}

type DownsampleConfig struct {
	Enabled bool `yaml:"enabled"`
	Factor  int  `yaml:"factor"`
}

type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with the renderer defaults.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Width:      1280,
			Height:     720,
			Title:      "grassfur",
			ClearColor: [4]float64{0.05, 0.07, 0.1, 1},
		},
		Fur: FurConfig{
			Density:              core.DefaultDensity,
			Offset:               core.DefaultOffset,
			MotionShellInfluence: core.DefaultMotionShellInfluence,
			MotionIntensity:      core.DefaultMotionIntensity,
			SkinScale:            1,
			GridHalfCount:        16,
			GridSize:             0.5,
		},
		Effects: EffectsConfig{
			Tracking:                     true,
			Explosions:                   true,
			TrackingRadiusMultiplier:     1,
			ExplosionIntensityMultiplier: 1,
		},
		Downsample: DownsampleConfig{
			Enabled: false,
			Factor:  2,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate clamps every value into its accepted range and returns the
// fields it had to change.
func (c *Config) Validate() []string {
	var clamped []string
	note := func(field string, changed bool, v any) {
		if changed {
			clamped = append(clamped, fmt.Sprintf("%s=%v", field, v))
		}
	}

	p := core.DefaultShellParameters()
	var changed bool
	c.Fur.Density, changed = p.SetDensity(c.Fur.Density)
	note("fur.density", changed, c.Fur.Density)
	c.Fur.Offset, changed = p.SetOffset(c.Fur.Offset)
	note("fur.offset", changed, c.Fur.Offset)
	c.Fur.MotionShellInfluence, changed = p.SetMotionShellInfluence(c.Fur.MotionShellInfluence)
	note("fur.motion_shell_influence", changed, c.Fur.MotionShellInfluence)
	c.Fur.MotionIntensity, changed = p.SetMotionIntensity(c.Fur.MotionIntensity)
	note("fur.motion_intensity", changed, c.Fur.MotionIntensity)
	c.Fur.SkinScale, changed = p.SetSkinScale(c.Fur.SkinScale)
	note("fur.skin_scale", changed, c.Fur.SkinScale)

	if c.Fur.GridHalfCount < 1 {
		c.Fur.GridHalfCount = 1
		note("fur.grid_half_count", true, c.Fur.GridHalfCount)
	}
	if c.Fur.GridSize <= 0 {
		c.Fur.GridSize = 1
		note("fur.grid_size", true, c.Fur.GridSize)
	}

	m := core.NewGlobalModifierSettings()
	c.Effects.TrackingRadiusMultiplier, changed = m.SetMultiplyTrackingRadius(c.Effects.TrackingRadiusMultiplier)
	note("effects.tracking_radius_multiplier", changed, c.Effects.TrackingRadiusMultiplier)
	c.Effects.ExplosionIntensityMultiplier, changed = m.SetMultiplyExplosionIntensity(c.Effects.ExplosionIntensityMultiplier)
	note("effects.explosion_intensity_multiplier", changed, c.Effects.ExplosionIntensityMultiplier)

	if f := shell.ClampDownsampleFactor(c.Downsample.Factor); f != c.Downsample.Factor {
		c.Downsample.Factor = f
		note("downsample.factor", true, f)
	}

	if c.Window.Width < 1 {
		c.Window.Width = 1
		note("window.width", true, 1)
	}
	if c.Window.Height < 1 {
		c.Window.Height = 1
		note("window.height", true, 1)
	}
	return clamped
}

// ShellParameters returns the configured parameters, clamped.
func (c *Config) ShellParameters() core.ShellParameters {
	p := core.DefaultShellParameters()
	p.SetDensity(c.Fur.Density)
	p.SetOffset(c.Fur.Offset)
	p.SetMotionShellInfluence(c.Fur.MotionShellInfluence)
	p.SetMotionIntensity(c.Fur.MotionIntensity)
	p.SetSkinScale(c.Fur.SkinScale)
	p.SetSkinMotionVectors(c.Fur.SkinMotionVectors)
	return p
}

func (c *Config) Modifiers() *core.GlobalModifierSettings {
	m := core.NewGlobalModifierSettings()
	m.InvertUV = c.Effects.InvertUV
	m.SetMultiplyTrackingRadius(c.Effects.TrackingRadiusMultiplier)
	m.SetMultiplyExplosionIntensity(c.Effects.ExplosionIntensityMultiplier)
	return m
}

// Features lists the material features the effects section enables.
func (c *Config) Features() []shell.Feature {
	var fs []shell.Feature
	if c.Effects.Tracking {
		fs = append(fs, shell.FeatureTracking)
	}
	if c.Effects.Explosions {
		fs = append(fs, shell.FeatureExplosions)
	}
	if c.Downsample.Enabled {
		fs = append(fs, shell.FeatureDownsample)
	}
	return fs
}

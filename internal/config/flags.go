package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagWidth      = flag.Int("width", 0, "Window width")
	flagHeight     = flag.Int("height", 0, "Window height")
	flagDensity    = flag.Int("density", 0, "Shell count per triangle")
	flagOffset     = flag.Float64("offset", 0, "Shell extrusion offset")
	flagDownsample = flag.Int("downsample", 0, "Draw fur at 1/N resolution")
	flagMask       = flag.String("mask", "", "Mask texture PNG")
	flagColor      = flag.String("color", "", "Color texture PNG")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via -config.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
	if *flagDensity > 0 {
		cfg.Fur.Density = *flagDensity
	}
	if *flagOffset > 0 {
		cfg.Fur.Offset = float32(*flagOffset)
	}
	if *flagDownsample > 0 {
		cfg.Downsample.Enabled = *flagDownsample > 1
		cfg.Downsample.Factor = *flagDownsample
	}
	if *flagMask != "" {
		cfg.Fur.MaskTexture = *flagMask
	}
	if *flagColor != "" {
		cfg.Fur.ColorTexture = *flagColor
	}
}

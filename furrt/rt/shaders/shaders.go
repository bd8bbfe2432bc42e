package shaders

import (
	_ "embed"
)

//go:embed shell_builder.wgsl
var ShellBuilderWGSL string

//go:embed shell_draw.wgsl
var ShellDrawWGSL string

//go:embed mask_blit.wgsl
var MaskBlitWGSL string

//go:embed downsample_blit.wgsl
var DownsampleBlitWGSL string

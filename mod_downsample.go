package grassfur

import (
	"github.com/gekko3d/grassfur/furrt/rt/gpu"
	"github.com/gekko3d/grassfur/furrt/rt/shell"
)

// DownsampleModule installs the reduced resolution compositor. Fur
// instances spawned afterwards with UseDownsample, or whose material
// enables shell.FeatureDownsample, draw through it.
type DownsampleModule struct {
	Factor  int
	Quality shell.DownsampleQuality
}

func (m DownsampleModule) Install(app *App, cmd *Commands) {
	backend, ok := findResource[*gpu.Backend](app)
	if !ok {
		app.Logger().Warnf("downsample compositor disabled: no GPU backend")
		return
	}
	factor := m.Factor
	if factor == 0 {
		factor = m.Quality.Factor()
	}
	ds, err := gpu.NewDownsampler(backend, factor)
	if err != nil {
		app.Logger().Errorf("downsample compositor disabled: %v", err)
		return
	}
	app.Logger().Infof("downsample compositor at 1/%d resolution", ds.Factor())
	cmd.AddResources(ds)
	if app.hasState(Exiting) {
		cmd.UseSystem(System(func(ds *gpu.Downsampler) { ds.Release() }).InState(OnEnter(Exiting)).InStage(Render))
	}
}

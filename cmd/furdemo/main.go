package main

import (
	"image"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/grassfur"
	"github.com/gekko3d/grassfur/furrt/rt/core"
	"github.com/gekko3d/grassfur/furrt/rt/gpu"
	"github.com/gekko3d/grassfur/furrt/rt/shell"
	"github.com/gekko3d/grassfur/internal/config"
	"github.com/gekko3d/grassfur/internal/textures"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

func main() {
	config.ParseFlags()
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}
	clamped := cfg.Validate()

	modules := []grassfur.Module{
		grassfur.LoggingModule{Prefix: "furdemo", Level: cfg.Logging.Level, File: cfg.Logging.LogFile},
		grassfur.TimeModule{},
		grassfur.NewPlatformWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title),
		grassfur.InputModule{},
		grassfur.GpuModule{ClearColor: wgpu.Color{
			R: cfg.Window.ClearColor[0],
			G: cfg.Window.ClearColor[1],
			B: cfg.Window.ClearColor[2],
			A: cfg.Window.ClearColor[3],
		}},
		grassfur.FlyingCameraModule{},
	}
	if cfg.Downsample.Enabled {
		modules = append(modules, grassfur.DownsampleModule{Factor: cfg.Downsample.Factor})
	}
	modules = append(modules,
		grassfur.FurModule{Modifiers: cfg.Modifiers()},
		demoModule{cfg: cfg, clamped: clamped},
	)

	grassfur.NewAppBuilder().
		UseStates(grassfur.EditMode, grassfur.Exiting).
		UseModule(modules...).
		Build().
		Run()
}

// demoScene is the single fur meadow of the demo.
type demoScene struct {
	cfg     *config.Config
	clamped []string
	spawned bool
	id      uuid.UUID
	angle   float64
}

type demoModule struct {
	cfg     *config.Config
	clamped []string
}

func (m demoModule) Install(app *grassfur.App, cmd *grassfur.Commands) {
	cmd.AddResources(&demoScene{cfg: m.cfg, clamped: m.clamped})
	cmd.UseSystem(grassfur.System(spawnSystem).InStage(grassfur.PreUpdate).RunAlways())
	cmd.UseSystem(grassfur.System(controlSystem).InStage(grassfur.Update).RunAlways())
	cmd.UseSystem(grassfur.System(trackingSystem).InStage(grassfur.PostUpdate).RunAlways())
}

func spawnSystem(scene *demoScene, backend *gpu.Backend, cmd *grassfur.Commands) {
	if scene.spawned {
		return
	}
	scene.spawned = true
	log := cmd.Logger()
	for _, c := range scene.clamped {
		log.Warnf("config value clamped: %s", c)
	}

	cfg := scene.cfg
	upload := func(label, path string, fallback *image.RGBA) shell.Texture {
		img := fallback
		if path != "" {
			loaded, err := textures.Load(path)
			if err != nil {
				log.Warnf("%s texture %s: %v", label, path, err)
			} else {
				img = loaded
			}
		}
		if img == nil {
			return nil
		}
		tex, err := backend.UploadTexture(label, img)
		if err != nil {
			log.Errorf("upload %s texture: %v", label, err)
			return nil
		}
		return tex
	}

	params := cfg.ShellParameters()
	scene.id = cmd.SpawnFur(grassfur.FurSpec{
		Name:          "meadow",
		Material:      shell.NewMaterial("grass", cfg.Features()...),
		Mesh:          core.NewGridMesh(cfg.Fur.GridHalfCount, cfg.Fur.GridSize),
		Params:        &params,
		MaskTexture:   upload("mask", cfg.Fur.MaskTexture, textures.Patches(textures.MaskSize, 24)),
		ColorTexture:  upload("color", cfg.Fur.ColorTexture, nil),
		StyleTexture:  upload("style", cfg.Fur.StyleTexture, nil),
		UseDownsample: cfg.Downsample.Enabled,
	})
	log.Infof("meadow %s: %d shells, P toggles play mode, click to explode, Tab to look around", scene.id, params.Density())
}

func controlSystem(scene *demoScene, input *grassfur.Input, mode *grassfur.Mode, world *grassfur.FurWorld, cam *grassfur.Camera, cmd *grassfur.Commands) {
	if input.JustPressed[grassfur.KeyEscape] {
		cmd.ChangeState(grassfur.Exiting)
		return
	}
	if input.JustPressed[grassfur.KeyP] {
		if mode.Playing {
			cmd.ChangeState(grassfur.EditMode)
		} else {
			cmd.ChangeState(grassfur.PlayMode)
		}
	}
	if input.JustPressed[grassfur.KeyT] {
		cmd.Logger().SetDebug(!cmd.Logger().DebugEnabled())
	}

	inst, ok := world.Get(scene.id)
	if !ok {
		return
	}
	if input.JustPressed[grassfur.KeyUp] || input.JustPressed[grassfur.KeyDown] {
		d := inst.Renderer.Params().Density()
		if input.JustPressed[grassfur.KeyUp] {
			d *= 2
		} else {
			d /= 2
		}
		if applied, clamped := inst.Renderer.SetDensity(d); clamped {
			cmd.Logger().Infof("density clamped to %d", applied)
		}
	}

	if mode.Playing && input.JustPressed[grassfur.MouseButtonLeft] {
		origin, dir := cam.Ray(input.MouseX, input.MouseY, input.WindowWidth, input.WindowHeight)
		if hit, ok := groundHit(origin, dir); ok {
			if !world.RequestExplosion(scene.id, hit, shell.DefaultExplosionOptions()) {
				cmd.Logger().Debugf("explosion at %v dropped", hit)
			}
		}
	}
}

// trackingSystem drags a mark in a circle over the meadow while playing.
func trackingSystem(scene *demoScene, mode *grassfur.Mode, world *grassfur.FurWorld, t *grassfur.Time) {
	if !mode.Playing {
		return
	}
	scene.angle += t.Dt.Seconds() * 0.8
	r := float64(scene.cfg.Fur.GridSize) * float64(scene.cfg.Fur.GridHalfCount) * 0.5
	p := mgl32.Vec3{float32(r * math.Cos(scene.angle)), 0, float32(r * math.Sin(scene.angle))}
	world.RequestTrackingMark(scene.id, p, 0.6, 0.3, 0.2, 0.1)
}

// groundHit intersects a ray with the y=0 plane.
func groundHit(origin, dir mgl32.Vec3) (mgl32.Vec3, bool) {
	if math.Abs(float64(dir.Y())) < 1e-6 {
		return mgl32.Vec3{}, false
	}
	s := -origin.Y() / dir.Y()
	if s < 0 {
		return mgl32.Vec3{}, false
	}
	return origin.Add(dir.Mul(s)), true
}

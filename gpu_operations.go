package grassfur

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/gekko3d/grassfur/furrt/rt/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

type GpuState struct {
	surface       *wgpu.Surface
	adapter       *wgpu.Adapter
	device        *wgpu.Device
	queue         *wgpu.Queue
	surfaceConfig *wgpu.SurfaceConfiguration

	Backend *gpu.Backend

	frameTexture *wgpu.Texture
	frameView    *wgpu.TextureView
}

func (g *GpuState) Format() wgpu.TextureFormat { return g.surfaceConfig.Format }

func createGpuState(s *WindowState) (*GpuState, error) {
	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(s.windowGlfw))
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "grassfur device",
	})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	queue := device.GetQueue()

	width, height := s.FramebufferSize()
	caps := surface.GetCapabilities(adapter)
	surfaceConfig := wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo, // vsync
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, &surfaceConfig)

	return &GpuState{
		surface:       surface,
		adapter:       adapter,
		device:        device,
		queue:         queue,
		surfaceConfig: &surfaceConfig,
	}, nil
}

func (g *GpuState) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if g.surfaceConfig.Width == uint32(width) && g.surfaceConfig.Height == uint32(height) {
		return
	}
	g.surfaceConfig.Width = uint32(width)
	g.surfaceConfig.Height = uint32(height)
	g.surface.Configure(g.adapter, g.device, g.surfaceConfig)
}

func (g *GpuState) release() {
	if g.Backend != nil {
		g.Backend.Release()
	}
	g.queue.Release()
	g.device.Release()
	g.adapter.Release()
	g.surface.Release()
}

// Camera is the view used by the shell draw pass.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3
	FovY     float32
	Near     float32
	Far      float32
}

func NewCamera() *Camera {
	return &Camera{
		Position: mgl32.Vec3{0, 12, 24},
		Up:       mgl32.Vec3{0, 1, 0},
		FovY:     45,
		Near:     0.1,
		Far:      500,
	}
}

func (c *Camera) ViewProj(aspect float32) mgl32.Mat4 {
	proj := mgl32.Perspective(mgl32.DegToRad(c.FovY), aspect, c.Near, c.Far)
	view := mgl32.LookAtV(c.Position, c.Target, c.Up)
	return proj.Mul4(view)
}

// Ray returns the world space ray under a cursor position in pixels.
func (c *Camera) Ray(x, y float64, width, height int) (origin, dir mgl32.Vec3) {
	inv := c.ViewProj(float32(width) / float32(max(height, 1))).Inv()
	nx := float32(2*x/float64(width) - 1)
	ny := float32(1 - 2*y/float64(height))
	near := mgl32.TransformCoordinate(mgl32.Vec3{nx, ny, 0}, inv)
	far := mgl32.TransformCoordinate(mgl32.Vec3{nx, ny, 1}, inv)
	return near, far.Sub(near).Normalize()
}

// GpuModule opens the wgpu device on the shared window and installs the
// shell backend. Frames are opened in PreRender and submitted in Render.
type GpuModule struct {
	ClearColor wgpu.Color
}

func (m GpuModule) Install(app *App, cmd *Commands) {
	ensureSingleBackend(app, "wgpu")
	ws, ok := findResource[*WindowState](app)
	if !ok {
		panic("GpuModule requires PlatformWindowModule")
	}
	gs, err := createGpuState(ws)
	if err != nil {
		panic(err)
	}
	gs.Backend, err = gpu.NewBackend(gs.device, gs.queue, app.Logger())
	if err != nil {
		panic(err)
	}

	clearColor := m.ClearColor
	if clearColor == (wgpu.Color{}) {
		clearColor = wgpu.Color{R: 0.45, G: 0.6, B: 0.8, A: 1}
	}
	cmd.AddResources(gs, gs.Backend, NewCamera())
	cmd.UseSystem(System(func(ws *WindowState, gs *GpuState, cam *Camera, t *Time) {
		renderBeginSystem(app, ws, gs, cam, t, clearColor)
	}).InStage(PreRender).RunAlways())
	cmd.UseSystem(System(func(gs *GpuState) {
		renderEndSystem(app, gs)
	}).InStage(Render).RunAlways())
	if app.hasState(Exiting) {
		cmd.UseSystem(System(gpuReleaseSystem).InState(OnExit(Exiting)).InStage(Render))
	}
}

func renderBeginSystem(app *App, ws *WindowState, gs *GpuState, cam *Camera, t *Time, clearColor wgpu.Color) {
	w, h := ws.FramebufferSize()
	if w <= 0 || h <= 0 {
		return
	}
	gs.resize(w, h)

	tex, err := gs.surface.GetCurrentTexture()
	if err != nil {
		app.Logger().Warnf("acquire surface texture: %v", err)
		return
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		app.Logger().Warnf("surface view: %v", err)
		tex.Release()
		return
	}
	err = gs.Backend.BeginFrame(gpu.FrameTarget{
		View:     view,
		Format:   gs.Format(),
		Width:    w,
		Height:   h,
		ViewProj: cam.ViewProj(float32(w) / float32(h)),
		Time:     float32(t.Elapsed.Seconds()),
		Clear:    clearColor,
	})
	if err != nil {
		app.Logger().Errorf("begin frame: %v", err)
		view.Release()
		tex.Release()
		return
	}
	gs.frameTexture, gs.frameView = tex, view
}

func renderEndSystem(app *App, gs *GpuState) {
	if gs.frameView == nil {
		return
	}
	if err := gs.Backend.EndFrame(); err != nil {
		app.Logger().Errorf("end frame: %v", err)
	} else {
		gs.surface.Present()
	}
	gs.frameView.Release()
	gs.frameTexture.Release()
	gs.frameView, gs.frameTexture = nil, nil
}

func gpuReleaseSystem(gs *GpuState) {
	gs.release()
}

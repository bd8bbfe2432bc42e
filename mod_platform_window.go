package grassfur

import (
	"reflect"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
)

type WindowState struct {
	windowGlfw   *glfw.Window
	WindowWidth  int
	WindowHeight int
	windowTitle  string
}

func (s *WindowState) ShouldClose() bool { return s.windowGlfw.ShouldClose() }

// FramebufferSize is the drawable size in pixels.
func (s *WindowState) FramebufferSize() (int, int) { return s.windowGlfw.GetFramebufferSize() }

func createWindowState(windowWidth int, windowHeight int, windowTitle string) (*WindowState, error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, err
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // no OpenGL context, wgpu owns the surface
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(windowWidth, windowHeight, windowTitle, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, err
	}

	return &WindowState{
		windowGlfw:   win,
		WindowWidth:  windowWidth,
		WindowHeight: windowHeight,
		windowTitle:  windowTitle,
	}, nil
}

func (s *WindowState) destroy() {
	s.windowGlfw.Destroy()
	glfw.Terminate()
}

// PlatformWindowModule ensures a single shared GLFW window (WindowState) is created
// and made available as a resource. Closing the window moves the app to
// Exiting.
type PlatformWindowModule struct {
	Width  int
	Height int
	Title  string
}

func NewPlatformWindow(width, height int, title string) *PlatformWindowModule {
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}
	if title == "" {
		title = "grassfur"
	}
	return &PlatformWindowModule{Width: width, Height: height, Title: title}
}

func (m PlatformWindowModule) Install(app *App, cmd *Commands) {
	t := reflect.TypeOf((*WindowState)(nil)).Elem()
	if _, ok := app.resources[t]; ok {
		return
	}

	ws, err := createWindowState(m.Width, m.Height, m.Title)
	if err != nil {
		panic(err)
	}
	cmd.AddResources(ws)

	cmd.UseSystem(System(windowCloseSystem).InStage(Finale).RunAlways())
	if app.hasState(Exiting) {
		cmd.UseSystem(System(windowDestroySystem).InState(OnExit(Exiting)).InStage(Finale))
	}
}

func windowCloseSystem(ws *WindowState, cmd *Commands) {
	if ws.ShouldClose() && cmd.app.hasState(Exiting) {
		cmd.ChangeState(Exiting)
	}
}

func windowDestroySystem(ws *WindowState) {
	ws.destroy()
}

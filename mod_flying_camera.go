package grassfur

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// FlyingCameraModule drives the Camera resource: WASD moves, Space and
// Control rise and sink, Tab captures the mouse for looking around.
type FlyingCameraModule struct {
	Speed       float32
	Sensitivity float32
}

// FlyingCamera is the controller state. Yaw and Pitch are in degrees.
type FlyingCamera struct {
	Speed       float32
	Sensitivity float32
	Yaw         float32
	Pitch       float32
	Move        mgl32.Vec3
	Look        mgl32.Vec2
}

func (m FlyingCameraModule) Install(app *App, cmd *Commands) {
	fly := &FlyingCamera{Speed: m.Speed, Sensitivity: m.Sensitivity}
	if cam, ok := findResource[*Camera](app); ok {
		fly.aimAt(cam)
	}
	cmd.AddResources(fly)
	cmd.UseSystem(System(FlyingCameraInputSystem).InStage(Update).RunAlways())
	cmd.UseSystem(System(FlyingCameraControlSystem).InStage(Update).RunAlways())
}

// aimAt derives yaw and pitch from the camera's current target.
func (fly *FlyingCamera) aimAt(cam *Camera) {
	d := cam.Target.Sub(cam.Position)
	if d.Len() == 0 {
		return
	}
	d = d.Normalize()
	fly.Pitch = mgl32.RadToDeg(float32(math.Asin(float64(d.Y()))))
	fly.Yaw = mgl32.RadToDeg(float32(math.Atan2(float64(d.X()), float64(-d.Z()))))
}

func FlyingCameraInputSystem(input *Input, fly *FlyingCamera) {
	if input.JustPressed[KeyTab] {
		input.MouseCaptured = !input.MouseCaptured
	}

	fly.Move = mgl32.Vec3{0, 0, 0}
	if input.Pressed[KeyW] {
		fly.Move[2] += 1
	}
	if input.Pressed[KeyS] {
		fly.Move[2] -= 1
	}
	if input.Pressed[KeyA] {
		fly.Move[0] -= 1
	}
	if input.Pressed[KeyD] {
		fly.Move[0] += 1
	}
	if input.Pressed[KeySpace] {
		fly.Move[1] += 1
	}
	if input.Pressed[KeyControl] {
		fly.Move[1] -= 1
	}

	if input.MouseCaptured {
		fly.Look[0] = float32(input.MouseDeltaX)
		fly.Look[1] = float32(input.MouseDeltaY)
	} else {
		fly.Look = mgl32.Vec2{}
	}
}

func FlyingCameraControlSystem(cam *Camera, fly *FlyingCamera, t *Time) {
	dt := float32(t.Dt.Seconds())
	if dt <= 0 {
		return
	}

	if fly.Sensitivity == 0 {
		fly.Sensitivity = 0.1
	}
	fly.Yaw += fly.Look[0] * fly.Sensitivity
	fly.Pitch -= fly.Look[1] * fly.Sensitivity
	fly.Pitch = mgl32.Clamp(fly.Pitch, -89, 89)

	yawRad := float64(mgl32.DegToRad(fly.Yaw))
	pitchRad := float64(mgl32.DegToRad(fly.Pitch))
	forward := mgl32.Vec3{
		float32(math.Sin(yawRad) * math.Cos(pitchRad)),
		float32(math.Sin(pitchRad)),
		float32(-math.Cos(yawRad) * math.Cos(pitchRad)),
	}.Normalize()
	up := mgl32.Vec3{0, 1, 0}
	right := forward.Cross(up).Normalize()

	if fly.Speed == 0 {
		fly.Speed = 5.0
	}
	moveDir := right.Mul(fly.Move[0]).Add(up.Mul(fly.Move[1])).Add(forward.Mul(fly.Move[2]))
	if moveDir.Len() > 0 {
		cam.Position = cam.Position.Add(moveDir.Normalize().Mul(fly.Speed * dt))
	}

	cam.Target = cam.Position.Add(forward)
	cam.Up = up
}

package grassfur

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockResource1 struct {
	name string
}
type MockResource2 struct {
	name string
}

func NewMockResource1(name string) *MockResource1 {
	return &MockResource1{name: name}
}
func NewMockResource2(name string) *MockResource2 {
	return &MockResource2{name: name}
}

func TestApp_changeState(t *testing.T) {
	app := NewAppBuilder().UseStates(EditMode, Exiting).Build()
	app.start()

	app.changeState(PlayMode)
	assert.Equal(t, PlayMode, app.nextState)
	assert.True(t, app.stateTransitioning)

	app.executeChangeState(PlayMode)
	assert.Equal(t, PlayMode, app.State())
}

func TestApp_addResources(t *testing.T) {
	app := &App{
		resources: make(map[reflect.Type]any),
	}

	resource1 := NewMockResource1("Resource1")
	app.addResources(resource1)
	assert.Contains(t, app.resources, reflect.TypeOf(resource1).Elem())

	require.PanicsWithValue(t, fmt.Sprintf("%s is already in resources", reflect.TypeOf(resource1)), func() {
		app.addResources(resource1)
	})

	resource2 := NewMockResource2("Resource2")
	app.addResources(resource2)
	assert.Contains(t, app.resources, reflect.TypeOf(resource2).Elem())
}

func TestApp_findResourceByInterface(t *testing.T) {
	be := &recBackend{}
	app := NewAppBuilder().UseModule(backendModule{backend: be}).Build()

	got, ok := findResource[interface{ KernelAvailable() bool }](app)
	require.True(t, ok)
	assert.Same(t, be, got)

	_, ok = findResource[*MockResource1](app)
	assert.False(t, ok)
}

func TestApp_SystemOrder(t *testing.T) {
	var calls []string
	app := NewAppBuilder().Build()
	app.UseSystem(System(func() { calls = append(calls, "render") }).InStage(Render))
	app.UseSystem(System(func() { calls = append(calls, "prelude") }).InStage(Prelude))
	app.UseSystem(System(func() { calls = append(calls, "late") }).InStage(LateUpdate))

	assert.True(t, app.RunFrames(2))
	assert.Equal(t, []string{"prelude", "late", "render", "prelude", "late", "render"}, calls)
}

func TestApp_ResolvesPointerDependencies(t *testing.T) {
	res := NewMockResource1("r")
	var seen *MockResource1
	var cmd *Commands
	app := NewAppBuilder().Build()
	app.addResources(res)
	app.UseSystem(System(func(r *MockResource1, c *Commands) {
		seen = r
		cmd = c
	}).InStage(Update))

	app.RunFrames(1)
	assert.Same(t, res, seen)
	require.NotNil(t, cmd)
}

func TestApp_MissingDependencyPanics(t *testing.T) {
	app := NewAppBuilder().Build()
	app.UseSystem(System(func(r *MockResource2) {}).InStage(Update))
	assert.Panics(t, func() { app.RunFrames(1) })
}

func TestApp_StateLifecycle(t *testing.T) {
	var events []string
	record := func(s string) func() {
		return func() { events = append(events, s) }
	}
	app := NewAppBuilder().UseStates(EditMode, Exiting).Build()
	app.UseSystem(System(record("enter edit")).InState(OnEnter(EditMode)).InStage(Prelude))
	app.UseSystem(System(record("exit edit")).InState(OnExit(EditMode)).InStage(Prelude))
	app.UseSystem(System(record("enter exiting")).InState(OnEnter(Exiting)).InStage(Finale))
	app.UseSystem(System(record("exit exiting")).InState(OnExit(Exiting)).InStage(Finale))
	app.UseSystem(System(func(c *Commands) { c.ChangeState(Exiting) }).InState(OnExecute(EditMode)).InStage(Update))

	assert.False(t, app.RunFrames(5))
	assert.Equal(t, []string{"enter edit", "exit edit", "enter exiting", "exit exiting"}, events)
	assert.Equal(t, Exiting, app.State())
}

func TestApp_StatefulSystemInStatelessAppPanics(t *testing.T) {
	app := NewAppBuilder().Build()
	assert.Panics(t, func() {
		app.UseSystem(System(func() {}).InState(OnEnter(PlayMode)).InStage(Update))
	})
}

func TestEnsureSingleBackend(t *testing.T) {
	app := NewAppBuilder().UseModule(backendModule{backend: &recBackend{}}).Build()
	assert.NotPanics(t, func() { ensureSingleBackend(app, "recording") })
	assert.PanicsWithValue(t, "multiple GPU backends installed: recording and wgpu", func() {
		ensureSingleBackend(app, "wgpu")
	})
}

package grassfur

import (
	"fmt"
	"reflect"
	"runtime"

	"github.com/google/uuid"
)

type systemFn any

type Module interface {
	Install(app *App, cmd *Commands)
}

type App struct {
	stateful           bool
	stateTransitioning bool
	started            bool
	initialState       State
	finalState         State
	nextState          State
	state              State
	stages             []Stage
	systems            map[string]map[State]map[statePhase][]systemFn
	systemsStateless   map[string][]systemFn
	resources          map[reflect.Type]any

	// Command buffering
	pendingSpawns   []pendingSpawn
	pendingDespawns []uuid.UUID
}

type pendingSpawn struct {
	id   uuid.UUID
	spec FurSpec
}

func (app *App) Commands() *Commands {
	return &Commands{app: app}
}

func (app *App) State() State { return app.state }

// Run executes frames until the app enters its final state. A stateless
// app runs until the process exits.
func (app *App) Run() {
	app.start()
	for app.step() {
	}
}

// RunFrames executes at most n frames and reports whether the app is still
// running.
func (app *App) RunFrames(n int) bool {
	app.start()
	for i := 0; i < n; i++ {
		if !app.step() {
			return false
		}
	}
	return true
}

func (app *App) start() {
	if app.started {
		return
	}
	app.started = true
	if app.stateful {
		app.Logger().Infof("running in stateful mode, initial state %v", app.initialState)
		app.state = app.initialState
		app.callSystems(app.state, enter)
	}
}

func (app *App) step() bool {
	if app.stateful && app.state == app.finalState {
		return false
	}
	app.callSystems(app.state, execute)

	if app.stateful {
		if app.stateTransitioning {
			app.stateTransitioning = false
			app.executeChangeState(app.nextState)
		}
		if app.state == app.finalState {
			app.callSystems(app.state, exit)
			return false
		}
	}
	return true
}

func (app *App) callSystems(state State, phase statePhase) {
	for _, stage := range app.stages {
		// On execute, stateless systems run before stateful ones
		if execute == phase {
			for _, system := range app.systemsStateless[stage.Name] {
				app.callSystem(system)
			}
		}

		if app.stateful {
			for _, system := range app.systems[stage.Name][state][phase] {
				app.callSystem(system)
			}
		}
		app.FlushCommands()
	}
}

func (app *App) changeState(newState State) {
	app.nextState = newState
	app.stateTransitioning = true
}

func (app *App) executeChangeState(newState State) {
	app.Logger().Debugf("state %v -> %v", app.state, newState)
	app.callSystems(app.state, exit)
	app.state = newState
	app.callSystems(app.state, enter)
}

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}

		app.resources[resourceType.Elem()] = resource
	}
	return app
}

// findResource returns the first resource assignable to T.
func findResource[T any](app *App) (T, bool) {
	var zero T
	if app == nil {
		return zero, false
	}
	for _, r := range app.resources {
		if v, ok := r.(T); ok {
			return v, true
		}
	}
	return zero, false
}

var typeOfCommands = reflect.TypeOf(Commands{})

func (app *App) callSystem(system systemFn) {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())

	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		if argType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("System %s: parameter %d must be a pointer, got %s",
				runtime.FuncForPC(systemValue.Pointer()).Name(), i, argType))
		}
		underlyingType := argType.Elem()

		if underlyingType == typeOfCommands {
			args[i] = reflect.ValueOf(&Commands{app: app})
		} else if resource, argIsResource := app.resources[underlyingType]; argIsResource {
			args[i] = reflect.ValueOf(resource)
		} else {
			msg := fmt.Sprintf("Unable to resolve System dependency.\nSystem: %s\nSystem type: %s\nDependency: %s",
				runtime.FuncForPC(systemValue.Pointer()).Name(),
				fmt.Sprint(systemType),
				fmt.Sprint(argType),
			)
			panic(msg)
		}
	}
	systemValue.Call(args)
}

// FlushCommands applies deferred despawns, then spawns.
func (app *App) FlushCommands() {
	if len(app.pendingSpawns) == 0 && len(app.pendingDespawns) == 0 {
		return
	}
	world, ok := findResource[*FurWorld](app)
	if !ok {
		app.Logger().Errorf("dropping %d fur commands: FurModule is not installed",
			len(app.pendingSpawns)+len(app.pendingDespawns))
		app.pendingSpawns = app.pendingSpawns[:0]
		app.pendingDespawns = app.pendingDespawns[:0]
		return
	}

	for _, id := range app.pendingDespawns {
		world.despawn(id)
	}
	app.pendingDespawns = app.pendingDespawns[:0]

	for _, s := range app.pendingSpawns {
		world.spawn(s.id, s.spec)
	}
	app.pendingSpawns = app.pendingSpawns[:0]
}

package grassfur

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type MockModule struct {
	installed int
}

func (m *MockModule) Install(app *App, commands *Commands) {
	m.installed++
}

func TestAppBuilder_Stateless(t *testing.T) {
	app := NewAppBuilder().Build()

	assert.False(t, app.stateful)
	assert.Equal(t, State(0), app.initialState)
	assert.Equal(t, State(0), app.finalState)
	assert.Len(t, app.stages, len(DefaultStages()))
}

func TestAppBuilder_UseStates(t *testing.T) {
	app := NewAppBuilder().UseStates(EditMode, Exiting).Build()

	assert.True(t, app.stateful)
	assert.Equal(t, EditMode, app.initialState)
	assert.Equal(t, Exiting, app.finalState)
	assert.True(t, app.hasState(PlayMode))
	assert.False(t, app.hasState(State(7)))
}

func TestAppBuilder_Build_WithModules(t *testing.T) {
	module1 := &MockModule{}
	module2 := &MockModule{}
	builder := NewAppBuilder().UseModule(module1, module2)
	assert.Len(t, builder.modules, 2)

	builder.Build()
	assert.Equal(t, 1, module1.installed)
	assert.Equal(t, 1, module2.installed)
}

func TestAppBuilder_UseStage(t *testing.T) {
	custom := Stage{Name: "Custom"}
	app := NewAppBuilder().Build()
	app.UseStage(custom, AfterStage(Update))

	idx := func(s Stage) int {
		for i, st := range app.stages {
			if st.Name == s.Name {
				return i
			}
		}
		return -1
	}
	assert.Equal(t, idx(Update)+1, idx(custom))
}

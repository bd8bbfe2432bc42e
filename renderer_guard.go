package grassfur

import (
	"fmt"
	"reflect"
)

// BackendTag names the GPU backend installed into the App. Fur instances
// resolve a single shell.Backend, so only one may be installed.
type BackendTag struct {
	Name string
}

// ensureSingleBackend panics when a different backend is already installed.
func ensureSingleBackend(app *App, name string) {
	if app == nil {
		panic("ensureSingleBackend: app is nil")
	}
	t := reflect.TypeOf((*BackendTag)(nil)).Elem()
	if res, ok := app.resources[t]; ok {
		if tag, ok2 := res.(*BackendTag); ok2 {
			if tag.Name != name {
				app.Logger().Errorf("multiple GPU backends installed: %s and %s", tag.Name, name)
				panic(fmt.Sprintf("multiple GPU backends installed: %s and %s", tag.Name, name))
			}
			return
		}
		panic("BackendTag resource present with unexpected type")
	}
	app.addResources(&BackendTag{Name: name})
}

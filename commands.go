package grassfur

import "github.com/google/uuid"

type Commands struct {
	app *App
}

func (cmd *Commands) ChangeState(newState State) *Commands {
	cmd.app.changeState(newState)
	return cmd
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

func (cmd *Commands) UseSystem(system systemScheduleBuilder) *Commands {
	cmd.app.UseSystem(system)
	return cmd
}

// SpawnFur queues a fur instance. It is activated when the current stage
// finishes; the returned id is valid immediately.
func (cmd *Commands) SpawnFur(spec FurSpec) uuid.UUID {
	id := uuid.New()
	cmd.app.pendingSpawns = append(cmd.app.pendingSpawns, pendingSpawn{id: id, spec: spec})
	return id
}

// DespawnFur queues the deactivation of a fur instance, which disposes its
// renderer.
func (cmd *Commands) DespawnFur(id uuid.UUID) {
	cmd.app.pendingDespawns = append(cmd.app.pendingDespawns, id)
}

func (cmd *Commands) Logger() Logger { return cmd.app.Logger() }

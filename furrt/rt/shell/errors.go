package shell

import (
	"errors"

	"github.com/gekko3d/grassfur/furrt/rt/core"
)

var (
	ErrNotInitialized  = errors.New("shell renderer not initialized")
	ErrMissingResource = errors.New("missing resource")
	ErrMeshNotReadable = errors.New("mesh is not readable")
	ErrNoMesh          = errors.New("no source mesh")
	ErrInvalidMesh     = core.ErrInvalidMesh
)

package scene

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/df07/go-spheretracer/pkg/renderer"
)

type builtinScene struct {
	displayName string
	description string
	build       func(cameraOverrides ...renderer.CameraConfig) *Scene
}

var builtins = map[string]builtinScene{
	"default": {
		displayName: "Default Scene",
		description: "Diffuse, hollow glass and gold spheres over a yellow ground",
		build:       NewDefaultScene,
	},
	"simple": {
		displayName: "Simple Sphere",
		description: "Single diffuse sphere on a gray ground",
		build:       NewSimpleScene,
	},
	"spheregrid": {
		displayName: "Sphere Grid",
		description: "Grid of rainbow-colored metallic spheres",
		build:       NewSphereGridScene,
	},
	"random": {
		displayName: "Random Spheres",
		description: "Field of random small spheres around three large ones",
		build: func(cameraOverrides ...renderer.CameraConfig) *Scene {
			return NewRandomScene(RandomSceneSeed, cameraOverrides...)
		},
	},
}

// Names returns the built-in scene names in sorted order
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns the built-in scene with the given name, or loads a scene
// description file when name ends in .toml
func New(name string, cameraOverrides ...renderer.CameraConfig) (*Scene, error) {
	if strings.EqualFold(filepath.Ext(name), ".toml") {
		s, err := LoadFile(name)
		if err != nil {
			return nil, err
		}
		if len(cameraOverrides) > 0 {
			s.CameraConfig = renderer.MergeCameraConfig(s.CameraConfig, cameraOverrides[0])
		}
		return s, nil
	}

	builtin, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownScene, name, strings.Join(Names(), ", "))
	}
	return builtin.build(cameraOverrides...), nil
}

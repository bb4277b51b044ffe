package scene

import (
	"math"

	"github.com/df07/go-spheretracer/pkg/core"
	"github.com/df07/go-spheretracer/pkg/geometry"
	"github.com/df07/go-spheretracer/pkg/material"
	"github.com/df07/go-spheretracer/pkg/renderer"
)

// NewDefaultScene creates the classic five-sphere scene: a diffuse center sphere,
// a hollow glass bubble on the left and a polished gold sphere on the right
func NewDefaultScene(cameraOverrides ...renderer.CameraConfig) *Scene {
	defaultCameraConfig := renderer.CameraConfig{
		Center:        core.NewVec3(3, 3, 2),
		LookAt:        core.NewVec3(0, 0, -1),
		Up:            core.NewVec3(0, 1, 0),
		AspectRatio:   16.0 / 9.0,
		VFov:          20.0,
		Aperture:      0.1,
		FocusDistance: math.Sqrt(27), // Distance to the center sphere's front
	}

	// Apply any overrides using the reusable merge function
	cameraConfig := defaultCameraConfig
	if len(cameraOverrides) > 0 {
		cameraConfig = renderer.MergeCameraConfig(defaultCameraConfig, cameraOverrides[0])
	}

	s := NewScene()
	s.CameraConfig = cameraConfig
	s.SamplingConfig = SamplingConfig{
		Width:           400,
		Height:          225,
		SamplesPerPixel: 100,
		MaxDepth:        50,
	}

	materialGround := material.NewLambertian(core.NewVec3(0.8, 0.8, 0.0))
	materialCenter := material.NewLambertian(core.NewVec3(0.1, 0.2, 0.5))
	materialGlass := material.NewDielectric(1.5)
	materialGold := material.NewMetal(core.NewVec3(0.8, 0.6, 0.2), 0.0)

	s.Add(geometry.NewSphere(core.NewVec3(0, -100.5, -1), 100), materialGround)
	s.Add(geometry.NewSphere(core.NewVec3(0, 0, -1), 0.5), materialCenter)

	// Hollow glass bubble: a negative radius flips the inner surface's normals
	glass := s.Add(geometry.NewSphere(core.NewVec3(-1, 0, -1), 0.5), materialGlass)
	_ = s.AddShared(geometry.NewSphere(core.NewVec3(-1, 0, -1), -0.4), glass)

	s.Add(geometry.NewSphere(core.NewVec3(1, 0, -1), 0.5), materialGold)

	return s
}

// NewSimpleScene creates a single diffuse sphere resting on a large ground sphere
func NewSimpleScene(cameraOverrides ...renderer.CameraConfig) *Scene {
	cameraConfig := renderer.DefaultCameraConfig()
	if len(cameraOverrides) > 0 {
		cameraConfig = renderer.MergeCameraConfig(cameraConfig, cameraOverrides[0])
	}

	s := NewScene()
	s.CameraConfig = cameraConfig
	s.SamplingConfig.SamplesPerPixel = 50

	s.Add(geometry.NewSphere(core.NewVec3(0, 0, -1), 0.5), material.NewLambertian(core.NewVec3(0.5, 0.5, 0.5)))
	s.Add(geometry.NewSphere(core.NewVec3(0, -100.5, -1), 100), material.NewLambertian(core.NewVec3(0.5, 0.5, 0.5)))

	return s
}

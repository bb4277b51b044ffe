package scene

import (
	"math/rand"

	"github.com/df07/go-spheretracer/pkg/core"
	"github.com/df07/go-spheretracer/pkg/geometry"
	"github.com/df07/go-spheretracer/pkg/material"
	"github.com/df07/go-spheretracer/pkg/renderer"
)

// RandomSceneSeed is the seed used by the built-in "random" scene
const RandomSceneSeed = 42

// NewRandomScene creates a field of small random spheres around three large ones.
// The layout depends only on seed.
func NewRandomScene(seed int64, cameraOverrides ...renderer.CameraConfig) *Scene {
	defaultCameraConfig := renderer.CameraConfig{
		Center:        core.NewVec3(13, 2, 3),
		LookAt:        core.NewVec3(0, 0, 0),
		Up:            core.NewVec3(0, 1, 0),
		AspectRatio:   3.0 / 2.0,
		VFov:          20.0,
		Aperture:      0.1,
		FocusDistance: 10.0,
	}

	cameraConfig := defaultCameraConfig
	if len(cameraOverrides) > 0 {
		cameraConfig = renderer.MergeCameraConfig(defaultCameraConfig, cameraOverrides[0])
	}

	s := NewScene()
	s.CameraConfig = cameraConfig
	s.SamplingConfig = SamplingConfig{
		Width:           600,
		Height:          400,
		SamplesPerPixel: 200,
		MaxDepth:        50,
	}

	random := rand.New(rand.NewSource(seed))
	randomColor := func(lo, hi float64) core.Vec3 {
		return core.NewVec3(
			lo+(hi-lo)*random.Float64(),
			lo+(hi-lo)*random.Float64(),
			lo+(hi-lo)*random.Float64(),
		)
	}

	s.Add(geometry.NewSphere(core.NewVec3(0, -1000, 0), 1000), material.NewLambertian(core.NewVec3(0.5, 0.5, 0.5)))

	// Small spheres share one glass material
	glass := s.AddMaterial(material.NewDielectric(1.5))
	clearing := core.NewVec3(4, 0.2, 0)

	for a := -11; a < 11; a++ {
		for b := -11; b < 11; b++ {
			chooseMat := random.Float64()
			center := core.NewVec3(float64(a)+0.9*random.Float64(), 0.2, float64(b)+0.9*random.Float64())

			if center.Subtract(clearing).Length() <= 0.9 {
				continue
			}

			sphere := geometry.NewSphere(center, 0.2)
			switch {
			case chooseMat < 0.8:
				albedo := randomColor(0, 1).MultiplyVec(randomColor(0, 1))
				s.Add(sphere, material.NewLambertian(albedo))
			case chooseMat < 0.95:
				albedo := randomColor(0.5, 1)
				s.Add(sphere, material.NewMetal(albedo, 0.5*random.Float64()))
			default:
				_ = s.AddShared(sphere, glass)
			}
		}
	}

	_ = s.AddShared(geometry.NewSphere(core.NewVec3(0, 1, 0), 1.0), glass)
	s.Add(geometry.NewSphere(core.NewVec3(-4, 1, 0), 1.0), material.NewLambertian(core.NewVec3(0.4, 0.2, 0.1)))
	s.Add(geometry.NewSphere(core.NewVec3(4, 1, 0), 1.0), material.NewMetal(core.NewVec3(0.7, 0.6, 0.5), 0.0))

	return s
}

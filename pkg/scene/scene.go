package scene

import (
	"errors"
	"fmt"

	"github.com/df07/go-spheretracer/pkg/core"
	"github.com/df07/go-spheretracer/pkg/geometry"
	"github.com/df07/go-spheretracer/pkg/material"
	"github.com/df07/go-spheretracer/pkg/renderer"
)

var (
	// ErrUnknownScene is returned when a scene name matches no built-in scene or file
	ErrUnknownScene = errors.New("unknown scene")
	// ErrInvalidScene is returned for scene descriptions that cannot be rendered
	ErrInvalidScene = errors.New("invalid scene")
)

// Object pairs a shape with an entry in the scene's material table
type Object struct {
	Shape         geometry.Shape
	MaterialIndex int
}

// SamplingConfig contains the recommended rendering settings for a scene
type SamplingConfig struct {
	Width           int // Image width
	Height          int // Image height
	SamplesPerPixel int // Number of rays per pixel
	MaxDepth        int // Maximum ray bounce depth
}

// Scene contains all the elements needed for rendering
type Scene struct {
	Objects        []Object            // Objects in the scene
	Materials      []material.Material // Material table; objects refer to it by index
	TopColor       core.Vec3           // Sky color straight up
	BottomColor    core.Vec3           // Sky color straight down
	CameraConfig   renderer.CameraConfig
	SamplingConfig SamplingConfig
}

// NewScene creates an empty scene under the default sky
func NewScene() *Scene {
	return &Scene{
		TopColor:     core.NewVec3(0.5, 0.7, 1.0), // Sky blue
		BottomColor:  core.NewVec3(1.0, 1.0, 1.0), // White
		CameraConfig: renderer.DefaultCameraConfig(),
		SamplingConfig: SamplingConfig{
			Width:           400,
			Height:          225,
			SamplesPerPixel: 100,
			MaxDepth:        50,
		},
	}
}

// AddMaterial appends a material to the table and returns its index
func (s *Scene) AddMaterial(mat material.Material) int {
	s.Materials = append(s.Materials, mat)
	return len(s.Materials) - 1
}

// Add appends a shape with its own material and returns the material index
func (s *Scene) Add(shape geometry.Shape, mat material.Material) int {
	index := s.AddMaterial(mat)
	s.Objects = append(s.Objects, Object{Shape: shape, MaterialIndex: index})
	return index
}

// AddShared appends a shape that reuses an existing material table entry
func (s *Scene) AddShared(shape geometry.Shape, materialIndex int) error {
	if materialIndex < 0 || materialIndex >= len(s.Materials) {
		return fmt.Errorf("%w: material index %d out of range [0,%d)", ErrInvalidScene, materialIndex, len(s.Materials))
	}
	s.Objects = append(s.Objects, Object{Shape: shape, MaterialIndex: materialIndex})
	return nil
}

// SetBackground sets the sky gradient endpoints
func (s *Scene) SetBackground(topColor, bottomColor core.Vec3) {
	s.TopColor = topColor
	s.BottomColor = bottomColor
}

// Hit returns the nearest intersection over all objects. The upper bound shrinks
// to each hit found, so later objects can only replace it with a strictly closer one.
func (s *Scene) Hit(ray core.Ray, tMin, tMax float64) (*geometry.HitRecord, bool) {
	var closestHit *geometry.HitRecord
	closestSoFar := tMax

	for _, obj := range s.Objects {
		hit, isHit := obj.Shape.Hit(ray, tMin, closestSoFar)
		if !isHit {
			continue
		}
		// Ties keep the earlier object
		if closestHit != nil && hit.T >= closestSoFar {
			continue
		}
		hit.MaterialIndex = obj.MaterialIndex
		closestSoFar = hit.T
		closestHit = hit
	}

	return closestHit, closestHit != nil
}

// Material resolves a material index from a hit record
func (s *Scene) Material(index int) material.Material {
	return s.Materials[index]
}

// BackgroundColors returns the sky gradient endpoints
func (s *Scene) BackgroundColors() (topColor, bottomColor core.Vec3) {
	return s.TopColor, s.BottomColor
}

// GetPrimitiveCount returns the number of objects in the scene
func (s *Scene) GetPrimitiveCount() int {
	return len(s.Objects)
}

// Validate checks that every object refers to a material
func (s *Scene) Validate() error {
	for i, obj := range s.Objects {
		if obj.Shape == nil {
			return fmt.Errorf("%w: object %d has no shape", ErrInvalidScene, i)
		}
		if obj.MaterialIndex < 0 || obj.MaterialIndex >= len(s.Materials) || s.Materials[obj.MaterialIndex] == nil {
			return fmt.Errorf("%w: object %d has no material", ErrInvalidScene, i)
		}
	}
	return nil
}

// NewCamera builds the scene's camera for an image of the given size
func (s *Scene) NewCamera(width, height int) (*renderer.Camera, error) {
	config := s.CameraConfig
	if width > 0 && height > 0 {
		config.AspectRatio = float64(width) / float64(height)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return renderer.NewCamera(config), nil
}

package integrator

import (
	"github.com/df07/go-spheretracer/pkg/core"
	"github.com/df07/go-spheretracer/pkg/geometry"
	"github.com/df07/go-spheretracer/pkg/material"
)

// Scene is the view of a scene the integrator needs.
// Defined here rather than importing the scene package to avoid an import cycle.
type Scene interface {
	// Hit returns the nearest intersection annotated with its material index
	Hit(ray core.Ray, tMin, tMax float64) (*geometry.HitRecord, bool)
	// Material resolves a material index from a hit record
	Material(index int) material.Material
	// BackgroundColors returns the sky gradient endpoints
	BackgroundColors() (topColor, bottomColor core.Vec3)
}

// Integrator defines the interface for light transport algorithms
type Integrator interface {
	// RayColor computes the color carried back along a camera ray
	RayColor(ray core.Ray, scene Scene, sampler core.Sampler) core.Vec3
}

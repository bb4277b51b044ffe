package integrator

import (
	"math"

	"github.com/df07/go-spheretracer/pkg/core"
)

// ShadowAcneEpsilon is the minimum hit distance; it keeps scattered rays from
// re-hitting the surface they left due to floating point error
const ShadowAcneEpsilon = 0.001

// PathTracingIntegrator implements depth-limited recursive path tracing
type PathTracingIntegrator struct {
	maxDepth int
}

// NewPathTracingIntegrator creates a new path tracing integrator
func NewPathTracingIntegrator(maxDepth int) *PathTracingIntegrator {
	return &PathTracingIntegrator{maxDepth: maxDepth}
}

// MaxDepth returns the bounce limit
func (pt *PathTracingIntegrator) MaxDepth() int {
	return pt.maxDepth
}

// RayColor computes the color for a camera ray using the configured depth
func (pt *PathTracingIntegrator) RayColor(ray core.Ray, scene Scene, sampler core.Sampler) core.Vec3 {
	return RayColor(ray, scene, pt.maxDepth, sampler)
}

// RayColor returns the light arriving along ray after at most depth bounces
func RayColor(ray core.Ray, scene Scene, depth int, sampler core.Sampler) core.Vec3 {
	// If we've exceeded the ray bounce limit, no more light is gathered
	if depth <= 0 {
		return core.Vec3{X: 0, Y: 0, Z: 0}
	}

	hit, isHit := scene.Hit(ray, ShadowAcneEpsilon, math.Inf(1))
	if !isHit {
		return BackgroundGradient(ray, scene)
	}

	scatter, didScatter := scene.Material(hit.MaterialIndex).Scatter(ray, *hit, sampler)
	if !didScatter {
		return core.Vec3{X: 0, Y: 0, Z: 0} // Material absorbed the ray
	}

	return scatter.Attenuation.MultiplyVec(RayColor(scatter.Scattered, scene, depth-1, sampler))
}

// BackgroundGradient returns the sky color seen along a ray that escapes the scene
func BackgroundGradient(ray core.Ray, scene Scene) core.Vec3 {
	topColor, bottomColor := scene.BackgroundColors()

	// Map the y-component from [-1,1] to [0,1]
	t := 0.5 * (ray.Direction.Unit().Y + 1.0)

	return core.Lerp(bottomColor, topColor, t)
}

package geometry

import (
	"github.com/df07/go-spheretracer/pkg/core"
)

// NoMaterial marks a hit that has not yet been annotated with a scene material
const NoMaterial = -1

// HitRecord contains information about a ray-object intersection
type HitRecord struct {
	Point         core.Vec3 // Point of intersection
	Normal        core.Vec3 // Unit surface normal, always facing against the incoming ray
	T             float64   // Parameter t along the ray
	FrontFace     bool      // Whether the outward normal already faced against the ray
	MaterialIndex int       // Index into the owning scene's material table
}

// SetFaceNormal sets the normal vector and determines front/back face.
// outwardNormal must be unit length.
func (h *HitRecord) SetFaceNormal(ray core.Ray, outwardNormal core.Vec3) {
	h.FrontFace = ray.Direction.Dot(outwardNormal) < 0
	if h.FrontFace {
		h.Normal = outwardNormal
	} else {
		h.Normal = outwardNormal.Negate()
	}
}

// Shape interface for objects that can be hit by rays
type Shape interface {
	// Hit returns the nearest intersection with t in [tMin, tMax]
	Hit(ray core.Ray, tMin, tMax float64) (*HitRecord, bool)
}

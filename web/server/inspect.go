package server

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/df07/go-spheretracer/pkg/geometry"
	"github.com/df07/go-spheretracer/pkg/integrator"
	"github.com/df07/go-spheretracer/pkg/material"
	"github.com/df07/go-spheretracer/pkg/scene"
)

// InspectResponse represents the JSON response for object inspection
type InspectResponse struct {
	Hit           bool                   `json:"hit"`
	MaterialType  string                 `json:"materialType"`
	MaterialIndex int                    `json:"materialIndex"`
	GeometryType  string                 `json:"geometryType"`
	Point         [3]float64             `json:"point"`
	Normal        [3]float64             `json:"normal"`
	Distance      float64                `json:"distance"`
	FrontFace     bool                   `json:"frontFace"`
	Properties    map[string]interface{} `json:"properties"`
}

// extractMaterialInfo extracts detailed material information with type assertions
func extractMaterialInfo(mat material.Material) (string, map[string]interface{}) {
	properties := make(map[string]interface{})

	switch m := mat.(type) {
	case *material.Lambertian:
		properties["albedo"] = vecJSON(m.Albedo)
		properties["color"] = hexColor(m.Albedo.X, m.Albedo.Y, m.Albedo.Z)
		return "lambertian", properties

	case *material.Metal:
		properties["albedo"] = vecJSON(m.Albedo)
		properties["color"] = hexColor(m.Albedo.X, m.Albedo.Y, m.Albedo.Z)
		properties["fuzz"] = m.Fuzz
		return "metal", properties

	case *material.Dielectric:
		properties["refractionIndex"] = m.RefractionIndex
		properties["color"] = "#ffffff" // Clear glass
		return "dielectric", properties

	case *material.Mix:
		type1, props1 := extractMaterialInfo(m.Material1)
		type2, props2 := extractMaterialInfo(m.Material2)
		properties["ratio"] = m.Ratio
		properties["material1"] = map[string]interface{}{"type": type1, "properties": props1}
		properties["material2"] = map[string]interface{}{"type": type2, "properties": props2}
		return "mix", properties

	default:
		return "unknown", properties
	}
}

func hexColor(r, g, b float64) string {
	channel := func(x float64) int {
		return int(255 * math.Max(0, math.Min(1, x)))
	}
	return fmt.Sprintf("#%02x%02x%02x", channel(r), channel(g), channel(b))
}

// extractGeometryInfo extracts detailed geometry information
func extractGeometryInfo(shape geometry.Shape) (string, map[string]interface{}) {
	properties := make(map[string]interface{})

	switch geom := shape.(type) {
	case *geometry.Sphere:
		properties["center"] = vecJSON(geom.Center)
		properties["radius"] = geom.Radius
		if geom.Radius < 0 {
			properties["inverted"] = true
		}
		return "sphere", properties

	default:
		return "unknown", properties
	}
}

// InspectResult describes the first object hit by an inspection ray
type InspectResult struct {
	Hit       bool
	HitRecord *geometry.HitRecord
	Object    scene.Object
}

// inspectPixel casts a ray through the center of the given pixel and reports the first object hit
func inspectPixel(sceneObj *scene.Scene, width, height, pixelX, pixelY int) (InspectResult, error) {
	camera, err := sceneObj.NewCamera(width, height)
	if err != nil {
		return InspectResult{}, err
	}

	// Pinhole ray through the pixel center; no lens sample is needed
	u := (float64(pixelX) + 0.5) / float64(width)
	v := (float64(height-1-pixelY) + 0.5) / float64(height)
	ray := camera.GetCenterRay(u, v)

	hit, isHit := sceneObj.Hit(ray, integrator.ShadowAcneEpsilon, math.Inf(1))
	if !isHit {
		return InspectResult{Hit: false}, nil
	}

	// Find the object that produced the hit; ties go to the earliest, as in Hit
	for _, obj := range sceneObj.Objects {
		if obj.MaterialIndex != hit.MaterialIndex {
			continue
		}
		if objHit, ok := obj.Shape.Hit(ray, integrator.ShadowAcneEpsilon, math.Inf(1)); ok && objHit.T == hit.T {
			return InspectResult{Hit: true, HitRecord: hit, Object: obj}, nil
		}
	}

	return InspectResult{Hit: true, HitRecord: hit}, nil
}

// handleInspect handles ray casting inspection requests
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	req, sceneObj, err := s.parseRenderRequest(r)
	if err != nil {
		writeJSONError(w, sceneErrorStatus(err), "Invalid scene parameters: "+err.Error())
		return
	}

	pixelX, err := strconv.Atoi(r.URL.Query().Get("x"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid x coordinate")
		return
	}
	pixelY, err := strconv.Atoi(r.URL.Query().Get("y"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid y coordinate")
		return
	}

	if pixelX < 0 || pixelX >= req.Width || pixelY < 0 || pixelY >= req.Height {
		writeJSONError(w, http.StatusBadRequest, "Pixel coordinates out of bounds")
		return
	}

	result, err := inspectPixel(sceneObj, req.Width, req.Height, pixelX, pixelY)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !result.Hit {
		writeJSON(w, http.StatusOK, InspectResponse{Hit: false, MaterialIndex: geometry.NoMaterial})
		return
	}

	materialType, materialProps := extractMaterialInfo(sceneObj.Material(result.HitRecord.MaterialIndex))
	geometryType, geometryProps := extractGeometryInfo(result.Object.Shape)

	writeJSON(w, http.StatusOK, InspectResponse{
		Hit:           true,
		MaterialType:  materialType,
		MaterialIndex: result.HitRecord.MaterialIndex,
		GeometryType:  geometryType,
		Point:         vecJSON(result.HitRecord.Point),
		Normal:        vecJSON(result.HitRecord.Normal),
		Distance:      result.HitRecord.T,
		FrontFace:     result.HitRecord.FrontFace,
		Properties: map[string]interface{}{
			"material": materialProps,
			"geometry": geometryProps,
		},
	})
}

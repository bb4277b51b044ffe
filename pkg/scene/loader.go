package scene

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/image/colornames"

	"github.com/df07/go-spheretracer/pkg/core"
	"github.com/df07/go-spheretracer/pkg/geometry"
	"github.com/df07/go-spheretracer/pkg/material"
)

// File is the TOML scene description format.
//
//	[camera]
//	center = [3.0, 3.0, 2.0]
//	look_at = [0.0, 0.0, -1.0]
//	vfov = 20.0
//	aperture = 0.1
//
//	[background]
//	top = [0.5, 0.7, 1.0]
//	bottom = "white"
//
//	[materials.ground]
//	type = "lambertian"
//	albedo = [0.8, 0.8, 0.0]
//
//	[materials.satin]
//	type = "mix"
//	mix = ["ground", "gold"]
//	ratio = 0.3
//
//	[[spheres]]
//	center = [0.0, -100.5, -1.0]
//	radius = 100.0
//	material = "ground"
//
// Colors are either an RGB triple in [0,1] or a CSS color name.
type File struct {
	Camera     *CameraSection             `toml:"camera"`
	Background *BackgroundSection         `toml:"background"`
	Sampling   *SamplingSection           `toml:"sampling"`
	Materials  map[string]MaterialSection `toml:"materials"`
	Spheres    []SphereSection            `toml:"spheres"`
}

type CameraSection struct {
	Center        Vector `toml:"center"`
	LookAt        Vector `toml:"look_at"`
	Up            Vector `toml:"up"`
	VFov          Number `toml:"vfov"`
	Aperture      Number `toml:"aperture"`
	FocusDistance Number `toml:"focus_distance"`
}

type BackgroundSection struct {
	Top    Color `toml:"top"`
	Bottom Color `toml:"bottom"`
}

type SamplingSection struct {
	Width           int `toml:"width"`
	Height          int `toml:"height"`
	SamplesPerPixel int `toml:"samples_per_pixel"`
	MaxDepth        int `toml:"max_depth"`
}

type MaterialSection struct {
	Type            string   `toml:"type"`
	Albedo          Color    `toml:"albedo"`
	Fuzz            Number   `toml:"fuzz"`
	RefractionIndex Number   `toml:"refraction_index"`
	Mix             []string `toml:"mix"`   // Two material names, for type "mix"
	Ratio           Number   `toml:"ratio"` // Share of the second material, for type "mix"
}

type SphereSection struct {
	Center   Vector `toml:"center"`
	Radius   Number `toml:"radius"`
	Material string `toml:"material"`
}

// Number accepts both TOML integers and floats
type Number float64

func (n *Number) UnmarshalTOML(data interface{}) error {
	f, err := toFloat(data)
	if err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Vector is a three-component TOML array
type Vector struct {
	core.Vec3
	Set bool // Whether the key was present
}

func (v *Vector) UnmarshalTOML(data interface{}) error {
	vec, err := toVec3(data)
	if err != nil {
		return err
	}
	v.Vec3, v.Set = vec, true
	return nil
}

// Color is an RGB triple or a named color
type Color struct {
	core.Vec3
	Set bool // Whether the key was present
}

func (c *Color) UnmarshalTOML(data interface{}) error {
	if name, ok := data.(string); ok {
		rgba, ok := colornames.Map[strings.ToLower(strings.ReplaceAll(name, " ", ""))]
		if !ok {
			return fmt.Errorf("unknown color name %q", name)
		}
		c.Vec3 = core.NewVec3(float64(rgba.R), float64(rgba.G), float64(rgba.B)).Multiply(1.0 / 255)
		c.Set = true
		return nil
	}

	vec, err := toVec3(data)
	if err != nil {
		return err
	}
	c.Vec3, c.Set = vec, true
	return nil
}

func toFloat(data interface{}) (float64, error) {
	switch v := data.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", data)
	}
}

func toVec3(data interface{}) (core.Vec3, error) {
	list, ok := data.([]interface{})
	if !ok || len(list) != 3 {
		return core.Vec3{}, fmt.Errorf("expected a list of three numbers")
	}
	var xyz [3]float64
	for i, d := range list {
		f, err := toFloat(d)
		if err != nil {
			return core.Vec3{}, err
		}
		xyz[i] = f
	}
	return core.NewVec3(xyz[0], xyz[1], xyz[2]), nil
}

// LoadFile reads a TOML scene description from disk
func LoadFile(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownScene, path)
		}
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}

	s, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse builds a scene from a TOML scene description
func Parse(data string) (*Scene, error) {
	var file File
	md, err := toml.Decode(data, &file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalidScene, strings.Join(keys, ", "))
	}

	return file.Build()
}

// Build converts a decoded scene description into a scene
func (f *File) Build() (*Scene, error) {
	s := NewScene()

	if f.Camera != nil {
		if f.Camera.Center.Set {
			s.CameraConfig.Center = f.Camera.Center.Vec3
		}
		if f.Camera.LookAt.Set {
			s.CameraConfig.LookAt = f.Camera.LookAt.Vec3
		}
		if f.Camera.Up.Set {
			s.CameraConfig.Up = f.Camera.Up.Vec3
		}
		if f.Camera.VFov != 0 {
			s.CameraConfig.VFov = float64(f.Camera.VFov)
		}
		s.CameraConfig.Aperture = float64(f.Camera.Aperture)
		s.CameraConfig.FocusDistance = float64(f.Camera.FocusDistance)

		if err := s.CameraConfig.Validate(); err != nil {
			return nil, fmt.Errorf("%w: camera: %v", ErrInvalidScene, err)
		}
	}

	if f.Background != nil {
		if f.Background.Top.Set {
			s.TopColor = f.Background.Top.Vec3
		}
		if f.Background.Bottom.Set {
			s.BottomColor = f.Background.Bottom.Vec3
		}
	}

	if f.Sampling != nil {
		if f.Sampling.Width > 0 {
			s.SamplingConfig.Width = f.Sampling.Width
		}
		if f.Sampling.Height > 0 {
			s.SamplingConfig.Height = f.Sampling.Height
		}
		if f.Sampling.SamplesPerPixel > 0 {
			s.SamplingConfig.SamplesPerPixel = f.Sampling.SamplesPerPixel
		}
		if f.Sampling.MaxDepth > 0 {
			s.SamplingConfig.MaxDepth = f.Sampling.MaxDepth
		}
	}

	// Sorted so material indices do not depend on map order
	names := make([]string, 0, len(f.Materials))
	for name := range f.Materials {
		names = append(names, name)
	}
	sort.Strings(names)

	// Mixes refer to other materials by name, so they are built last
	indices := make(map[string]int, len(names))
	bases := make(map[string]int, len(names))
	for _, mixes := range []bool{false, true} {
		for _, name := range names {
			section := f.Materials[name]
			if section.isMix() != mixes {
				continue
			}

			var (
				mat material.Material
				err error
			)
			if mixes {
				mat, err = section.buildMix(s, bases)
			} else {
				mat, err = section.build()
			}
			if err != nil {
				return nil, fmt.Errorf("%w: material %q: %v", ErrInvalidScene, name, err)
			}
			indices[name] = s.AddMaterial(mat)
			if !mixes {
				bases[name] = indices[name]
			}
		}
	}

	if len(f.Spheres) == 0 {
		return nil, fmt.Errorf("%w: no spheres", ErrInvalidScene)
	}
	for i, sphere := range f.Spheres {
		if !sphere.Center.Set {
			return nil, fmt.Errorf("%w: sphere %d has no center", ErrInvalidScene, i)
		}
		if sphere.Radius == 0 {
			return nil, fmt.Errorf("%w: sphere %d has zero radius", ErrInvalidScene, i)
		}
		index, ok := indices[sphere.Material]
		if !ok {
			return nil, fmt.Errorf("%w: sphere %d refers to unknown material %q", ErrInvalidScene, i, sphere.Material)
		}
		if err := s.AddShared(geometry.NewSphere(sphere.Center.Vec3, float64(sphere.Radius)), index); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (m MaterialSection) isMix() bool {
	return strings.EqualFold(m.Type, "mix")
}

// buildMix combines two already-built, non-mix materials
func (m MaterialSection) buildMix(s *Scene, bases map[string]int) (material.Material, error) {
	if len(m.Mix) != 2 {
		return nil, fmt.Errorf("mix material needs exactly two materials, got %d", len(m.Mix))
	}

	var parts [2]material.Material
	for i, name := range m.Mix {
		index, ok := bases[name]
		if !ok {
			return nil, fmt.Errorf("mix refers to unknown or mixed material %q", name)
		}
		parts[i] = s.Material(index)
	}
	return material.NewMix(parts[0], parts[1], float64(m.Ratio)), nil
}

func (m MaterialSection) build() (material.Material, error) {
	albedo := func() (core.Vec3, error) {
		if !m.Albedo.Set {
			return core.Vec3{}, fmt.Errorf("%s material needs an albedo", m.Type)
		}
		return m.Albedo.Vec3, nil
	}

	switch strings.ToLower(m.Type) {
	case "lambertian":
		a, err := albedo()
		if err != nil {
			return nil, err
		}
		return material.NewLambertian(a), nil
	case "metal":
		a, err := albedo()
		if err != nil {
			return nil, err
		}
		return material.NewMetal(a, float64(m.Fuzz)), nil
	case "dielectric":
		if m.RefractionIndex <= 0 {
			return nil, fmt.Errorf("dielectric material needs a positive refraction_index")
		}
		return material.NewDielectric(float64(m.RefractionIndex)), nil
	default:
		return nil, fmt.Errorf("unknown material type %q", m.Type)
	}
}

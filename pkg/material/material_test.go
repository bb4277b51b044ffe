package material

import (
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-spheretracer/pkg/core"
	"github.com/df07/go-spheretracer/pkg/geometry"
)

// constantSampler always returns the same value
type constantSampler struct {
	value float64
	calls int
}

func (c *constantSampler) Get1D() float64 {
	c.calls++
	return c.value
}

func (c *constantSampler) Get2D() core.Vec2 {
	c.calls += 2
	return core.NewVec2(c.value, c.value)
}

func (c *constantSampler) Get3D() core.Vec3 {
	c.calls += 3
	return core.NewVec3(c.value, c.value, c.value)
}

func surfaceHit(normal core.Vec3, frontFace bool) geometry.HitRecord {
	return geometry.HitRecord{
		Point:     core.NewVec3(0, 0, 0),
		Normal:    normal,
		T:         1,
		FrontFace: frontFace,
	}
}

func TestLambertian_AlwaysScatters(t *testing.T) {
	albedo := core.NewVec3(0.5, 0.5, 0.5)
	lambertian := NewLambertian(albedo)
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(42)))

	normals := []core.Vec3{
		core.NewVec3(0, 1, 0),
		core.NewVec3(0, 0, -1),
		core.NewVec3(1, 1, 1).Unit(),
	}

	for _, normal := range normals {
		hit := surfaceHit(normal, true)
		rayIn := core.NewRay(core.NewVec3(0, 5, 0), normal.Negate())

		for i := 0; i < 500; i++ {
			scatter, didScatter := lambertian.Scatter(rayIn, hit, sampler)
			if !didScatter {
				t.Fatalf("Lambertian should always scatter (normal %v, iteration %d)", normal, i)
			}
			if !scatter.Attenuation.Equals(albedo) {
				t.Fatalf("Attenuation should equal albedo, got %v", scatter.Attenuation)
			}
			if scatter.Scattered.Direction.NearZero() {
				t.Fatal("Scattered direction should never be degenerate")
			}
			// normal + unit vector never points below the surface
			if scatter.Scattered.Direction.Dot(normal) < -1e-12 {
				t.Fatalf("Scattered direction below surface: %v", scatter.Scattered.Direction)
			}
			if !scatter.Scattered.Origin.Equals(hit.Point) {
				t.Fatalf("Scattered ray should start at the hit point, got %v", scatter.Scattered.Origin)
			}
		}
	}
}

// oppositeSampler makes RandomUnitVector return exactly -normal for normal (0,1,0)
type oppositeSampler struct{}

func (oppositeSampler) Get1D() float64   { return 0.5 }
func (oppositeSampler) Get2D() core.Vec2 { return core.NewVec2(0.5, 0.5) }
func (oppositeSampler) Get3D() core.Vec3 { return core.NewVec3(0.5, 0, 0.5) }

func TestLambertian_DegenerateDirectionFallsBackToNormal(t *testing.T) {
	lambertian := NewLambertian(core.NewVec3(0.8, 0.2, 0.1))
	normal := core.NewVec3(0, 1, 0)
	hit := surfaceHit(normal, true)

	scatter, didScatter := lambertian.Scatter(core.NewRay(core.NewVec3(0, 1, 0), core.NewVec3(0, -1, 0)), hit, oppositeSampler{})
	if !didScatter {
		t.Fatal("Lambertian should always scatter")
	}
	if !scatter.Scattered.Direction.Equals(normal) {
		t.Errorf("Expected fallback to the normal, got %v", scatter.Scattered.Direction)
	}
}

func TestNewMetal_FuzzClamp(t *testing.T) {
	tests := []struct {
		name         string
		inputFuzz    float64
		expectedFuzz float64
	}{
		{"Valid fuzz 0.0", 0.0, 0.0},
		{"Valid fuzz 0.5", 0.5, 0.5},
		{"Valid fuzz 1.0", 1.0, 1.0},
		{"Clamp above 1.0", 1.5, 1.0},
		{"Clamp below 0.0", -0.5, 0.0},
	}

	albedo := core.NewVec3(0.8, 0.8, 0.8)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metal := NewMetal(albedo, tt.inputFuzz)
			if metal.Fuzz != tt.expectedFuzz {
				t.Errorf("Expected fuzz %f, got %f", tt.expectedFuzz, metal.Fuzz)
			}
		})
	}
}

func TestMetal_PerfectReflectionIsDeterministic(t *testing.T) {
	albedo := core.NewVec3(0.9, 0.9, 0.9)
	metal := NewMetal(albedo, 0.0)
	sampler := &constantSampler{value: 0.3}

	rayIn := core.NewRay(core.NewVec3(0, 1, 1), core.NewVec3(0, -1, -2))
	hit := surfaceHit(core.NewVec3(0, 0, 1), true)

	expected := rayIn.Direction.Reflect(hit.Normal)
	for i := 0; i < 3; i++ {
		scatter, didScatter := metal.Scatter(rayIn, hit, sampler)
		if !didScatter {
			t.Fatal("Metal should scatter")
		}
		if !scatter.Scattered.Direction.Equals(expected) {
			t.Errorf("Expected exactly %v, got %v", expected, scatter.Scattered.Direction)
		}
		if !scatter.Attenuation.Equals(albedo) {
			t.Errorf("Attenuation should equal albedo: expected %v, got %v", albedo, scatter.Attenuation)
		}
	}

	if sampler.calls != 0 {
		t.Errorf("A perfect mirror should draw no random numbers, drew %d", sampler.calls)
	}
}

func TestMetal_FuzzyReflection(t *testing.T) {
	metal := NewMetal(core.NewVec3(0.8, 0.8, 0.8), 0.5)
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(42)))

	rayIn := core.NewRay(core.NewVec3(0, 0, 1), core.NewVec3(0, 0, -1))
	hit := surfaceHit(core.NewVec3(0, 0, 1), true)

	var directions []core.Vec3
	for i := 0; i < 10; i++ {
		scatter, didScatter := metal.Scatter(rayIn, hit, sampler)
		if !didScatter {
			// Head-on reflection with fuzz 0.5 can never dip below the surface
			t.Fatalf("Metal should scatter on iteration %d", i)
		}
		directions = append(directions, scatter.Scattered.Direction)
	}

	allSame := true
	for i := 1; i < len(directions); i++ {
		if !directions[i].Equals(directions[0]) {
			allSame = false
			break
		}
	}
	if allSame {
		t.Error("Fuzzy metal should produce varying reflection directions")
	}
}

func TestMetal_ScatterAbsorption(t *testing.T) {
	metal := NewMetal(core.NewVec3(0.8, 0.8, 0.8), 1.0)
	// Grazing ray: the reflection is barely above the surface
	rayIn := core.NewRay(core.NewVec3(-1, 0.01, 0), core.NewVec3(1, -0.01, 0))
	hit := surfaceHit(core.NewVec3(0, 1, 0), true)

	// Constant 0.25 maps to the perturbation (-0.5,-0.5,-0.5), pushing the ray under the surface
	_, didScatter := metal.Scatter(rayIn, hit, &constantSampler{value: 0.25})
	if didScatter {
		t.Error("Rays perturbed below the surface should be absorbed")
	}
}

func TestDielectric_IndexMatchedPassesThrough(t *testing.T) {
	glass := NewDielectric(1.0)

	directions := []core.Vec3{
		core.NewVec3(0, 0, -1),
		core.NewVec3(0.6, 0, -0.8),
		core.NewVec3(-0.3, 0.2, -1),
	}

	for _, frontFace := range []bool{true, false} {
		for _, dir := range directions {
			rayIn := core.NewRay(core.NewVec3(0, 0, 1), dir)
			hit := surfaceHit(core.NewVec3(0, 0, 1), frontFace)

			scatter, didScatter := glass.Scatter(rayIn, hit, &constantSampler{value: 0.5})
			if !didScatter {
				t.Fatal("Dielectric should always scatter")
			}
			got := scatter.Scattered.Direction
			if got.Subtract(dir.Unit()).Length() > 1e-12 {
				t.Errorf("Expected direction %v unchanged, got %v (frontFace=%t)", dir.Unit(), got, frontFace)
			}
			if !scatter.Attenuation.Equals(core.NewVec3(1, 1, 1)) {
				t.Errorf("Dielectric attenuation should be white, got %v", scatter.Attenuation)
			}
		}
	}
}

func TestDielectric_TotalInternalReflection(t *testing.T) {
	glass := NewDielectric(1.5)
	normal := core.NewVec3(0, 1, 0)

	// Exiting glass at 60 degrees: 1.5*sin(60) > 1
	dir := core.NewVec3(math.Sin(math.Pi/3), -math.Cos(math.Pi/3), 0)
	rayIn := core.NewRay(core.NewVec3(0, 1, 0), dir)
	hit := surfaceHit(normal, false)

	// Sampler value 0.999 would otherwise force refraction
	scatter, _ := glass.Scatter(rayIn, hit, &constantSampler{value: 0.999})
	expected := dir.Reflect(normal)
	if scatter.Scattered.Direction.Subtract(expected).Length() > 1e-12 {
		t.Errorf("Expected total internal reflection %v, got %v", expected, scatter.Scattered.Direction)
	}
}

func TestDielectric_FresnelChoice(t *testing.T) {
	glass := NewDielectric(1.5)
	normal := core.NewVec3(0, 1, 0)
	dir := core.NewVec3(0, -1, 0)
	rayIn := core.NewRay(core.NewVec3(0, 1, 0), dir)
	hit := surfaceHit(normal, true)

	// Normal incidence reflectance is r0 = ((1-1/1.5)/(1+1/1.5))^2 = 0.04
	tests := []struct {
		name          string
		sample        float64
		expectReflect bool
	}{
		{"draw below reflectance reflects", 0.01, true},
		{"draw above reflectance refracts", 0.5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scatter, _ := glass.Scatter(rayIn, hit, &constantSampler{value: tt.sample})
			reflected := scatter.Scattered.Direction.Dot(normal) > 0
			if reflected != tt.expectReflect {
				t.Errorf("Expected reflect=%t, got direction %v", tt.expectReflect, scatter.Scattered.Direction)
			}
		})
	}
}

func TestReflectance(t *testing.T) {
	tests := []struct {
		name     string
		cosine   float64
		ratio    float64
		expected float64
	}{
		{"matched index at normal incidence", 1.0, 1.0, 0.0},
		{"glass at normal incidence", 1.0, 1.0 / 1.5, 0.04},
		{"grazing incidence", 0.0, 1.0 / 1.5, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reflectance(tt.cosine, tt.ratio)
			if math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("Expected %f, got %f", tt.expected, got)
			}
		})
	}
}

func TestMix_ChoosesByRatio(t *testing.T) {
	red := NewMetal(core.NewVec3(1, 0, 0), 0)
	blue := NewMetal(core.NewVec3(0, 0, 1), 0)

	tests := []struct {
		name     string
		ratio    float64
		sample   float64
		expected core.Vec3
	}{
		{"below ratio picks second", 0.5, 0.3, blue.Albedo},
		{"above ratio picks first", 0.5, 0.7, red.Albedo},
		{"ratio zero always first", 0.0, 0.0, red.Albedo},
		{"ratio clamped above one", 2.0, 0.99, blue.Albedo},
	}

	rayIn := core.NewRay(core.NewVec3(0, 1, 0), core.NewVec3(1, -1, 0))
	hit := surfaceHit(core.NewVec3(0, 1, 0), true)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mix := NewMix(red, blue, tt.ratio)
			scatter, ok := mix.Scatter(rayIn, hit, &constantSampler{value: tt.sample})
			if !ok {
				t.Fatal("Expected the mirror to scatter")
			}
			if !scatter.Attenuation.Equals(tt.expected) {
				t.Errorf("Expected attenuation %v, got %v", tt.expected, scatter.Attenuation)
			}
		})
	}
}

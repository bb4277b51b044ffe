package server

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/df07/go-spheretracer/pkg/core"
	"github.com/df07/go-spheretracer/pkg/material"
	"github.com/df07/go-spheretracer/pkg/scene"
)

const testSceneFile = `# Scene: Single Sphere
# Group: Tests
[materials.red]
type = "lambertian"
albedo = "red"

[[spheres]]
center = [0, 0, -1]
radius = 0.5
material = "red"
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "single.toml"), []byte(testSceneFile), 0o644); err != nil {
		t.Fatal(err)
	}
	return NewServer(0, dir, core.NewZapLogger(zaptest.NewLogger(t).Sugar()))
}

func doRequest(t *testing.T, s *Server, path string, params url.Values) *httptest.ResponseRecorder {
	t.Helper()
	target := path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

// sseEvents splits a recorded event stream into event names and payloads
func sseEvents(body string) (names []string, data []string) {
	for _, block := range strings.Split(body, "\n\n") {
		var name, payload string
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				payload = strings.TrimPrefix(line, "data: ")
			}
		}
		if name != "" {
			names = append(names, name)
			data = append(data, payload)
		}
	}
	return names, data
}

func TestHandleHealth(t *testing.T) {
	rec := doRequest(t, newTestServer(t), "/api/health", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("Unexpected body %v", body)
	}
}

func TestHandleScenes(t *testing.T) {
	rec := doRequest(t, newTestServer(t), "/api/scenes", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var response scene.ScenesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatal(err)
	}
	if len(response.Groups) != 2 {
		t.Fatalf("Expected built-in and file groups, got %+v", response.Groups)
	}
	if response.Groups[0].Name != "Built-in Scenes" || len(response.Groups[0].Scenes) != len(scene.Names()) {
		t.Errorf("Unexpected built-in group %+v", response.Groups[0])
	}
	if response.Groups[1].Name != "Tests" || response.Groups[1].Scenes[0].Name != "Single Sphere" {
		t.Errorf("Unexpected file group %+v", response.Groups[1])
	}
}

func TestHandleSceneConfig(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, "/api/scene-config", url.Values{"scene": {"random"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Defaults map[string]float64 `json:"defaults"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Defaults["width"] != 600 || body.Defaults["samplesPerPixel"] != 200 {
		t.Errorf("Unexpected defaults %v", body.Defaults)
	}

	rec = doRequest(t, s, "/api/scene-config", url.Values{"scene": {"nonexistent"}})
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for an unknown scene, got %d", rec.Code)
	}
}

func TestHandleRender(t *testing.T) {
	s := newTestServer(t)
	params := url.Values{
		"scene":  {"simple"},
		"width":  {"16"},
		"height": {"8"},
		"spp":    {"2"},
		"depth":  {"3"},
		"seed":   {"5"},
	}

	rec := doRequest(t, s, "/api/render", params)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %q", ct)
	}

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("Response is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 8 {
		t.Errorf("Unexpected image size %v", img.Bounds())
	}

	// Same seed, same bytes
	again := doRequest(t, s, "/api/render", params)
	if !bytes.Equal(rec.Body.Bytes(), again.Body.Bytes()) {
		t.Error("Expected identical renders for identical requests")
	}

	params.Set("format", "jpg")
	if rec := doRequest(t, s, "/api/render", params); rec.Header().Get("Content-Type") != "image/jpeg" {
		t.Errorf("Expected image/jpeg, got %q", rec.Header().Get("Content-Type"))
	}
}

func TestHandleRender_SceneFile(t *testing.T) {
	params := url.Values{"scene": {"single.toml"}, "width": {"8"}, "height": {"8"}, "spp": {"1"}, "depth": {"2"}}
	rec := doRequest(t, newTestServer(t), "/api/render", params)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleRender_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		params url.Values
		status int
	}{
		{"unknown scene", url.Values{"scene": {"nonexistent"}}, http.StatusNotFound},
		{"scene file outside directory", url.Values{"scene": {"../../etc/passwd.toml"}}, http.StatusNotFound},
		{"width not a number", url.Values{"scene": {"simple"}, "width": {"wide"}}, http.StatusBadRequest},
		{"width too large", url.Values{"scene": {"simple"}, "width": {"5000"}}, http.StatusBadRequest},
		{"zero samples", url.Values{"scene": {"simple"}, "spp": {"0"}}, http.StatusBadRequest},
		{"bad seed", url.Values{"scene": {"simple"}, "seed": {"x"}}, http.StatusBadRequest},
		{"unsupported format", url.Values{"scene": {"simple"}, "width": {"4"}, "height": {"4"}, "format": {"webp"}}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, "/api/render", tt.params)
			if rec.Code != tt.status {
				t.Errorf("Expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleProgressive(t *testing.T) {
	params := url.Values{
		"scene":  {"simple"},
		"width":  {"16"},
		"height": {"8"},
		"spp":    {"2"},
		"depth":  {"3"},
		"passes": {"2"},
	}

	rec := doRequest(t, newTestServer(t), "/api/render/progressive", params)
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected an event stream, got %q", ct)
	}

	names, data := sseEvents(rec.Body.String())
	if len(names) == 0 || names[len(names)-1] != "complete" {
		t.Fatalf("Expected the stream to end with complete, got %v", names)
	}

	var progress []ProgressUpdate
	tiles := 0
	for i, name := range names {
		switch name {
		case "progress":
			var update ProgressUpdate
			if err := json.Unmarshal([]byte(data[i]), &update); err != nil {
				t.Fatalf("Bad progress payload: %v", err)
			}
			progress = append(progress, update)
		case "tile":
			tiles++
		case "error":
			t.Fatalf("Unexpected error event: %s", data[i])
		}
	}

	if len(progress) != 2 {
		t.Fatalf("Expected 2 progress events, got %d", len(progress))
	}
	if progress[0].Stats.MinSamples != 1 || progress[1].Stats.MinSamples != 2 {
		t.Errorf("Unexpected sample schedule %d, %d", progress[0].Stats.MinSamples, progress[1].Stats.MinSamples)
	}
	if !progress[1].IsComplete || progress[0].IsComplete {
		t.Error("Only the final pass should be marked complete")
	}
	if progress[1].ImageData == "" {
		t.Error("Expected image data in progress events")
	}
	if tiles == 0 {
		t.Error("Expected tile events")
	}
}

func TestHandleProgressive_InvalidRequest(t *testing.T) {
	rec := doRequest(t, newTestServer(t), "/api/render/progressive", url.Values{"scene": {"nonexistent"}})

	names, data := sseEvents(rec.Body.String())
	if len(names) != 1 || names[0] != "error" {
		t.Fatalf("Expected a single error event, got %v", names)
	}
	if !strings.Contains(data[0], "Invalid request") {
		t.Errorf("Unexpected error message %q", data[0])
	}
}

func TestHandleInspect(t *testing.T) {
	s := newTestServer(t)
	base := url.Values{"scene": {"simple"}, "width": {"32"}, "height": {"18"}}

	withPixel := func(x, y string) url.Values {
		params := url.Values{}
		for k, v := range base {
			params[k] = v
		}
		params.Set("x", x)
		params.Set("y", y)
		return params
	}

	// Center pixel looks straight at the diffuse sphere
	rec := doRequest(t, s, "/api/inspect", withPixel("16", "9"))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var hit InspectResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &hit); err != nil {
		t.Fatal(err)
	}
	if !hit.Hit || hit.MaterialType != "lambertian" || hit.GeometryType != "sphere" || !hit.FrontFace {
		t.Errorf("Unexpected inspection %+v", hit)
	}

	// Top corner sees only sky
	rec = doRequest(t, s, "/api/inspect", withPixel("0", "0"))
	var miss InspectResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &miss); err != nil {
		t.Fatal(err)
	}
	if miss.Hit {
		t.Errorf("Expected a miss at the top corner, got %+v", miss)
	}

	for _, coords := range [][2]string{{"x", "1"}, {"32", "1"}, {"1", "-1"}} {
		if rec := doRequest(t, s, "/api/inspect", withPixel(coords[0], coords[1])); rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for pixel %v, got %d", coords, rec.Code)
		}
	}
}

func TestExtractMaterialInfo(t *testing.T) {
	red := material.NewLambertian(core.NewVec3(0.8, 0.1, 0.1))
	mirror := material.NewMetal(core.NewVec3(0.9, 0.9, 0.9), 0.0)

	tests := []struct {
		name     string
		mat      material.Material
		expected string
	}{
		{"lambertian", red, "lambertian"},
		{"metal", mirror, "metal"},
		{"dielectric", material.NewDielectric(1.5), "dielectric"},
		{"mix", material.NewMix(red, mirror, 0.3), "mix"},
		{"nil", nil, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			materialType, props := extractMaterialInfo(tt.mat)
			if materialType != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, materialType)
			}
			if tt.expected == "lambertian" && props["color"] != "#cc1919" {
				t.Errorf("Unexpected color %v", props["color"])
			}
			if tt.expected == "mix" {
				first, _ := props["material1"].(map[string]interface{})
				if first["type"] != "lambertian" || props["ratio"] != 0.3 {
					t.Errorf("Unexpected mix properties %v", props)
				}
			}
		})
	}
}

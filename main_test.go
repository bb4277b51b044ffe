package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"go.uber.org/zap/zaptest"

	"github.com/df07/go-spheretracer/pkg/core"
	"github.com/df07/go-spheretracer/pkg/output"
	"github.com/df07/go-spheretracer/pkg/scene"
)

func TestCreateScene(t *testing.T) {
	sceneFile := filepath.Join(t.TempDir(), "one.toml")
	err := os.WriteFile(sceneFile, []byte(`
[materials.m]
type = "lambertian"
albedo = "gray"

[[spheres]]
center = [0, 0, -1]
radius = 0.5
material = "m"
`), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		sceneType   string
		expectError error
	}{
		// Built-in scenes
		{"default scene", "default", nil},
		{"simple scene", "simple", nil},
		{"spheregrid scene", "spheregrid", nil},
		{"random scene", "random", nil},

		// Scene files
		{"toml path", sceneFile, nil},
		{"missing toml path", filepath.Join(t.TempDir(), "missing.toml"), scene.ErrUnknownScene},

		// Invalid scenes
		{"unknown scene", "nonexistent", scene.ErrUnknownScene},
		{"empty scene name", "", scene.ErrUnknownScene},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := createScene(tt.sceneType)

			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Errorf("Expected %v for scene type '%s', got %v", tt.expectError, tt.sceneType, err)
				}
				if sc != nil {
					t.Errorf("Expected nil scene for invalid scene type '%s'", tt.sceneType)
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error for scene type '%s': %v", tt.sceneType, err)
			}
			if sc.SamplingConfig.Width <= 0 || sc.SamplingConfig.Height <= 0 {
				t.Errorf("Scene sampling size should be positive, got %dx%d", sc.SamplingConfig.Width, sc.SamplingConfig.Height)
			}
			if sc.GetPrimitiveCount() == 0 {
				t.Error("Expected objects in the scene")
			}
		})
	}
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-scene", "random", "-width", "64", "-spp", "4", "-seed", "9", "-passes", "3", "-out", "x.ppm", "-s3"})
	if err != nil {
		t.Fatalf("parseFlags failed: %v", err)
	}
	if opts.Scene != "random" || opts.Width != 64 || opts.SPP != 4 || opts.Seed != 9 || opts.Passes != 3 || opts.Out != "x.ppm" || !opts.S3 {
		t.Errorf("Unexpected options %+v", opts)
	}
	if opts.Env != ".env" {
		t.Errorf("Expected default env file, got %q", opts.Env)
	}

	defaults, err := parseFlags(nil)
	if err != nil {
		t.Fatal(err)
	}
	if defaults.Scene != "default" || defaults.Passes != 1 || defaults.Seed != 0 {
		t.Errorf("Unexpected defaults %+v", defaults)
	}

	invalid := [][]string{
		{"-passes", "0"},
		{"-thumb", "-5"},
		{"-width", "wide"},
		{"stray"},
	}
	for _, args := range invalid {
		if _, err := parseFlags(args); err == nil {
			t.Errorf("Expected an error for %v", args)
		}
	}
}

func TestRenderSettings(t *testing.T) {
	sc := scene.NewSimpleScene()

	config := renderSettings(options{Seed: 3}, sc)
	if config.Width != sc.SamplingConfig.Width || config.SamplesPerPixel != sc.SamplingConfig.SamplesPerPixel || config.Seed != 3 {
		t.Errorf("Expected scene defaults, got %+v", config)
	}

	config = renderSettings(options{Width: 10, Height: 20, SPP: 2, Depth: 3, Workers: 4, Tile: 5}, sc)
	if config.Width != 10 || config.Height != 20 || config.SamplesPerPixel != 2 || config.MaxDepth != 3 || config.NumWorkers != 4 || config.TileSize != 5 {
		t.Errorf("Flags not applied: %+v", config)
	}
	if config.Seed == 0 {
		t.Error("Expected a time-based seed when none is given")
	}
}

func TestRenderScene_Progressive(t *testing.T) {
	sc := scene.NewSimpleScene()
	config := renderSettings(options{Width: 16, Height: 9, SPP: 4, Depth: 4, Seed: 1, Tile: 8}, sc)

	single, _, err := renderScene(context.Background(), sc, config, 1, core.NopLogger{})
	if err != nil {
		t.Fatalf("Single pass render failed: %v", err)
	}
	progressive, stats, err := renderScene(context.Background(), sc, config, 3, core.NewZapLogger(zaptest.NewLogger(t).Sugar()))
	if err != nil {
		t.Fatalf("Progressive render failed: %v", err)
	}

	if single.Bounds() != progressive.Bounds() {
		t.Errorf("Size mismatch: %v vs %v", single.Bounds(), progressive.Bounds())
	}
	if stats.MinSamples != 4 {
		t.Errorf("Expected the final pass to reach 4 samples, got %d", stats.MinSamples)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "renders", "simple.png")

	opts := options{
		Scene:  "simple",
		Width:  24,
		Height: 12,
		SPP:    2,
		Depth:  3,
		Seed:   7,
		Out:    outPath,
		Thumb:  6,
		Passes: 1,
	}
	if err := run(context.Background(), opts, zaptest.NewLogger(t).Sugar()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	img, err := imaging.Open(outPath)
	if err != nil {
		t.Fatalf("Failed to open render: %v", err)
	}
	if img.Bounds().Dx() != 24 || img.Bounds().Dy() != 12 {
		t.Errorf("Unexpected render size %v", img.Bounds())
	}

	thumb, err := imaging.Open(output.ThumbnailPath(outPath))
	if err != nil {
		t.Fatalf("Failed to open thumbnail: %v", err)
	}
	if thumb.Bounds().Dx() != 6 || thumb.Bounds().Dy() != 3 {
		t.Errorf("Unexpected thumbnail size %v", thumb.Bounds())
	}

	opts.Out = filepath.Join(dir, "render.webp")
	opts.Thumb = 0
	if err := run(context.Background(), opts, zaptest.NewLogger(t).Sugar()); !errors.Is(err, output.ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}

	opts.Scene = "nonexistent"
	if err := run(context.Background(), opts, zaptest.NewLogger(t).Sugar()); !errors.Is(err, scene.ErrUnknownScene) {
		t.Errorf("Expected ErrUnknownScene, got %v", err)
	}
}

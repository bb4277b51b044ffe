package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/df07/go-spheretracer/pkg/core"
	"github.com/df07/go-spheretracer/pkg/integrator"
)

// ErrInvalidConfig is returned for render or camera settings that cannot produce an image
var ErrInvalidConfig = errors.New("invalid render configuration")

// RenderConfig contains rendering configuration
type RenderConfig struct {
	Width           int   // Image width in pixels
	Height          int   // Image height in pixels
	SamplesPerPixel int   // Number of rays per pixel
	MaxDepth        int   // Maximum ray bounce depth
	Seed            int64 // Base seed; tiles derive their own seeds from it
	TileSize        int   // Tile edge in pixels (0 = default)
	NumWorkers      int   // Number of parallel workers (0 = use CPU count)
}

// DefaultRenderConfig returns sensible default values
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Width:           400,
		Height:          225,
		SamplesPerPixel: 100,
		MaxDepth:        50,
		Seed:            42,
		TileSize:        16,
		NumWorkers:      0,
	}
}

// Validate checks that the configuration describes a renderable image
func (c RenderConfig) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: image size must be positive, got %dx%d", ErrInvalidConfig, c.Width, c.Height)
	case c.SamplesPerPixel <= 0:
		return fmt.Errorf("%w: samples per pixel must be positive, got %d", ErrInvalidConfig, c.SamplesPerPixel)
	case c.MaxDepth <= 0:
		return fmt.Errorf("%w: max depth must be positive, got %d", ErrInvalidConfig, c.MaxDepth)
	case c.TileSize < 0:
		return fmt.Errorf("%w: tile size must not be negative, got %d", ErrInvalidConfig, c.TileSize)
	case c.NumWorkers < 0:
		return fmt.Errorf("%w: worker count must not be negative, got %d", ErrInvalidConfig, c.NumWorkers)
	}
	return nil
}

func (c RenderConfig) tileSize() int {
	if c.TileSize <= 0 {
		return DefaultRenderConfig().TileSize
	}
	return c.TileSize
}

// Raytracer renders a scene through a camera in tiles spread over a worker pool
type Raytracer struct {
	config     RenderConfig
	tiles      []*Tile
	pixelStats [][]PixelStats
	tileRender *TileRenderer
	workerPool *WorkerPool
}

// NewRaytracer creates a new raytracer. The config must already be valid.
func NewRaytracer(scene integrator.Scene, camera *Camera, config RenderConfig) *Raytracer {
	tileRender := NewTileRenderer(scene, camera, integrator.NewPathTracingIntegrator(config.MaxDepth), config.Width, config.Height)

	return &Raytracer{
		config:     config,
		tiles:      NewTileGrid(config.Width, config.Height, config.tileSize()),
		pixelStats: newPixelStatsGrid(config.Width, config.Height),
		tileRender: tileRender,
		workerPool: NewWorkerPool(tileRender, config.NumWorkers),
	}
}

// Render produces a Width×Height image, top row first, with SamplesPerPixel samples per pixel.
// The output is identical for a given Seed regardless of NumWorkers.
func Render(ctx context.Context, scene integrator.Scene, camera *Camera, config RenderConfig) (*image.RGBA, RenderStats, error) {
	if err := config.Validate(); err != nil {
		return nil, RenderStats{}, err
	}

	return NewRaytracer(scene, camera, config).Render(ctx)
}

// Render renders every tile to the full sample count and assembles the image
func (rt *Raytracer) Render(ctx context.Context) (*image.RGBA, RenderStats, error) {
	start := time.Now()

	if err := rt.renderSamples(ctx, 1, rt.config.SamplesPerPixel, nil); err != nil {
		return nil, RenderStats{}, err
	}

	img, stats := assembleImage(rt.pixelStats, rt.config.SamplesPerPixel)
	stats.Duration = time.Since(start)
	return img, stats, nil
}

// renderSamples brings every pixel up to targetSamples using one sampler per tile and pass
func (rt *Raytracer) renderSamples(ctx context.Context, passNumber, targetSamples int, onTile func(TileResult)) error {
	tasks := make([]TileTask, len(rt.tiles))
	for i, tile := range rt.tiles {
		tasks[i] = TileTask{
			Tile:          tile,
			PassNumber:    passNumber,
			TargetSamples: targetSamples,
			Sampler:       tile.SamplerForPass(rt.config.Seed, passNumber),
		}
	}

	if err := rt.workerPool.Run(ctx, tasks, rt.pixelStats, onTile); err != nil {
		return fmt.Errorf("render pass %d: %w", passNumber, err)
	}
	return nil
}

// vec3ToColor converts a linear color to RGBA with gamma correction and clamping
func vec3ToColor(colorVec core.Vec3) color.RGBA {
	// Apply gamma correction (gamma = 2.0)
	colorVec = colorVec.Sqrt()

	// Clamp to valid color range so narrowing never wraps
	colorVec = colorVec.Clamp(0.0, 1.0)

	return color.RGBA{
		R: uint8(255 * colorVec.X),
		G: uint8(255 * colorVec.Y),
		B: uint8(255 * colorVec.Z),
		A: 255,
	}
}

func newPixelStatsGrid(width, height int) [][]PixelStats {
	pixelStats := make([][]PixelStats, height)
	for y := range pixelStats {
		pixelStats[y] = make([]PixelStats, width)
	}
	return pixelStats
}

// assembleImage creates an image from the accumulated pixel stats and calculates
// render statistics in a single pass
func assembleImage(pixelStats [][]PixelStats, targetSamples int) (*image.RGBA, RenderStats) {
	height := len(pixelStats)
	width := 0
	if height > 0 {
		width = len(pixelStats[0])
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	stats := RenderStats{
		TotalPixels: width * height,
		MaxSamples:  targetSamples,
		MinSamples:  targetSamples, // Start at target, will be reduced
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pixel := &pixelStats[y][x]
			img.SetRGBA(x, y, vec3ToColor(pixel.GetColor()))

			stats.TotalSamples += pixel.SampleCount
			stats.MinSamples = min(stats.MinSamples, pixel.SampleCount)
			stats.MaxSamplesUsed = max(stats.MaxSamplesUsed, pixel.SampleCount)
		}
	}

	if stats.TotalPixels > 0 {
		stats.AverageSamples = float64(stats.TotalSamples) / float64(stats.TotalPixels)
	}
	return img, stats
}

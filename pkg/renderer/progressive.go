package renderer

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/df07/go-spheretracer/pkg/core"
	"github.com/df07/go-spheretracer/pkg/integrator"
)

// ProgressiveConfig contains configuration for progressive rendering
type ProgressiveConfig struct {
	TileSize           int   // Size of each tile
	InitialSamples     int   // Samples for first pass (1 recommended)
	MaxSamplesPerPixel int   // Maximum total samples per pixel
	MaxPasses          int   // Maximum number of passes
	NumWorkers         int   // Number of parallel workers (0 = use CPU count)
	Seed               int64 // Base seed shared by all passes
}

// DefaultProgressiveConfig returns sensible default values
func DefaultProgressiveConfig() ProgressiveConfig {
	return ProgressiveConfig{
		TileSize:           64,
		InitialSamples:     1,
		MaxSamplesPerPixel: 50,
		MaxPasses:          7, // 1, then evenly spaced up to 50
		NumWorkers:         0, // Auto-detect CPU count
		Seed:               42,
	}
}

// SamplesForPass returns the cumulative per-pixel sample target after the
// given 1-based pass. The first pass is a quick preview of InitialSamples, the
// remainder is spread evenly and the final pass always reaches the maximum.
func (c ProgressiveConfig) SamplesForPass(pass int) int {
	if c.MaxPasses <= 1 || pass >= c.MaxPasses {
		return c.MaxSamplesPerPixel
	}
	if pass <= 1 {
		return min(c.InitialSamples, c.MaxSamplesPerPixel)
	}

	step := (c.MaxSamplesPerPixel - c.InitialSamples) / (c.MaxPasses - 1)
	return min(c.InitialSamples+(pass-1)*step, c.MaxSamplesPerPixel)
}

// ProgressiveRaytracer manages progressive rendering with multiple passes.
// Each pass adds samples to the same per-pixel accumulators.
type ProgressiveRaytracer struct {
	width, height int
	config        ProgressiveConfig
	raytracer     *Raytracer
	logger        core.Logger
}

// NewProgressiveRaytracer creates a new progressive raytracer
func NewProgressiveRaytracer(scene integrator.Scene, camera *Camera, width, height, maxDepth int, config ProgressiveConfig, logger core.Logger) (*ProgressiveRaytracer, error) {
	renderConfig := RenderConfig{
		Width:           width,
		Height:          height,
		SamplesPerPixel: config.MaxSamplesPerPixel,
		MaxDepth:        maxDepth,
		Seed:            config.Seed,
		TileSize:        config.TileSize,
		NumWorkers:      config.NumWorkers,
	}
	if err := renderConfig.Validate(); err != nil {
		return nil, err
	}
	if config.MaxPasses <= 0 || config.InitialSamples <= 0 {
		return nil, fmt.Errorf("%w: passes and initial samples must be positive", ErrInvalidConfig)
	}
	if logger == nil {
		logger = core.NopLogger{}
	}

	return &ProgressiveRaytracer{
		width:     width,
		height:    height,
		config:    config,
		raytracer: NewRaytracer(scene, camera, renderConfig),
		logger:    logger,
	}, nil
}

// RenderPass renders a single progressive pass using parallel processing
func (pr *ProgressiveRaytracer) RenderPass(ctx context.Context, passNumber int, tileCallback func(TileCompletionResult)) (*image.RGBA, RenderStats, error) {
	targetSamples := pr.config.SamplesForPass(passNumber)

	pr.logger.Printf("Pass %d: Target %d samples per pixel (using %d workers)...\n",
		passNumber, targetSamples, pr.raytracer.workerPool.GetNumWorkers())

	var onTile func(TileResult)
	if tileCallback != nil {
		tileNumber := 0
		totalTiles := len(pr.raytracer.tiles)
		onTile = func(result TileResult) {
			tileNumber++
			tileCallback(TileCompletionResult{
				TileX:       result.Tile.Bounds.Min.X / pr.raytracer.config.tileSize(),
				TileY:       result.Tile.Bounds.Min.Y / pr.raytracer.config.tileSize(),
				TileImage:   pr.extractTileImage(result.Tile),
				PassNumber:  passNumber,
				TileNumber:  tileNumber,
				TotalTiles:  totalTiles,
				TotalPasses: pr.config.MaxPasses,
			})
		}
	}

	if err := pr.raytracer.renderSamples(ctx, passNumber, targetSamples, onTile); err != nil {
		return nil, RenderStats{}, err
	}

	img, stats := assembleImage(pr.raytracer.pixelStats, targetSamples)
	return img, stats, nil
}

// extractTileImage extracts a tile image from the shared pixel stats array
func (pr *ProgressiveRaytracer) extractTileImage(tile *Tile) *image.RGBA {
	bounds := tile.Bounds
	tileImage := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			stats := &pr.raytracer.pixelStats[y][x]
			if stats.SampleCount > 0 {
				tileImage.SetRGBA(x-bounds.Min.X, y-bounds.Min.Y, vec3ToColor(stats.GetColor()))
			}
		}
	}

	return tileImage
}

// PassResult contains the result of a single pass
type PassResult struct {
	PassNumber int
	Image      *image.RGBA
	Stats      RenderStats
	IsLast     bool
}

// TileCompletionResult contains information about a completed tile for callbacks
type TileCompletionResult struct {
	TileX      int // Tile coordinates (not pixel coordinates)
	TileY      int
	TileImage  *image.RGBA // Image data for just this tile
	PassNumber int         // Which pass this tile was rendered in

	// Progress information
	TileNumber  int // Current tile number in this pass (1-based)
	TotalTiles  int // Total number of tiles in the image
	TotalPasses int // Total number of passes planned
}

// RenderOptions configures progressive rendering behavior
type RenderOptions struct {
	TileUpdates bool // Whether to generate tile completion events
}

// RenderProgressive runs every pass on a background goroutine. Pass results
// arrive in order on the first channel; tile results, when requested, on the
// second. Both close once rendering stops, after which the error channel
// yields nil on success or the error that ended the render.
func (pr *ProgressiveRaytracer) RenderProgressive(ctx context.Context, options RenderOptions) (<-chan PassResult, <-chan TileCompletionResult, <-chan error) {
	passChan := make(chan PassResult, 1)
	tileChan := make(chan TileCompletionResult, 100)
	errChan := make(chan error, 1)

	if !options.TileUpdates {
		close(tileChan)
	}

	go func() {
		defer close(passChan)
		if options.TileUpdates {
			defer close(tileChan)
		}
		defer close(errChan)

		pr.logger.Printf("Starting progressive rendering with %d passes...\n", pr.config.MaxPasses)

		for pass := 1; pass <= pr.config.MaxPasses; pass++ {
			// Check if client disconnected before starting this pass
			select {
			case <-ctx.Done():
				pr.logger.Printf("Rendering cancelled before pass %d\n", pass)
				errChan <- ctx.Err()
				return
			default:
			}

			startTime := time.Now()

			var tileCallback func(TileCompletionResult)
			if options.TileUpdates {
				tileCallback = func(result TileCompletionResult) {
					select {
					case tileChan <- result:
					case <-ctx.Done():
					default:
						// Channel full; the pass image still carries the tile
					}
				}
			}

			img, stats, err := pr.RenderPass(ctx, pass, tileCallback)
			if err != nil {
				errChan <- err
				return
			}
			stats.Duration = time.Since(startTime)

			pr.logger.Printf("Pass %d completed in %v (actual: %.1f samples/pixel)\n",
				pass, stats.Duration, stats.AverageSamples)

			isLast := pass == pr.config.MaxPasses || stats.MinSamples >= pr.config.MaxSamplesPerPixel
			select {
			case passChan <- PassResult{PassNumber: pass, Image: img, Stats: stats, IsLast: isLast}:
			case <-ctx.Done():
				errChan <- ctx.Err()
				return
			}

			if isLast {
				if pass < pr.config.MaxPasses {
					pr.logger.Printf("Reached maximum samples per pixel (%d), stopping.\n", pr.config.MaxSamplesPerPixel)
				}
				return
			}
		}
	}()

	return passChan, tileChan, errChan
}

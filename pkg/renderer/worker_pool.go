package renderer

import (
	"context"
	"image"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/df07/go-spheretracer/pkg/core"
)

// Tile represents a rectangular region of the image to be rendered
type Tile struct {
	ID              int             // Unique tile identifier
	Bounds          image.Rectangle // Pixel bounds (x0,y0,x1,y1)
	PassesCompleted int             // Number of passes completed for this tile
}

// NewTile creates a new tile with the specified bounds
func NewTile(id int, bounds image.Rectangle) *Tile {
	return &Tile{
		ID:     id,
		Bounds: bounds,
	}
}

// SamplerForPass returns the tile's random source for one pass.
// It depends only on the seed, the tile ID and the pass, never on scheduling.
func (t *Tile) SamplerForPass(seed int64, passNumber int) core.Sampler {
	return core.NewSeededSampler(tileSeed(seed, t.ID, passNumber))
}

func tileSeed(seed int64, tileID, passNumber int) int64 {
	return seed + int64(tileID)*7919 + int64(passNumber-1)*1_000_003 + 42 // +42 to avoid seed 0
}

// NewTileGrid creates a grid of tiles covering the entire image
func NewTileGrid(width, height, tileSize int) []*Tile {
	var tiles []*Tile
	tileID := 0

	// Calculate number of tiles in each dimension
	tilesX := (width + tileSize - 1) / tileSize // Ceiling division
	tilesY := (height + tileSize - 1) / tileSize

	for tileY := 0; tileY < tilesY; tileY++ {
		for tileX := 0; tileX < tilesX; tileX++ {
			x0 := tileX * tileSize
			y0 := tileY * tileSize
			x1 := min(x0+tileSize, width) // Don't exceed image bounds
			y1 := min(y0+tileSize, height)

			tiles = append(tiles, NewTile(tileID, image.Rect(x0, y0, x1, y1)))
			tileID++
		}
	}

	return tiles
}

// TileTask represents a tile rendering task for the worker pool
type TileTask struct {
	Tile          *Tile
	PassNumber    int
	TargetSamples int
	Sampler       core.Sampler
}

// TileResult contains the result from rendering a tile
type TileResult struct {
	Tile       *Tile
	PassNumber int
	Stats      RenderStats
}

// WorkerPool manages parallel tile rendering
type WorkerPool struct {
	renderer   *TileRenderer
	numWorkers int
}

// NewWorkerPool creates a worker pool with the specified number of workers
func NewWorkerPool(renderer *TileRenderer, numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	return &WorkerPool{
		renderer:   renderer,
		numWorkers: numWorkers,
	}
}

// GetNumWorkers returns the number of workers in the pool
func (wp *WorkerPool) GetNumWorkers() int {
	return wp.numWorkers
}

// Run renders all tasks and waits for them to finish. Tiles have non-overlapping
// bounds, so workers write the shared pixel stats without locking. onTile, if set,
// is called once per finished tile, never concurrently. The first error cancels
// the remaining tiles.
func (wp *WorkerPool) Run(ctx context.Context, tasks []TileTask, pixelStats [][]PixelStats, onTile func(TileResult)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(wp.numWorkers)

	var callbackMu sync.Mutex
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			stats, err := wp.renderer.RenderTileBounds(ctx, task.Tile.Bounds, pixelStats, task.Sampler, task.TargetSamples)
			if err != nil {
				return err
			}

			callbackMu.Lock()
			defer callbackMu.Unlock()
			task.Tile.PassesCompleted++
			if onTile != nil {
				onTile(TileResult{
					Tile:       task.Tile,
					PassNumber: task.PassNumber,
					Stats:      stats,
				})
			}
			return nil
		})
	}

	return g.Wait()
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/df07/go-spheretracer/pkg/core"
	"github.com/df07/go-spheretracer/pkg/output"
	"github.com/df07/go-spheretracer/pkg/renderer"
	"github.com/df07/go-spheretracer/pkg/scene"
)

// options holds the parsed command line
type options struct {
	Scene   string
	Width   int
	Height  int
	SPP     int
	Depth   int
	Seed    int64
	Workers int
	Tile    int
	Out     string
	Thumb   int
	Passes  int
	S3      bool
	Env     string
	Verbose bool
}

func parseFlags(args []string) (options, error) {
	var opts options

	fs := flag.NewFlagSet("spheretracer", flag.ContinueOnError)
	fs.StringVar(&opts.Scene, "scene", "default", "Built-in scene ("+strings.Join(scene.Names(), ", ")+") or path to a .toml scene file")
	fs.IntVar(&opts.Width, "width", 0, "Image width (0 = scene default)")
	fs.IntVar(&opts.Height, "height", 0, "Image height (0 = scene default)")
	fs.IntVar(&opts.SPP, "spp", 0, "Samples per pixel (0 = scene default)")
	fs.IntVar(&opts.Depth, "depth", 0, "Maximum bounce depth (0 = scene default)")
	fs.Int64Var(&opts.Seed, "seed", 0, "Random seed (0 = time-based)")
	fs.IntVar(&opts.Workers, "workers", 0, "Number of parallel workers (0 = CPU count)")
	fs.IntVar(&opts.Tile, "tile", 0, "Tile size in pixels (0 = default)")
	fs.StringVar(&opts.Out, "out", "", "Output file; the extension picks the format (default output/<scene>/render_<timestamp>.png)")
	fs.IntVar(&opts.Thumb, "thumb", 0, "Also write a thumbnail of this width")
	fs.IntVar(&opts.Passes, "passes", 1, "Number of progressive passes")
	fs.BoolVar(&opts.S3, "s3", false, "Upload the render to the bucket configured by RAYTRACER_S3_* variables")
	fs.StringVar(&opts.Env, "env", ".env", "Dotenv file to load before reading the environment")
	fs.BoolVar(&opts.Verbose, "verbose", false, "Enable debug logging")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if opts.Passes <= 0 {
		return opts, fmt.Errorf("passes must be positive, got %d", opts.Passes)
	}
	if opts.Thumb < 0 {
		return opts, fmt.Errorf("thumb must not be negative, got %d", opts.Thumb)
	}
	return opts, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.DisableStacktrace = true
	return config.Build()
}

// createScene loads a built-in scene or a .toml scene file
func createScene(name string) (*scene.Scene, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty scene name", scene.ErrUnknownScene)
	}
	return scene.New(name)
}

// renderSettings resolves flags against the scene's sampling defaults
func renderSettings(opts options, sc *scene.Scene) renderer.RenderConfig {
	config := renderer.RenderConfig{
		Width:           sc.SamplingConfig.Width,
		Height:          sc.SamplingConfig.Height,
		SamplesPerPixel: sc.SamplingConfig.SamplesPerPixel,
		MaxDepth:        sc.SamplingConfig.MaxDepth,
		Seed:            opts.Seed,
		TileSize:        opts.Tile,
		NumWorkers:      opts.Workers,
	}

	if opts.Width > 0 {
		config.Width = opts.Width
	}
	if opts.Height > 0 {
		config.Height = opts.Height
	}
	if opts.SPP > 0 {
		config.SamplesPerPixel = opts.SPP
	}
	if opts.Depth > 0 {
		config.MaxDepth = opts.Depth
	}
	if config.Seed == 0 {
		config.Seed = time.Now().UnixNano()
	}
	return config
}

// renderScene renders in one shot, or progressively when more than one pass is requested
func renderScene(ctx context.Context, sc *scene.Scene, config renderer.RenderConfig, passes int, logger core.Logger) (*image.RGBA, renderer.RenderStats, error) {
	camera, err := sc.NewCamera(config.Width, config.Height)
	if err != nil {
		return nil, renderer.RenderStats{}, err
	}

	if passes <= 1 {
		return renderer.Render(ctx, sc, camera, config)
	}

	progressiveConfig := renderer.ProgressiveConfig{
		TileSize:           config.TileSize,
		InitialSamples:     1,
		MaxSamplesPerPixel: config.SamplesPerPixel,
		MaxPasses:          passes,
		NumWorkers:         config.NumWorkers,
		Seed:               config.Seed,
	}
	if progressiveConfig.TileSize == 0 {
		progressiveConfig.TileSize = renderer.DefaultProgressiveConfig().TileSize
	}

	raytracer, err := renderer.NewProgressiveRaytracer(sc, camera, config.Width, config.Height, config.MaxDepth, progressiveConfig, logger)
	if err != nil {
		return nil, renderer.RenderStats{}, err
	}

	start := time.Now()
	passChan, _, errChan := raytracer.RenderProgressive(ctx, renderer.RenderOptions{})

	var last renderer.PassResult
	for result := range passChan {
		last = result
	}
	if err := <-errChan; err != nil {
		return nil, renderer.RenderStats{}, err
	}
	if last.Image == nil {
		return nil, renderer.RenderStats{}, errors.New("progressive render produced no passes")
	}

	last.Stats.Duration = time.Since(start)
	return last.Image, last.Stats, nil
}

func defaultOutputPath(sceneName string) string {
	base := strings.TrimSuffix(filepath.Base(sceneName), filepath.Ext(sceneName))
	timestamp := time.Now().Format("20060102_150405")
	return filepath.Join("output", base, fmt.Sprintf("render_%s.png", timestamp))
}

func run(ctx context.Context, opts options, log *zap.SugaredLogger) error {
	sc, err := createScene(opts.Scene)
	if err != nil {
		return err
	}

	config := renderSettings(opts, sc)
	log.Infow("Rendering scene",
		"scene", opts.Scene,
		"objects", sc.GetPrimitiveCount(),
		"size", fmt.Sprintf("%dx%d", config.Width, config.Height),
		"spp", config.SamplesPerPixel,
		"depth", config.MaxDepth,
		"seed", config.Seed,
		"passes", opts.Passes)

	img, stats, err := renderScene(ctx, sc, config, opts.Passes, core.NewZapLogger(log))
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	log.Infow("Render completed",
		"duration", stats.Duration,
		"avgSamples", stats.AverageSamples,
		"minSamples", stats.MinSamples,
		"maxSamples", stats.MaxSamplesUsed,
		"luminance", renderer.CalculateAverageLuminance(img))

	outPath := opts.Out
	if outPath == "" {
		outPath = defaultOutputPath(opts.Scene)
	}
	if err := output.SaveImage(img, outPath); err != nil {
		return err
	}
	log.Infow("Render saved", "path", outPath)

	var thumbPath string
	if opts.Thumb > 0 {
		thumb, err := output.Thumbnail(img, opts.Thumb)
		if err != nil {
			return err
		}
		thumbPath = output.ThumbnailPath(outPath)
		if err := output.SaveImage(thumb, thumbPath); err != nil {
			return err
		}
		log.Infow("Thumbnail saved", "path", thumbPath, "width", opts.Thumb)
	}

	if opts.S3 {
		sink, err := output.NewS3Sink(output.S3ConfigFromEnv(os.Getenv))
		if err != nil {
			return err
		}
		location, err := sink.Upload(ctx, img, filepath.Base(outPath))
		if err != nil {
			return err
		}
		log.Infow("Render uploaded", "location", location)
	}

	return nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := newLogger(opts.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	if err := godotenv.Load(opts.Env); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnw("Failed to load env file", "path", opts.Env, "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, log); err != nil {
		log.Errorw("Raytracer failed", "error", err)
		logger.Sync()
		os.Exit(1)
	}
}

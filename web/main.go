package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/df07/go-spheretracer/pkg/core"
	"github.com/df07/go-spheretracer/web/server"
)

func main() {
	// Parse command line flags
	port := flag.Int("port", 8080, "Port to serve on")
	scenesDir := flag.String("scenes", "scenes", "Directory of .toml scene files")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	var (
		logger *zap.Logger
		err    error
	)
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	webServer := server.NewServer(*port, *scenesDir, core.NewZapLogger(log))

	log.Infow("Sphere tracer web server", "url", fmt.Sprintf("http://localhost:%d", *port), "scenes", *scenesDir)

	if err := webServer.Start(); err != nil {
		log.Errorw("Server stopped", "error", err)
		logger.Sync()
		os.Exit(1)
	}
}

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/rainerweinberger/soxs/pkg/config"
	"github.com/rainerweinberger/soxs/pkg/instrument"
	"github.com/rainerweinberger/soxs/pkg/pipeline"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "", "YAML configuration file (defaults are used when missing)")
	outputDir := flag.String("output", "", "Output directory, overrides the configuration")
	instName := flag.String("instrument", "", "Instrument to simulate, overrides the configuration")
	seed := flag.Uint64("seed", 0, "Random seed, overrides the configuration when non-zero")
	writeConfig := flag.String("write-config", "", "Write the default configuration to this path and exit")
	listInstruments := flag.Bool("list-instruments", false, "List the registered instruments and exit")
	flag.Parse()

	if *listInstruments {
		fmt.Println("Registered instruments:")
		for _, name := range instrument.Names() {
			spec, _ := instrument.Get(name)
			fmt.Printf("  %-6s FOV %g', %d channels, peak area %g cm^2\n",
				name, spec.FOV, spec.NumChannels, spec.MaxArea())
		}
		return
	}

	if *writeConfig != "" {
		if err := config.CreateDefaultConfigFile(*writeConfig); err != nil {
			log.Fatalf("Failed to write default configuration: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *writeConfig)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *instName != "" {
		cfg.Instrument.Name = *instName
	}
	if *seed != 0 {
		cfg.Sampling.Seed = *seed
	}

	fmt.Println("================================")
	fmt.Println("MOCK X-RAY OBSERVATION PIPELINE")
	fmt.Println("================================")
	fmt.Printf("Instrument: %s, exposure %g ks, seed %d\n",
		cfg.Instrument.Name, cfg.Instrument.ExposureTime/1000.0, cfg.Sampling.Seed)

	p, err := pipeline.New(cfg)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fmt.Println("Starting mock observation...")
	startTime := time.Now()
	if err := p.Process(); err != nil {
		log.Fatalf("Pipeline failed: %v", err)
	}
	processingTime := time.Since(startTime)

	stats := p.Stats()
	out := p.Artifacts()
	fmt.Printf("\nMock observation completed in %.2f seconds!\n\n", processingTime.Seconds())

	fmt.Printf("Run summary:\n")
	fmt.Printf("============\n")
	fmt.Printf("Emitting cells: %d\n", stats.NCells)
	fmt.Printf("Sampled photons: %d\n", stats.NPhotons)
	fmt.Printf("Projected photons: %d\n", stats.NProjected)
	fmt.Printf("Detected events: %d\n", stats.NDetected)

	fmt.Println("\nArtifacts:")
	for _, path := range []string{
		out.DensityMap, out.TemperatureMap, out.SimputFile,
		out.EventFile, out.ImageFile, out.SpectrumFile,
		out.ImageFigure, out.SpectrumFigure,
	} {
		fmt.Printf("- %s\n", path)
	}

	if abs, err := os.Getwd(); err == nil && !strings.HasPrefix(cfg.Output.Dir, "/") {
		fmt.Printf("\nOutput directory: %s/%s\n", abs, cfg.Output.Dir)
	}
}

package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"framecal/internal/models"
	"framecal/pkg/calibration"
	"framecal/pkg/config"
	"framecal/pkg/correction"
	"framecal/pkg/reduction"
	"framecal/pkg/session"
)

func main() {
	// Parse command line arguments
	framePath := flag.String("frame", "", "Raw frame file (little-endian uint16, row-major)")
	darkPath := flag.String("dark", "", "Dark map file (little-endian uint16)")
	flatPath := flag.String("flat", "", "Flat-field capture used to derive the gain map (little-endian uint16)")
	defectPath := flag.String("defects", "", "Defect map file (one byte per pixel, non-zero = defective)")
	outputPath := flag.String("output", "corrected.raw", "Output file for the corrected frame")
	width := flag.Int("width", 0, "Frame width in pixels")
	height := flag.Int("height", 0, "Frame height in pixels")
	configPath := flag.String("config", "framecal.yaml", "Configuration file (YAML)")
	lowPower := flag.Bool("low-power", false, "Prefer low power over throughput")
	flag.Parse()

	// Validate inputs
	if *framePath == "" || *darkPath == "" || *flatPath == "" || *defectPath == "" || *width <= 0 || *height <= 0 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("FRAMECAL - DETECTOR FRAME CORRECTION")
	fmt.Printf("Frame: %dx%d, %d-bit\n", *width, *height, cfg.Processing.PixelDepth)
	fmt.Println("================================")

	n := *width * *height
	frame, err := readSamples(*framePath, n)
	if err != nil {
		log.Fatalf("Failed to read frame: %v", err)
	}
	dark, err := readSamples(*darkPath, n)
	if err != nil {
		log.Fatalf("Failed to read dark map: %v", err)
	}
	flat, err := readSamples(*flatPath, n)
	if err != nil {
		log.Fatalf("Failed to read flat-field capture: %v", err)
	}
	defects, err := os.ReadFile(*defectPath)
	if err != nil {
		log.Fatalf("Failed to read defect map: %v", err)
	}
	if len(defects) != n {
		log.Fatalf("Defect map has %d entries, expected %d", len(defects), n)
	}

	opts := reduction.Options{
		PartitionWidth:  cfg.Processing.WorkgroupWidth,
		PartitionHeight: cfg.Processing.WorkgroupHeight,
	}

	// Normalize the flat-field capture into a gain map
	fmt.Println("Normalizing gain map from flat-field capture...")
	gainMap, err := calibration.NormalizeGainMap(flat, *width, *height, opts)
	if err != nil {
		log.Fatalf("Gain map normalization failed: %v", err)
	}

	// Create the processing context
	pref := session.PreferenceHighPerformance
	if *lowPower {
		pref = session.PreferenceLowPower
	}
	registry := session.NewRegistry()
	handle, err := registry.CreateContext(*width, *height, pref)
	if err != nil {
		log.Fatalf("Failed to create correction context: %v", err)
	}
	defer registry.FreeContext(handle)

	if err := registry.SetVerbose(handle, cfg.Output.Verbose); err != nil {
		log.Fatalf("Failed to set verbosity: %v", err)
	}
	if cfg.Processing.Workers > 0 {
		if err := registry.SetWorkers(handle, cfg.Processing.Workers); err != nil {
			log.Fatalf("Failed to set worker count: %v", err)
		}
	}
	if err := registry.SetPixelDepth(handle, cfg.Processing.PixelDepth); err != nil {
		log.Fatalf("Failed to set pixel depth: %v", err)
	}
	if err := registry.SetOffsetBias(handle, uint16(cfg.Processing.OffsetBias)); err != nil {
		log.Fatalf("Failed to set offset bias: %v", err)
	}
	if cfg.Defect.Strategy == "weighted" {
		if err := registry.SetDefectStrategy(handle, correction.StrategyWeighted); err != nil {
			log.Fatalf("Failed to set defect strategy: %v", err)
		}
	}
	if err := registry.SetDarkMap(handle, dark, *width, *height); err != nil {
		log.Fatalf("Failed to set dark map: %v", err)
	}
	if err := registry.SetGainMap(handle, gainMap.Data, *width, *height); err != nil {
		log.Fatalf("Failed to set gain map: %v", err)
	}
	if err := registry.SetDefectMap(handle, defects, *width, *height); err != nil {
		log.Fatalf("Failed to set defect map: %v", err)
	}
	if cfg.Convolution.Enabled {
		if err := registry.EnableConvolution(handle, cfg.Convolution.Weights, cfg.Convolution.Renormalize); err != nil {
			log.Fatalf("Failed to enable convolution: %v", err)
		}
	}

	raw := make([]uint16, n)
	copy(raw, frame)

	// Run the correction pipeline in place over the frame buffer
	fmt.Println("Running correction pipeline...")
	startTime := time.Now()
	if err := registry.Process(handle, frame); err != nil {
		log.Fatalf("Correction failed: %v", err)
	}
	processingTime := time.Since(startTime)

	if err := writeSamples(*outputPath, frame); err != nil {
		log.Fatalf("Failed to write corrected frame: %v", err)
	}

	fmt.Printf("\nCorrection completed in %.3f seconds\n", processingTime.Seconds())
	fmt.Printf("Corrected frame saved to: %s\n\n", *outputPath)

	if cfg.Output.Verbose {
		rawFrame, err := models.NewFrame(raw, *width, *height, cfg.Processing.PixelDepth)
		if err != nil {
			log.Fatalf("Invalid frame: %v", err)
		}
		corrFrame, err := models.NewFrame(frame, *width, *height, cfg.Processing.PixelDepth)
		if err != nil {
			log.Fatalf("Invalid frame: %v", err)
		}

		before := calibration.Describe(rawFrame, opts)
		after := calibration.Describe(corrFrame, opts)
		uncorrected, _ := registry.Uncorrected(handle)

		fmt.Println("Frame statistics:")
		fmt.Println("=================")
		fmt.Printf("Raw:       min=%d max=%d mean=%.1f stddev=%.1f\n", before.Min, before.Max, before.Mean, before.StdDev)
		fmt.Printf("Corrected: min=%d max=%d mean=%.1f stddev=%.1f\n", after.Min, after.Max, after.Mean, after.StdDev)
		fmt.Printf("Raw/corrected correlation: %.3f\n", calibration.Correlation(raw, frame))
		fmt.Printf("Uncorrected defective pixels: %d\n", uncorrected)
	}
}

// readSamples reads a flat little-endian uint16 buffer and checks its
// length against the expected sample count.
func readSamples(path string, expected int) ([]uint16, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) != expected*2 {
		return nil, fmt.Errorf("%s has %d bytes, expected %d", path, len(data), expected*2)
	}
	samples := make([]uint16, expected)
	for i := range samples {
		samples[i] = binary.LittleEndian.Uint16(data[i*2:])
	}
	return samples, nil
}

// writeSamples writes a flat little-endian uint16 buffer.
func writeSamples(path string, samples []uint16) error {
	data := make([]byte, len(samples)*2)
	for i, v := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], v)
	}
	return os.WriteFile(path, data, 0644)
}

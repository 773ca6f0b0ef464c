// Command detecttest runs sprite detection on a sheet image and prints the
// frames found.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image/png"
	"os"
	"strings"

	"sprite-suite/internal/detect"
	"sprite-suite/internal/sheet"
)

func main() {
	imagePath := flag.String("image", "", "Path to sprite sheet (PNG, GIF, JPEG, BMP, TIFF or WebP)")
	tolerance := flag.Int("tolerance", 10, "Background color tolerance (0-255)")
	minSize := flag.Int("min-size", 8, "Minimum sprite size in pixels")
	eightWay := flag.Bool("8way", false, "Join diagonally touching pixels")
	noise := flag.Bool("noise", true, "Remove tiny specks before scanning")
	noiseThreshold := flag.Int("noise-threshold", 2, "Largest speck removed by -noise")
	worker := flag.Bool("worker", true, "Run the scan on the background worker")
	asJSON := flag.Bool("json", false, "Print frames as JSON")
	showStats := flag.Bool("stats", false, "Print detection statistics and a guessed grid")
	removeBG := flag.String("remove-bg", "", "Also write a copy with the background made transparent")
	smoothing := flag.String("smoothing", "none", "Edge smoothing for -remove-bg: none, low, medium or high")
	flag.Parse()

	if *imagePath == "" {
		fmt.Println("Usage: detecttest -image <path> [-tolerance 10] [-min-size 8] [-8way] [-json] [-stats]")
		os.Exit(1)
	}

	f, err := os.Open(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open image: %v\n", err)
		os.Exit(1)
	}
	pix, format, err := detect.Decode(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to decode image: %v\n", err)
		os.Exit(1)
	}

	cfg := detect.DefaultConfig().
		WithTolerance(*tolerance).
		WithMinSpriteSize(*minSize).
		With8Way(*eightWay).
		WithNoiseReduction(*noise, *noiseThreshold).
		WithWorker(*worker)

	svc := detect.NewService()
	defer svc.Close()
	frames, err := svc.Detect(context.Background(), pix, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Detection failed: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(sheet.FromSimple(frames)); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode frames: %v\n", err)
			os.Exit(1)
		}
	} else {
		printTable(format, pix, cfg, frames)
	}

	if *showStats {
		printStats(frames, pix)
	}

	if *removeBG != "" {
		if err := writeWithoutBackground(pix, *tolerance, *smoothing, *removeBG); err != nil {
			fmt.Fprintf(os.Stderr, "Background removal failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nWrote %s\n", *removeBG)
	}
}

func printTable(format string, pix *detect.Pixels, cfg detect.Config, frames []*sheet.SimpleFrame) {
	bg := detect.DetectBackground(pix)
	fmt.Printf("Loaded %s image: %dx%d pixels\n", format, pix.Width, pix.Height)
	fmt.Printf("Background: %s (alpha %d)\n", bg.Hex(), bg.A)
	fmt.Printf("\nDetection parameters:\n")
	fmt.Printf("  Tolerance: %d\n", cfg.Tolerance)
	fmt.Printf("  Min sprite size: %d px\n", cfg.MinSpriteSize)
	fmt.Printf("  8-way connectivity: %v\n", cfg.Use8WayConnectivity)
	fmt.Printf("  Noise reduction: %v (threshold %d)\n", cfg.NoiseReduction, cfg.NoiseThreshold)

	fmt.Printf("\nDetected %d sprites:\n", len(frames))
	fmt.Printf("%-6s %-14s %6s %6s %6s %6s %8s\n", "ID", "Name", "X", "Y", "W", "H", "Area")
	fmt.Println(strings.Repeat("-", 58))
	for _, fr := range frames {
		r := fr.Rect
		fmt.Printf("%-6d %-14s %6d %6d %6d %6d %8d\n", fr.ID, fr.Name, r.X, r.Y, r.W, r.H, r.Area())
	}
}

func printStats(frames []*sheet.SimpleFrame, pix *detect.Pixels) {
	st := detect.ComputeStats(frames, pix.Width, pix.Height)
	fmt.Printf("\nStatistics:\n")
	fmt.Printf("  Sprites: %d\n", st.TotalSprites)
	fmt.Printf("  Area: avg %.1f, min %.0f, max %.0f, stddev %.1f\n", st.AverageSize, st.MinSize, st.MaxSize, st.StdDev)
	fmt.Printf("  Coverage: %.2f%%\n", st.Coverage)
	fmt.Printf("  Density: %.2f sprites per 100x100 px\n", st.Density)
	if size, err := detect.GuessCellSize(frames); err == nil {
		fmt.Printf("  Guessed cell: %dx%d\n", size.W, size.H)
	}
}

func writeWithoutBackground(pix *detect.Pixels, tolerance int, smoothing, path string) error {
	sm, err := detect.ParseSmoothing(smoothing)
	if err != nil {
		return err
	}
	out := pix.Clone()
	if err := detect.RemoveBackground(out, tolerance, sm); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, out.Image()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Command cvcompare compares flood-fill sprite detection with OpenCV
// connected-component labelling on the same image.
package main

import (
	"flag"
	"fmt"
	"os"

	"sprite-suite/internal/cvcheck"
	"sprite-suite/internal/detect"
)

func main() {
	imagePath := flag.String("image", "", "Path to sprite sheet")
	tolerance := flag.Int("tolerance", 10, "Background color tolerance (0-255)")
	minSize := flag.Int("min-size", 8, "Minimum sprite size in pixels")
	eightWay := flag.Bool("8way", false, "Join diagonally touching pixels")
	flag.Parse()

	if *imagePath == "" {
		fmt.Println("Usage: cvcompare -image <path> [-tolerance 10] [-min-size 8] [-8way]")
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
	fmt.Printf("Loaded %s image: %dx%d pixels\n", format, pix.Width, pix.Height)

	cfg := detect.DefaultConfig().WithTolerance(*tolerance).WithMinSpriteSize(*minSize).With8Way(*eightWay)
	r, err := cvcheck.Compare(pix, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compare failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Background: %s\n", r.Background.Hex())
	fmt.Printf("Flood fill: %d components\n", len(r.FloodFill))
	fmt.Printf("OpenCV:     %d components\n", len(r.OpenCV))
	fmt.Printf("Matched:    %d\n", r.Matched)

	for _, c := range r.OnlyFloodFill {
		fmt.Printf("  only flood fill: %+v (%d px)\n", c.Rect, c.PixelCount)
	}
	for _, c := range r.OnlyOpenCV {
		fmt.Printf("  only OpenCV:     %+v (%d px)\n", c.Rect, c.PixelCount)
	}
	if !r.Agree() {
		os.Exit(2)
	}
	fmt.Println("Results agree.")
}

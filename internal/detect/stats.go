package detect

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"sprite-suite/internal/sheet"
)

// histogramBucket is the width, in px², of one size histogram bucket.
const histogramBucket = 100

// Stats summarizes a detection result.
type Stats struct {
	TotalSprites int `json:"totalSprites"`
	// AverageSize, MinSize, MaxSize and StdDev are frame areas in px².
	AverageSize float64 `json:"averageSize"`
	MinSize     float64 `json:"minSize"`
	MaxSize     float64 `json:"maxSize"`
	StdDev      float64 `json:"stdDev"`
	// SizeDistribution counts frames per 100 px² bucket, keyed by the
	// bucket's lower bound.
	SizeDistribution map[int]int `json:"sizeDistribution"`
	// Coverage is the summed frame area as a percentage of the image.
	Coverage float64 `json:"coverage"`
	// Density is the number of frames per 100x100 px of image.
	Density float64 `json:"density"`
}

// ComputeStats summarizes frames detected on a width x height image.
func ComputeStats(frames []*sheet.SimpleFrame, width, height int) Stats {
	st := Stats{SizeDistribution: map[int]int{}}
	if len(frames) == 0 {
		return st
	}
	sizes := make([]float64, len(frames))
	for i, f := range frames {
		a := f.Rect.Area()
		sizes[i] = float64(a)
		st.SizeDistribution[a/histogramBucket*histogramBucket]++
	}
	st.TotalSprites = len(frames)
	st.AverageSize, st.StdDev = stat.MeanStdDev(sizes, nil)
	st.MinSize = floats.Min(sizes)
	st.MaxSize = floats.Max(sizes)
	if total := float64(width * height); total > 0 {
		st.Coverage = floats.Sum(sizes) / total * 100
		st.Density = float64(len(frames)) / (total / 10000)
	}
	return st
}

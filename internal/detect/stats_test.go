package detect

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprite-suite/internal/sheet"
	"sprite-suite/pkg/colorutil"
	"sprite-suite/pkg/geometry"
)

func TestComputeStats(t *testing.T) {
	frames := []*sheet.SimpleFrame{
		sheet.NewSimpleFrame(0, "a", geometry.NewRect(0, 0, 10, 10)),
		sheet.NewSimpleFrame(1, "b", geometry.NewRect(0, 0, 10, 15)),
		sheet.NewSimpleFrame(2, "c", geometry.NewRect(0, 0, 20, 10)),
	}
	st := ComputeStats(frames, 100, 100)
	assert.Equal(t, 3, st.TotalSprites)
	assert.InDelta(t, 150.0, st.AverageSize, 1e-9)
	assert.Equal(t, 100.0, st.MinSize)
	assert.Equal(t, 200.0, st.MaxSize)
	assert.Equal(t, map[int]int{100: 2, 200: 1}, st.SizeDistribution)
	assert.InDelta(t, 4.5, st.Coverage, 1e-9)
	assert.InDelta(t, 3.0, st.Density, 1e-9)
}

func TestComputeStatsEmpty(t *testing.T) {
	st := ComputeStats(nil, 10, 10)
	assert.Equal(t, 0, st.TotalSprites)
	assert.Empty(t, st.SizeDistribution)
}

func TestGuessCellSize(t *testing.T) {
	frames := []*sheet.SimpleFrame{
		sheet.NewSimpleFrame(0, "", geometry.NewRect(0, 0, 31, 47)),
		sheet.NewSimpleFrame(1, "", geometry.NewRect(0, 0, 33, 48)),
		sheet.NewSimpleFrame(2, "", geometry.NewRect(0, 0, 12, 20)),
	}
	size, err := GuessCellSize(frames)
	require.NoError(t, err)
	assert.Equal(t, geometry.Size{W: 32, H: 48}, size)
}

func TestGuessCellSizeTieTakesLarger(t *testing.T) {
	frames := []*sheet.SimpleFrame{
		sheet.NewSimpleFrame(0, "", geometry.NewRect(0, 0, 8, 8)),
		sheet.NewSimpleFrame(1, "", geometry.NewRect(0, 0, 16, 16)),
		sheet.NewSimpleFrame(2, "", geometry.NewRect(0, 0, 24, 24)),
	}
	size, err := GuessCellSize(frames)
	require.NoError(t, err)
	assert.Equal(t, geometry.Size{W: 24, H: 24}, size)
}

func TestGuessCellSizeNeedsThreeFrames(t *testing.T) {
	_, err := GuessCellSize(framesWithAreas(10, 10))
	assert.ErrorIs(t, err, ErrNoGrid)
}

func TestRemoveBackground(t *testing.T) {
	p := sheetWith(12, 12, colorutil.White, colorutil.Black, image.Rect(4, 4, 8, 8))
	require.NoError(t, RemoveBackground(p, 10, SmoothNone))
	assert.Equal(t, uint8(0), p.At(0, 0).A)
	assert.Equal(t, colorutil.Black, p.At(5, 5))
}

func TestRemoveBackgroundSmoothing(t *testing.T) {
	p := sheetWith(12, 12, colorutil.White, colorutil.RGBA{R: 100, A: 255}, image.Rect(4, 4, 8, 8))
	p.Set(5, 4, colorutil.RGBA{R: 200, A: 255})
	require.NoError(t, RemoveBackground(p, 10, SmoothMedium))

	// Interior pixels have no see-through neighbours.
	assert.Equal(t, colorutil.RGBA{R: 100, A: 255}, p.At(5, 5))
	// Corner pixel (4,4): 3 solid neighbours out of 8.
	corner := p.At(4, 4)
	assert.Less(t, corner.A, uint8(255))
	assert.Equal(t, uint8(clampByte(255*0.6123724356957945)), corner.A)
	// Top edge pixel (5,4) blends toward its solid neighbours' mean red.
	edge := p.At(5, 4)
	assert.Equal(t, uint8(150), edge.R)
}

func TestParseSmoothing(t *testing.T) {
	s, err := ParseSmoothing("")
	require.NoError(t, err)
	assert.Equal(t, SmoothNone, s)
	_, err = ParseSmoothing("extreme")
	assert.Error(t, err)
}

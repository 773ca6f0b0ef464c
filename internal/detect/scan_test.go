package detect

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprite-suite/pkg/colorutil"
	"sprite-suite/pkg/geometry"
)

func TestScanTwoSquaresRasterOrder(t *testing.T) {
	p := sheetWith(64, 64, colorutil.White, colorutil.Black,
		image.Rect(40, 40, 50, 50),
		image.Rect(5, 5, 15, 15),
	)
	res := Scan(p, colorutil.White, 10, 8, false)
	require.Len(t, res.Components, 2)
	assert.Equal(t, geometry.NewRect(5, 5, 10, 10), res.Components[0].Rect)
	assert.Equal(t, geometry.NewRect(40, 40, 10, 10), res.Components[1].Rect)
	assert.Equal(t, 100, res.Components[0].PixelCount)
	assert.Equal(t, 200, res.ProcessedPixels)
	assert.Equal(t, 64*64, res.TotalPixels)
}

func TestScanDiagonalConnectivity(t *testing.T) {
	p := sheetWith(10, 10, colorutil.White, colorutil.Black)
	for i := 2; i < 7; i++ {
		p.Set(i, i, colorutil.Black)
	}

	four := Scan(p, colorutil.White, 0, 1, false)
	assert.Len(t, four.Components, 5)

	eight := Scan(p, colorutil.White, 0, 1, true)
	require.Len(t, eight.Components, 1)
	assert.Equal(t, geometry.NewRect(2, 2, 5, 5), eight.Components[0].Rect)
	assert.Equal(t, 5, eight.Components[0].PixelCount)
}

func TestScanDropsSmallComponents(t *testing.T) {
	p := sheetWith(20, 20, colorutil.White, colorutil.Black,
		image.Rect(2, 2, 4, 4),   // 4 px
		image.Rect(10, 10, 13, 13), // 9 px
	)
	res := Scan(p, colorutil.White, 0, 8, false)
	require.Len(t, res.Components, 1)
	assert.Equal(t, 9, res.Components[0].PixelCount)
	// Dropped components still count as processed.
	assert.Equal(t, 13, res.ProcessedPixels)
}

func TestScanMinSizeBoundaryInclusive(t *testing.T) {
	p := sheetWith(10, 10, colorutil.White, colorutil.Black, image.Rect(1, 1, 3, 5))
	assert.Len(t, Scan(p, colorutil.White, 0, 8, false).Components, 1)
	assert.Empty(t, Scan(p, colorutil.White, 0, 9, false).Components)
}

func TestScanBoundingBoxOfIrregularShape(t *testing.T) {
	p := sheetWith(16, 16, colorutil.White, colorutil.Black,
		image.Rect(3, 4, 4, 12),
		image.Rect(3, 11, 11, 12),
	)
	res := Scan(p, colorutil.White, 0, 1, false)
	require.Len(t, res.Components, 1)
	assert.Equal(t, geometry.NewRect(3, 4, 8, 8), res.Components[0].Rect)
	assert.Equal(t, 15, res.Components[0].PixelCount)
}

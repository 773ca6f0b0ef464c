package detect

import (
	"sprite-suite/pkg/colorutil"
	"sprite-suite/pkg/geometry"
)

// Component is one connected region of foreground pixels.
type Component struct {
	Rect       geometry.Rect
	PixelCount int
}

// ScanResult is the output of a full flood-fill pass.
type ScanResult struct {
	Components      []Component
	Background      colorutil.RGBA
	ProcessedPixels int
	TotalPixels     int
}

var (
	neighbors4 = [][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}
	neighbors8 = [][2]int{{0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}}
)

// Scan labels every connected foreground region of p in raster order and
// returns the bounding box and size of each region with at least
// minSize pixels. Smaller regions are dropped.
func Scan(p *Pixels, bg colorutil.RGBA, tolerance, minSize int, use8Way bool) ScanResult {
	w, h := p.Width, p.Height
	res := ScanResult{Background: bg, TotalPixels: w * h}
	if w == 0 || h == 0 {
		return res
	}
	dirs := neighbors4
	if use8Way {
		dirs = neighbors8
	}

	visited := make([]byte, w*h)
	queue := make([]int, 0, 64)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			start := y*w + x
			if visited[start] != 0 || IsBackground(p.Pix, start*4, bg, tolerance) {
				continue
			}

			minX, minY, maxX, maxY := x, y, x, y
			count := 0
			visited[start] = 1
			queue = append(queue[:0], start)
			for head := 0; head < len(queue); head++ {
				idx := queue[head]
				cx, cy := idx%w, idx/w
				count++
				minX, maxX = min(minX, cx), max(maxX, cx)
				minY, maxY = min(minY, cy), max(maxY, cy)

				for _, d := range dirs {
					nx, ny := cx+d[0], cy+d[1]
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					n := ny*w + nx
					if visited[n] != 0 || IsBackground(p.Pix, n*4, bg, tolerance) {
						continue
					}
					visited[n] = 1
					queue = append(queue, n)
				}
			}
			res.ProcessedPixels += count

			if count >= minSize {
				res.Components = append(res.Components, Component{
					Rect:       geometry.NewRect(minX, minY, maxX-minX+1, maxY-minY+1),
					PixelCount: count,
				})
			}
		}
	}
	return res
}

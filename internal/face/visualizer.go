package face

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// Visualizer draws landmark images: colored polylines on a black canvas.
type Visualizer struct {
	Parts     []Part
	LineWidth float64
}

// NewVisualizer returns a visualizer over the full face topology.
func NewVisualizer() *Visualizer {
	return &Visualizer{Parts: Topology, LineWidth: 2}
}

// Draw renders lmks onto a width x height canvas. When normalized is true the
// coordinates are fractions of the canvas size. Segments that reference
// vertices missing from lmks are skipped.
func (v *Visualizer) Draw(size image.Point, lmks Landmarks2D, normalized bool) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	if size.X <= 0 || size.Y <= 0 || len(lmks) == 0 {
		return canvas
	}

	scaleX, scaleY := 1.0, 1.0
	if normalized {
		scaleX, scaleY = float64(size.X), float64(size.Y)
	}
	half := v.LineWidth / 2
	if half <= 0 {
		half = 0.5
	}

	for _, part := range v.Parts {
		raster := vector.NewRasterizer(size.X, size.Y)
		segments := 0
		for _, path := range part.Paths {
			for i := 1; i < len(path); i++ {
				a, b := path[i-1], path[i]
				if a >= len(lmks) || b >= len(lmks) {
					continue
				}
				p0 := Point{X: lmks[a].X * scaleX, Y: lmks[a].Y * scaleY}
				p1 := Point{X: lmks[b].X * scaleX, Y: lmks[b].Y * scaleY}
				if addSegment(raster, p0, p1, half) {
					segments++
				}
			}
		}
		if segments > 0 {
			raster.Draw(canvas, canvas.Bounds(), image.NewUniform(part.Color), image.Point{})
		}
	}
	return canvas
}

// addSegment appends the quad covering p0-p1 at the given half width.
func addSegment(raster *vector.Rasterizer, p0, p1 Point, half float64) bool {
	dx, dy := p1.X-p0.X, p1.Y-p0.Y
	length := math.Hypot(dx, dy)
	if math.IsNaN(length) || math.IsInf(length, 0) {
		return false
	}
	var nx, ny float64
	if length < 1e-9 {
		// degenerate segment: draw a small square
		nx, ny = half, 0
		p0 = Point{X: p0.X, Y: p0.Y - half}
		p1 = Point{X: p1.X, Y: p1.Y + half}
	} else {
		nx, ny = -dy/length*half, dx/length*half
	}
	raster.MoveTo(float32(p0.X+nx), float32(p0.Y+ny))
	raster.LineTo(float32(p1.X+nx), float32(p1.Y+ny))
	raster.LineTo(float32(p1.X-nx), float32(p1.Y-ny))
	raster.LineTo(float32(p0.X-nx), float32(p0.Y-ny))
	raster.ClosePath()
	return true
}

package face

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"
)

func TestDrawConnectsLandmarks(t *testing.T) {
	vis := &Visualizer{
		Parts:     []Part{{Name: "line", Color: color.RGBA{R: 255, A: 255}, Paths: [][]int{{0, 1}}}},
		LineWidth: 2,
	}
	img := vis.Draw(image.Pt(32, 16), Landmarks2D{{X: 2, Y: 8}, {X: 30, Y: 8}}, false)

	if got := img.RGBAAt(16, 8); got.R < 200 {
		t.Fatalf("expected red on the segment, got %+v", got)
	}
	if got := img.RGBAAt(16, 2); got != (color.RGBA{A: 255}) {
		t.Fatalf("expected black background, got %+v", got)
	}
}

func TestDrawScalesNormalizedCoordinates(t *testing.T) {
	vis := &Visualizer{
		Parts:     []Part{{Name: "line", Color: color.RGBA{G: 255, A: 255}, Paths: [][]int{{0, 1}}}},
		LineWidth: 2,
	}
	img := vis.Draw(image.Pt(100, 50), Landmarks2D{{X: 0.5, Y: 0.1}, {X: 0.5, Y: 0.9}}, true)
	if got := img.RGBAAt(50, 25); got.G < 200 {
		t.Fatalf("expected green at the scaled midpoint, got %+v", got)
	}
}

func TestDrawSkipsMissingVertices(t *testing.T) {
	img := NewVisualizer().Draw(image.Pt(8, 8), Landmarks2D{{X: 1, Y: 1}}, false)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if got := img.RGBAAt(x, y); got != (color.RGBA{A: 255}) {
				t.Fatalf("pixel (%d,%d) = %+v, want black", x, y, got)
			}
		}
	}
}

func TestTopologyIndicesFitMesh(t *testing.T) {
	for _, part := range Topology {
		for _, path := range part.Paths {
			if len(path) < 2 {
				t.Fatalf("%s has a path with fewer than 2 vertices", part.Name)
			}
			for _, idx := range path {
				if idx < 0 || idx >= 478 {
					t.Fatalf("%s references vertex %d", part.Name, idx)
				}
			}
		}
	}
}

func TestSaveAndLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	src := image.NewRGBA(image.Rect(0, 0, 4, 3))
	src.Set(1, 1, color.RGBA{R: 9, G: 8, B: 7, A: 255})
	if err := SavePNG(path, src); err != nil {
		t.Fatalf("SavePNG: %v", err)
	}
	img, err := LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
}

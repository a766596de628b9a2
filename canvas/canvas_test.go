package canvas

import (
	"image/color"
	"testing"
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

func TestClearRect(t *testing.T) {
	tests := []struct {
		name       string
		x, y, w, h int
		want       bool
	}{
		{"inside", 2, 2, 4, 4, true},
		{"partly outside", -5, -5, 8, 8, true},
		{"fully outside", 100, 100, 4, 4, true},
		{"zero width", 0, 0, 0, 4, false},
		{"negative height", 0, 0, 4, -1, false},
		{"absurd", 0, 0, MaxClearExtent + 1, 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRaster(10, 10)
			r.FillRect(0, 0, 10, 10, white)
			if got := r.ClearRect(tt.x, tt.y, tt.w, tt.h); got != tt.want {
				t.Errorf("ClearRect = %v, want %v", got, tt.want)
			}
		})
	}

	r := NewRaster(10, 10)
	r.FillRect(0, 0, 10, 10, white)
	r.ClearRect(2, 2, 4, 4)
	if a := r.Image().RGBAAt(3, 3).A; a != 0 {
		t.Errorf("pixel inside cleared rect has alpha %d", a)
	}
	if a := r.Image().RGBAAt(0, 0).A; a != 255 {
		t.Errorf("pixel outside cleared rect has alpha %d", a)
	}
}

func TestFillPolygon(t *testing.T) {
	r := NewRaster(20, 20)
	r.FillPolygon([]Point{{0, 10}, {20, 10}, {20, 20}, {0, 20}}, white)

	if a := r.Image().RGBAAt(10, 15).A; a != 255 {
		t.Errorf("inside alpha = %d, want 255", a)
	}
	if a := r.Image().RGBAAt(10, 5).A; a != 0 {
		t.Errorf("outside alpha = %d, want 0", a)
	}

	// Degenerate polygons are ignored.
	r2 := NewRaster(5, 5)
	r2.FillPolygon([]Point{{0, 0}, {4, 4}}, white)
	for _, p := range r2.Image().Pix {
		if p != 0 {
			t.Fatal("two-point polygon drew pixels")
		}
	}
}

func TestBlitAlpha(t *testing.T) {
	src := NewRaster(2, 2)
	src.FillRect(0, 0, 2, 2, white)

	dst := NewRaster(10, 10)
	rect := dst.Blit(src, 4, 4, 0.5)
	if rect.Dx() != 2 || rect.Dy() != 2 || rect.Min.X != 4 {
		t.Errorf("touched rect = %v", rect)
	}
	a := dst.Image().RGBAAt(4, 4).A
	if a < 126 || a > 129 {
		t.Errorf("half-alpha blit alpha = %d", a)
	}
	if dst.Image().RGBAAt(3, 3).A != 0 {
		t.Error("blit leaked outside its rectangle")
	}

	clipped := dst.Blit(src, 9, 9, 1)
	if clipped.Dx() != 1 || clipped.Dy() != 1 {
		t.Errorf("clipped rect = %v", clipped)
	}
	if r := dst.Blit(src, 0, 0, 0); !r.Empty() {
		t.Error("zero alpha blit should touch nothing")
	}
}

func TestHeapDestroy(t *testing.T) {
	var p Provider = Heap{}
	r := p.Create(8, 4)
	if r.Width() != 8 || r.Height() != 4 {
		t.Fatalf("size = %dx%d", r.Width(), r.Height())
	}
	p.Destroy(r)
	if !r.Bounds().Empty() {
		t.Error("destroyed raster still has pixels")
	}
	p.Destroy(nil)
}

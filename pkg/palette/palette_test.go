package palette

import (
	"image"
	"image/color"
	"image/draw"
	"testing"
)

func fill(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func TestBandUniform(t *testing.T) {
	red := color.RGBA{R: 200, A: 255}
	s := Band(fill(400, 300, red), 250, 50)
	if s.Dominant != red {
		t.Errorf("Dominant = %v, want %v", s.Dominant, red)
	}
	// dark dominant, no distinct second bucket
	if s.Secondary != white {
		t.Errorf("Secondary = %v, want white", s.Secondary)
	}

	s = Band(fill(400, 300, color.RGBA{R: 240, G: 240, B: 230, A: 255}), 0, 300)
	if s.Secondary != black {
		t.Errorf("Secondary = %v, want black", s.Secondary)
	}
}

func TestBandTwoTone(t *testing.T) {
	img := fill(1000, 200, color.White)
	draw.Draw(img, image.Rect(700, 0, 1000, 200), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)

	s := Band(img, 100, 100)
	if b := Brightness(s.Dominant); b < 240 {
		t.Errorf("Dominant %v brightness = %.1f, want >= 240", s.Dominant, b)
	}
	if b := Brightness(s.Secondary); b > 20 {
		t.Errorf("Secondary %v brightness = %.1f, want <= 20", s.Secondary, b)
	}
	if d := Distance(s.Dominant, s.Secondary); d <= minDistance {
		t.Errorf("distance = %.1f, want > %d", d, minDistance)
	}
}

func TestBandDeterministic(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8((x * y) % 256), A: 255})
		}
	}

	first := Bottom(img, 0.15)
	for i := 0; i < 5; i++ {
		if got := Bottom(img, 0.15); got != first {
			t.Fatalf("run %d: %+v != %+v", i, got, first)
		}
	}
}

func TestBandOutside(t *testing.T) {
	s := Band(fill(50, 50, color.White), 80, 10)
	if s.Dominant != black || s.Secondary != white {
		t.Errorf("Band() outside image = %+v", s)
	}
}

func TestBrightness(t *testing.T) {
	if b := Brightness(white); b < 254.9 || b > 255.1 {
		t.Errorf("Brightness(white) = %f", b)
	}
	if b := Brightness(black); b != 0 {
		t.Errorf("Brightness(black) = %f", b)
	}
}

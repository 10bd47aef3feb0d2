package style

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/tstromberg/framemark/pkg/layout"
)

func uniform(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func plan(bh float64) layout.Plan {
	return layout.Plan{Sizes: layout.Sizes{BannerHeight: bh, MainFont: bh * layout.MainFontRatio}, Scale: 1}
}

func near(a, b uint8) bool {
	d := int(a) - int(b)
	return d >= -2 && d <= 2
}

func TestResolveFixed(t *testing.T) {
	src := uniform(300, 200, color.RGBA{R: 10, G: 200, B: 30, A: 255})
	s := layout.DefaultSettings()

	tests := []struct {
		style layout.Style
		bg    color.RGBA
		text  color.RGBA
		dark  bool
	}{
		{layout.Black, black, white, true},
		{layout.White, white, black, false},
	}
	for _, tc := range tests {
		t.Run(tc.style.String(), func(t *testing.T) {
			b := Resolve(src, s.WithStyle(tc.style), plan(36))
			if got := b.Background.Bounds(); got != image.Rect(0, 0, 300, 36) {
				t.Errorf("background bounds = %v", got)
			}
			if got := b.Background.RGBAAt(150, 18); got != tc.bg {
				t.Errorf("background = %v, want %v", got, tc.bg)
			}
			if b.Text != tc.text {
				t.Errorf("text = %v, want %v", b.Text, tc.text)
			}
			if b.Shadow {
				t.Errorf("shadow enabled for %s", tc.style)
			}
			if b.Dark != tc.dark {
				t.Errorf("dark = %v, want %v", b.Dark, tc.dark)
			}
		})
	}
}

func TestResolveAdaptive(t *testing.T) {
	navy := color.RGBA{R: 20, G: 40, B: 200, A: 255}
	b := Resolve(uniform(300, 200, navy), layout.DefaultSettings().WithStyle(layout.Adaptive), plan(40))

	if got := b.Background.RGBAAt(0, 0); got != navy {
		t.Errorf("fill = %v, want %v", got, navy)
	}
	if b.Text != white {
		t.Errorf("text on navy = %v, want white", b.Text)
	}
	if !b.Shadow || b.ShadowColor != black {
		t.Errorf("shadow = %v/%v, want black shadow", b.Shadow, b.ShadowColor)
	}
	if b.ShadowOpacity != ShadowOpacity {
		t.Errorf("opacity = %f", b.ShadowOpacity)
	}
	if b.ShadowRadius != 0.8*8 {
		t.Errorf("radius = %f, want %f", b.ShadowRadius, 0.8*8)
	}

	cream := color.RGBA{R: 250, G: 240, B: 220, A: 255}
	b = Resolve(uniform(300, 200, cream), layout.DefaultSettings().WithStyle(layout.Adaptive), plan(40))
	if b.Text != black || b.ShadowColor != white {
		t.Errorf("on cream: text=%v shadow=%v", b.Text, b.ShadowColor)
	}
}

func TestResolveAdaptiveText(t *testing.T) {
	src := uniform(400, 200, color.RGBA{R: 240, G: 240, B: 240, A: 255})
	// a red stripe across the sampled band, smaller than the background
	draw.Draw(src, image.Rect(300, 0, 400, 200), &image.Uniform{C: color.RGBA{R: 220, A: 255}}, image.Point{}, draw.Src)

	s := layout.DefaultSettings().WithStyle(layout.Adaptive)
	s.AdaptiveText = true
	b := Resolve(src, s, plan(40))

	if b.Text.R < 200 || b.Text.G > 30 || b.Text.B > 30 {
		t.Errorf("adaptive text = %v, want the sampled red", b.Text)
	}
	if !b.Shadow {
		t.Errorf("shadow disabled")
	}
}

func TestResolveBlur(t *testing.T) {
	gray := color.RGBA{R: 200, G: 200, B: 200, A: 255}
	for _, intensity := range []int{0, 5, 40} {
		s := layout.DefaultSettings().WithStyle(layout.Blur)
		s.BlurIntensity = intensity

		b := Resolve(uniform(300, 200, gray), s, plan(30))
		if got := b.Background.Bounds(); got != image.Rect(0, 0, 300, 30) {
			t.Fatalf("intensity %d: bounds = %v", intensity, got)
		}
		for _, pt := range []image.Point{{0, 0}, {150, 15}, {299, 29}} {
			c := b.Background.RGBAAt(pt.X, pt.Y)
			if !near(c.R, 200) || !near(c.G, 200) || !near(c.B, 200) {
				t.Errorf("intensity %d: pixel %v = %v, want ~%v", intensity, pt, c, gray)
			}
		}
		if b.Text != black {
			t.Errorf("intensity %d: text = %v, want black over a bright band", intensity, b.Text)
		}
		if !b.Shadow || b.ShadowColor != white {
			t.Errorf("intensity %d: shadow = %v/%v", intensity, b.Shadow, b.ShadowColor)
		}
	}
}

func TestResolveBlurTallBanner(t *testing.T) {
	b := Resolve(uniform(100, 20, color.RGBA{R: 30, G: 30, B: 30, A: 255}), layout.DefaultSettings().WithStyle(layout.Blur), plan(40))
	if got := b.Background.Bounds(); got != image.Rect(0, 0, 100, 40) {
		t.Errorf("bounds = %v", got)
	}
	if b.Text != white {
		t.Errorf("text = %v, want white over a dark band", b.Text)
	}
}

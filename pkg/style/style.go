// Package style decides banner background, text colors and shadow.
package style

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/transform"
	"k8s.io/klog/v2"

	"github.com/tstromberg/framemark/pkg/layout"
	"github.com/tstromberg/framemark/pkg/palette"
)

var (
	black     = color.RGBA{A: 255}
	white     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	lightGray = color.RGBA{R: 180, G: 180, B: 180, A: 255}
	midGray   = color.RGBA{R: 102, G: 102, B: 102, A: 255}
)

const (
	// SampleFraction is the share of the image, from the bottom, sampled for colors.
	SampleFraction = 0.15

	blurTextThreshold     = 160
	adaptiveTextThreshold = 128

	ShadowOpacity = 0.30
	ShadowRadius  = 0.8

	blurWorkingRadius = 8
)

// Banner is the resolved look of one banner.
type Banner struct {
	// Background is exactly banner-sized with its origin at (0,0).
	Background *image.RGBA

	Text      color.RGBA
	Secondary color.RGBA

	Shadow        bool
	ShadowColor   color.RGBA
	ShadowOpacity float64
	ShadowRadius  float64

	// Dark reports a dark background, which light logos need to stand out against.
	Dark bool
}

// Resolve styles the banner for src according to s, sized by p.
func Resolve(src image.Image, s layout.Settings, p layout.Plan) Banner {
	w, h := src.Bounds().Dx(), p.BannerPixels()
	var b Banner

	switch s.Style {
	case layout.Black:
		b = Banner{Background: solid(w, h, black), Text: white, Secondary: lightGray, Dark: true}
	case layout.Blur:
		sample := palette.Bottom(src, SampleFraction)
		b = Banner{Background: blurred(src, w, h, s.BlurIntensity), Dark: palette.Brightness(sample.Dominant) < 128}
		if palette.Brightness(sample.Dominant) > blurTextThreshold {
			b.Text, b.Secondary = black, color.RGBA{R: 40, G: 40, B: 40, A: 255}
		} else {
			b.Text, b.Secondary = white, color.RGBA{R: 230, G: 230, B: 230, A: 255}
		}
		b = withShadow(b, p)
	case layout.Adaptive:
		sample := palette.Bottom(src, SampleFraction)
		fill := sample.Dominant
		b = Banner{Background: solid(w, h, fill), Dark: palette.Brightness(fill) < 128}
		switch {
		case s.AdaptiveText:
			b.Text, b.Secondary = sample.Secondary, mix(sample.Secondary, fill, 0.35)
		case palette.Brightness(fill) >= adaptiveTextThreshold:
			b.Text, b.Secondary = black, color.RGBA{R: 64, G: 64, B: 64, A: 255}
		default:
			b.Text, b.Secondary = white, color.RGBA{R: 200, G: 200, B: 200, A: 255}
		}
		b = withShadow(b, p)
	default:
		b = Banner{Background: solid(w, h, white), Text: black, Secondary: midGray}
	}

	klog.V(1).Infof("style %s: text=%v secondary=%v shadow=%v dark=%v", s.Style, b.Text, b.Secondary, b.Shadow, b.Dark)
	return b
}

// withShadow enables a soft contact shadow that contrasts with the text.
func withShadow(b Banner, p layout.Plan) Banner {
	b.Shadow = true
	b.ShadowOpacity = ShadowOpacity
	b.ShadowRadius = ShadowRadius * p.MainFont
	if palette.Brightness(b.Text) < 128 {
		b.ShadowColor = white
	} else {
		b.ShadowColor = black
	}
	return b
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

// blurred builds a w×h background from the bottom band of src. The band is
// edge-extended by twice the radius before blurring so the borders do not darken.
func blurred(src image.Image, w, h, intensity int) *image.RGBA {
	sb := src.Bounds()
	bandH := h
	if bandH > sb.Dy() {
		bandH = sb.Dy()
	}
	band := rebase(transform.Crop(src, image.Rect(sb.Min.X, sb.Max.Y-bandH, sb.Max.X, sb.Max.Y)))
	if bandH != h {
		band = transform.Resize(band, w, h, transform.Linear)
	}
	if intensity <= 0 {
		return band
	}

	pad := 2 * intensity
	ext := clone.Pad(band, pad, pad, clone.EdgeExtend)
	soft := Soften(ext, float64(intensity))
	return rebase(transform.Crop(soft, image.Rect(pad, pad, pad+w, pad+h)))
}

// Soften applies a Gaussian blur. Radii above blurWorkingRadius blur a
// downscaled copy that is scaled back up.
func Soften(img *image.RGBA, radius float64) *image.RGBA {
	img = rebase(img)
	if radius <= blurWorkingRadius {
		return blur.Gaussian(img, radius)
	}

	f := radius / blurWorkingRadius
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	sw := int(math.Max(1, math.Round(float64(w)/f)))
	sh := int(math.Max(1, math.Round(float64(h)/f)))
	small := blur.Gaussian(transform.Resize(img, sw, sh, transform.Linear), blurWorkingRadius)
	return transform.Resize(small, w, h, transform.Linear)
}

// rebase copies img so that its bounds start at (0,0).
func rebase(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	if b.Min == (image.Point{}) {
		return img
	}
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

func mix(a, b color.RGBA, t float64) color.RGBA {
	l := func(x, y uint8) uint8 { return uint8(math.Round(float64(x)*(1-t) + float64(y)*t)) }
	return color.RGBA{R: l(a.R, b.R), G: l(a.G, b.G), B: l(a.B, b.B), A: 255}
}

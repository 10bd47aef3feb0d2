package logo

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"

	// raster logo formats
	_ "image/jpeg"
	_ "image/png"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/transform"
	"github.com/fogleman/gg"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Glyph is a decoded logo that can be drawn at any size.
type Glyph interface {
	// Aspect is width divided by height.
	Aspect() float64
	Rasterize(w, h int) (*image.RGBA, error)
}

// Decode parses SVG or raster bytes.
func Decode(bs []byte) (Glyph, error) {
	if isSVG(bs) {
		icon, err := oksvg.ReadIconStream(bytes.NewReader(bs), oksvg.IgnoreErrorMode)
		if err != nil {
			return nil, fmt.Errorf("svg: %v: %w", err, ErrDecode)
		}
		if icon.ViewBox.W <= 0 || icon.ViewBox.H <= 0 {
			return nil, fmt.Errorf("svg has empty viewbox: %w", ErrDecode)
		}
		return &svgGlyph{data: bs, aspect: icon.ViewBox.W / icon.ViewBox.H}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("raster: %v: %w", err, ErrDecode)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("empty raster: %w", ErrDecode)
	}
	return &rasterGlyph{img: img}, nil
}

func isSVG(bs []byte) bool {
	head := bs
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}

// svgGlyph keeps the source and re-parses per draw, since oksvg icons carry their transform.
type svgGlyph struct {
	data   []byte
	aspect float64
}

func (g *svgGlyph) Aspect() float64 { return g.aspect }

func (g *svgGlyph) Rasterize(w, h int) (*image.RGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid size %dx%d", w, h)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(g.data), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)
	return dst, nil
}

type rasterGlyph struct {
	img image.Image
}

func (g *rasterGlyph) Aspect() float64 {
	b := g.img.Bounds()
	return float64(b.Dx()) / float64(b.Dy())
}

func (g *rasterGlyph) Rasterize(w, h int) (*image.RGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid size %dx%d", w, h)
	}
	return transform.Resize(g.img, w, h, transform.Lanczos), nil
}

// Placeholder draws the rounded rectangle used when no logo could be loaded.
func Placeholder(w, h int, c color.Color) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	dc := gg.NewContextForRGBA(dst)
	r := 0.2 * math.Min(float64(w), float64(h))
	dc.DrawRoundedRectangle(0, 0, float64(w), float64(h), r)
	dc.SetColor(c)
	dc.Fill()
	return dst
}

// Invert flips brightness and keeps alpha. Pixels are premultiplied, so the
// inverse of a channel is alpha minus the channel.
func Invert(img image.Image) *image.RGBA {
	return adjust.Apply(img, func(c color.RGBA) color.RGBA {
		return color.RGBA{R: c.A - c.R, G: c.A - c.G, B: c.A - c.B, A: c.A}
	})
}

// Tone summarizes the visible pixels of a logo.
type Tone struct {
	// Luminance is the mean brightness of visible pixels, 0-255.
	Luminance  float64
	Monochrome bool
}

// Analyze measures the tone of img, ignoring pixels that are mostly transparent.
func Analyze(img *image.RGBA) Tone {
	var sum float64
	var n, gray int
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.RGBAAt(x, y)
			if c.A < 64 {
				continue
			}
			// un-premultiply
			r := float64(c.R) * 255 / float64(c.A)
			g := float64(c.G) * 255 / float64(c.A)
			bl := float64(c.B) * 255 / float64(c.A)
			sum += 0.299*r + 0.587*g + 0.114*bl
			if math.Max(r, math.Max(g, bl))-math.Min(r, math.Min(g, bl)) < 40 {
				gray++
			}
			n++
		}
	}
	if n == 0 {
		return Tone{}
	}
	return Tone{Luminance: sum / float64(n), Monochrome: float64(gray)/float64(n) >= 0.9}
}

// NeedsInvert reports whether a monochrome logo would vanish into the banner:
// a dark logo on a dark banner or a light logo on a light one.
func NeedsInvert(t Tone, darkBanner bool) bool {
	if !t.Monochrome {
		return false
	}
	if darkBanner {
		return t.Luminance < 100
	}
	return t.Luminance > 155
}

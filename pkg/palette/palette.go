// Package palette samples representative colors from a horizontal band of an image.
package palette

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/anthonynsimon/bild/transform"
)

const (
	sampleW = 100
	sampleH = 10

	// quantum is the per-channel bucket divisor.
	quantum = 32

	// minDistance is the RGB distance a secondary color must keep from the dominant one.
	minDistance = 60
)

var (
	black = color.RGBA{A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Sample is the result of sampling a band.
type Sample struct {
	Dominant  color.RGBA
	Secondary color.RGBA
}

type bucket struct {
	r, g, b int
	n       int
}

func (b bucket) mean() color.RGBA {
	return color.RGBA{R: uint8(b.r / b.n), G: uint8(b.g / b.n), B: uint8(b.b / b.n), A: 255}
}

// Band samples rows [y, y+height) of img. The band is clamped to the image.
func Band(img image.Image, y, height int) Sample {
	b := img.Bounds()
	r := image.Rect(b.Min.X, b.Min.Y+y, b.Max.X, b.Min.Y+y+height).Intersect(b)
	if r.Empty() {
		return Sample{Dominant: black, Secondary: white}
	}

	small := transform.Resize(transform.Crop(img, r), sampleW, sampleH, transform.Linear)
	return fromPixels(small)
}

// Bottom samples the lowest fraction of img.
func Bottom(img image.Image, fraction float64) Sample {
	h := img.Bounds().Dy()
	bh := int(math.Ceil(float64(h) * fraction))
	return Band(img, h-bh, bh)
}

func fromPixels(img *image.RGBA) Sample {
	index := map[[3]uint8]int{}
	var buckets []bucket

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.RGBAAt(x, y)
			key := [3]uint8{c.R / quantum, c.G / quantum, c.B / quantum}
			i, ok := index[key]
			if !ok {
				i = len(buckets)
				index[key] = i
				buckets = append(buckets, bucket{})
			}
			buckets[i].r += int(c.R)
			buckets[i].g += int(c.G)
			buckets[i].b += int(c.B)
			buckets[i].n++
		}
	}

	if len(buckets) == 0 {
		return Sample{Dominant: black, Secondary: white}
	}

	// stable so that ties keep first-seen order
	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].n > buckets[j].n })

	s := Sample{Dominant: buckets[0].mean()}
	for _, bk := range buckets[1:] {
		c := bk.mean()
		if Distance(s.Dominant, c) > minDistance {
			s.Secondary = c
			return s
		}
	}

	if Brightness(s.Dominant) >= 128 {
		s.Secondary = black
	} else {
		s.Secondary = white
	}
	return s
}

// Brightness is the perceived luminance of c on a 0-255 scale.
func Brightness(c color.RGBA) float64 {
	return 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
}

// Distance is the Euclidean distance between two colors in RGB space.
func Distance(a, b color.RGBA) float64 {
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

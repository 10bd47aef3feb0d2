package render

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/tstromberg/framemark/pkg/layout"
)

// Fonts holds the parsed regular and bold faces. It is read-only once loaded.
type Fonts struct {
	regular *opentype.Font
	bold    *opentype.Font
}

// DefaultFonts returns the Go fonts.
func DefaultFonts() (*Fonts, error) {
	return LoadFonts("", "")
}

// LoadFonts reads TrueType/OpenType files; an empty path selects the Go font for that weight.
func LoadFonts(regularPath, boldPath string) (*Fonts, error) {
	r, err := loadFont(regularPath, goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("regular font: %w", err)
	}
	b, err := loadFont(boldPath, gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("bold font: %w", err)
	}
	return &Fonts{regular: r, bold: b}, nil
}

func loadFont(path string, fallback []byte) (*opentype.Font, error) {
	bs := fallback
	if path != "" {
		var err error
		bs, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
	}
	f, err := opentype.Parse(bs)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return f, nil
}

type faceKey struct {
	w    layout.Weight
	size float64
}

// Faces creates and caches faces for one render. Faces keep scratch buffers,
// so a Faces value must not be shared between goroutines.
type Faces struct {
	fonts *Fonts
	cache map[faceKey]font.Face
}

// Faces returns an empty face cache backed by f.
func (f *Fonts) Faces() *Faces {
	return &Faces{fonts: f, cache: map[faceKey]font.Face{}}
}

// Face returns the face for a weight at a pixel size.
func (fs *Faces) Face(w layout.Weight, size float64) (font.Face, error) {
	k := faceKey{w: w, size: size}
	if f, ok := fs.cache[k]; ok {
		return f, nil
	}

	src := fs.fonts.regular
	if w == layout.Bold {
		src = fs.fonts.bold
	}
	f, err := opentype.NewFace(src, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, fmt.Errorf("face %.1fpx: %w", size, err)
	}
	fs.cache[k] = f
	return f, nil
}

// Width implements layout.Measurer.
func (fs *Faces) Width(text string, size float64, w layout.Weight) float64 {
	if text == "" || size <= 0 {
		return 0
	}
	f, err := fs.Face(w, size)
	if err != nil {
		return 0
	}
	return float64(font.MeasureString(f, text)) / 64
}

// CapHeight is the height of capital letters above the baseline, in pixels.
func (fs *Faces) CapHeight(w layout.Weight, size float64) float64 {
	f, err := fs.Face(w, size)
	if err != nil {
		return size * 0.7
	}
	m := f.Metrics()
	if m.CapHeight > 0 {
		return float64(m.CapHeight) / 64
	}
	return float64(m.Ascent) / 64 * 0.7
}

package layout

import (
	"math"
)

// Weight selects the font face.
type Weight int

const (
	Regular Weight = iota
	Bold
)

// Measurer reports the advance width in pixels of text set at size.
type Measurer interface {
	Width(text string, size float64, w Weight) float64
}

// Separator is drawn between adjacent items of a group.
const Separator = "|"

// Proportions of the banner, relative to the shorter image edge or to banner height.
const (
	BannerRatio   = 0.12
	MinBanner     = 40
	MainFontRatio = 0.20
	SubFontRatio  = 0.15
	PaddingRatio  = 0.40
	LogoRatio     = 0.38
	LogoGapRatio  = 0.10
	LineGapRatio  = 0.08
	CenterGap     = 0.5
	MaxLogoRatio  = 2.5
	SeparatorSpan = 2.5
)

// Sizes are the scalable banner dimensions in pixels.
type Sizes struct {
	BannerHeight float64
	MainFont     float64
	SubFont      float64
	Padding      float64
	LogoHeight   float64
	LogoWidth    float64
	LogoGap      float64
	LineGap      float64
}

// Scaled multiplies every dimension by f.
func (z Sizes) Scaled(f float64) Sizes {
	return Sizes{
		BannerHeight: z.BannerHeight * f,
		MainFont:     z.MainFont * f,
		SubFont:      z.SubFont * f,
		Padding:      z.Padding * f,
		LogoHeight:   z.LogoHeight * f,
		LogoWidth:    z.LogoWidth * f,
		LogoGap:      z.LogoGap * f,
		LineGap:      z.LineGap * f,
	}
}

// Nominal derives unscaled sizes from image dimensions. logoAspect is width/height
// of the logo; values <= 0 are treated as square.
func Nominal(imageW, imageH int, logoAspect float64) Sizes {
	ref := math.Min(float64(imageW), float64(imageH))
	bh := math.Max(MinBanner, math.Round(ref*BannerRatio))

	if logoAspect <= 0 || math.IsNaN(logoAspect) || math.IsInf(logoAspect, 0) {
		logoAspect = 1
	}
	lh := bh * LogoRatio
	lw := lh * logoAspect
	if maxW := bh * MaxLogoRatio; lw > maxW {
		lw = maxW
		lh = lw / logoAspect
	}

	return Sizes{
		BannerHeight: bh,
		MainFont:     bh * MainFontRatio,
		SubFont:      bh * SubFontRatio,
		Padding:      bh * PaddingRatio,
		LogoHeight:   lh,
		LogoWidth:    lw,
		LogoGap:      bh * LogoGapRatio,
		LineGap:      bh * LineGapRatio,
	}
}

// Plan is the measured layout of a single render.
type Plan struct {
	ImageWidth  int
	ImageHeight int
	Sizes

	// Separator widths on line 1 and line 2.
	SepMain float64
	SepSub  float64

	// Group widths indexed by [side][line], side 0 = left, 1 = right; line 0 = line 1.
	Groups [2][2]float64

	LeftTotal  float64
	RightTotal float64

	// LogoSide is Off when no logo is drawn.
	LogoSide Side
	Scale    float64

	// Fitted is set once Fit has run; later calls return the plan unchanged.
	Fitted bool
}

func sideIndex(s Side) int {
	if s == Right {
		return 1
	}
	return 0
}

// Group returns the measured width of a (side, line) group.
func (p Plan) Group(side Side, line int) float64 {
	return p.Groups[sideIndex(side)][line-1]
}

// Required is the width the banner needs, including padding and the center gap.
func (p Plan) Required() float64 {
	return p.LeftTotal + p.RightTotal + 2*p.Padding + CenterGap*p.BannerHeight
}

// Overflows reports whether the content is wider than the image.
func (p Plan) Overflows() bool {
	return p.Required() > float64(p.ImageWidth)
}

// BannerPixels is the banner height rounded to whole pixels.
func (p Plan) BannerPixels() int {
	return int(math.Round(p.BannerHeight))
}

// Measure computes group widths at nominal sizes. It does not draw.
func Measure(m Measurer, s Settings, imageW, imageH int, logoAspect float64) Plan {
	p := Plan{
		ImageWidth:  imageW,
		ImageHeight: imageH,
		Sizes:       Nominal(imageW, imageH, logoAspect),
		LogoSide:    s.LogoSide,
		Scale:       1,
	}
	return remeasure(m, s, p)
}

// remeasure recomputes the width fields of p at its current Sizes.
func remeasure(m Measurer, s Settings, p Plan) Plan {
	p.SepMain = m.Width(Separator, p.MainFont, Bold) * SeparatorSpan
	p.SepSub = m.Width(Separator, p.SubFont, Regular) * SeparatorSpan

	for _, side := range []Side{Left, Right} {
		si := sideIndex(side)
		p.Groups[si][0] = groupWidth(m, s.Texts(side, 1), p.MainFont, Bold, p.SepMain)
		p.Groups[si][1] = groupWidth(m, s.Texts(side, 2), p.SubFont, Regular, p.SepSub)

		total := math.Max(p.Groups[si][0], p.Groups[si][1])
		if p.LogoSide == side {
			hasText := total > 0
			total += p.LogoWidth + p.LogoGap
			if hasText {
				total += p.SepMain
			}
		}
		if side == Left {
			p.LeftTotal = total
		} else {
			p.RightTotal = total
		}
	}
	return p
}

func groupWidth(m Measurer, texts []string, size float64, w Weight, sep float64) float64 {
	total := 0.0
	for i, t := range texts {
		if i > 0 {
			total += sep
		}
		total += m.Width(t, size, w)
	}
	return total
}

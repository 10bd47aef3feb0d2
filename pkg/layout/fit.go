package layout

import (
	"math"

	"k8s.io/klog/v2"
)

// MinScale is the smallest factor the banner is ever shrunk by.
const MinScale = 0.6

// Fit shrinks an overflowing plan uniformly, once. A plan that already fits keeps its sizes.
// If the floor is reached and content still overflows, it is left to clip.
// Glyph advances do not scale exactly linearly, so a fitted plan may still
// exceed the width by a fraction of a pixel; Fitted keeps it from shrinking again.
func Fit(m Measurer, s Settings, p Plan) Plan {
	if p.Fitted {
		return p
	}
	p.Fitted = true
	if !p.Overflows() {
		return p
	}

	req := p.Required()
	scale := math.Max(MinScale, float64(p.ImageWidth)/req)
	klog.V(1).Infof("banner overflow: need %.0fpx of %dpx, scaling by %.3f", req, p.ImageWidth, scale)

	p.Sizes = p.Sizes.Scaled(scale)
	p.Scale *= scale
	p = remeasure(m, s, p)

	if p.Overflows() {
		klog.V(1).Infof("banner still overflows by %.0fpx at scale %.3f; content will clip", p.Required()-float64(p.ImageWidth), p.Scale)
	}
	return p
}

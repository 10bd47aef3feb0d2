package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"k8s.io/klog/v2"

	"github.com/tstromberg/framemark/pkg/layout"
	"github.com/tstromberg/framemark/pkg/logo"
	"github.com/tstromberg/framemark/pkg/style"
)

// textOp is one run of glyphs at an absolute canvas position.
type textOp struct {
	text     string
	weight   layout.Weight
	size     float64
	x        float64
	baseline float64
	color    color.RGBA
}

// box is the logo's position on the canvas.
type box struct {
	x, y, w, h float64
	ok         bool
}

func (r *run) draw() error {
	sb := r.src.Bounds()
	w, h := sb.Dx(), sb.Dy()
	bh := r.plan.BannerPixels()

	canvas := image.NewRGBA(image.Rect(0, 0, w, h+bh))
	draw.Draw(canvas, image.Rect(0, 0, w, h), r.src, sb.Min, draw.Src)
	draw.Draw(canvas, image.Rect(0, h, w, h+bh), r.banner.Background, image.Point{}, draw.Src)

	ops, lb := r.arrange(w, h)

	if r.banner.Shadow {
		if err := r.drawShadow(canvas, ops, w, h, bh); err != nil {
			return fmt.Errorf("shadow: %w", err)
		}
	}
	if lb.ok {
		r.logo = r.drawLogo(canvas, lb)
	}
	for _, op := range ops {
		if err := r.drawText(canvas, op, op.color, 0); err != nil {
			return fmt.Errorf("text %q: %w", op.text, err)
		}
	}

	r.canvas = canvas
	return nil
}

// arrange positions every text run and the logo. Left groups advance rightward
// from the left padding; right groups advance leftward from the right padding.
func (r *run) arrange(w, h int) ([]textOp, box) {
	p := r.plan
	cy := float64(h) + float64(p.BannerPixels())/2
	capMain := r.faces.CapHeight(layout.Bold, p.MainFont)
	capSub := r.faces.CapHeight(layout.Regular, p.SubFont)

	var ops []textOp
	var lb box

	for _, side := range []layout.Side{layout.Left, layout.Right} {
		line1 := r.settings.Texts(side, 1)
		line2 := r.settings.Texts(side, 2)

		base1, base2 := cy+capMain/2, cy+capSub/2
		if len(line1) > 0 && len(line2) > 0 {
			total := capMain + p.LineGap + capSub
			base1 = cy - total/2 + capMain
			base2 = base1 + p.LineGap + capSub
		}

		dir, cursor := 1.0, p.Padding
		if side == layout.Right {
			dir, cursor = -1.0, float64(w)-p.Padding
		}

		if p.LogoSide == side {
			x := cursor
			if dir < 0 {
				x = cursor - p.LogoWidth
			}
			lb = box{x: x, y: cy - p.LogoHeight/2, w: p.LogoWidth, h: p.LogoHeight, ok: true}
			cursor += dir * (p.LogoWidth + p.LogoGap)

			if len(line1)+len(line2) > 0 {
				ops = append(ops, r.separator(cursor, dir, p.SepMain, layout.Bold, p.MainFont, cy+capMain/2))
				cursor += dir * p.SepMain
			}
		}

		ops = append(ops, r.sequence(line1, cursor, dir, base1, layout.Bold, p.MainFont, p.SepMain)...)
		ops = append(ops, r.sequence(line2, cursor, dir, base2, layout.Regular, p.SubFont, p.SepSub)...)
	}
	return ops, lb
}

// sequence lays out texts starting at cursor, with separators only between items.
func (r *run) sequence(texts []string, cursor, dir, baseline float64, wt layout.Weight, size, sep float64) []textOp {
	var ops []textOp
	x := cursor
	for i, t := range texts {
		if i > 0 {
			ops = append(ops, r.separator(x, dir, sep, wt, size, baseline))
			x += dir * sep
		}
		tw := r.faces.Width(t, size, wt)
		start := x
		if dir < 0 {
			start = x - tw
		}
		ops = append(ops, textOp{text: t, weight: wt, size: size, x: start, baseline: baseline, color: r.banner.Text})
		x += dir * tw
	}
	return ops
}

// separator centers the separator glyph inside a slot of width slot that begins at cursor.
func (r *run) separator(cursor, dir, slot float64, wt layout.Weight, size, baseline float64) textOp {
	start := cursor
	if dir < 0 {
		start = cursor - slot
	}
	gw := r.faces.Width(layout.Separator, size, wt)
	return textOp{
		text:     layout.Separator,
		weight:   wt,
		size:     size,
		x:        start + (slot-gw)/2,
		baseline: baseline,
		color:    r.banner.Secondary,
	}
}

func (r *run) drawText(dst draw.Image, op textOp, c color.Color, dy float64) error {
	face, err := r.faces.Face(op.weight, op.size)
	if err != nil {
		return err
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(math.Round(op.x * 64)),
			Y: fixed.Int26_6(math.Round((op.baseline + dy) * 64)),
		},
	}
	d.DrawString(op.text)
	return nil
}

// drawShadow renders all text in the shadow color on a banner-sized layer,
// blurs it and blends it under the text at the shadow opacity.
func (r *run) drawShadow(canvas *image.RGBA, ops []textOp, w, h, bh int) error {
	layer := image.NewRGBA(image.Rect(0, 0, w, bh))
	for _, op := range ops {
		if err := r.drawText(layer, op, r.banner.ShadowColor, -float64(h)); err != nil {
			return err
		}
	}
	soft := style.Soften(layer, r.banner.ShadowRadius)
	mask := image.NewUniform(color.Alpha{A: uint8(math.Round(r.banner.ShadowOpacity * 255))})
	draw.DrawMask(canvas, image.Rect(0, h, w, h+bh), soft, image.Point{}, mask, image.Point{}, draw.Over)
	return nil
}

// drawLogo draws the glyph, or the placeholder if the glyph is missing or fails to rasterize.
func (r *run) drawLogo(canvas *image.RGBA, lb box) LogoState {
	w := int(math.Max(1, math.Round(lb.w)))
	h := int(math.Max(1, math.Round(lb.h)))
	x := int(math.Round(lb.x))
	y := int(math.Round(lb.y))

	state := LogoDrawn
	var img *image.RGBA
	if r.glyph != nil {
		var err error
		img, err = r.glyph.Rasterize(w, h)
		if err != nil {
			klog.Warningf("logo rasterize failed, using placeholder: %v", err)
			img = nil
		}
	}

	if img == nil {
		img = logo.Placeholder(w, h, r.banner.Secondary)
		state = LogoPlaceholder
	} else if logo.NeedsInvert(logo.Analyze(img), r.banner.Dark) {
		img = logo.Invert(img)
		state = LogoInverted
	}

	draw.Draw(canvas, image.Rect(x, y, x+w, y+h), img, img.Bounds().Min, draw.Over)
	return state
}

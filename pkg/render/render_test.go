package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tstromberg/framemark/pkg/layout"
	"github.com/tstromberg/framemark/pkg/logo"
	"github.com/tstromberg/framemark/pkg/meta"
)

var typical = meta.Capture{
	Make:         "NIKON CORPORATION",
	Model:        "NIKON Z 6",
	Lens:         "NIKKOR Z 24-70mm f/4 S",
	FocalLength:  "24mm",
	FNumber:      "f/1.8",
	ExposureTime: "1/125s",
	ISO:          "ISO100",
	DateTime:     "2023.07.14 09:05",
	GPSLabel:     "40.75, -73.99",
	Brand:        "NIKON",
}

const blackSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 200 100"><rect width="200" height="100" fill="#000"/></svg>`

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 90, A: 255})
		}
	}
	return img
}

// fixedSource skips decoding and always returns img.
func fixedSource(img image.Image) DecodeFunc {
	return func(context.Context, []byte) (image.Image, error) { return img, nil }
}

func newEngine(t *testing.T, opts ...func(*Engine) error) *Engine {
	t.Helper()
	e, err := New(opts...)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	return e
}

func checkJPEG(t *testing.T, res *Result) {
	t.Helper()
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(res.JPEG))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if cfg.Width != res.Width || cfg.Height != res.Height {
		t.Errorf("JPEG is %dx%d, result says %dx%d", cfg.Width, cfg.Height, res.Width, res.Height)
	}
}

func TestRenderTypicalWhite(t *testing.T) {
	e := newEngine(t, WithDecoder(fixedSource(gradient(4000, 3000))))
	c := typical
	res, err := e.Render(context.Background(), Request{Source: []byte("x"), Settings: layout.DefaultSettings(), Capture: &c})
	if err != nil {
		t.Fatalf("Render() = %v", err)
	}

	if res.Plan.Scale != 1 {
		t.Errorf("Scale = %f, want 1 (required %.0f of 4000)", res.Plan.Scale, res.Plan.Required())
	}
	if res.Plan.BannerPixels() != 360 {
		t.Errorf("banner = %d, want 360", res.Plan.BannerPixels())
	}
	if res.Width != 4000 || res.Height != 3360 {
		t.Errorf("output = %dx%d, want 4000x3360", res.Width, res.Height)
	}
	if res.Logo != LogoPlaceholder {
		t.Errorf("Logo = %v, want placeholder without a logo directory", res.Logo)
	}
	checkJPEG(t, res)
}

func TestRenderStylesKeepDimensions(t *testing.T) {
	src := gradient(900, 600)
	for _, st := range []layout.Style{layout.White, layout.Black, layout.Blur, layout.Adaptive} {
		t.Run(st.String(), func(t *testing.T) {
			e := newEngine(t, WithDecoder(fixedSource(src)))
			res, err := e.Render(context.Background(), Request{
				Settings: layout.DefaultSettings().WithStyle(st),
				Capture:  &typical,
			})
			if err != nil {
				t.Fatalf("Render() = %v", err)
			}
			if res.Width != 900 {
				t.Errorf("width = %d, want 900", res.Width)
			}
			if res.Height != 600+res.Plan.BannerPixels() {
				t.Errorf("height = %d, want %d", res.Height, 600+res.Plan.BannerPixels())
			}
			checkJPEG(t, res)
		})
	}
}

func TestRenderOverflowClamped(t *testing.T) {
	e := newEngine(t, WithDecoder(fixedSource(gradient(1200, 800))))
	s := layout.DefaultSettings().WithMetadata(typical).WithText(layout.FieldModel, strings.Repeat("Extremely long custom text ", 20))

	res, err := e.Render(context.Background(), Request{Settings: s})
	if err != nil {
		t.Fatalf("Render() = %v", err)
	}
	if res.Plan.Scale != layout.MinScale {
		t.Errorf("Scale = %f, want %f", res.Plan.Scale, layout.MinScale)
	}
	nominal := layout.Nominal(1200, 800, 1)
	if math.Abs(res.Plan.BannerHeight-nominal.BannerHeight*layout.MinScale) > 1e-9 {
		t.Errorf("BannerHeight = %f, want %f", res.Plan.BannerHeight, nominal.BannerHeight*layout.MinScale)
	}
	if math.Abs(res.Plan.MainFont-nominal.MainFont*layout.MinScale) > 1e-9 {
		t.Errorf("MainFont = %f, want %f", res.Plan.MainFont, nominal.MainFont*layout.MinScale)
	}
	if res.Height != 800+res.Plan.BannerPixels() {
		t.Errorf("height = %d", res.Height)
	}
}

// The banner is sized from the 1500px edge and needs about 1780px, so a
// 1600px wide source must shrink without reaching the floor.
func TestRenderOverflowScaled(t *testing.T) {
	e := newEngine(t, WithDecoder(fixedSource(gradient(1600, 1500))))
	s := layout.DefaultSettings().WithMetadata(typical).WithText(layout.FieldModel, "NIKON Z 6 with a rather long description of the camera")

	nominal := layout.Measure(goFaces(t), s, 1600, 1500, 1)
	if !nominal.Overflows() || nominal.Required()*layout.MinScale >= 1600 {
		t.Fatalf("nominal width %.1f does not exercise a partial scale of 1600px", nominal.Required())
	}

	res, err := e.Render(context.Background(), Request{Settings: s})
	if err != nil {
		t.Fatalf("Render() = %v", err)
	}
	if res.Plan.Scale >= 1 || res.Plan.Scale <= layout.MinScale {
		t.Fatalf("Scale = %f, want in (%f, 1)", res.Plan.Scale, layout.MinScale)
	}
	if math.Abs(res.Plan.Scale-1600/nominal.Required()) > 1e-9 {
		t.Errorf("Scale = %f, want %f", res.Plan.Scale, 1600/nominal.Required())
	}
	// glyph advances are rounded to 1/64px, so allow a pixel
	if res.Plan.Required() > 1600+1 {
		t.Errorf("scaled plan needs %.2fpx of 1600", res.Plan.Required())
	}
	if res.Width != 1600 || res.Height != 1500+res.Plan.BannerPixels() {
		t.Errorf("output = %dx%d", res.Width, res.Height)
	}
}

// goFaces returns a measurer backed by the Go fonts.
func goFaces(t *testing.T) *Faces {
	t.Helper()
	f, err := DefaultFonts()
	if err != nil {
		t.Fatalf("DefaultFonts() = %v", err)
	}
	return f.Faces()
}

func TestRenderLogo(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "nikon.svg"), []byte(blackSVG), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		style layout.Style
		want  LogoState
	}{
		{"black logo on white", layout.White, LogoDrawn},
		{"black logo on black", layout.Black, LogoInverted},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEngine(t, WithDecoder(fixedSource(gradient(900, 600))), WithLogos(logo.DirResolver{Dir: dir}))
			res, err := e.Render(context.Background(), Request{Settings: layout.DefaultSettings().WithStyle(tc.style), Capture: &typical})
			if err != nil {
				t.Fatalf("Render() = %v", err)
			}
			if res.Logo != tc.want {
				t.Errorf("Logo = %v, want %v", res.Logo, tc.want)
			}
			// 2:1 logo
			if math.Abs(res.Plan.LogoWidth-2*res.Plan.LogoHeight) > 1e-9 {
				t.Errorf("logo box %fx%f is not 2:1", res.Plan.LogoWidth, res.Plan.LogoHeight)
			}
		})
	}
}

func TestRenderCustomLogo(t *testing.T) {
	e := newEngine(t, WithDecoder(fixedSource(gradient(900, 600))))
	s := layout.DefaultSettings().WithCustomLogo([]byte(blackSVG))
	res, err := e.Render(context.Background(), Request{Settings: s, Capture: &typical})
	if err != nil {
		t.Fatalf("Render() = %v", err)
	}
	if res.Logo != LogoDrawn {
		t.Errorf("Logo = %v, want drawn", res.Logo)
	}

	s = layout.DefaultSettings().WithCustomLogo([]byte("not a logo"))
	res, err = e.Render(context.Background(), Request{Settings: s, Capture: &typical})
	if err != nil {
		t.Fatalf("Render() with broken logo = %v", err)
	}
	if res.Logo != LogoPlaceholder {
		t.Errorf("Logo = %v, want placeholder", res.Logo)
	}
}

func TestRenderNoLogo(t *testing.T) {
	e := newEngine(t, WithDecoder(fixedSource(gradient(900, 600))))
	s := layout.DefaultSettings()
	s.LogoSide = layout.Off
	res, err := e.Render(context.Background(), Request{Settings: s, Capture: &typical})
	if err != nil {
		t.Fatalf("Render() = %v", err)
	}
	if res.Logo != LogoNone {
		t.Errorf("Logo = %v, want none", res.Logo)
	}
}

func TestRenderTimeout(t *testing.T) {
	slow := func(ctx context.Context, _ []byte) (image.Image, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return gradient(10, 10), nil
		}
	}
	stubborn := func(context.Context, []byte) (image.Image, error) {
		time.Sleep(300 * time.Millisecond)
		return gradient(10, 10), nil
	}

	for name, fn := range map[string]DecodeFunc{"cancellable": slow, "ignores context": stubborn} {
		t.Run(name, func(t *testing.T) {
			e := newEngine(t, WithDecoder(fn), WithTimeout(50*time.Millisecond))
			res, err := e.Render(context.Background(), Request{Settings: layout.DefaultSettings()})
			if res != nil {
				t.Errorf("partial result returned: %+v", res)
			}
			if !errors.Is(err, ErrTimeout) {
				t.Fatalf("Render() error = %v, want ErrTimeout", err)
			}
			var se *StageError
			if !errors.As(err, &se) || se.Stage != LoadSource {
				t.Errorf("error = %#v, want StageError at load-source", err)
			}
		})
	}
}

func TestRenderBadSource(t *testing.T) {
	e := newEngine(t)
	res, err := e.Render(context.Background(), Request{Source: []byte("not an image"), Settings: layout.DefaultSettings()})
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
	if !errors.Is(err, ErrSourceDecode) {
		t.Fatalf("Render() error = %v, want ErrSourceDecode", err)
	}
	var se *StageError
	if !errors.As(err, &se) || se.Stage != LoadSource {
		t.Errorf("error = %v, want StageError at load-source", err)
	}
}

func TestRenderRealJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gradient(640, 480), nil); err != nil {
		t.Fatal(err)
	}
	e := newEngine(t)
	res, err := e.Render(context.Background(), Request{
		Source:   buf.Bytes(),
		Settings: layout.DefaultSettings(),
		Tags:     meta.Tags{"Make": "Canon", "Model": "EOS R5", "FNumber": "2.8"},
	})
	if err != nil {
		t.Fatalf("Render() = %v", err)
	}
	if res.Width != 640 || res.Height != 480+res.Plan.BannerPixels() {
		t.Errorf("output = %dx%d", res.Width, res.Height)
	}
	checkJPEG(t, res)
}

func TestRenderConcurrent(t *testing.T) {
	e := newEngine(t, WithDecoder(fixedSource(gradient(800, 600))))
	s := layout.DefaultSettings().WithStyle(layout.Adaptive)

	var g errgroup.Group
	results := make([]*Result, 6)
	for i := range results {
		g.Go(func() error {
			res, err := e.Render(context.Background(), Request{Settings: s, Capture: &typical})
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Render() = %v", err)
	}
	for i, res := range results[1:] {
		if !bytes.Equal(res.JPEG, results[0].JPEG) {
			t.Errorf("render %d differs from render 0", i+1)
		}
	}
}

func TestArrange(t *testing.T) {
	e := newEngine(t, WithDecoder(fixedSource(gradient(4000, 3000))))
	r := newRun(e, Request{Settings: layout.DefaultSettings(), Capture: &typical})
	ctx := context.Background()
	for r.stage != Draw {
		next, err := r.step(ctx)
		if err != nil {
			t.Fatalf("stage %s: %v", r.stage, err)
		}
		r.stage = next
	}

	ops, lb := r.arrange(4000, 3000)
	p := r.plan

	if !lb.ok || math.Abs(lb.x+lb.w-(4000-p.Padding)) > 1e-9 {
		t.Errorf("logo box %+v, want flush with right padding", lb)
	}

	seps := 0
	for _, op := range ops {
		w := r.faces.Width(op.text, op.size, op.weight)
		if op.x < p.Padding-1e-9 || op.x+w > 4000-p.Padding+1e-9 {
			t.Errorf("%q at %.1f..%.1f outside padding", op.text, op.x, op.x+w)
		}
		if op.baseline <= 3000 || op.baseline >= 3000+p.BannerHeight {
			t.Errorf("%q baseline %.1f outside banner", op.text, op.baseline)
		}
		if op.text == layout.Separator {
			seps++
		}
	}
	// right line 1: 3, right line 2: 1, logo: 1
	if seps != 5 {
		t.Errorf("separators = %d, want 5", seps)
	}

	// order 0 on the right side sits nearest the edge
	var iso, focal textOp
	for _, op := range ops {
		switch op.text {
		case "ISO100":
			iso = op
		case "24mm":
			focal = op
		}
	}
	if iso.x <= focal.x {
		t.Errorf("ISO100 at %.1f should be right of 24mm at %.1f", iso.x, focal.x)
	}
	wantEnd := 4000 - p.Padding - p.LogoWidth - p.LogoGap - p.SepMain
	if got := iso.x + r.faces.Width("ISO100", p.MainFont, layout.Bold); math.Abs(got-wantEnd) > 1e-6 {
		t.Errorf("ISO100 ends at %.2f, want %.2f", got, wantEnd)
	}
}

func TestDrawPixels(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 600, 400))
	draw.Draw(src, src.Bounds(), &image.Uniform{C: color.RGBA{R: 10, G: 120, B: 200, A: 255}}, image.Point{}, draw.Src)

	e := newEngine(t, WithDecoder(fixedSource(src)))
	r := newRun(e, Request{Settings: layout.DefaultSettings().WithStyle(layout.Black), Capture: &typical})
	for r.stage != Encode {
		next, err := r.step(context.Background())
		if err != nil {
			t.Fatalf("stage %s: %v", r.stage, err)
		}
		r.stage = next
	}

	if got := r.canvas.RGBAAt(300, 200); got != (color.RGBA{R: 10, G: 120, B: 200, A: 255}) {
		t.Errorf("source pixel = %v", got)
	}
	// bottom-left corner of the banner is background, not text
	if got := r.canvas.RGBAAt(1, r.canvas.Bounds().Dy()-1); got != (color.RGBA{A: 255}) {
		t.Errorf("banner corner = %v, want black", got)
	}
}

// Package render composites a metadata banner under a photo.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	// source formats
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/anthonynsimon/bild/imgio"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/tstromberg/framemark/pkg/layout"
	"github.com/tstromberg/framemark/pkg/logo"
	"github.com/tstromberg/framemark/pkg/meta"
	"github.com/tstromberg/framemark/pkg/style"
)

var (
	// DefaultTimeout bounds a render from source decode to encoded output.
	DefaultTimeout = 15 * time.Second

	// DefaultQuality is the JPEG quality of rendered output.
	DefaultQuality = 95
)

// DecodeFunc decodes source bytes into an image.
type DecodeFunc func(ctx context.Context, bs []byte) (image.Image, error)

// Engine renders banners. It is safe for concurrent use.
type Engine struct {
	fonts   *Fonts
	logos   logo.Resolver
	timeout time.Duration
	quality int
	decode  DecodeFunc
}

// New returns an Engine with the Go fonts, no logo directory, and default timeout and quality.
func New(opts ...func(*Engine) error) (*Engine, error) {
	e := &Engine{
		logos:   logo.None{},
		timeout: DefaultTimeout,
		quality: DefaultQuality,
		decode:  decodeImage,
	}
	for _, o := range opts {
		if err := o(e); err != nil {
			return nil, err
		}
	}
	if e.fonts == nil {
		f, err := DefaultFonts()
		if err != nil {
			return nil, fmt.Errorf("fonts: %w", err)
		}
		e.fonts = f
	}
	return e, nil
}

// WithFonts sets the fonts used for banner text.
func WithFonts(f *Fonts) func(*Engine) error {
	return func(e *Engine) error {
		e.fonts = f
		return nil
	}
}

// WithLogos sets where brand logos are looked up.
func WithLogos(r logo.Resolver) func(*Engine) error {
	return func(e *Engine) error {
		e.logos = r
		return nil
	}
}

// WithTimeout bounds each render.
func WithTimeout(d time.Duration) func(*Engine) error {
	return func(e *Engine) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", d)
		}
		e.timeout = d
		return nil
	}
}

// WithQuality sets JPEG quality, 1-100.
func WithQuality(q int) func(*Engine) error {
	return func(e *Engine) error {
		if q < 1 || q > 100 {
			return fmt.Errorf("quality %d outside [1,100]", q)
		}
		e.quality = q
		return nil
	}
}

// WithDecoder replaces the source image decoder.
func WithDecoder(fn DecodeFunc) func(*Engine) error {
	return func(e *Engine) error {
		e.decode = fn
		return nil
	}
}

func decodeImage(_ context.Context, bs []byte) (image.Image, error) {
	img, format, err := image.Decode(bytes.NewReader(bs))
	if err != nil {
		return nil, err
	}
	klog.V(2).Infof("decoded %s source: %v", format, img.Bounds())
	return img, nil
}

// Request is the input of one render.
type Request struct {
	Source   []byte
	Settings layout.Settings

	// Capture, if set, fills slot texts and selects the automatic logo.
	Capture *meta.Capture
	// Tags are normalized when Capture is nil.
	Tags meta.Tags
	// Brand overrides the logo key derived from metadata.
	Brand string
}

// Result is an encoded render.
type Result struct {
	JPEG   []byte
	Width  int
	Height int

	Plan  layout.Plan
	Style style.Banner
	Logo  LogoState
}

// LogoState describes what was drawn in the logo box.
type LogoState int

const (
	LogoNone LogoState = iota
	LogoDrawn
	LogoInverted
	LogoPlaceholder
)

// Render runs all stages, stopping at the first fatal error or when the timeout expires.
func (e *Engine) Render(ctx context.Context, req Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	r := newRun(e, req)
	start := time.Now()
	for r.stage != Done {
		if err := ctx.Err(); err != nil {
			return nil, r.fail(err)
		}

		st := time.Now()
		next, err := r.step(ctx)
		if err != nil {
			// a decoder that honors ctx reports the deadline as its own error
			if cerr := ctx.Err(); cerr != nil {
				err = cerr
			}
			return nil, r.fail(err)
		}
		klog.V(2).Infof("stage %s took %s", r.stage, time.Since(st))
		r.stage = next
	}

	klog.V(1).Infof("rendered %dx%d in %s (scale %.3f)", r.result.Width, r.result.Height, time.Since(start), r.plan.Scale)
	return r.result, nil
}

// run is the state of a single render.
type run struct {
	e        *Engine
	req      Request
	settings layout.Settings
	brand    string
	stage    Stage

	group   *errgroup.Group
	srcDone chan error

	src   image.Image
	glyph logo.Glyph

	faces  *Faces
	plan   layout.Plan
	banner style.Banner
	canvas *image.RGBA
	logo   LogoState
	result *Result
}

func newRun(e *Engine, req Request) *run {
	r := &run{e: e, req: req, settings: req.Settings, brand: meta.DefaultBrand, stage: LoadSource}

	c := req.Capture
	if c == nil && req.Tags != nil {
		n := meta.Normalize(req.Tags)
		c = &n
	}
	if c != nil {
		r.settings = r.settings.WithMetadata(*c)
		if c.Brand != "" {
			r.brand = c.Brand
		}
	}
	if req.Brand != "" {
		r.brand = req.Brand
	}
	return r
}

func (r *run) fail(err error) error {
	failed := r.stage
	r.stage = Failed
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s: %v", ErrTimeout, r.e.timeout, err)
	}
	klog.Errorf("render failed in %s: %v", failed, err)
	return &StageError{Stage: failed, Err: err}
}

func (r *run) step(ctx context.Context) (Stage, error) {
	switch r.stage {
	case LoadSource:
		return r.loadSource(ctx)
	case LoadLogo:
		return r.loadLogo(ctx)
	case Measure:
		r.faces = r.e.fonts.Faces()
		aspect := 1.0
		if r.glyph != nil {
			aspect = r.glyph.Aspect()
		}
		b := r.src.Bounds()
		r.plan = layout.Measure(r.faces, r.settings, b.Dx(), b.Dy(), aspect)
		return ResolveFit, nil
	case ResolveFit:
		r.plan = layout.Fit(r.faces, r.settings, r.plan)
		return Style, nil
	case Style:
		r.banner = style.Resolve(r.src, r.settings, r.plan)
		return Draw, nil
	case Draw:
		if err := r.draw(); err != nil {
			return Failed, err
		}
		return Encode, nil
	case Encode:
		return r.encode()
	}
	return Failed, fmt.Errorf("unexpected stage %s", r.stage)
}

// loadSource starts source and logo decoding together and waits for the source.
func (r *run) loadSource(ctx context.Context) (Stage, error) {
	g, gctx := errgroup.WithContext(ctx)
	r.group = g
	r.srcDone = make(chan error, 1)

	g.Go(func() error {
		img, err := r.e.decode(gctx, r.req.Source)
		if err == nil && img.Bounds().Empty() {
			err = errors.New("empty image")
		}
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrSourceDecode, err)
		} else {
			r.src = img
		}
		r.srcDone <- err
		return err
	})
	g.Go(func() error {
		r.glyph = r.resolveLogo(gctx)
		return nil
	})

	select {
	case err := <-r.srcDone:
		if err != nil {
			return Failed, err
		}
		return LoadLogo, nil
	case <-ctx.Done():
		return Failed, ctx.Err()
	}
}

// loadLogo joins the logo task started by loadSource.
func (r *run) loadLogo(ctx context.Context) (Stage, error) {
	done := make(chan error, 1)
	go func() { done <- r.group.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return Failed, err
		}
		return Measure, nil
	case <-ctx.Done():
		return Failed, ctx.Err()
	}
}

// resolveLogo returns nil when the placeholder should be drawn instead.
func (r *run) resolveLogo(ctx context.Context) logo.Glyph {
	s := r.settings
	if s.LogoSide == layout.Off {
		return nil
	}

	var data []byte
	switch s.Logo {
	case layout.LogoCustom:
		data = s.CustomLogo
		if len(data) == 0 {
			klog.Warningf("custom logo selected but empty, using placeholder")
			return nil
		}
	default:
		key := string(s.Logo)
		if s.Logo == layout.LogoAuto || s.Logo == "" {
			key = r.brand
		}
		a, err := r.e.logos.Resolve(ctx, key)
		if err != nil {
			klog.Warningf("logo %q unavailable, using placeholder: %v", key, err)
			return nil
		}
		data = a.Data
	}

	g, err := logo.Decode(data)
	if err != nil {
		klog.Warningf("logo decode failed, using placeholder: %v", err)
		return nil
	}
	return g
}

func (r *run) encode() (Stage, error) {
	var buf bytes.Buffer
	if err := imgio.JPEGEncoder(r.e.quality)(&buf, r.canvas); err != nil {
		return Failed, fmt.Errorf("jpeg: %w", err)
	}

	b := r.canvas.Bounds()
	banner := r.banner
	banner.Background = nil
	r.result = &Result{
		JPEG:   buf.Bytes(),
		Width:  b.Dx(),
		Height: b.Dy(),
		Plan:   r.plan,
		Style:  banner,
		Logo:   r.logo,
	}
	return Done, nil
}

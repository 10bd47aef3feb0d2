package framemark

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/otiai10/copy"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/tstromberg/framemark/pkg/layout"
	"github.com/tstromberg/framemark/pkg/logo"
	"github.com/tstromberg/framemark/pkg/meta"
	"github.com/tstromberg/framemark/pkg/place"
	"github.com/tstromberg/framemark/pkg/render"
)

// Builder renders every photo under Config.InDir into Config.OutDir.
type Builder struct {
	c       *Config
	engine  *render.Engine
	extract meta.Extractor
	places  place.Lookup
	norm    meta.Normalizer
	closers []func() error
}

// NewBuilder assembles a Builder from existing parts. places may be nil.
func NewBuilder(c *Config, e *render.Engine, ex meta.Extractor, places place.Lookup) *Builder {
	return &Builder{c: c, engine: e, extract: ex, places: places}
}

// New creates a Builder for c: it loads fonts, starts exiftool, and sets up
// place lookup if enabled. Close releases the exiftool process.
func New(ctx context.Context, c *Config) (*Builder, error) {
	e, err := NewEngine(c)
	if err != nil {
		return nil, err
	}
	b := NewBuilder(c, e, nil, nil)

	et, err := meta.NewExiftool()
	if err != nil {
		klog.Warningf("exiftool unavailable, reading EXIF in-process: %v", err)
		b.extract = meta.Goexif{}
	} else {
		b.extract = et
		b.closers = append(b.closers, et.Close)
	}

	if c.PlaceLookup {
		g, err := place.NewGemini(ctx)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("place lookup: %w", err)
		}
		b.places = place.NewCache(g)
	}
	return b, nil
}

// NewEngine creates a render engine with the fonts, logos, timeout and quality of c.
func NewEngine(c *Config) (*render.Engine, error) {
	fonts, err := render.LoadFonts(c.RegularFont, c.BoldFont)
	if err != nil {
		return nil, fmt.Errorf("fonts: %w", err)
	}
	opts := []func(*render.Engine) error{render.WithFonts(fonts)}
	if c.LogoDir != "" {
		opts = append(opts, render.WithLogos(logo.DirResolver{Dir: c.LogoDir}))
	}
	if c.Timeout > 0 {
		opts = append(opts, render.WithTimeout(c.Timeout))
	}
	if c.Quality > 0 {
		opts = append(opts, render.WithQuality(c.Quality))
	}
	e, err := render.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return e, nil
}

// Engine returns the render engine.
func (b *Builder) Engine() *render.Engine { return b.engine }

// Places returns the place lookup, or nil.
func (b *Builder) Places() place.Lookup { return b.places }

// Close stops helper processes.
func (b *Builder) Close() error {
	var errs []error
	for _, c := range b.closers {
		errs = append(errs, c())
	}
	b.closers = nil
	return errors.Join(errs...)
}

// Apply fills slot texts from c. Texts fixed in base take precedence over metadata.
func Apply(base layout.Settings, c meta.Capture) layout.Settings {
	s := base.WithMetadata(c)
	for i, sl := range base.Slots {
		if sl.Text != "" {
			s.Slots[i].Text = sl.Text
		}
	}
	return s
}

// Build renders all photos. Per-photo failures are recorded in the report;
// the returned error is reserved for setup problems and cancellation.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	klog.Infof("build: %s -> %s", b.c.InDir, b.c.OutDir)
	start := time.Now()

	settings, err := LoadSettings(b.c.SettingsPath)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	var settingsMod time.Time
	if b.c.SettingsPath != "" {
		if st, err := os.Stat(b.c.SettingsPath); err == nil {
			settingsMod = st.ModTime()
		}
	}

	ps, err := Find(b.c.InDir)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	if err := os.MkdirAll(b.c.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}

	workers := b.c.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	r := &Report{Failed: map[string]error{}}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, p := range ps {
		g.Go(func() error {
			p.OutPath = outPath(b.c.OutDir, p)
			if b.c.PreviewWidth > 0 {
				p.PreviewPath = previewPath(b.c.OutDir, p, b.c.PreviewWidth)
			}

			if upToDate(p, settingsMod) {
				klog.V(1).Infof("%s is up to date", p.OutPath)
				mu.Lock()
				r.Skipped = append(r.Skipped, p)
				mu.Unlock()
				return nil
			}

			err := b.renderPhoto(gctx, settings, p)
			if err == nil {
				mu.Lock()
				r.Rendered = append(r.Rendered, p)
				mu.Unlock()
				return nil
			}

			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			klog.Errorf("%s: %v", p.RelPath, err)
			mu.Lock()
			r.Failed[p.RelPath] = err
			mu.Unlock()

			if !b.c.PassThrough {
				return nil
			}
			dest := filepath.Join(b.c.OutDir, p.RelPath)
			if err := copy.Copy(p.InPath, dest); err != nil {
				klog.Errorf("pass-through copy of %s failed: %v", p.RelPath, err)
				return nil
			}
			p.OutPath = dest
			mu.Lock()
			r.Copied = append(r.Copied, p)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return r, fmt.Errorf("build: %w", err)
	}

	for _, l := range [][]*Photo{r.Rendered, r.Skipped, r.Copied} {
		sort.Slice(l, func(i, j int) bool { return l[i].RelPath < l[j].RelPath })
	}
	klog.Infof("build: %d rendered, %d up to date, %d failed (%d copied) in %s",
		len(r.Rendered), len(r.Skipped), len(r.Failed), len(r.Copied), time.Since(start))
	return r, nil
}

func (b *Builder) renderPhoto(ctx context.Context, settings layout.Settings, p *Photo) error {
	bs, err := os.ReadFile(p.InPath)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	c := b.norm.FromFile(ctx, b.extract, p.InPath)
	c = place.UpgradeWithin(ctx, b.places, c, b.c.LookupTimeout())
	p.Capture = c

	res, err := b.engine.Render(ctx, render.Request{Source: bs, Settings: Apply(settings, c), Brand: c.Brand})
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(p.OutPath), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(p.OutPath, res.JPEG, 0o644); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	klog.Infof("wrote %s (%dx%d)", p.OutPath, res.Width, res.Height)

	if p.PreviewPath != "" {
		if err := writePreview(res.JPEG, p.PreviewPath, b.c.PreviewWidth); err != nil {
			return fmt.Errorf("preview: %w", err)
		}
	}
	return nil
}

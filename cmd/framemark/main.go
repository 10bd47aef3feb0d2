// framemark renders camera metadata banners under a directory of photos.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/natefinch/lumberjack.v2"
	"k8s.io/klog/v2"

	"github.com/tstromberg/framemark/pkg/framemark"
	"github.com/tstromberg/framemark/pkg/layout"
	"github.com/tstromberg/framemark/pkg/manage"
	"github.com/tstromberg/framemark/pkg/render"
)

var (
	inDir        = flag.String("in", "", "Location of input directory")
	outDir       = flag.String("out", "", "Location of output directory")
	settingsPath = flag.String("settings", "", "YAML file with banner settings")
	initSettings = flag.Bool("init_settings", false, "write default settings to --settings if it does not exist")
	logoDir      = flag.String("logos", "", "directory of brand logos (<brand>.svg, .png or .jpg)")
	regularFont  = flag.String("font", "", "TrueType/OpenType font for secondary text (default: Go Regular)")
	boldFont     = flag.String("bold_font", "", "TrueType/OpenType font for primary text (default: Go Bold)")
	quality      = flag.Int("quality", render.DefaultQuality, "JPEG quality of rendered photos")
	timeout      = flag.Duration("timeout", render.DefaultTimeout, "maximum time to render one photo")
	workers      = flag.Int("workers", 0, "photos rendered in parallel (default: number of CPUs)")
	preview      = flag.Int("preview", 0, "if set, also write previews this many pixels wide")
	passThrough  = flag.Bool("pass_through", false, "copy photos that fail to render into --out unchanged")
	placeLookup  = flag.Bool("place", false, "replace coordinates with place names (needs GOOGLE_AI_API_KEY)")
	listen       = flag.Bool("listen", false, "serve content and accept uploads via HTTP")
	addr         = flag.String("addr", "localhost:12800", "host:port to bind to in listen mode")
	watchFlag    = flag.Bool("watch", false, "watch for changes to --in and --settings and rebuild")
	logRotate    = flag.String("log_rotate", "", "write logs to this file, rotating it as it grows")
)

// debounce is how long the watcher waits for events to settle before rebuilding.
var debounce = 500 * time.Millisecond

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if *logRotate != "" {
		if err := flag.Set("logtostderr", "false"); err != nil {
			klog.Exitf("logtostderr: %v", err)
		}
		klog.SetOutput(&lumberjack.Logger{Filename: *logRotate, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true})
	}
	defer klog.Flush()

	if *inDir == "" {
		klog.Exitf("--in is a required flag")
	}

	if *outDir == "" {
		klog.Exitf("--out is a required flag")
	}

	if *initSettings {
		if err := writeDefaults(*settingsPath); err != nil {
			klog.Exitf("init settings: %v", err)
		}
	}

	c := &framemark.Config{
		InDir:        *inDir,
		OutDir:       *outDir,
		SettingsPath: *settingsPath,
		LogoDir:      *logoDir,
		RegularFont:  *regularFont,
		BoldFont:     *boldFont,
		Quality:      *quality,
		Timeout:      *timeout,
		Workers:      *workers,
		PreviewWidth: *preview,
		PassThrough:  *passThrough,
		PlaceLookup:  *placeLookup,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := framemark.New(ctx, c)
	if err != nil {
		klog.Exitf("setup failed: %v", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			klog.Errorf("close: %v", err)
		}
	}()

	r, err := b.Build(ctx)
	if err != nil {
		klog.Exitf("build failed: %v", err)
	}
	for p, err := range r.Failed {
		klog.Warningf("%s: %v", p, err)
	}

	var wg sync.WaitGroup
	if *watchFlag {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watch(ctx, c, b); err != nil {
				klog.Errorf("watch failed: %v", err)
			}
		}()
	}

	if *listen {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serve(ctx, manage.New(c, b.Engine(), b.Places()), *addr)
		}()
	}

	wg.Wait()
}

func writeDefaults(path string) error {
	if path == "" {
		return errors.New("--settings is required with --init_settings")
	}
	if _, err := os.Stat(path); err == nil {
		klog.Infof("%s exists, leaving it alone", path)
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	klog.Infof("writing default settings to %s", path)
	return framemark.SaveSettings(path, layout.DefaultSettings())
}

// serve serves the output directory and the upload endpoint until ctx is done.
func serve(ctx context.Context, s *manage.Server, addr string) {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			klog.Errorf("shutdown: %v", err)
		}
	}()

	klog.Infof("Listening on %s...", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		klog.Exitf("listen failed: %v", err)
	}
}

// watch rebuilds when the input tree or settings file changes. Bursts of
// events within the debounce window cause a single rebuild.
func watch(ctx context.Context, c *framemark.Config, b *framemark.Builder) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	dirs, err := framemark.Dirs(c.InDir)
	if err != nil {
		return err
	}
	if c.SettingsPath != "" {
		dirs = append(dirs, filepath.Dir(c.SettingsPath))
	}
	slices.Sort(dirs)
	dirs = slices.Compact(dirs)

	klog.Infof("watching %d dirs ...", len(dirs))
	for _, d := range dirs {
		if err := w.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}

	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			klog.V(1).Infof("event: %v", event)
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if st, err := os.Stat(event.Name); err == nil && st.IsDir() {
					if err := w.Add(event.Name); err != nil {
						klog.Warningf("watch %s: %v", event.Name, err)
					}
				}
			}
			timer.Reset(debounce)
		case <-timer.C:
			if _, err := b.Build(ctx); err != nil {
				klog.Errorf("rebuild failed: %v", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Errorf("watch error: %v", err)
		}
	}
}

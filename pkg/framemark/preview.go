package framemark

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"k8s.io/klog/v2"
)

// PreviewQuality is the JPEG quality of preview images.
var PreviewQuality = 85

func outBase(p *Photo) string {
	base := filepath.Base(p.RelPath)
	return filepath.Join(filepath.Dir(p.RelPath), strings.TrimSuffix(base, filepath.Ext(base))+OutSuffix)
}

func outPath(outDir string, p *Photo) string {
	return filepath.Join(outDir, outBase(p)+".jpg")
}

func previewPath(outDir string, p *Photo, width int) string {
	return filepath.Join(outDir, fmt.Sprintf("%s@x%d.jpg", outBase(p), width))
}

// upToDate reports whether every output of p is newer than both its source and the settings file.
func upToDate(p *Photo, settingsMod time.Time) bool {
	for _, path := range []string{p.OutPath, p.PreviewPath} {
		if path == "" {
			continue
		}
		st, err := os.Stat(path)
		if err != nil {
			klog.V(1).Infof("updating %s: does not exist", path)
			return false
		}
		if !st.ModTime().After(p.ModTime) {
			klog.V(1).Infof("updating %s: source newer", path)
			return false
		}
		if !settingsMod.IsZero() && !st.ModTime().After(settingsMod) {
			klog.V(1).Infof("updating %s: settings newer", path)
			return false
		}
	}
	return true
}

// writePreview scales a rendered JPEG down to width, keeping its aspect ratio.
func writePreview(jpg []byte, path string, width int) error {
	img, _, err := image.Decode(bytes.NewReader(jpg))
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return fmt.Errorf("empty image %v", b)
	}

	height := int(float64(b.Dy()) * float64(width) / float64(b.Dx()))
	if height < 1 {
		height = 1
	}
	klog.V(1).Infof("creating %dx%d preview: %s", width, height, path)

	rimg := transform.Resize(img, width, height, transform.Lanczos)
	if err := imgio.Save(path, rimg, imgio.JPEGEncoder(PreviewQuality)); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

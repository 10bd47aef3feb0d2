// Package framemark renders metadata banners for a directory tree of photos.
package framemark

import (
	"time"

	"github.com/tstromberg/framemark/pkg/meta"
	"github.com/tstromberg/framemark/pkg/place"
)

// Config holds configuration for a framemark build.
type Config struct {
	InDir        string
	OutDir       string
	SettingsPath string
	LogoDir      string

	RegularFont string
	BoldFont    string

	Quality int
	Timeout time.Duration
	Workers int

	// PreviewWidth, if set, also writes a downsized copy of every output.
	PreviewWidth int
	// PassThrough copies photos that fail to render into OutDir unchanged.
	PassThrough bool
	// PlaceLookup replaces coordinate labels with place names.
	PlaceLookup bool
}

// LookupTimeout bounds a place lookup to a third of the render timeout, so a
// stalled lookup leaves time to render with the coordinate label.
func (c *Config) LookupTimeout() time.Duration {
	if c == nil || c.Timeout <= 0 {
		return place.Timeout
	}
	return c.Timeout / 3
}

// Photo is a source photo found under InDir.
type Photo struct {
	InPath  string
	RelPath string
	ModTime time.Time
	Size    int64

	Capture meta.Capture

	// OutPath is set once the photo has been rendered or passed through.
	OutPath     string
	PreviewPath string
}

// Report summarizes a build.
type Report struct {
	Rendered []*Photo
	Skipped  []*Photo
	Copied   []*Photo
	Failed   map[string]error
}

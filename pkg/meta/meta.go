// Package meta turns raw capture metadata into display-ready strings.
package meta

import (
	"context"
	"strings"
	"time"

	"k8s.io/klog/v2"
)

// Tags are raw metadata key/value pairs as reported by an extractor.
type Tags map[string]string

// Get returns the first non-empty value among keys.
func (t Tags) Get(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(t[k]); v != "" {
			return v
		}
	}
	return ""
}

// Extractor reads raw metadata tags from a photo on disk.
type Extractor interface {
	Extract(ctx context.Context, path string) (Tags, error)
}

// Capture is the normalized metadata for one photo.
type Capture struct {
	Make         string
	Model        string
	Lens         string
	FocalLength  string
	FNumber      string
	ISO          string
	ExposureTime string
	DateTime     string

	// Brand is the logo key derived from Make, or DefaultBrand.
	Brand string

	GPSLabel  string
	Lat       float64
	Lon       float64
	HasCoords bool
}

// WithGPSLabel returns a copy of c with a new location label.
func (c Capture) WithGPSLabel(label string) Capture {
	c.GPSLabel = label
	return c
}

var (
	// DisplayDateFormat is the layout used for DateTime.
	DisplayDateFormat = "2006.01.02 15:04"

	// UnknownModel is shown when no metadata could be read at all.
	UnknownModel = "Unknown Camera"
)

// Normalizer converts Tags to a Capture.
type Normalizer struct {
	// Now supplies the timestamp used when no capture date is present.
	Now func() time.Time
}

func (n Normalizer) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

// Normalize applies the default Normalizer.
func Normalize(t Tags) Capture {
	return Normalizer{}.Normalize(t)
}

// Normalize never fails: anything missing or malformed ends up empty or with a placeholder.
func (n Normalizer) Normalize(t Tags) Capture {
	c := Capture{
		Make:         t.Get("Make"),
		Model:        t.Get("Model"),
		Lens:         t.Get("LensModel", "Lens", "LensID", "LensInfo"),
		FocalLength:  focalLength(t.Get("FocalLength")),
		FNumber:      fNumber(t.Get("FNumber", "ApertureValue", "Aperture")),
		ISO:          iso(t.Get("ISO", "ISOSpeedRatings", "PhotographicSensitivity")),
		ExposureTime: exposure(t.Get("ExposureTime", "ShutterSpeed", "ShutterSpeedValue")),
	}
	c.Brand = Brand(c.Make)

	ds := t.Get("DateTimeOriginal", "CreateDate", "DateTimeDigitized", "DateTime")
	c.DateTime = displayDate(ds)
	if c.DateTime == "" {
		c.DateTime = n.now().Format(DisplayDateFormat)
	}

	if hasGPS(t) {
		lat, lon, err := Coordinates(t)
		if err != nil {
			klog.V(1).Infof("gps: %v", err)
			c.GPSLabel = UnresolvedLocation
		} else {
			c.Lat, c.Lon, c.HasCoords = lat, lon, true
			c.GPSLabel = CoordLabel(lat, lon)
		}
	}

	return c
}

// Fallback is the record used when a photo's metadata could not be extracted.
func Fallback(now time.Time) Capture {
	return Capture{
		Model:    UnknownModel,
		Brand:    DefaultBrand,
		DateTime: now.Format(DisplayDateFormat),
	}
}

// FromFile extracts and normalizes metadata, substituting Fallback on extraction failure.
func (n Normalizer) FromFile(ctx context.Context, ex Extractor, path string) Capture {
	t, err := ex.Extract(ctx, path)
	if err != nil {
		klog.Warningf("metadata for %s unavailable, using fallback: %v", path, err)
		return Fallback(n.now())
	}
	return n.Normalize(t)
}

// BytesExtractor reads raw metadata tags from an in-memory photo.
type BytesExtractor interface {
	ExtractBytes(ctx context.Context, bs []byte) (Tags, error)
}

// FromBytes is FromFile for photos that are not on disk.
func (n Normalizer) FromBytes(ctx context.Context, ex BytesExtractor, bs []byte) Capture {
	t, err := ex.ExtractBytes(ctx, bs)
	if err != nil {
		klog.Warningf("metadata unavailable, using fallback: %v", err)
		return Fallback(n.now())
	}
	return n.Normalize(t)
}
